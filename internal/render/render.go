// Package render turns debate events into chat-ready text. Styled output
// uses lipgloss; plain output strips all escape sequences for transports
// that cannot show them.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/event"
	"github.com/Iron-Ham/arena/internal/scoring"
	"github.com/charmbracelet/lipgloss"
)

const (
	barWidth         = 10
	defaultEchoWidth = 120
)

// Options configures a Renderer.
type Options struct {
	// Plain strips ANSI styling from every rendered notice.
	Plain bool
	// Width caps echoed message previews in terminal columns. Zero selects
	// a default; negative disables truncation.
	Width int
	// Names maps an identity to a display name. Nil shows identities as is.
	Names func(id string) string
	// Now is used for countdowns. Nil uses time.Now.
	Now func() time.Time
}

// Renderer formats events. It is safe for concurrent use.
type Renderer struct {
	plain bool
	width int
	names func(string) string
	now   func() time.Time
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	r := &Renderer{plain: opts.Plain, width: opts.Width, names: opts.Names, now: opts.Now}
	if r.width == 0 {
		r.width = defaultEchoWidth
	}
	if r.names == nil {
		r.names = func(id string) string { return id }
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Name returns the sanitized display name of an identity.
func (r *Renderer) Name(id string) string {
	return r.name(id)
}

func (r *Renderer) name(id string) string {
	return Sanitize(r.names(id))
}

func (r *Renderer) finish(s string) string {
	if r.plain {
		return Plain(s)
	}
	return s
}

// Event renders one event. Unknown event types render as "".
func (r *Renderer) Event(e event.Event) string {
	var out string
	switch ev := e.(type) {
	case event.RecruitmentOpenedEvent:
		out = r.recruitment(ev)
	case event.ParticipantJoinedEvent:
		out = fmt.Sprintf("%s joined the debate (%s registered).",
			r.name(ev.ParticipantID), plural(ev.Count, "participant"))
	case event.DebateStartedEvent:
		out = r.started(ev)
	case event.TurnRejectedEvent:
		out = Warning.Render(fmt.Sprintf("%s, your message was not accepted: %s.",
			r.name(ev.AuthorID), ev.Reason)) + "\n" + Muted.Render("Your turn has not been used; please try again.")
	case event.OutOfTurnEvent:
		out = Muted.Render(fmt.Sprintf("%s, it is not your turn yet. Waiting for %s.",
			r.name(ev.AuthorID), r.name(ev.CurrentSpeaker)))
	case event.ViolationWarningEvent:
		out = r.warning(ev)
	case event.ForcedTerminationEvent:
		out = Danger.Render(fmt.Sprintf("The debate has been ended: %s reached %d violations (%s).",
			r.name(ev.AuthorID), ev.Violations, ev.Reason)) + "\n" + Muted.Render("No score is given for this debate.")
	case event.LimitReachedEvent:
		out = Muted.Render(fmt.Sprintf("%s has used all of their messages.", r.name(ev.AuthorID)))
	case event.TurnNextEvent:
		out = r.turn(ev)
	case event.ScoreReportedEvent:
		out = r.Score(ev)
	case event.SessionEndedEvent:
		out = r.ended(ev)
	default:
		return ""
	}
	return r.finish(out)
}

func (r *Renderer) recruitment(ev event.RecruitmentOpenedEvent) string {
	var b strings.Builder
	b.WriteString(Title.Render("A debate is starting!"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Join within %s to take part (%s left).\n",
		Countdown(ev.Config.RecruitTime()), Countdown(ev.Deadline.Sub(r.now())))
	b.WriteString(Rules(ev.Config))
	return b.String()
}

// Rules describes the limits a participant agrees to when joining.
func Rules(cfg debate.Config) string {
	lines := []string{
		"Rules:",
		"  • Two participants are drawn at random as Side A and Side B.",
		"  • Sides speak in strict alternation, Side A first.",
		fmt.Sprintf("  • Each side has %s of at most %d characters.",
			plural(cfg.MessageLimitPerPerson, "message"), cfg.MaxCharsPerMessage),
		fmt.Sprintf("  • Personal attacks and prohibited words earn a warning; %d violations end the debate.",
			debate.MaxViolations),
		"  • The closing score rates structure only, not who was right.",
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) started(ev event.DebateStartedEvent) string {
	var b strings.Builder
	b.WriteString(Title.Render("The debate begins!"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Topic: %s\n", Sanitize(ev.Topic))
	for side, id := range ev.Debaters {
		fmt.Fprintf(&b, "%s: %s\n", sideStyle(side).Render(scoring.SideLabels[side]), r.name(id))
	}
	fmt.Fprintf(&b, "%s speaks first. Each side has %s.",
		r.name(ev.FirstSpeaker), plural(ev.Config.MessageLimitPerPerson, "message"))
	return b.String()
}

func (r *Renderer) warning(ev event.ViolationWarningEvent) string {
	if ev.Final {
		return Danger.Render(fmt.Sprintf("Final warning for %s (%d/%d): %s.",
			r.name(ev.AuthorID), ev.Violations, debate.MaxViolations, ev.Reason)) +
			"\n" + Muted.Render("One more violation ends the debate.")
	}
	return Warning.Render(fmt.Sprintf("Warning for %s (%d/%d): %s.",
		r.name(ev.AuthorID), ev.Violations, debate.MaxViolations, ev.Reason)) +
		"\n" + Muted.Render("The message was not recorded; your turn is still open.")
}

func (r *Renderer) turn(ev event.TurnNextEvent) string {
	author := ev.Entry.AuthorName
	if author == "" {
		author = r.names(ev.Entry.AuthorID)
	}
	echo := fmt.Sprintf("[%d] %s: %s", ev.Entry.Turn+1, Sanitize(author), Sanitize(ev.Entry.Content))
	if r.width > 0 {
		echo = Truncate(echo, r.width)
	}
	return echo + "\n" + Muted.Render(fmt.Sprintf("Next: %s (%s left).",
		r.name(ev.NextSpeaker), plural(ev.Remaining, "message")))
}

func (r *Renderer) ended(ev event.SessionEndedEvent) string {
	switch ev.Outcome {
	case debate.OutcomeCompleted:
		return Muted.Render("The debate is over. Thanks for taking part!")
	case debate.OutcomeInsufficientParticipants:
		return Muted.Render("Not enough participants joined; the debate was cancelled.")
	case debate.OutcomeAdminStopped:
		return Warning.Render("The debate was stopped by an administrator.")
	default:
		return Muted.Render("Session ended: " + ev.Outcome.Describe() + ".")
	}
}

// Score renders the structural score report of a completed debate.
func (r *Renderer) Score(ev event.ScoreReportedEvent) string {
	var b strings.Builder
	b.WriteString(Title.Render("Structural score"))
	if ev.Topic != "" {
		b.WriteString(Muted.Render(" · " + Sanitize(ev.Topic)))
	}
	b.WriteString("\n")

	for side, id := range ev.Debaters {
		bd, ok := ev.Report.Get(id)
		name := r.name(id)
		if ok && bd.AuthorName != "" {
			name = Sanitize(bd.AuthorName)
		}
		fmt.Fprintf(&b, "\n%s %s  %.1f/%.0f\n",
			sideStyle(side).Render(scoring.SideLabels[side]), name, bd.Total, 4*scoring.MaxMetric)
		for _, m := range []struct {
			label string
			value float64
		}{
			{"Consistency", bd.Consistency},
			{"Clarity", bd.Clarity},
			{"Structure", bd.Structure},
			{"Calmness", bd.Calmness},
		} {
			fmt.Fprintf(&b, "  %-12s %s %4.1f/%.0f\n", m.label, metricBar(m.value), m.value, scoring.MaxMetric)
		}
	}

	b.WriteString("\n")
	b.WriteString(ev.Conclusion.Text)
	b.WriteString("\n")
	b.WriteString(Muted.Render("This score reflects message structure only; it does not decide who was right."))

	return r.finish(ScoreBox.Render(b.String()))
}

func metricBar(value float64) string {
	color := BandColor(value, scoring.MaxMetric)
	return lipgloss.NewStyle().Foreground(color).Render(Bar(value, scoring.MaxMetric, barWidth))
}
