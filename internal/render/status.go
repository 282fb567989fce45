package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/scoring"
)

// Command describes one chat action for the help text.
type Command struct {
	Name        string
	Description string
}

// Commands lists the actions every transport offers, in help order.
var Commands = []Command{
	{"create", "open recruitment for a new debate, optionally overriding recruit_minutes, message_limit or max_chars (administrators only)"},
	{"join", "accept the rules and register for the current debate"},
	{"start", "close recruitment now and draw the debaters (administrators only)"},
	{"status", "show the state of the debate in this channel"},
	{"topics", "list the topics a debate can be drawn from"},
	{"stop", "end the current debate without a score (administrators only)"},
	{"help", "show this help"},
}

// Help renders the command list. prefix is prepended to every command name,
// for example "/" in the local console.
func Help(prefix string) string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range Commands {
		fmt.Fprintf(&b, "\n  %-10s %s", prefix+c.Name, c.Description)
	}
	b.WriteString("\nDuring a debate, the two drawn sides simply write their messages in turn.")
	return b.String()
}

// Topics renders a numbered topic list.
func Topics(topics []string) string {
	if len(topics) == 0 {
		return "No topics are configured."
	}
	var b strings.Builder
	b.WriteString("Debate topics:")
	for i, topic := range topics {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, Sanitize(topic))
	}
	return b.String()
}

// Status renders a session snapshot. deadline is shown as a countdown while
// the session is recruiting; pass the zero time when it is unknown.
func (r *Renderer) Status(snap debate.Snapshot, deadline time.Time) string {
	var b strings.Builder

	switch snap.Phase {
	case debate.PhaseRecruiting, debate.PhaseSelecting:
		fmt.Fprintf(&b, "Recruiting: %s registered.", plural(len(snap.Participants), "participant"))
		if !deadline.IsZero() {
			fmt.Fprintf(&b, " Debaters are drawn in %s.", Countdown(deadline.Sub(r.now())))
		}

	case debate.PhaseActive:
		fmt.Fprintf(&b, "Topic: %s", Sanitize(snap.Topic))
		limit := snap.Config.MessageLimitPerPerson
		for side, id := range snap.Debaters {
			fmt.Fprintf(&b, "\n%s: %s, %d/%d messages, %s",
				sideStyle(side).Render(scoring.SideLabels[side]), r.name(id),
				snap.Counts[id], limit, plural(snap.Violations[id], "warning"))
		}
		if len(snap.Debaters) == 2 {
			fmt.Fprintf(&b, "\nWaiting for %s.", r.name(snap.Debaters[snap.Turn%2]))
		}

	default:
		fmt.Fprintf(&b, "Session ended: %s.", snap.Outcome.Describe())
	}

	return r.finish(b.String())
}
