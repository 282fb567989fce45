package script

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Iron-Ham/arena/internal/arena"
	"github.com/Iron-Ham/arena/internal/config"
	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/event"
	"github.com/Iron-Ham/arena/internal/logging"
	"github.com/Iron-Ham/arena/internal/render"
	"github.com/Iron-Ham/arena/internal/scoring"
)

// stepInterval is the simulated time between scripted messages.
const stepInterval = 20 * time.Second

// Options configures a Runner.
type Options struct {
	// Out receives the rendered notices. Nil discards them.
	Out io.Writer
	// Plain disables ANSI styling.
	Plain bool
	// Width caps echoed message previews; see render.Options.
	Width int
	// Config supplies limits, topics and moderation lists that the
	// scenario does not override. Nil uses config.Default.
	Config *config.Config
	Logger *logging.Logger
}

// Report summarizes one scenario run.
type Report struct {
	Outcome  debate.Outcome
	Debaters [2]string
	Topic    string
	// Events lists the published event types in order.
	Events []string
	// Score is set when the debate completed.
	Score *scoring.Report
	// Conclusion accompanies Score.
	Conclusion *scoring.Conclusion
	// Transcript is the session transcript when the run stopped, whether
	// or not the debate ended.
	Transcript []debate.Entry
}

// Runner replays scenarios.
type Runner struct {
	out    io.Writer
	plain  bool
	width  int
	base   *config.Config
	logger *logging.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger()
	}
	return &Runner{
		out:    opts.Out,
		plain:  opts.Plain,
		width:  opts.Width,
		base:   opts.Config,
		logger: opts.Logger.WithComponent("script"),
	}
}

// Run plays sc to completion or until its steps run out. Recruitment ends
// as soon as every scripted participant has joined; simulated time is used
// for deadlines and timestamps.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	cat, err := arena.NewCatalog(r.effectiveConfig(sc))
	if err != nil {
		return nil, err
	}

	clock := newStepClock(time.Now())
	renderer := render.New(render.Options{
		Plain: r.plain,
		Width: r.width,
		Names: sc.displayName,
		Now:   clock.Now,
	})

	report := &Report{}
	bus := event.NewBus(r.logger)
	bus.SubscribeChannel(sc.Channel, func(e event.Event) {
		report.Events = append(report.Events, e.EventType())
		switch ev := e.(type) {
		case event.DebateStartedEvent:
			report.Debaters = ev.Debaters
			report.Topic = ev.Topic
		case event.ScoreReportedEvent:
			report.Score = &ev.Report
			report.Conclusion = &ev.Conclusion
		case event.SessionEndedEvent:
			report.Outcome = ev.Outcome
		}
		if text := renderer.Event(e); text != "" {
			fmt.Fprintf(r.out, "%s\n\n", text)
		}
	})

	orch := arena.New(debate.NewRegistry(), bus, arena.Options{
		Clock:   clock,
		Picker:  rand.New(rand.NewPCG(sc.Seed, sc.Seed)),
		Catalog: cat,
		Logger:  r.logger,
	})
	defer orch.Close()

	admin := arena.Requester{ID: sc.Admin, Name: sc.Admin, Privileged: true}
	sess, err := orch.CreateSession(admin, sc.Channel, &sc.Debate)
	if err != nil {
		return nil, err
	}

	for _, p := range sc.Participants {
		if _, err := orch.Join(sc.Channel, p.ID); err != nil {
			return nil, err
		}
	}
	clock.Advance(sess.Config().RecruitTime())

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if sess.Phase() == debate.PhaseTerminated {
			r.logger.Debug("session ended before the script did", "remaining_steps", len(sc.Steps)-i)
			break
		}
		clock.Advance(stepInterval)

		if st.Action == ActionStop {
			if err := orch.Stop(admin, sc.Channel); err != nil {
				return report, err
			}
			continue
		}

		author := r.resolve(st.From, report.Debaters)
		orch.HandleMessage(sc.Channel, debate.Message{
			AuthorID:   author,
			AuthorName: sc.displayName(author),
			Content:    st.Text,
			Timestamp:  clock.Now(),
		})
	}

	report.Transcript = sess.Transcript()
	return report, nil
}

func (r *Runner) resolve(from string, debaters [2]string) string {
	switch from {
	case SideA:
		return debaters[0]
	case SideB:
		return debaters[1]
	default:
		return from
	}
}

// effectiveConfig layers the scenario's topics on the base config. The
// scenario's debate limits travel with the create request instead.
func (r *Runner) effectiveConfig(sc *Scenario) *config.Config {
	cfg := *r.base
	if len(sc.Topics) > 0 {
		cfg.Topics = sc.Topics
	}
	return &cfg
}

// stepClock is a simulated clock. Timers fire synchronously inside Advance.
type stepClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*stepTimer
}

type stepTimer struct {
	at      time.Time
	f       func()
	stopped bool
}

func newStepClock(start time.Time) *stepClock {
	return &stepClock{now: start}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) AfterFunc(d time.Duration, f func()) arena.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &stepTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return &stepHandle{clock: c, timer: t}
}

// Advance moves simulated time forward and runs every timer now due.
func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due, pending []*stepTimer
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			due = append(due, t)
		default:
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

type stepHandle struct {
	clock *stepClock
	timer *stepTimer
}

func (h *stepHandle) Stop() bool {
	h.clock.mu.Lock()
	defer h.clock.mu.Unlock()
	for _, t := range h.clock.timers {
		if t == h.timer && !t.stopped {
			t.stopped = true
			return true
		}
	}
	return false
}
