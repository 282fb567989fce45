// Package arena wires debate sessions to the outside world. The
// Orchestrator owns the session registry, the recruitment timers and the
// reloadable catalog, routes inbound chat actions to the right session, and
// publishes every resulting notice on the event bus.
package arena

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/arena/internal/config"
	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/errors"
	"github.com/Iron-Ham/arena/internal/event"
	"github.com/Iron-Ham/arena/internal/logging"
	"github.com/Iron-Ham/arena/internal/scoring"
)

// Requester identifies who issued an inbound action. Privileged is decided
// by the transport (an admin role, an admin token, the local operator).
type Requester struct {
	ID         string
	Name       string
	Privileged bool
}

// Options configures an Orchestrator. Zero values select the system clock,
// an unseeded random picker, the built-in catalog and a discarding logger.
type Options struct {
	Clock   Clock
	Picker  debate.Picker
	Catalog *Catalog
	Logger  *logging.Logger
}

// tracked is the orchestrator's bookkeeping for one live session. All
// fields after deadline are guarded by Orchestrator.mu.
type tracked struct {
	session  *debate.Session
	catalog  *Catalog
	deadline time.Time

	timer Timer
	// announced is set once recruitment.opened has been published.
	announced bool
	// started is set once debate.started has been published. Messages are
	// not routed to the session before then.
	started bool
	// ended is set when end releases the session. pendingEnd holds the
	// outcome when that happened before the session was announced; the
	// creator publishes session.ended after recruitment.opened.
	ended      bool
	pendingEnd debate.Outcome
}

// Orchestrator coordinates debate sessions across channels.
type Orchestrator struct {
	registry *debate.Registry
	bus      *event.Bus
	clock    Clock
	picker   debate.Picker
	logger   *logging.Logger
	catalog  atomic.Pointer[Catalog]

	mu      sync.Mutex
	tracked map[string]*tracked // by session ID
}

// New creates an Orchestrator over registry that publishes on bus.
func New(registry *debate.Registry, bus *event.Bus, opts Options) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Picker == nil {
		opts.Picker = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger()
	}

	o := &Orchestrator{
		registry: registry,
		bus:      bus,
		clock:    opts.Clock,
		picker:   &lockedPicker{picker: opts.Picker},
		logger:   opts.Logger.WithComponent("orchestrator"),
		tracked:  make(map[string]*tracked),
	}
	o.catalog.Store(opts.Catalog)
	return o
}

// Catalog returns the catalog new sessions will capture.
func (o *Orchestrator) Catalog() *Catalog {
	return o.catalog.Load()
}

// SetCatalog swaps the catalog for sessions created from now on.
func (o *Orchestrator) SetCatalog(cat *Catalog) {
	o.catalog.Store(cat)
	o.logger.Info("catalog replaced",
		"topics", len(cat.Topics),
		"prohibited_words", len(cat.Filter.Words()),
		"attack_patterns", cat.Filter.PatternCount(),
		"allowed_channels", len(cat.Channels.Patterns()))
}

// ApplyConfig builds a catalog from cfg and swaps it in. On error the
// current catalog stays in force.
func (o *Orchestrator) ApplyConfig(cfg *config.Config) error {
	cat, err := NewCatalog(cfg)
	if err != nil {
		return err
	}
	o.SetCatalog(cat)
	return nil
}

// CreateSession opens recruitment in a channel and arms the recruitment
// timer. cfg carries the creator's limits for this session; nil, or any
// zero field, falls back to the catalog's debate limits. The merged limits
// must pass the same bounds as the config file.
//
// The session is tracked before it becomes visible in the registry, so a
// Stop that races with creation is always cleaned up, and its
// session.ended notice always follows recruitment.opened.
func (o *Orchestrator) CreateSession(req Requester, channelID string, cfg *debate.Config) (*debate.Session, error) {
	if !req.Privileged {
		return nil, errors.NewSessionError("create", channelID, errors.ErrPermissionDenied)
	}

	cat := o.catalog.Load()
	if !cat.Channels.Allows(channelID) {
		return nil, errors.NewSessionError("create", channelID, errors.ErrChannelNotAllowed)
	}

	limits := cat.Debate
	if cfg != nil {
		limits = limits.Override(*cfg)
	}
	if err := config.ValidateDebate(limits); err != nil {
		return nil, errors.NewSessionError("create", channelID, err)
	}
	if err := limits.Validate(); err != nil {
		return nil, errors.NewSessionError("create", channelID, err)
	}

	wait := limits.RecruitTime()
	sess := debate.NewSession(channelID, limits, cat.Filter)
	t := &tracked{
		session:  sess,
		catalog:  cat,
		deadline: o.clock.Now().Add(wait),
	}

	o.mu.Lock()
	o.tracked[sess.ID()] = t
	o.mu.Unlock()

	if err := o.registry.Add(sess); err != nil {
		o.mu.Lock()
		delete(o.tracked, sess.ID())
		o.mu.Unlock()
		return nil, err
	}

	o.sessionLogger(sess).Info("recruitment opened",
		"requested_by", req.ID,
		"recruit_minutes", limits.RecruitTimeMinutes,
		"message_limit", limits.MessageLimitPerPerson,
		"max_chars", limits.MaxCharsPerMessage)
	o.bus.Publish(event.NewRecruitmentOpenedEvent(channelID, sess.ID(), limits, t.deadline))

	timer := o.clock.AfterFunc(wait, func() { o.recruitmentExpired(sess) })

	o.mu.Lock()
	t.announced = true
	ended, pending := t.ended, t.pendingEnd
	if !ended {
		t.timer = timer
	}
	o.mu.Unlock()

	if ended {
		timer.Stop()
	}
	if pending != debate.OutcomeNone {
		o.announceEnd(sess, pending)
	}
	return sess, nil
}

// Join records a participant who has acknowledged the rules. Joining twice
// is harmless and publishes nothing the second time.
func (o *Orchestrator) Join(channelID, identity string) (int, error) {
	sess, err := o.registry.Get(channelID)
	if err != nil {
		return 0, err
	}

	count, added, err := sess.Join(identity)
	if err != nil {
		return count, errors.NewSessionError("join", channelID, err)
	}
	if added {
		o.sessionLogger(sess).Info("participant joined", "participant", identity, "count", count)
		o.bus.Publish(event.NewParticipantJoinedEvent(channelID, identity, count))
	}
	return count, nil
}

// HandleMessage routes a chat message to the channel's session. Messages in
// channels without a session are ignored, and so are messages that arrive
// after the debaters were drawn but before debate.started was published;
// no turn notice ever precedes the start notice.
func (o *Orchestrator) HandleMessage(channelID string, msg debate.Message) debate.Result {
	sess, err := o.registry.Get(channelID)
	if err != nil || !o.routable(sess) {
		return debate.Result{Kind: debate.ResultIgnored}
	}

	res := sess.Submit(msg)
	log := o.sessionLogger(sess)

	switch res.Kind {
	case debate.ResultIgnored:

	case debate.ResultOutOfTurn:
		log.Debug("message out of turn", "author", msg.AuthorID, "current", res.Current)
		o.bus.Publish(event.NewOutOfTurnEvent(channelID, msg.AuthorID, res.Current))

	case debate.ResultRejected:
		log.Debug("message rejected", "author", msg.AuthorID, "reason", res.Reason)
		o.bus.Publish(event.NewTurnRejectedEvent(channelID, msg.AuthorID, res.Reason))

	case debate.ResultWarning, debate.ResultFinalWarning:
		log.Info("moderation violation",
			"author", msg.AuthorID, "reason", res.Reason, "violations", res.Violations)
		o.bus.Publish(event.NewViolationWarningEvent(channelID, msg.AuthorID, res.Reason,
			res.Violations, res.Kind == debate.ResultFinalWarning))

	case debate.ResultTerminated:
		log.Info("session terminated by violations",
			"author", msg.AuthorID, "reason", res.Reason, "violations", res.Violations)
		o.bus.Publish(event.NewForcedTerminationEvent(channelID, msg.AuthorID, res.Reason, res.Violations))
		o.end(sess, res.Outcome)

	case debate.ResultAccepted:
		log.Debug("message accepted", "author", msg.AuthorID, "turn", res.Entry.Turn, "next", res.Current)
		if res.AuthorExhausted {
			o.bus.Publish(event.NewLimitReachedEvent(channelID, msg.AuthorID))
		}
		o.bus.Publish(event.NewTurnNextEvent(channelID, *res.Entry, res.Current, res.Remaining))

	case debate.ResultCompleted:
		o.bus.Publish(event.NewLimitReachedEvent(channelID, msg.AuthorID))
		o.report(sess, res.Transcript)
		o.end(sess, res.Outcome)
	}

	return res
}

// Stop ends a channel's session without scoring it.
func (o *Orchestrator) Stop(req Requester, channelID string) error {
	if !req.Privileged {
		return errors.NewSessionError("stop", channelID, errors.ErrPermissionDenied)
	}

	sess, err := o.registry.Get(channelID)
	if err != nil {
		return err
	}

	if !sess.Stop() {
		// Another path ended the session and owns its cleanup.
		return nil
	}
	o.sessionLogger(sess).Info("session stopped", "requested_by", req.ID)
	o.end(sess, debate.OutcomeAdminStopped)
	return nil
}

// CloseRecruitment ends recruitment ahead of the deadline and draws the
// debaters now. It is a no-op when the timer has already fired.
func (o *Orchestrator) CloseRecruitment(req Requester, channelID string) error {
	if !req.Privileged {
		return errors.NewSessionError("start", channelID, errors.ErrPermissionDenied)
	}

	sess, err := o.registry.Get(channelID)
	if err != nil {
		return err
	}
	if sess.Phase() != debate.PhaseRecruiting {
		return errors.NewSessionError("start", channelID, errors.ErrInvalidPhase)
	}

	o.mu.Lock()
	t, ok := o.tracked[sess.ID()]
	cancelled := ok && t.timer != nil && t.timer.Stop()
	o.mu.Unlock()
	if !cancelled {
		return nil
	}

	o.sessionLogger(sess).Info("recruitment closed early", "requested_by", req.ID)
	o.recruitmentExpired(sess)
	return nil
}

// Deadline returns the recruitment deadline of the channel's session while
// it is still recruiting.
func (o *Orchestrator) Deadline(channelID string) (time.Time, bool) {
	sess, err := o.registry.Get(channelID)
	if err != nil || sess.Phase() != debate.PhaseRecruiting {
		return time.Time{}, false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tracked[sess.ID()]
	if !ok {
		return time.Time{}, false
	}
	return t.deadline, true
}

// Session returns a snapshot of the channel's session.
func (o *Orchestrator) Session(channelID string) (debate.Snapshot, error) {
	sess, err := o.registry.Get(channelID)
	if err != nil {
		return debate.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Sessions returns snapshots of every live session ordered by channel.
func (o *Orchestrator) Sessions() []debate.Snapshot {
	var out []debate.Snapshot
	for _, ch := range o.registry.Channels() {
		if sess, err := o.registry.Get(ch); err == nil {
			out = append(out, sess.Snapshot())
		}
	}
	return out
}

// Close cancels every pending recruitment timer. Live sessions are left as
// they are; nothing survives the process.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, t := range o.tracked {
		if t.timer != nil {
			t.timer.Stop()
		}
	}
}

// routable reports whether messages may reach sess. A live session is
// routable once debate.started is out; a session that is no longer tracked
// is left to Submit, which ignores it as terminated.
func (o *Orchestrator) routable(sess *debate.Session) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tracked[sess.ID()]
	return !ok || t.started
}

// recruitmentExpired runs on the timer goroutine. It holds no lock while
// the timer waits; Begin takes the session lock for the transition. The
// session is active from Begin on, but HandleMessage holds messages back
// until debate.started has been published.
func (o *Orchestrator) recruitmentExpired(sess *debate.Session) {
	o.mu.Lock()
	t, ok := o.tracked[sess.ID()]
	o.mu.Unlock()
	if !ok {
		return
	}

	sel, err := sess.Begin(o.picker, t.catalog.Topics)
	if err != nil {
		// Stopped while the timer was firing.
		return
	}

	channelID := sess.ChannelID()
	log := o.sessionLogger(sess)
	if !sel.Started {
		log.Info("recruitment closed without enough participants", "participants", sel.Participants)
		o.end(sess, sel.Outcome)
		return
	}

	log.Info("debate started",
		"side_a", sel.Debaters[0],
		"side_b", sel.Debaters[1],
		"topic", sel.Topic,
		"participants", sel.Participants)
	o.bus.Publish(event.NewDebateStartedEvent(channelID, sess.ID(), sel, sess.Config()))

	o.mu.Lock()
	t.started = true
	o.mu.Unlock()
}

// report scores a completed transcript and publishes the result.
func (o *Orchestrator) report(sess *debate.Session, transcript []debate.Entry) {
	var debaters [2]string
	copy(debaters[:], sess.Debaters())

	rep := scoring.Score(transcript)
	concl := scoring.Conclude(rep, debaters)

	o.sessionLogger(sess).Info("debate completed",
		"entries", rep.Entries,
		"near_parity", concl.NearParity,
		"margin", concl.Margin)
	o.bus.Publish(event.NewScoreReportedEvent(sess.ChannelID(), sess.Topic(), debaters, rep, concl))
}

// end releases a terminated session: its timer, its registry slot, and a
// final session.ended notice. Exactly one path calls end per session, the
// one whose call moved the session into Terminated.
func (o *Orchestrator) end(sess *debate.Session, outcome debate.Outcome) {
	deferred := false
	o.mu.Lock()
	if t, ok := o.tracked[sess.ID()]; ok {
		if t.timer != nil {
			t.timer.Stop()
		}
		delete(o.tracked, sess.ID())
		t.ended = true
		if !t.announced {
			t.pendingEnd = outcome
			deferred = true
		}
	}
	o.mu.Unlock()

	channelID := sess.ChannelID()
	removed := o.registry.Remove(channelID, sess)
	if err := errors.Invariant(removed, "session %s missing from registry for %s", sess.ID(), channelID); err != nil {
		o.sessionLogger(sess).Error("invariant fault", "error", err.Error())
	}

	if deferred {
		o.sessionLogger(sess).Debug("session ended before recruitment was announced", "outcome", string(outcome))
		return
	}
	o.announceEnd(sess, outcome)
}

func (o *Orchestrator) announceEnd(sess *debate.Session, outcome debate.Outcome) {
	o.sessionLogger(sess).Info("session ended", "outcome", string(outcome))
	o.bus.Publish(event.NewSessionEndedEvent(sess.ChannelID(), sess.ID(), outcome))
}

func (o *Orchestrator) sessionLogger(sess *debate.Session) *logging.Logger {
	return o.logger.WithChannel(sess.ChannelID()).WithSession(sess.ID())
}
