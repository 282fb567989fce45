package arena

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/arena/internal/config"
	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/errors"
	"github.com/Iron-Ham/arena/internal/event"
	"github.com/Iron-Ham/arena/internal/logging"
)

var (
	admin  = Requester{ID: "mod", Name: "Moderator", Privileged: true}
	member = Requester{ID: "alice", Name: "Alice"}
)

// recorder collects every event published on a bus.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) handle(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func (r *recorder) count(eventType string) int {
	n := 0
	for _, t := range r.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

func (r *recorder) last(eventType string) event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].EventType() == eventType {
			return r.events[i]
		}
	}
	return nil
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type harness struct {
	orch     *Orchestrator
	registry *debate.Registry
	bus      *event.Bus
	clock    *fakeClock
	rec      *recorder
	logs     *bytes.Buffer
}

func testCatalog(t *testing.T, modify func(*config.Config)) *Catalog {
	t.Helper()
	cfg := config.Default()
	cfg.Debate.MessageLimitPerPerson = 2
	cfg.Debate.MaxCharsPerMessage = 100
	cfg.Topics = []string{"Tea beats coffee", "Cats beat dogs"}
	cfg.Moderation.ProhibitedWords = []string{"forbidden"}
	if modify != nil {
		modify(cfg)
	}
	cat, err := NewCatalog(cfg)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return cat
}

func newHarness(t *testing.T, picks []int, modify func(*config.Config)) *harness {
	t.Helper()
	clock := newFakeClock()
	return newClockHarness(t, picks, modify, clock, clock)
}

// newClockHarness drives the orchestrator through clock, which must be
// backed by fake.
func newClockHarness(t *testing.T, picks []int, modify func(*config.Config), clock Clock, fake *fakeClock) *harness {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := logging.NewWriterLogger(logs, logging.LevelDebug)
	bus := event.NewBus(logger)
	rec := &recorder{}
	bus.SubscribeAll(rec.handle)

	h := &harness{
		registry: debate.NewRegistry(),
		bus:      bus,
		clock:    fake,
		rec:      rec,
		logs:     logs,
	}
	h.orch = New(h.registry, bus, Options{
		Clock:   clock,
		Picker:  &seqPicker{vals: picks},
		Catalog: testCatalog(t, modify),
		Logger:  logger,
	})
	return h
}

// startDebate opens a session in ch, joins the given identities and lets
// the recruitment timer fire.
func (h *harness) startDebate(t *testing.T, ch string, identities ...string) *debate.Session {
	t.Helper()
	sess, err := h.orch.CreateSession(admin, ch, nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	for _, id := range identities {
		if _, err := h.orch.Join(ch, id); err != nil {
			t.Fatalf("Join(%q) error = %v", id, err)
		}
	}
	h.clock.Advance(5 * time.Minute)
	return sess
}

func (h *harness) say(ch, author, content string) debate.Result {
	return h.orch.HandleMessage(ch, debate.Message{AuthorID: author, AuthorName: strings.ToUpper(author), Content: content})
}

func assertTypes(t *testing.T, got, want []string) {
	t.Helper()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("events =\n  %v\nwant\n  %v", got, want)
	}
}

func TestOrchestrator_CompletedDebate(t *testing.T) {
	// Participants alice, bob, carol: first draw 0 (alice), second draw 0
	// shifted past alice (bob), topic draw 1.
	h := newHarness(t, []int{0, 0, 1}, nil)
	sess := h.startDebate(t, "debate-1", "alice", "bob", "carol")

	if sess.Phase() != debate.PhaseActive {
		t.Fatalf("Phase() = %q, want active", sess.Phase())
	}
	started := h.rec.last(event.TypeDebateStarted).(event.DebateStartedEvent)
	if started.Debaters != [2]string{"alice", "bob"} || started.Topic != "Cats beat dogs" {
		t.Errorf("started = %+v", started)
	}
	if started.FirstSpeaker != "alice" || started.Participants != 3 {
		t.Errorf("FirstSpeaker/Participants = %q/%d", started.FirstSpeaker, started.Participants)
	}

	h.say("debate-1", "alice", "Tea has less caffeine. Therefore it is gentler on sleep, because of dosage.")
	h.say("debate-1", "bob", "Coffee wakes you up!")
	res := h.say("debate-1", "alice", "However, taste matters too.")
	if !res.AuthorExhausted || res.Kind != debate.ResultAccepted {
		t.Errorf("third message = %+v, want accepted and exhausted", res)
	}
	res = h.say("debate-1", "bob", "Fine.")
	if res.Kind != debate.ResultCompleted {
		t.Fatalf("final message Kind = %q, want completed", res.Kind)
	}

	assertTypes(t, h.rec.types(), []string{
		event.TypeRecruitmentOpened,
		event.TypeParticipantJoined, event.TypeParticipantJoined, event.TypeParticipantJoined,
		event.TypeDebateStarted,
		event.TypeTurnNext,
		event.TypeTurnNext,
		event.TypeLimitReached, event.TypeTurnNext,
		event.TypeLimitReached,
		event.TypeScoreReported,
		event.TypeSessionEnded,
	})

	scored := h.rec.last(event.TypeScoreReported).(event.ScoreReportedEvent)
	if scored.Report.Entries != 4 || len(scored.Report.Authors) != 2 {
		t.Errorf("report = %+v", scored.Report)
	}
	if scored.Topic != "Cats beat dogs" || scored.Debaters != [2]string{"alice", "bob"} {
		t.Errorf("scored topic/debaters = %q/%v", scored.Topic, scored.Debaters)
	}
	if scored.Conclusion.Text == "" {
		t.Error("conclusion text is empty")
	}

	ended := h.rec.last(event.TypeSessionEnded).(event.SessionEndedEvent)
	if ended.Outcome != debate.OutcomeCompleted || ended.SessionID != sess.ID() {
		t.Errorf("ended = %+v", ended)
	}
	if h.registry.Len() != 0 {
		t.Errorf("registry.Len() = %d, want 0 after completion", h.registry.Len())
	}
	if !strings.Contains(h.logs.String(), `"msg":"debate started"`) {
		t.Error("debate start was not logged")
	}
}

func TestOrchestrator_TurnNextCarriesNextSpeaker(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.startDebate(t, "c", "alice", "bob")

	h.say("c", "alice", "Opening statement.")

	next := h.rec.last(event.TypeTurnNext).(event.TurnNextEvent)
	if next.Entry.AuthorID != "alice" || next.Entry.AuthorName != "ALICE" {
		t.Errorf("Entry = %+v", next.Entry)
	}
	if next.NextSpeaker != "bob" || next.Remaining != 2 {
		t.Errorf("NextSpeaker/Remaining = %q/%d, want bob/2", next.NextSpeaker, next.Remaining)
	}
}

func TestOrchestrator_InsufficientParticipants(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.startDebate(t, "c", "alice")

	assertTypes(t, h.rec.types(), []string{
		event.TypeRecruitmentOpened,
		event.TypeParticipantJoined,
		event.TypeSessionEnded,
	})
	ended := h.rec.last(event.TypeSessionEnded).(event.SessionEndedEvent)
	if ended.Outcome != debate.OutcomeInsufficientParticipants {
		t.Errorf("Outcome = %q, want insufficient_participants", ended.Outcome)
	}
	if h.registry.Len() != 0 {
		t.Error("session left in registry")
	}

	if _, err := h.orch.CreateSession(admin, "c", nil); err != nil {
		t.Errorf("CreateSession() after insufficient end = %v, want nil", err)
	}
}

func TestOrchestrator_CreatePermissions(t *testing.T) {
	h := newHarness(t, nil, func(c *config.Config) {
		c.Channels.Allowed = []string{"guild-*/debate-*"}
	})

	if _, err := h.orch.CreateSession(member, "guild-1/debate-a", nil); !errors.Is(err, errors.ErrPermissionDenied) {
		t.Errorf("CreateSession(member) error = %v, want ErrPermissionDenied", err)
	}
	if _, err := h.orch.CreateSession(admin, "guild-1/general", nil); !errors.Is(err, errors.ErrChannelNotAllowed) {
		t.Errorf("CreateSession(disallowed) error = %v, want ErrChannelNotAllowed", err)
	}
	if _, err := h.orch.CreateSession(admin, "guild-1/debate-a", nil); err != nil {
		t.Fatalf("CreateSession(allowed) error = %v", err)
	}
	_, err := h.orch.CreateSession(admin, "guild-1/debate-a", nil)
	if !errors.Is(err, errors.ErrSessionExists) {
		t.Errorf("second CreateSession() error = %v, want ErrSessionExists", err)
	}
	var sessErr *errors.SessionError
	if !errors.As(err, &sessErr) || sessErr.ChannelID != "guild-1/debate-a" {
		t.Errorf("error = %v, want SessionError for the channel", err)
	}

	if n := h.rec.count(event.TypeRecruitmentOpened); n != 1 {
		t.Errorf("recruitment.opened published %d times, want 1", n)
	}
	if h.clock.pending() != 1 {
		t.Errorf("pending timers = %d, want 1", h.clock.pending())
	}
}

func TestOrchestrator_JoinErrors(t *testing.T) {
	h := newHarness(t, nil, nil)

	if _, err := h.orch.Join("nowhere", "alice"); !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("Join(unknown) error = %v, want ErrSessionNotFound", err)
	}

	if _, err := h.orch.CreateSession(admin, "c", nil); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		count, err := h.orch.Join("c", "alice")
		if err != nil || count != 1 {
			t.Errorf("Join() #%d = %d, %v, want 1, nil", i+1, count, err)
		}
	}
	if n := h.rec.count(event.TypeParticipantJoined); n != 1 {
		t.Errorf("participant.joined published %d times, want 1", n)
	}

	if _, err := h.orch.Join("c", "bob"); err != nil {
		t.Fatalf("Join(bob) error = %v", err)
	}
	h.clock.Advance(5 * time.Minute)

	if _, err := h.orch.Join("c", "carol"); !errors.Is(err, errors.ErrInvalidPhase) {
		t.Errorf("Join() after start error = %v, want ErrInvalidPhase", err)
	}
}

func TestOrchestrator_PolicyNotices(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.startDebate(t, "c", "alice", "bob")
	h.rec.reset()

	h.say("c", "bob", "Me first")
	h.say("c", "alice", strings.Repeat("x", 101))
	h.say("c", "alice", "   ")
	h.say("c", "carol", "spectator chatter")

	assertTypes(t, h.rec.types(), []string{
		event.TypeOutOfTurn,
		event.TypeTurnRejected,
		event.TypeTurnRejected,
	})

	oot := h.rec.events[0].(event.OutOfTurnEvent)
	if oot.AuthorID != "bob" || oot.CurrentSpeaker != "alice" {
		t.Errorf("out of turn = %+v", oot)
	}
	rej := h.rec.events[1].(event.TurnRejectedEvent)
	if !strings.Contains(rej.Reason, "101") {
		t.Errorf("rejection reason = %q, want the length", rej.Reason)
	}
}

func TestOrchestrator_ForcedTermination(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.startDebate(t, "c", "alice", "bob")
	h.rec.reset()

	for i := 0; i < 3; i++ {
		h.say("c", "alice", "This is forbidden talk")
	}

	assertTypes(t, h.rec.types(), []string{
		event.TypeViolationWarning,
		event.TypeViolationWarning,
		event.TypeForcedTermination,
		event.TypeSessionEnded,
	})

	first := h.rec.events[0].(event.ViolationWarningEvent)
	second := h.rec.events[1].(event.ViolationWarningEvent)
	if first.Final || first.Violations != 1 {
		t.Errorf("first warning = %+v", first)
	}
	if !second.Final || second.Violations != 2 {
		t.Errorf("second warning = %+v", second)
	}
	forced := h.rec.events[2].(event.ForcedTerminationEvent)
	if forced.AuthorID != "alice" || forced.Violations != 3 {
		t.Errorf("forced = %+v", forced)
	}
	ended := h.rec.events[3].(event.SessionEndedEvent)
	if ended.Outcome != debate.OutcomeForcedViolations {
		t.Errorf("Outcome = %q", ended.Outcome)
	}
	if h.rec.count(event.TypeScoreReported) != 0 {
		t.Error("forced termination produced a score")
	}
	if h.registry.Len() != 0 {
		t.Error("session left in registry")
	}
}

func TestOrchestrator_StopDuringRecruitment(t *testing.T) {
	h := newHarness(t, nil, nil)
	if _, err := h.orch.CreateSession(admin, "c", nil); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	_, _ = h.orch.Join("c", "alice")
	_, _ = h.orch.Join("c", "bob")

	if err := h.orch.Stop(member, "c"); !errors.Is(err, errors.ErrPermissionDenied) {
		t.Errorf("Stop(member) error = %v, want ErrPermissionDenied", err)
	}
	if err := h.orch.Stop(admin, "c"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h.clock.pending() != 0 {
		t.Errorf("pending timers = %d, want 0 after stop", h.clock.pending())
	}

	h.clock.Advance(10 * time.Minute)

	if h.rec.count(event.TypeDebateStarted) != 0 {
		t.Error("debate started after stop")
	}
	ended := h.rec.last(event.TypeSessionEnded).(event.SessionEndedEvent)
	if ended.Outcome != debate.OutcomeAdminStopped {
		t.Errorf("Outcome = %q, want admin_stopped", ended.Outcome)
	}
	if err := h.orch.Stop(admin, "c"); !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("second Stop() error = %v, want ErrSessionNotFound", err)
	}
}

func TestOrchestrator_StopDuringDebate(t *testing.T) {
	h := newHarness(t, nil, nil)
	sess := h.startDebate(t, "c", "alice", "bob")
	h.say("c", "alice", "Point one.")

	if err := h.orch.Stop(admin, "c"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if res := h.say("c", "bob", "Too late."); res.Kind != debate.ResultIgnored {
		t.Errorf("message after stop Kind = %q, want ignored", res.Kind)
	}
	if got := len(sess.Transcript()); got != 1 {
		t.Errorf("transcript length = %d, want 1", got)
	}
	if h.rec.count(event.TypeScoreReported) != 0 {
		t.Error("stopped debate produced a score")
	}
	if h.rec.count(event.TypeSessionEnded) != 1 {
		t.Errorf("session.ended published %d times, want 1", h.rec.count(event.TypeSessionEnded))
	}
}

func TestOrchestrator_UnknownChannelIgnored(t *testing.T) {
	h := newHarness(t, nil, nil)

	res := h.say("nowhere", "alice", "hello")
	if res.Kind != debate.ResultIgnored {
		t.Errorf("Kind = %q, want ignored", res.Kind)
	}
	if len(h.rec.types()) != 0 {
		t.Errorf("events = %v, want none", h.rec.types())
	}
}

func TestOrchestrator_CatalogCapturedAtCreation(t *testing.T) {
	h := newHarness(t, nil, nil)

	if _, err := h.orch.CreateSession(admin, "old", nil); err != nil {
		t.Fatalf("CreateSession(old) error = %v", err)
	}

	err := h.orch.ApplyConfig(func() *config.Config {
		cfg := config.Default()
		cfg.Topics = []string{"Fresh topic"}
		cfg.Debate.MessageLimitPerPerson = 4
		return cfg
	}())
	if err != nil {
		t.Fatalf("ApplyConfig() error = %v", err)
	}

	if _, err := h.orch.CreateSession(admin, "new", nil); err != nil {
		t.Fatalf("CreateSession(new) error = %v", err)
	}
	for _, ch := range []string{"old", "new"} {
		_, _ = h.orch.Join(ch, "alice")
		_, _ = h.orch.Join(ch, "bob")
	}
	h.clock.Advance(5 * time.Minute)

	oldSnap, _ := h.orch.Session("old")
	newSnap, _ := h.orch.Session("new")
	if oldSnap.Topic != "Tea beats coffee" || oldSnap.Config.MessageLimitPerPerson != 2 {
		t.Errorf("old session = topic %q limit %d", oldSnap.Topic, oldSnap.Config.MessageLimitPerPerson)
	}
	if newSnap.Topic != "Fresh topic" || newSnap.Config.MessageLimitPerPerson != 4 {
		t.Errorf("new session = topic %q limit %d", newSnap.Topic, newSnap.Config.MessageLimitPerPerson)
	}

	snaps := h.orch.Sessions()
	if len(snaps) != 2 || snaps[0].ChannelID != "new" || snaps[1].ChannelID != "old" {
		t.Errorf("Sessions() channels out of order: %+v", snaps)
	}
}

func TestOrchestrator_ApplyConfigKeepsCatalogOnError(t *testing.T) {
	h := newHarness(t, nil, nil)
	before := h.orch.Catalog()

	cfg := config.Default()
	cfg.Moderation.AttackPatterns = []string{"(broken"}
	if err := h.orch.ApplyConfig(cfg); err == nil {
		t.Fatal("ApplyConfig() error = nil for invalid pattern")
	}
	if h.orch.Catalog() != before {
		t.Error("catalog replaced despite error")
	}
}

func TestOrchestrator_Deadline(t *testing.T) {
	h := newHarness(t, nil, nil)
	start := h.clock.Now()

	if _, ok := h.orch.Deadline("c"); ok {
		t.Error("Deadline() ok for missing session")
	}
	if _, err := h.orch.CreateSession(admin, "c", nil); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	deadline, ok := h.orch.Deadline("c")
	if !ok || !deadline.Equal(start.Add(5*time.Minute)) {
		t.Errorf("Deadline() = %v, %v, want %v", deadline, ok, start.Add(5*time.Minute))
	}
	opened := h.rec.last(event.TypeRecruitmentOpened).(event.RecruitmentOpenedEvent)
	if !opened.Deadline.Equal(deadline) {
		t.Errorf("event deadline = %v, want %v", opened.Deadline, deadline)
	}

	_, _ = h.orch.Join("c", "alice")
	_, _ = h.orch.Join("c", "bob")
	h.clock.Advance(5 * time.Minute)
	if _, ok := h.orch.Deadline("c"); ok {
		t.Error("Deadline() ok after debate started")
	}
}

func TestOrchestrator_ConcurrentStopAndMessages(t *testing.T) {
	for round := 0; round < 20; round++ {
		h := newHarness(t, nil, nil)
		h.startDebate(t, "c", "alice", "bob")

		var wg sync.WaitGroup
		wg.Go(func() { _ = h.orch.Stop(admin, "c") })
		for i := 0; i < 5; i++ {
			wg.Go(func() { h.say("c", "alice", "forbidden words") })
		}
		wg.Wait()

		if n := h.rec.count(event.TypeSessionEnded); n != 1 {
			t.Fatalf("round %d: session.ended published %d times, want 1", round, n)
		}
		if h.registry.Len() != 0 {
			t.Fatalf("round %d: session left in registry", round)
		}
	}
}

func TestOrchestrator_Close(t *testing.T) {
	h := newHarness(t, nil, nil)
	_, _ = h.orch.CreateSession(admin, "a", nil)
	_, _ = h.orch.CreateSession(admin, "b", nil)

	h.orch.Close()

	if h.clock.pending() != 0 {
		t.Errorf("pending timers = %d after Close, want 0", h.clock.pending())
	}
}

func TestOrchestrator_CloseRecruitment(t *testing.T) {
	h := newHarness(t, nil, nil)

	if err := h.orch.CloseRecruitment(admin, "c"); !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("CloseRecruitment() without session = %v, want ErrSessionNotFound", err)
	}

	if _, err := h.orch.CreateSession(admin, "c", nil); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	_, _ = h.orch.Join("c", "alice")
	_, _ = h.orch.Join("c", "bob")

	if err := h.orch.CloseRecruitment(member, "c"); !errors.Is(err, errors.ErrPermissionDenied) {
		t.Errorf("CloseRecruitment(member) = %v, want ErrPermissionDenied", err)
	}

	if err := h.orch.CloseRecruitment(admin, "c"); err != nil {
		t.Fatalf("CloseRecruitment() error = %v", err)
	}
	if h.rec.count(event.TypeDebateStarted) != 1 {
		t.Fatalf("debate.started published %d times, want 1", h.rec.count(event.TypeDebateStarted))
	}
	if h.clock.pending() != 0 {
		t.Errorf("pending timers = %d, want 0", h.clock.pending())
	}

	// The original deadline passing later changes nothing.
	h.clock.Advance(5 * time.Minute)
	if h.rec.count(event.TypeDebateStarted) != 1 {
		t.Error("debate started twice")
	}

	if err := h.orch.CloseRecruitment(admin, "c"); !errors.Is(err, errors.ErrInvalidPhase) {
		t.Errorf("CloseRecruitment() while active = %v, want ErrInvalidPhase", err)
	}
}

func TestOrchestrator_PerSessionLimits(t *testing.T) {
	h := newHarness(t, nil, nil)

	quick, err := h.orch.CreateSession(admin, "quick", &debate.Config{
		RecruitTimeMinutes: 1, MessageLimitPerPerson: 1, MaxCharsPerMessage: 500,
	})
	if err != nil {
		t.Fatalf("CreateSession(quick) error = %v", err)
	}
	slow, err := h.orch.CreateSession(admin, "slow", nil)
	if err != nil {
		t.Fatalf("CreateSession(slow) error = %v", err)
	}
	short, err := h.orch.CreateSession(admin, "short", &debate.Config{MaxCharsPerMessage: 50})
	if err != nil {
		t.Fatalf("CreateSession(short) error = %v", err)
	}

	configs := []struct {
		sess *debate.Session
		want debate.Config
	}{
		{quick, debate.Config{RecruitTimeMinutes: 1, MessageLimitPerPerson: 1, MaxCharsPerMessage: 500}},
		{slow, debate.Config{RecruitTimeMinutes: 5, MessageLimitPerPerson: 2, MaxCharsPerMessage: 100}},
		{short, debate.Config{RecruitTimeMinutes: 5, MessageLimitPerPerson: 2, MaxCharsPerMessage: 50}},
	}
	for _, c := range configs {
		if got := c.sess.Config(); got != c.want {
			t.Errorf("%s Config() = %+v, want %+v", c.sess.ChannelID(), got, c.want)
		}
	}

	for _, ch := range []string{"quick", "slow"} {
		for _, id := range []string{"alice", "bob"} {
			if _, err := h.orch.Join(ch, id); err != nil {
				t.Fatalf("Join(%q, %q) error = %v", ch, id, err)
			}
		}
	}

	h.clock.Advance(time.Minute)
	if quick.Phase() != debate.PhaseActive || slow.Phase() != debate.PhaseRecruiting {
		t.Fatalf("phases after 1m = %q/%q, want active/recruiting", quick.Phase(), slow.Phase())
	}

	long := strings.Repeat("Tea is calm. ", 23)
	if res := h.say("quick", "alice", long); res.Kind != debate.ResultAccepted {
		t.Fatalf("long message in quick = %q, want accepted", res.Kind)
	}
	if res := h.say("quick", "bob", "Coffee is fast."); res.Kind != debate.ResultCompleted {
		t.Fatalf("reply in quick = %q, want completed", res.Kind)
	}
	if slow.Phase() != debate.PhaseRecruiting {
		t.Errorf("slow Phase() = %q after quick completed, want recruiting", slow.Phase())
	}

	h.clock.Advance(4 * time.Minute)
	if res := h.say("slow", "alice", long); res.Kind != debate.ResultRejected {
		t.Errorf("long message in slow = %q, want rejected", res.Kind)
	}
	for _, line := range []struct{ author, text string }{
		{"alice", "Tea is calm."},
		{"bob", "Coffee is fast."},
		{"alice", "Calm wins."},
	} {
		if res := h.say("slow", line.author, line.text); res.Kind != debate.ResultAccepted {
			t.Fatalf("%s in slow = %q, want accepted", line.author, res.Kind)
		}
	}
	if res := h.say("slow", "bob", "Fast wins."); res.Kind != debate.ResultCompleted {
		t.Fatalf("last message in slow = %q, want completed", res.Kind)
	}

	if n := h.rec.count(event.TypeScoreReported); n != 2 {
		t.Errorf("score.reported published %d times, want 2", n)
	}
	if short.Phase() != debate.PhaseTerminated {
		t.Errorf("short Phase() = %q, want terminated for lack of participants", short.Phase())
	}
	if h.registry.Len() != 0 {
		t.Errorf("registry.Len() = %d, want 0", h.registry.Len())
	}
}

func TestOrchestrator_CreateRejectsBadLimits(t *testing.T) {
	tests := []struct {
		name  string
		cfg   debate.Config
		field string
	}{
		{"chars over maximum", debate.Config{MaxCharsPerMessage: 5000}, "debate.max_chars"},
		{"limit over maximum", debate.Config{MessageLimitPerPerson: 101}, "debate.message_limit"},
		{"recruit over maximum", debate.Config{RecruitTimeMinutes: 1441}, "debate.recruit_time_minutes"},
		{"negative limit", debate.Config{MessageLimitPerPerson: -1}, "debate.message_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, nil)
			_, err := h.orch.CreateSession(admin, "c", &tt.cfg)
			if err == nil {
				t.Fatal("CreateSession() error = nil")
			}
			if !errors.IsUserFacing(err) || !strings.Contains(errors.UserMessage(err), tt.field) {
				t.Errorf("UserMessage() = %q, want it to name %s", errors.UserMessage(err), tt.field)
			}
			if h.registry.Len() != 0 || len(h.rec.types()) != 0 || h.clock.pending() != 0 {
				t.Error("rejected create left state behind")
			}
		})
	}
}

func TestOrchestrator_StopFromClockDuringCreate(t *testing.T) {
	hc := &hookClock{fakeClock: newFakeClock()}
	h := newClockHarness(t, nil, nil, hc, hc.fakeClock)

	var stopErr error
	hc.onNow = func() { stopErr = h.orch.Stop(admin, "c") }

	sess, err := h.orch.CreateSession(admin, "c", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if !errors.Is(stopErr, errors.ErrSessionNotFound) {
		t.Errorf("Stop() inside Now = %v, want ErrSessionNotFound", stopErr)
	}
	if sess.Phase() != debate.PhaseRecruiting {
		t.Errorf("Phase() = %q, want recruiting", sess.Phase())
	}

	h.orch.mu.Lock()
	live := len(h.orch.tracked)
	h.orch.mu.Unlock()
	if live != h.registry.Len() || live != 1 {
		t.Errorf("tracked = %d, registry = %d, want 1 and 1", live, h.registry.Len())
	}
	assertTypes(t, h.rec.types(), []string{event.TypeRecruitmentOpened})
}

func TestOrchestrator_StopWhileArmingTimer(t *testing.T) {
	hc := &hookClock{fakeClock: newFakeClock()}
	h := newClockHarness(t, nil, nil, hc, hc.fakeClock)

	var stopErr error
	hc.onAfterFunc = func() { stopErr = h.orch.Stop(admin, "c") }

	sess, err := h.orch.CreateSession(admin, "c", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if stopErr != nil {
		t.Errorf("Stop() inside AfterFunc = %v", stopErr)
	}
	if sess.Phase() != debate.PhaseTerminated {
		t.Errorf("Phase() = %q, want terminated", sess.Phase())
	}

	assertTypes(t, h.rec.types(), []string{event.TypeRecruitmentOpened, event.TypeSessionEnded})
	h.orch.mu.Lock()
	live := len(h.orch.tracked)
	h.orch.mu.Unlock()
	if live != 0 || h.registry.Len() != 0 {
		t.Errorf("tracked = %d, registry = %d, want 0 and 0", live, h.registry.Len())
	}
	if h.clock.pending() != 0 {
		t.Errorf("pending timers = %d, want 0", h.clock.pending())
	}
}

func TestOrchestrator_StopFromRecruitmentHandler(t *testing.T) {
	h := newHarness(t, nil, nil)

	var stopErr error
	h.bus.Subscribe(event.TypeRecruitmentOpened, func(event.Event) {
		stopErr = h.orch.Stop(admin, "c")
	})

	if _, err := h.orch.CreateSession(admin, "c", nil); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if stopErr != nil {
		t.Errorf("Stop() inside handler = %v", stopErr)
	}

	assertTypes(t, h.rec.types(), []string{event.TypeRecruitmentOpened, event.TypeSessionEnded})
	ended := h.rec.last(event.TypeSessionEnded).(event.SessionEndedEvent)
	if ended.Outcome != debate.OutcomeAdminStopped {
		t.Errorf("Outcome = %q, want admin_stopped", ended.Outcome)
	}

	h.orch.mu.Lock()
	live := len(h.orch.tracked)
	h.orch.mu.Unlock()
	if live != 0 || h.registry.Len() != 0 {
		t.Errorf("tracked = %d, registry = %d, want 0 and 0", live, h.registry.Len())
	}
	if h.clock.pending() != 0 {
		t.Errorf("pending timers = %d, want 0", h.clock.pending())
	}

	if _, err := h.orch.CreateSession(admin, "c", nil); err != nil {
		t.Errorf("CreateSession() after stop = %v, want nil", err)
	}
}

func TestOrchestrator_NoTurnBeforeStartNotice(t *testing.T) {
	h := newHarness(t, nil, nil)

	var early debate.Result
	h.bus.Subscribe(event.TypeDebateStarted, func(event.Event) {
		early = h.say("c", "alice", "Too early.")
	})

	sess := h.startDebate(t, "c", "alice", "bob")
	if early.Kind != debate.ResultIgnored {
		t.Errorf("message during debate.started = %q, want ignored", early.Kind)
	}
	if n := len(sess.Transcript()); n != 0 {
		t.Errorf("len(Transcript()) = %d, want 0", n)
	}

	if res := h.say("c", "alice", "Opening statement."); res.Kind != debate.ResultAccepted {
		t.Errorf("message after debate.started = %q, want accepted", res.Kind)
	}
	assertTypes(t, h.rec.types(), []string{
		event.TypeRecruitmentOpened,
		event.TypeParticipantJoined, event.TypeParticipantJoined,
		event.TypeDebateStarted,
		event.TypeTurnNext,
	})
}
