package debate

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Iron-Ham/arena/internal/errors"
	"github.com/Iron-Ham/arena/internal/moderation"
	"github.com/google/uuid"
)

// Session manages one debate in one channel.
type Session struct {
	mu        sync.Mutex
	id        string
	channelID string
	cfg       Config
	filter    *moderation.Filter
	createdAt time.Time
	now       func() time.Time

	phase        Phase
	outcome      Outcome
	participants []string
	members      map[string]struct{}
	debaters     []string // empty, or exactly two once selected
	topic        string
	turn         int
	transcript   []Entry
	counts       map[string]int // accepted messages per debater
	violations   map[string]int
}

// NewSession creates a session in the Recruiting phase. The filter is
// captured for the session's lifetime; a nil filter accepts everything.
func NewSession(channelID string, cfg Config, filter *moderation.Filter) *Session {
	return &Session{
		id:         uuid.NewString(),
		channelID:  channelID,
		cfg:        cfg,
		filter:     filter,
		createdAt:  time.Now().UTC(),
		now:        func() time.Time { return time.Now().UTC() },
		phase:      PhaseRecruiting,
		members:    make(map[string]struct{}),
		counts:     make(map[string]int),
		violations: make(map[string]int),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// ChannelID returns the hosting channel.
func (s *Session) ChannelID() string {
	return s.channelID
}

// Config returns the session limits.
func (s *Session) Config() Config {
	return s.cfg
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Outcome returns the termination reason, or OutcomeNone while running.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Join registers a participant during recruitment. Joining twice is a no-op
// that reports added=false. The returned count is the participant total.
func (s *Session) Join(identity string) (count int, added bool, err error) {
	if identity == "" {
		return 0, false, fmt.Errorf("debate: %w: empty identity", errors.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRecruiting {
		if s.phase == PhaseTerminated {
			return len(s.participants), false, errors.ErrSessionTerminated
		}
		return len(s.participants), false, errors.ErrInvalidPhase
	}

	if _, ok := s.members[identity]; ok {
		return len(s.participants), false, nil
	}
	s.members[identity] = struct{}{}
	s.participants = append(s.participants, identity)
	return len(s.participants), true, nil
}

// Begin performs the recruitment-deadline transition. With fewer than two
// participants the session terminates as insufficient. Otherwise two
// distinct debaters are drawn uniformly without replacement (draw order is
// side order), one topic is drawn uniformly, and the session becomes Active
// with Side A to speak first.
func (s *Session) Begin(picker Picker, topics []string) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseRecruiting:
	case PhaseTerminated:
		return Selection{Outcome: s.outcome}, errors.ErrSessionTerminated
	default:
		return Selection{}, errors.ErrInvalidPhase
	}

	s.phase = PhaseSelecting
	n := len(s.participants)

	if n < 2 {
		s.terminateLocked(OutcomeInsufficientParticipants)
		return Selection{Participants: n, Outcome: s.outcome}, nil
	}

	first := picker.IntN(n)
	second := picker.IntN(n - 1)
	if second >= first {
		second++
	}
	s.debaters = []string{s.participants[first], s.participants[second]}

	s.topic = FallbackTopic
	if len(topics) > 0 {
		s.topic = topics[picker.IntN(len(topics))]
	}

	s.turn = 0
	s.phase = PhaseActive

	return Selection{
		Started:      true,
		Debaters:     [2]string{s.debaters[0], s.debaters[1]},
		Topic:        s.topic,
		FirstSpeaker: s.debaters[0],
		Participants: n,
	}, nil
}

// Submit runs one inbound message through the turn, length and moderation
// checks and applies the consequence. Only an accepted message from the
// current debater is logged and advances the turn.
func (s *Session) Submit(msg Message) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive || !s.isDebaterLocked(msg.AuthorID) {
		return Result{Kind: ResultIgnored}
	}

	author := msg.AuthorID
	current := s.currentLocked()
	if author != current {
		return s.resultLocked(ResultOutOfTurn, fmt.Sprintf("it is %s's turn", current))
	}

	if strings.TrimSpace(msg.Content) == "" {
		return s.resultLocked(ResultRejected, "message is empty")
	}
	if n := utf8.RuneCountInString(msg.Content); n > s.cfg.MaxCharsPerMessage {
		return s.resultLocked(ResultRejected,
			fmt.Sprintf("message is %d characters; the limit is %d", n, s.cfg.MaxCharsPerMessage))
	}
	if s.counts[author] >= s.cfg.MessageLimitPerPerson {
		return s.resultLocked(ResultRejected, "message limit already reached")
	}

	if verdict := s.filter.Classify(msg.Content); !verdict.Accepted {
		s.violations[author]++
		count := s.violations[author]

		kind := ResultWarning
		switch {
		case count >= MaxViolations:
			s.terminateLocked(OutcomeForcedViolations)
			kind = ResultTerminated
		case count == MaxViolations-1:
			kind = ResultFinalWarning
		}

		res := s.resultLocked(kind, verdict.Reason)
		res.Violations = count
		res.Outcome = s.outcome
		return res
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	entry := Entry{
		AuthorID:   author,
		AuthorName: msg.AuthorName,
		Content:    msg.Content,
		Turn:       s.turn,
		Timestamp:  ts,
	}
	if entry.AuthorName == "" {
		entry.AuthorName = author
	}
	s.transcript = append(s.transcript, entry)
	s.turn++
	s.counts[author]++

	exhausted := s.counts[author] >= s.cfg.MessageLimitPerPerson
	if exhausted && s.counts[s.opponentLocked(author)] >= s.cfg.MessageLimitPerPerson {
		s.terminateLocked(OutcomeCompleted)
		res := s.resultLocked(ResultCompleted, "")
		res.AuthorExhausted = true
		res.Entry = &entry
		res.Outcome = s.outcome
		res.Transcript = slices.Clone(s.transcript)
		return res
	}

	res := s.resultLocked(ResultAccepted, "")
	res.AuthorExhausted = exhausted
	res.Entry = &entry
	res.Violations = s.violations[author]
	return res
}

// Stop forces the session into Terminated with OutcomeAdminStopped. It
// returns false if the session had already terminated.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseTerminated {
		return false
	}
	s.terminateLocked(OutcomeAdminStopped)
	return true
}

// Current returns the debater whose turn it is, or "" when not active.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActive {
		return ""
	}
	return s.currentLocked()
}

// Debaters returns the selected pair, or nil before selection.
func (s *Session) Debaters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.debaters)
}

// Topic returns the selected topic, or "" before selection.
func (s *Session) Topic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topic
}

// Participants returns registered identities in join order.
func (s *Session) Participants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.participants)
}

// Transcript returns a copy of the accepted messages.
func (s *Session) Transcript() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transcript)
}

// Violations returns the violation count of one identity.
func (s *Session) Violations(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violations[identity]
}

// Snapshot returns a copy of the whole session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:           s.id,
		ChannelID:    s.channelID,
		Phase:        s.phase,
		Outcome:      s.outcome,
		Config:       s.cfg,
		CreatedAt:    s.createdAt,
		Participants: slices.Clone(s.participants),
		Debaters:     slices.Clone(s.debaters),
		Topic:        s.topic,
		Turn:         s.turn,
		Transcript:   slices.Clone(s.transcript),
		Violations:   maps.Clone(s.violations),
		Counts:       maps.Clone(s.counts),
	}
}

func (s *Session) terminateLocked(outcome Outcome) {
	s.phase = PhaseTerminated
	s.outcome = outcome
}

func (s *Session) isDebaterLocked(identity string) bool {
	return slices.Contains(s.debaters, identity)
}

func (s *Session) currentLocked() string {
	return s.debaters[s.turn%2]
}

func (s *Session) opponentLocked(identity string) string {
	if s.debaters[0] == identity {
		return s.debaters[1]
	}
	return s.debaters[0]
}

// resultLocked fills the turn bookkeeping shared by every non-ignored result.
func (s *Session) resultLocked(kind ResultKind, reason string) Result {
	current := s.currentLocked()
	return Result{
		Kind:      kind,
		Reason:    reason,
		Current:   current,
		Remaining: s.cfg.MessageLimitPerPerson - s.counts[current],
	}
}
