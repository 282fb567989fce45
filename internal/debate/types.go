package debate

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/arena/internal/errors"
)

// Phase represents the current state of a debate session.
type Phase string

const (
	// PhaseRecruiting accepts participant registrations.
	PhaseRecruiting Phase = "recruiting"

	// PhaseSelecting is the transient step in which debaters are drawn.
	PhaseSelecting Phase = "selecting"

	// PhaseActive accepts turns from the two debaters.
	PhaseActive Phase = "active"

	// PhaseTerminated is final; see Outcome for the reason.
	PhaseTerminated Phase = "terminated"
)

// Outcome labels why a session terminated.
type Outcome string

const (
	OutcomeNone                     Outcome = ""
	OutcomeCompleted                Outcome = "completed"
	OutcomeForcedViolations         Outcome = "forced_violations"
	OutcomeInsufficientParticipants Outcome = "insufficient_participants"
	OutcomeAdminStopped             Outcome = "admin_stopped"
)

// Scored reports whether the outcome comes with a score report.
func (o Outcome) Scored() bool {
	return o == OutcomeCompleted
}

// Describe returns a short human-readable label for the outcome.
func (o Outcome) Describe() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeForcedViolations:
		return "forced termination: violations"
	case OutcomeInsufficientParticipants:
		return "insufficient participants"
	case OutcomeAdminStopped:
		return "administratively stopped"
	default:
		return "in progress"
	}
}

// MaxViolations is the violation count that ends a session.
const MaxViolations = 3

// FallbackTopic is used when no topics are configured.
const FallbackTopic = "Free debate"

// Config holds the per-session limits fixed at creation.
type Config struct {
	RecruitTimeMinutes    int `mapstructure:"recruit_time_minutes" yaml:"recruit_time_minutes"`
	MessageLimitPerPerson int `mapstructure:"message_limit" yaml:"message_limit"`
	MaxCharsPerMessage    int `mapstructure:"max_chars" yaml:"max_chars"`
}

// DefaultConfig returns the limits used when a creator gives none.
func DefaultConfig() Config {
	return Config{
		RecruitTimeMinutes:    5,
		MessageLimitPerPerson: 5,
		MaxCharsPerMessage:    500,
	}
}

// RecruitTime returns the recruitment window as a time.Duration.
func (c Config) RecruitTime() time.Duration {
	return time.Duration(c.RecruitTimeMinutes) * time.Minute
}

// Override returns c with every non-zero field of o applied. Zero fields
// of o inherit the value from c.
func (c Config) Override(o Config) Config {
	if o.RecruitTimeMinutes != 0 {
		c.RecruitTimeMinutes = o.RecruitTimeMinutes
	}
	if o.MessageLimitPerPerson != 0 {
		c.MessageLimitPerPerson = o.MessageLimitPerPerson
	}
	if o.MaxCharsPerMessage != 0 {
		c.MaxCharsPerMessage = o.MaxCharsPerMessage
	}
	return c
}

// Validate rejects non-positive limits.
func (c Config) Validate() error {
	switch {
	case c.RecruitTimeMinutes <= 0:
		return fmt.Errorf("%w: recruit time must be at least 1 minute (got %d)", errors.ErrInvalidInput, c.RecruitTimeMinutes)
	case c.MessageLimitPerPerson <= 0:
		return fmt.Errorf("%w: message limit must be at least 1 (got %d)", errors.ErrInvalidInput, c.MessageLimitPerPerson)
	case c.MaxCharsPerMessage <= 0:
		return fmt.Errorf("%w: max characters must be at least 1 (got %d)", errors.ErrInvalidInput, c.MaxCharsPerMessage)
	}
	return nil
}

// Message is one inbound chat message routed to a session.
type Message struct {
	AuthorID   string
	AuthorName string
	Content    string
	Timestamp  time.Time
}

// Entry is one accepted message in the transcript.
type Entry struct {
	AuthorID   string    `json:"author_id" yaml:"author_id"`
	AuthorName string    `json:"author_name" yaml:"author_name"`
	Content    string    `json:"content" yaml:"content"`
	Turn       int       `json:"turn" yaml:"turn"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// ResultKind classifies what Submit did with a message.
type ResultKind string

const (
	// ResultIgnored means the message was not for this session (non-debater,
	// or the session is not active).
	ResultIgnored ResultKind = "ignored"
	// ResultOutOfTurn means a debater spoke while it was the other's turn.
	ResultOutOfTurn ResultKind = "out_of_turn"
	// ResultRejected means a policy check failed without counting a violation.
	ResultRejected ResultKind = "rejected"
	// ResultWarning is the first moderation violation.
	ResultWarning ResultKind = "warning"
	// ResultFinalWarning is the second moderation violation.
	ResultFinalWarning ResultKind = "final_warning"
	// ResultTerminated means the violation limit ended the session.
	ResultTerminated ResultKind = "terminated"
	// ResultAccepted means the message was logged and the turn advanced.
	ResultAccepted ResultKind = "accepted"
	// ResultCompleted means the message was logged and both debaters are
	// now at their limit.
	ResultCompleted ResultKind = "completed"
)

// Result describes the effect of one Submit call.
type Result struct {
	Kind   ResultKind
	Reason string

	// Violations is the author's violation count after this message.
	Violations int

	// Current is the debater whose turn it is after this message, and
	// Remaining their unused message allowance.
	Current   string
	Remaining int

	// AuthorExhausted is set when an accepted message used the author's
	// last allowed turn.
	AuthorExhausted bool

	Entry   *Entry
	Outcome Outcome

	// Transcript is a copy of the full transcript, set on completion.
	Transcript []Entry
}

// Logged reports whether the message was appended to the transcript.
func (r Result) Logged() bool {
	return r.Kind == ResultAccepted || r.Kind == ResultCompleted
}

// Ended reports whether the message ended the session.
func (r Result) Ended() bool {
	return r.Kind == ResultTerminated || r.Kind == ResultCompleted
}

// Selection is the outcome of the recruitment deadline.
type Selection struct {
	Started      bool
	Debaters     [2]string
	Topic        string
	FirstSpeaker string
	Participants int
	Outcome      Outcome
}

// Picker is the random source used for debater and topic selection.
// *math/rand/v2.Rand satisfies it; tests supply deterministic pickers.
type Picker interface {
	IntN(n int) int
}

// Snapshot is a point-in-time copy of a session's state.
type Snapshot struct {
	ID           string
	ChannelID    string
	Phase        Phase
	Outcome      Outcome
	Config       Config
	CreatedAt    time.Time
	Participants []string
	Debaters     []string
	Topic        string
	Turn         int
	Transcript   []Entry
	Violations   map[string]int
	Counts       map[string]int
}
