package event

import (
	"time"

	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/scoring"
)

// Event type names, "category.action".
const (
	TypeRecruitmentOpened = "recruitment.opened"
	TypeParticipantJoined = "participant.joined"
	TypeDebateStarted     = "debate.started"
	TypeTurnRejected      = "turn.rejected"
	TypeOutOfTurn         = "turn.out_of_turn"
	TypeViolationWarning  = "violation.warning"
	TypeForcedTermination = "session.forced_termination"
	TypeLimitReached      = "turn.limit_reached"
	TypeTurnNext          = "turn.next"
	TypeScoreReported     = "score.reported"
	TypeSessionEnded      = "session.ended"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns the "category.action" name of the event.
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// Channel returns the chat channel the event belongs to.
	Channel() string
}

// baseEvent provides the common fields. Embed it in concrete event types to
// satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
	channelID string
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }
func (e baseEvent) Channel() string      { return e.channelID }

func newBaseEvent(eventType, channelID string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
		channelID: channelID,
	}
}

// -----------------------------------------------------------------------------
// Recruitment Events
// -----------------------------------------------------------------------------

// RecruitmentOpenedEvent announces a new session and its join deadline.
type RecruitmentOpenedEvent struct {
	baseEvent
	SessionID string
	Config    debate.Config
	Deadline  time.Time
}

// NewRecruitmentOpenedEvent creates a RecruitmentOpenedEvent.
func NewRecruitmentOpenedEvent(channelID, sessionID string, cfg debate.Config, deadline time.Time) RecruitmentOpenedEvent {
	return RecruitmentOpenedEvent{
		baseEvent: newBaseEvent(TypeRecruitmentOpened, channelID),
		SessionID: sessionID,
		Config:    cfg,
		Deadline:  deadline,
	}
}

// ParticipantJoinedEvent is emitted when a new participant is recorded.
type ParticipantJoinedEvent struct {
	baseEvent
	ParticipantID string
	Count         int
}

// NewParticipantJoinedEvent creates a ParticipantJoinedEvent.
func NewParticipantJoinedEvent(channelID, participantID string, count int) ParticipantJoinedEvent {
	return ParticipantJoinedEvent{
		baseEvent:     newBaseEvent(TypeParticipantJoined, channelID),
		ParticipantID: participantID,
		Count:         count,
	}
}

// DebateStartedEvent announces the selected debaters and topic.
type DebateStartedEvent struct {
	baseEvent
	SessionID    string
	Debaters     [2]string // Side A, Side B
	Topic        string
	FirstSpeaker string
	Participants int
	Config       debate.Config
}

// NewDebateStartedEvent creates a DebateStartedEvent from a selection.
func NewDebateStartedEvent(channelID, sessionID string, sel debate.Selection, cfg debate.Config) DebateStartedEvent {
	return DebateStartedEvent{
		baseEvent:    newBaseEvent(TypeDebateStarted, channelID),
		SessionID:    sessionID,
		Debaters:     sel.Debaters,
		Topic:        sel.Topic,
		FirstSpeaker: sel.FirstSpeaker,
		Participants: sel.Participants,
		Config:       cfg,
	}
}

// -----------------------------------------------------------------------------
// Turn Events
// -----------------------------------------------------------------------------

// TurnRejectedEvent reports a policy rejection that consumed no turn.
type TurnRejectedEvent struct {
	baseEvent
	AuthorID string
	Reason   string
}

// NewTurnRejectedEvent creates a TurnRejectedEvent.
func NewTurnRejectedEvent(channelID, authorID, reason string) TurnRejectedEvent {
	return TurnRejectedEvent{
		baseEvent: newBaseEvent(TypeTurnRejected, channelID),
		AuthorID:  authorID,
		Reason:    reason,
	}
}

// OutOfTurnEvent reports a debater speaking when it is not their turn.
type OutOfTurnEvent struct {
	baseEvent
	AuthorID       string
	CurrentSpeaker string
}

// NewOutOfTurnEvent creates an OutOfTurnEvent.
func NewOutOfTurnEvent(channelID, authorID, current string) OutOfTurnEvent {
	return OutOfTurnEvent{
		baseEvent:      newBaseEvent(TypeOutOfTurn, channelID),
		AuthorID:       authorID,
		CurrentSpeaker: current,
	}
}

// LimitReachedEvent is emitted when a debater uses their final message.
type LimitReachedEvent struct {
	baseEvent
	AuthorID string
}

// NewLimitReachedEvent creates a LimitReachedEvent.
func NewLimitReachedEvent(channelID, authorID string) LimitReachedEvent {
	return LimitReachedEvent{
		baseEvent: newBaseEvent(TypeLimitReached, channelID),
		AuthorID:  authorID,
	}
}

// TurnNextEvent echoes an accepted message and names the next speaker.
type TurnNextEvent struct {
	baseEvent
	Entry       debate.Entry
	NextSpeaker string
	Remaining   int // next speaker's unused allowance
}

// NewTurnNextEvent creates a TurnNextEvent.
func NewTurnNextEvent(channelID string, entry debate.Entry, next string, remaining int) TurnNextEvent {
	return TurnNextEvent{
		baseEvent:   newBaseEvent(TypeTurnNext, channelID),
		Entry:       entry,
		NextSpeaker: next,
		Remaining:   remaining,
	}
}

// -----------------------------------------------------------------------------
// Moderation Events
// -----------------------------------------------------------------------------

// ViolationWarningEvent is emitted for the first and second violations.
type ViolationWarningEvent struct {
	baseEvent
	AuthorID   string
	Reason     string
	Violations int
	Final      bool
}

// NewViolationWarningEvent creates a ViolationWarningEvent.
func NewViolationWarningEvent(channelID, authorID, reason string, violations int, final bool) ViolationWarningEvent {
	return ViolationWarningEvent{
		baseEvent:  newBaseEvent(TypeViolationWarning, channelID),
		AuthorID:   authorID,
		Reason:     reason,
		Violations: violations,
		Final:      final,
	}
}

// ForcedTerminationEvent is emitted when a debater reaches the violation
// limit. No score follows it.
type ForcedTerminationEvent struct {
	baseEvent
	AuthorID   string
	Reason     string
	Violations int
}

// NewForcedTerminationEvent creates a ForcedTerminationEvent.
func NewForcedTerminationEvent(channelID, authorID, reason string, violations int) ForcedTerminationEvent {
	return ForcedTerminationEvent{
		baseEvent:  newBaseEvent(TypeForcedTermination, channelID),
		AuthorID:   authorID,
		Reason:     reason,
		Violations: violations,
	}
}

// -----------------------------------------------------------------------------
// Completion Events
// -----------------------------------------------------------------------------

// ScoreReportedEvent carries the structural score of a completed debate.
type ScoreReportedEvent struct {
	baseEvent
	Topic      string
	Debaters   [2]string
	Report     scoring.Report
	Conclusion scoring.Conclusion
}

// NewScoreReportedEvent creates a ScoreReportedEvent.
func NewScoreReportedEvent(channelID, topic string, debaters [2]string, report scoring.Report, conclusion scoring.Conclusion) ScoreReportedEvent {
	return ScoreReportedEvent{
		baseEvent:  newBaseEvent(TypeScoreReported, channelID),
		Topic:      topic,
		Debaters:   debaters,
		Report:     report,
		Conclusion: conclusion,
	}
}

// SessionEndedEvent is the last event of every session.
type SessionEndedEvent struct {
	baseEvent
	SessionID string
	Outcome   debate.Outcome
}

// NewSessionEndedEvent creates a SessionEndedEvent.
func NewSessionEndedEvent(channelID, sessionID string, outcome debate.Outcome) SessionEndedEvent {
	return SessionEndedEvent{
		baseEvent: newBaseEvent(TypeSessionEnded, channelID),
		SessionID: sessionID,
		Outcome:   outcome,
	}
}
