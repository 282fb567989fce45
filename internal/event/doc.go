// Package event provides the pub-sub bus that carries debate notices from
// the orchestrator to whatever transport is serving a channel.
//
// The orchestrator never writes to a chat surface itself. It publishes typed
// events and the gateway, the local console, or the simulator subscribes
// and renders them.
//
// # Main Types
//
//   - [Event]: EventType, Timestamp and Channel
//   - [Bus]: synchronous dispatcher with per-type and per-channel filters
//   - [Handler]: func(Event)
//
// # Event Categories
//
// Recruitment:
//   - [RecruitmentOpenedEvent], [ParticipantJoinedEvent], [DebateStartedEvent]
//
// Turns:
//   - [TurnNextEvent], [TurnRejectedEvent], [OutOfTurnEvent], [LimitReachedEvent]
//
// Moderation:
//   - [ViolationWarningEvent], [ForcedTerminationEvent]
//
// Completion:
//   - [ScoreReportedEvent], [SessionEndedEvent]
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine, after the session lock has been released, and a
// panicking handler is logged without stopping delivery to the others.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//
//	bus.Subscribe(event.TypeScoreReported, func(e event.Event) {
//	    scored := e.(event.ScoreReportedEvent)
//	    fmt.Println(scored.Conclusion.Text)
//	})
//
//	id := bus.SubscribeChannel("debate-1", relay)
//	defer bus.Unsubscribe(id)
package event
