// Package errors provides centralized error definitions and error handling
// utilities for the arena. It defines sentinel errors, a typed session error
// carrying the channel and operation, and the invariant-fault helper used to
// surface programming defects.
//
// # Error Taxonomy
//
// Policy rejections (message too long, out of turn, moderation) are not Go
// errors at all; the debate package reports them as result values. The
// errors here cover the remaining categories:
//
//   - Session conflicts: [ErrSessionExists] wrapped in a [SessionError]
//   - Lookup and permission failures: [ErrSessionNotFound], [ErrPermissionDenied],
//     [ErrChannelNotAllowed], [ErrInvalidPhase]
//   - Invariant faults: [Invariant] and [FaultError]
//
// # Usage
//
//	err := errors.NewSessionError("create", "chan-1", errors.ErrSessionExists)
//	if errors.Is(err, errors.ErrSessionExists) { ... }
//
//	var sessErr *errors.SessionError
//	if errors.As(err, &sessErr) { fmt.Println(sessErr.ChannelID) }
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Session-related sentinel errors
var (
	// ErrSessionExists indicates that the channel already hosts a session.
	ErrSessionExists = New("a debate session is already running in this channel")
	// ErrSessionNotFound indicates that no session is registered for the channel.
	ErrSessionNotFound = New("no debate session in this channel")
	// ErrSessionTerminated indicates an operation on a session that has ended.
	ErrSessionTerminated = New("debate session has ended")
	// ErrInvalidPhase indicates an operation that the current phase does not accept.
	ErrInvalidPhase = New("operation not allowed in the current phase")
)

// Access sentinel errors
var (
	// ErrPermissionDenied indicates the requester lacks the privileged role.
	ErrPermissionDenied = New("only administrators can do this")
	// ErrChannelNotAllowed indicates the channel is outside the configured allowlist.
	ErrChannelNotAllowed = New("debates are not enabled in this channel")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// userFacing lists sentinels whose text is safe to send back to chat users.
var userFacing = []error{
	ErrSessionExists,
	ErrSessionNotFound,
	ErrSessionTerminated,
	ErrInvalidPhase,
	ErrPermissionDenied,
	ErrChannelNotAllowed,
	ErrInvalidInput,
}

// -----------------------------------------------------------------------------
// SessionError
// -----------------------------------------------------------------------------

// SessionError reports a failed session operation on a channel.
//
// Example:
//
//	err := errors.NewSessionError("create", "chan-1", errors.ErrSessionExists)
//	fmt.Println(err) // "session create [channel=chan-1]: a debate session is already running in this channel"
type SessionError struct {
	Op        string
	ChannelID string
	Err       error
}

// NewSessionError creates a new SessionError.
func NewSessionError(op, channelID string, err error) *SessionError {
	return &SessionError{Op: op, ChannelID: channelID, Err: err}
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	prefix := "session " + e.Op
	if e.ChannelID != "" {
		prefix = fmt.Sprintf("%s [channel=%s]", prefix, e.ChannelID)
	}
	if e.Err == nil {
		return prefix
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

// Unwrap returns the underlying error.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// IsUserFacing returns true if the error wraps one of the sentinels whose
// message can be shown to chat users verbatim.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range userFacing {
		if Is(err, target) {
			return true
		}
	}
	var verr interface{ ValidationFailure() bool }
	return As(err, &verr)
}

// UserMessage returns the text a transport should send back for err: the
// innermost user-facing sentinel message, or a generic fallback.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, target := range userFacing {
		if Is(err, target) {
			return target.Error()
		}
	}
	var verr interface{ ValidationFailure() bool }
	if As(err, &verr) {
		return err.Error()
	}
	return "something went wrong"
}
