package errors

import "fmt"

// FaultError describes a broken internal invariant, such as the registry and
// a session disagreeing about which channel a session belongs to. It signals
// a programming defect, never a user mistake.
type FaultError struct {
	Message string
}

// Error returns the fault description.
func (e *FaultError) Error() string {
	return "invariant fault: " + e.Message
}

// Invariant checks cond. When cond is false it panics in development builds
// and returns a *FaultError in builds tagged "release", so callers can log
// the fault and carry on. It returns nil when cond holds.
func Invariant(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	fault := &FaultError{Message: fmt.Sprintf(format, args...)}
	if strictInvariants {
		panic(fault)
	}
	return fault
}
