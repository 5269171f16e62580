package kxci

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotActive indicates that an EX or GP command was attempted
	// before entering UL mode. This is a protocol misuse by the caller; no
	// I/O is performed.
	ErrSessionNotActive = errors.New("kxci: session not active")

	// ErrSessionClosed indicates that the session has been closed.
	ErrSessionClosed = errors.New("kxci: session closed")

	// ErrSessionBusy indicates that another command is already in flight.
	// The instrument cannot process overlapping UL operations.
	ErrSessionBusy = errors.New("kxci: command already in flight")

	// ErrTransportNil indicates that a nil Transport was provided.
	ErrTransportNil = errors.New("kxci: transport is nil")

	// ErrModuleNil indicates that a nil Module was provided.
	ErrModuleNil = errors.New("kxci: module is nil")
)

var (
	// ErrInvalidProbeWindow indicates a probe window whose fractions are
	// outside [0, 1] or not ordered low <= high.
	ErrInvalidProbeWindow = errors.New("kxci: invalid probe window fractions")

	// ErrInvalidPulseTiming indicates pulse timing with a negative phase
	// duration or a non-positive measurement width.
	ErrInvalidPulseTiming = errors.New("kxci: invalid pulse timing")

	// ErrPollTimeout indicates that a poll loop gave up before the
	// condition was reported as done.
	ErrPollTimeout = errors.New("kxci: poll timeout")
)

// ValidationError reports a caller-supplied parameter outside the module's
// documented range. It is raised before any I/O is attempted.
type ValidationError struct {
	Module string // module name
	Param  string // declared parameter name, if known
	Index  int    // zero-based position in the call signature
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("kxci: invalid parameter %s (position %d) for module %s: %s", e.Param, e.Index+1, e.Module, e.Reason)
	}
	return fmt.Sprintf("kxci: invalid parameter at position %d for module %s: %s", e.Index+1, e.Module, e.Reason)
}

// TransportError reports a link-level failure (open, write, read or
// timeout) from the underlying transport. It is fatal for the current
// command; the hardware state is unknown afterwards, so callers retry the
// entire command from scratch or not at all.
type TransportError struct {
	Op  string // "write", "read", "close"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("kxci: transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a response that was received but could not be
// interpreted, or a session-state misuse. Like TransportError it is fatal
// for the current command and never auto-retried.
type ProtocolError struct {
	Reason string
	Raw    string // raw response text, if any
}

func (e *ProtocolError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("kxci: protocol error: %s (response %q)", e.Reason, e.Raw)
	}
	return "kxci: protocol error: " + e.Reason
}

// ExecutionError reports a well-formed negative return code from an EX
// command. The message comes from the module's configured error-code
// table. Execution errors are never auto-retried; the instrument may
// require a manual re-arm.
type ExecutionError struct {
	Module  string
	Code    int
	Message string
}

func (e *ExecutionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("kxci: module %s returned %d: %s", e.Module, e.Code, e.Message)
	}
	return fmt.Sprintf("kxci: module %s returned %d", e.Module, e.Code)
}

// RetrievalError reports that a GP query exhausted its attempts. It is
// scoped to a single output array; sibling array queries proceed and the
// caller may continue with partial data.
type RetrievalError struct {
	Position int // 1-based output-array position
	Attempts int
	Err      error // last underlying failure, if any
}

func (e *RetrievalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kxci: GP query for position %d failed after %d attempts: %v", e.Position, e.Attempts, e.Err)
	}
	return fmt.Sprintf("kxci: GP query for position %d failed after %d attempts", e.Position, e.Attempts)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
