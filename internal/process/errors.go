package process

import (
	"errors"
	"fmt"
)

// ErrorCode identifies why a startup attempt did not reach the ready state.
type ErrorCode string

// Error codes for supervisor operations.
const (
	CodeSpawn          ErrorCode = "SPAWN_FAILED"
	CodeStartupTimeout ErrorCode = "STARTUP_TIMEOUT"
	CodeEarlyExit      ErrorCode = "EARLY_EXIT"
	CodeStopped        ErrorCode = "STOPPED"
	CodeCancelled      ErrorCode = "CANCELLED"
	CodeInvalidState   ErrorCode = "INVALID_STATE"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrSpawn          = &Error{Code: CodeSpawn, Message: "failed to spawn process"}
	ErrStartupTimeout = &Error{Code: CodeStartupTimeout, Message: "startup timed out"}
	ErrEarlyExit      = &Error{Code: CodeEarlyExit, Message: "process exited before it was ready"}
	ErrStopped        = &Error{Code: CodeStopped, Message: "stopped while starting"}
	ErrCancelled      = &Error{Code: CodeCancelled, Message: "start cancelled"}
	ErrAlreadyStarted = &Error{Code: CodeInvalidState, Message: "supervisor already used"}
)

// Error is a supervisor error with a code.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
