package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess     Code = 0
	CodeInternal    Code = 1
	CodeUsage       Code = 2
	CodeConfig      Code = 3
	CodeSigner      Code = 10
	CodeUnavailable Code = 12
	CodeCheckin     Code = 13
)

// Error is a typed error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if typed, ok := As(err); ok {
		return int(typed.Code)
	}
	return int(CodeInternal)
}

// Describe extracts the most useful human-readable message from an error:
// the causal message when one exists, the top-level message otherwise, a
// generic sentinel when neither carries text.
func Describe(err error) string {
	if err == nil {
		return "Unknown error"
	}
	if cause := errors.Unwrap(err); cause != nil && cause.Error() != "" {
		return cause.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Unknown error"
}
