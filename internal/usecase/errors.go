package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorRateLimited  ErrorCode = "RATE_LIMITED"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error is the use case failure shape. Reason is a stable snake_case tag for
// logs; Message is what the chat user gets to read.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	switch e.Reason {
	case "empty_message":
		return "Please enter a message."
	case "message_too_long":
		return "That message is too long."
	}
	switch e.Code {
	case ErrorInvalidInput:
		return "The request could not be understood."
	case ErrorRateLimited:
		return "Too many requests right now. Please wait a moment and try again."
	case ErrorUpstream:
		return "The assistant is unavailable right now."
	default:
		return "Something went wrong on our side."
	}
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
