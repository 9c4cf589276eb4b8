package workflow

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a workflow failure for callers. The HTTP layer
// maps codes to status codes and user-facing messages; clients never
// have to string-match.
type ErrorCode string

const (
	// CodeUnauthorized means the actor's role or assignment scope does
	// not permit the requested transition.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeInvalidTransition means the entity is not in a stage from
	// which the requested action is legal.
	CodeInvalidTransition ErrorCode = "INVALID_STATE_TRANSITION"

	// CodeValidation means required input is missing or malformed.
	CodeValidation ErrorCode = "VALIDATION_ERROR"

	// CodeConflict means an optimistic-concurrency or uniqueness check
	// failed: another actor raced the same transition.
	CodeConflict ErrorCode = "CONFLICT"

	// CodeDependencyFailure means a collaborator (persistence, media,
	// identity) errored or timed out.
	CodeDependencyFailure ErrorCode = "DEPENDENCY_FAILURE"

	// CodeNotFound means the referenced record does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"
)

// Error is a workflow failure carrying its taxonomy code and the name
// of the violated precondition.
type Error struct {
	Code         ErrorCode
	Precondition string
	Message      string
	cause        error
}

// Error returns the human-readable failure description
func (e *Error) Error() string {
	if e.Precondition != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Precondition, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the caller may retry the operation.
// Only dependency failures are retryable; precondition violations and
// conflicts are terminal and must be surfaced, not retried.
func (e *Error) Retryable() bool {
	return e.Code == CodeDependencyFailure
}

// CodeOf extracts the workflow error code from err, or empty when err
// is not a workflow error.
func CodeOf(err error) ErrorCode {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr.Code
	}
	return ""
}

func unauthorized(precondition, format string, args ...any) *Error {
	return &Error{Code: CodeUnauthorized, Precondition: precondition, Message: fmt.Sprintf(format, args...)}
}

func invalidTransition(precondition, format string, args ...any) *Error {
	return &Error{Code: CodeInvalidTransition, Precondition: precondition, Message: fmt.Sprintf(format, args...)}
}

func validation(precondition, format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Precondition: precondition, Message: fmt.Sprintf(format, args...)}
}

func conflict(precondition, format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Precondition: precondition, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func dependency(err error, format string, args ...any) *Error {
	return &Error{Code: CodeDependencyFailure, Message: fmt.Sprintf(format, args...), cause: err}
}
