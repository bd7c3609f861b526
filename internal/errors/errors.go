// Package errors defines the coded errors services return to the API layer.
//
// Every error carries a Code that fixes its HTTP status, so handlers never
// decide statuses themselves:
//
//	if topic.IsLocked {
//	    return errors.Conflict("topic is locked")
//	}
//
// errors.Is matches on the code alone, so any conflict satisfies
// errors.Is(err, errors.ErrConflict).
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard library helpers, re-exported so callers need one import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code is the machine-readable error kind sent to clients.
type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeValidation   Code = "VALIDATION"
	CodeConflict     Code = "CONFLICT"
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeTimeout      Code = "TIMEOUT"
	CodeInternal     Code = "INTERNAL"
)

var statusByCode = map[Code]int{
	CodeNotFound:     http.StatusNotFound,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeForbidden:    http.StatusForbidden,
	CodeValidation:   http.StatusBadRequest,
	CodeConflict:     http.StatusConflict,
	CodeRateLimited:  http.StatusTooManyRequests,
	CodeTimeout:      http.StatusServiceUnavailable,
}

// HTTPStatus maps the code to a response status. Unknown codes are 500.
func (c Code) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is a coded error. Details is serialised to clients as-is; the
// cause is only visible to logs.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	return errors.As(target, &t) && t.Code == e.Code
}

// HTTPStatus returns the status for e's code.
func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.cause = err
	return &c
}

// Sentinels for errors.Is.
var (
	ErrNotFound     = newError(CodeNotFound, "not found")
	ErrUnauthorized = newError(CodeUnauthorized, "unauthorized")
	ErrForbidden    = newError(CodeForbidden, "forbidden")
	ErrValidation   = newError(CodeValidation, "validation error")
	ErrConflict     = newError(CodeConflict, "conflict")
	ErrRateLimited  = newError(CodeRateLimited, "too many requests")
	ErrTimeout      = newError(CodeTimeout, "request timed out")
	ErrInternal     = newError(CodeInternal, "internal error")
)

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// NotFoundf creates a not found error.
func NotFoundf(format string, args ...any) *Error {
	return newError(CodeNotFound, fmt.Sprintf(format, args...))
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error { return newError(CodeUnauthorized, msg) }

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error { return newError(CodeForbidden, msg) }

// Validation creates a validation error.
func Validation(msg string) *Error { return newError(CodeValidation, msg) }

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return newError(CodeValidation, fmt.Sprintf(format, args...))
}

// ValidationWithDetails creates a validation error with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error { return newError(CodeConflict, msg) }

// Conflictf creates a conflict error with a formatted message.
func Conflictf(format string, args ...any) *Error {
	return newError(CodeConflict, fmt.Sprintf(format, args...))
}

// RateLimited creates a rate limit error.
func RateLimited(msg string) *Error { return newError(CodeRateLimited, msg) }

// Timeout wraps a context error.
func Timeout(err error) *Error {
	return &Error{Code: CodeTimeout, Message: "request timed out", cause: err}
}

// Internal creates an internal error.
func Internal(msg string) *Error { return newError(CodeInternal, msg) }

// Wrap wraps err with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}
