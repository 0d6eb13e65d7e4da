// Package apperr provides the league's error taxonomy. Every failure that
// crosses an action boundary is converted to an *Error before it reaches a
// caller.
package apperr

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
	CodeTimeout            Code = "TIMEOUT"
	CodeUnexpected         Code = "UNEXPECTED"
)

// HTTPStatus maps a code to the status written by the HTTP layer.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodePersistenceFailure, CodeUnexpected:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type with structured metadata.
type Error struct {
	Code       Code              // Machine-readable error code
	Message    string            // User-safe message
	Fields     map[string]string // Per-field validation messages
	RetryAfter time.Duration     // Set for CodeRateLimited
	Cause      error             // Wrapped underlying error, never shown to callers
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Invalid builds an INVALID_INPUT error carrying one message per field.
func Invalid(fields map[string]string) *Error {
	return &Error{
		Code:    CodeInvalidInput,
		Message: "Please correct the highlighted fields",
		Fields:  fields,
	}
}

func RateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Code:       CodeRateLimited,
		Message:    "Too many requests, please try again later",
		RetryAfter: retryAfter,
	}
}

// Persistence wraps a store failure behind a generic message. A deadline
// overrun is reported as CodeTimeout instead.
func Persistence(cause error) *Error {
	if errors.Is(cause, context.DeadlineExceeded) {
		return Wrap(CodeTimeout, "The request timed out, please try again", cause)
	}
	return Wrap(CodePersistenceFailure, "Something went wrong while saving, please try again", cause)
}

// From converts any error into an *Error. Unknown errors become UNEXPECTED.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeTimeout, "The request timed out, please try again", err)
	}
	return Wrap(CodeUnexpected, "An unexpected error occurred", err)
}

// CodeOf returns the code of err, or CodeUnexpected for foreign errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return From(err).Code
}

var (
	ErrNotFound = New(CodeNotFound, "not found")
	ErrConflict = New(CodeConflict, "conflict")
)
