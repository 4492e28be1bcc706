// Package apierr defines the error values handlers return to API clients.
//
// Stores return plain sentinel errors; handlers translate them into *Error
// values carrying the HTTP status, a stable machine code and a message that
// is safe to show to callers.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes
const (
	CodeBadRequest      = "bad_request"
	CodeValidation      = "validation_failed"
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeTooManyRequests = "too_many_requests"
	CodeInternal        = "internal_error"
	CodeUnavailable     = "service_unavailable"
)

// Error is an API-facing error.
type Error struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string // per-field validation messages
	Err     error             // underlying cause, never sent to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(status int, code, msg string) *Error {
	return &Error{Status: status, Code: code, Message: msg}
}

func BadRequest(msg string) *Error {
	return newErr(http.StatusBadRequest, CodeBadRequest, msg)
}

// Invalid is a 400 carrying field-level messages.
func Invalid(fields map[string]string) *Error {
	e := newErr(http.StatusBadRequest, CodeValidation, "validation failed")
	e.Fields = fields
	return e
}

func Unauthorized(msg string) *Error {
	if msg == "" {
		msg = "authentication required"
	}
	return newErr(http.StatusUnauthorized, CodeUnauthorized, msg)
}

func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "forbidden"
	}
	return newErr(http.StatusForbidden, CodeForbidden, msg)
}

func NotFound(msg string) *Error {
	if msg == "" {
		msg = "not found"
	}
	return newErr(http.StatusNotFound, CodeNotFound, msg)
}

func Conflict(msg string) *Error {
	return newErr(http.StatusConflict, CodeConflict, msg)
}

func TooManyRequests(msg string) *Error {
	return newErr(http.StatusTooManyRequests, CodeTooManyRequests, msg)
}

// Internal wraps an unexpected failure. The message is always generic.
func Internal(err error) *Error {
	e := newErr(http.StatusInternalServerError, CodeInternal, "internal server error")
	e.Err = err
	return e
}

// Unavailable wraps a failure of an upstream dependency.
func Unavailable(msg string, err error) *Error {
	e := newErr(http.StatusServiceUnavailable, CodeUnavailable, msg)
	e.Err = err
	return e
}

// From returns err as an *Error, wrapping anything else as Internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
