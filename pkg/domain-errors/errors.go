// Package domainerrors defines the error taxonomy used across the engine.
// Every operation returns errors as values; nothing is thrown past the
// operation boundary, so handlers can always render a message.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and for HTTP translation.
type Code string

const (
	// CodeValidation marks malformed input rejected before any write
	// (bad case number, missing conclusion destination).
	CodeValidation Code = "validation_error"
	// CodeBadRequest marks a transport-level request shape problem.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks a case or source row that vanished between
	// read and write. Services usually downgrade this to a warning.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness or concurrent-update violation.
	CodeConflict Code = "conflict"
	// CodeInvalidState marks an illegal lifecycle transition.
	CodeInvalidState Code = "invalid_state"
	// CodeUnauthorized marks a missing or invalid actor token.
	CodeUnauthorized Code = "unauthorized"
	// CodeInternal marks everything else. Details are never exposed
	// over HTTP for this code.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
