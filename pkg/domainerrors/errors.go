// Package domainerrors defines the typed error vocabulary services use to talk
// to the transport layer. Stores return sentinel errors; services translate them
// into one of these codes; the HTTP layer maps codes to statuses.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport mapping and client messaging.
type Code string

const (
	// CodeConfig marks a fatal per-deployment misconfiguration (missing
	// credentials). Same outcome for every request until fixed.
	CodeConfig Code = "server_misconfigured"

	// CodeAuthRequired is returned when no bearer token was presented.
	CodeAuthRequired Code = "auth_required"

	// CodeInvalidSession is returned when a bearer token is invalid or expired.
	CodeInvalidSession Code = "invalid_session"

	CodeBadRequest Code = "bad_request"
	CodeNotFound   Code = "not_found"

	// CodeValidation carries the full list of violated prompt rules so the
	// client can correct its input.
	CodeValidation Code = "validation_failed"

	// CodeUpstream covers language-model and billing provider failures. Not
	// retried here; the caller may retry.
	CodeUpstream Code = "upstream_unavailable"

	CodeInternal Code = "internal_error"
)

// Error is a typed domain error. Message is safe to show to clients except for
// CodeInternal, where the HTTP layer deliberately drops it.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a typed error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a typed error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal for
// untyped errors so nothing internal leaks by accident.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the client-facing message from an error chain.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeAuthRequired, CodeInvalidSession:
		return http.StatusUnauthorized
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeConfig, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
