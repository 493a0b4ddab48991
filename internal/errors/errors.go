package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable category of a domain error.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindInvalidRole       Kind = "InvalidRole"
	KindInvalidTransition Kind = "InvalidTransition"
	KindAlreadyAssigned   Kind = "AlreadyAssigned"
	KindNotAvailable      Kind = "NotAvailable"
	KindOutOfRange        Kind = "OutOfRange"
	KindNotFound          Kind = "NotFound"
	KindConflict          Kind = "Conflict"
	KindUnauthorized      Kind = "Unauthorized"
	KindRateLimited       Kind = "RateLimited"
	KindInternal          Kind = "Internal"
)

// Sentinels for errors.Is checks. Matching is by kind, so any *Error of the
// same kind satisfies errors.Is(err, ErrNotFound).
var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrInvalidRole       = &Error{Kind: KindInvalidRole, Message: "invalid role"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid status transition"}
	ErrAlreadyAssigned   = &Error{Kind: KindAlreadyAssigned, Message: "report already assigned"}
	ErrNotAvailable      = &Error{Kind: KindNotAvailable, Message: "driver not available"}
	ErrOutOfRange        = &Error{Kind: KindOutOfRange, Message: "value out of range"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "concurrent modification"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "not permitted"}
	ErrRateLimited       = &Error{Kind: KindRateLimited, Message: "rate limit exceeded"}
)

// Error is the domain error type carried from services to the HTTP layer.
type Error struct {
	Kind    Kind
	Message string // Safe to show to API clients
	Cause   error  // Underlying failure, logged but never returned to clients
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a domain error with a client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that keeps the underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Internal wraps an unexpected collaborator failure.
func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}

// KindOf returns the kind of err, or KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind to its response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInvalidRole:
		return http.StatusBadRequest
	case KindInvalidTransition, KindAlreadyAssigned, KindNotAvailable, KindOutOfRange, KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// MapErrorToHTTP resolves the status, kind and client-facing message for err.
// Internal errors never expose their message or cause.
func MapErrorToHTTP(err error) (int, Kind, string) {
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind == KindInternal {
		return http.StatusInternalServerError, KindInternal, "internal server error"
	}
	return appErr.Kind.HTTPStatus(), appErr.Kind, appErr.Message
}
