package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operation failure. Only KindNetwork and
// KindSessionExpired originate in the transport; all others are
// derived from the backend response payload.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindValidation
	KindConflict
	KindNotFound
	KindNetwork
	KindSessionExpired
)

// String returns the stable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	case KindSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

// Error is a classified operation failure. Message is the
// human-readable text from the backend payload when present.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auth: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("auth: %s", e.Kind)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds a classified error around a cause.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FromStatus classifies a backend HTTP status. 401 maps to
// InvalidCredentials; the transport upgrades it to SessionExpired when
// the silent refresh itself has failed.
func FromStatus(status int, message string) *Error {
	kind := KindUnknown
	switch {
	case status == http.StatusUnauthorized:
		kind = KindInvalidCredentials
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		kind = KindValidation
	case status == http.StatusConflict:
		kind = KindConflict
	case status == http.StatusNotFound:
		kind = KindNotFound
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: kind, Message: message}
}
