package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers and the API layer can react without
// string matching.
type Kind string

const (
	KindInvalidAmount     Kind = "INVALID_AMOUNT"
	KindInvalidPhone      Kind = "INVALID_PHONE_FORMAT"
	KindAuthentication    Kind = "AUTHENTICATION_ERROR"
	KindGateway           Kind = "GATEWAY_ERROR"
	KindMalformedCallback Kind = "MALFORMED_CALLBACK"
	KindStore             Kind = "STORE_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
)

// Error carries a Kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with no underlying cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a coded error around an underlying cause.
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, or "" if err is not a coded error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
