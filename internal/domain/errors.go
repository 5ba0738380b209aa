package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of wire-surface error categories the
// router maps onto {status:"error", message} responses (spec §7).
type ErrorKind string

const (
	ErrValidation ErrorKind = "validation"
	ErrConflict   ErrorKind = "conflict"
	ErrNotFound   ErrorKind = "not_found"
	ErrAuth       ErrorKind = "auth"
	ErrCapacity   ErrorKind = "capacity"
	ErrState      ErrorKind = "state"
	ErrInternal   ErrorKind = "internal"
)

// Error is the tagged-sum error type every service-layer operation
// returns. The router never needs to inspect anything but Kind and
// Message to shape a response.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the ErrorKind from err, defaulting to "internal"
// for errors that did not originate as a domain.Error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrInternal
}
