package services

import (
	"errors"
	"fmt"
)

// Error kinds. Controllers map them to HTTP statuses with errors.Is.
var (
	ErrInvalid      = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("upstream unavailable")
)

// Error is a failure with a client-facing message and one of the kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NewError builds an Error of the given kind.
func NewError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalidf(format string, args ...any) error {
	return NewError(ErrInvalid, format, args...)
}

func notFoundf(format string, args ...any) error {
	return NewError(ErrNotFound, format, args...)
}

func conflictf(format string, args ...any) error {
	return NewError(ErrConflict, format, args...)
}
