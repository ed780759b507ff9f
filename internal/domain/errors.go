package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the use cases and the HTTP layer.
var (
	ErrValidation        = errors.New("validation error")
	ErrAuth              = errors.New("authentication error")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotReady          = errors.New("not ready")
	ErrProvider          = errors.New("provider error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrNoAPIKey          = errors.New("no api key")
	ErrRender            = errors.New("render error")
	ErrStore             = errors.New("store error")
)

// Error pairs a taxonomy kind with a message that is safe to show to users.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool { return e.Kind == target }

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a user-facing message of the given kind.
func Wrap(kind error, cause error, message string) error {
	return &Error{Kind: kind, Message: message, Err: cause}
}
