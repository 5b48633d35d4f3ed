package model

import (
	"errors"
	"fmt"
)

// Error kinds.  Callers match them with errors.Is; handlers translate each
// kind into an HTTP status code.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrConflict         = errors.New("conflict")
	ErrInternal         = errors.New("internal error")
)

// Error carries a kind, a client-facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Cause }

func PermissionDenied(msg string) error {
	return &Error{Kind: ErrPermissionDenied, Message: msg}
}

func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

func InvalidRequest(msg string) error {
	return &Error{Kind: ErrInvalidRequest, Message: msg}
}

func Conflict(msg string) error { return &Error{Kind: ErrConflict, Message: msg} }

// Internal wraps a persistence or infrastructure failure.  The message keeps
// the underlying cause so callers can see what failed.
func Internal(op string, cause error) error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf("%s: %v", op, cause), Cause: cause}
}

// AsInternal returns err unchanged when it already carries a kind and wraps
// it as an internal error otherwise.
func AsInternal(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Internal(op, err)
}
