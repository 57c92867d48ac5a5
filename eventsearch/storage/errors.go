package storage

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrIO       ErrorKind = "io"
	ErrSQL      ErrorKind = "sql"
	ErrInvalid  ErrorKind = "invalid"
	ErrNotFound ErrorKind = "not_found"
	ErrConflict ErrorKind = "conflict"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// IsKind reports whether err is a storage error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}
