// Package apperr is the error taxonomy shared by the workflow packages.
// Handlers map a Kind to an HTTP status; the wrapped cause is only logged.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	Validation   Kind = "validation"
	NotFound     Kind = "not_found"
	Conflict     Kind = "conflict"
	Storage      Kind = "storage"
	Persistence  Kind = "persistence"
	Notification Kind = "notification"
	Gateway      Kind = "gateway"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Fields holds per-field codes for validation failures.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// Invalid builds a validation error carrying field codes.
func Invalid(op string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Op: op, Message: "validation failed", Fields: fields}
}

// KindOf returns the kind of the first *Error in the chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }
