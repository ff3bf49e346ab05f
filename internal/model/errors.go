package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain failures. The set is closed; callers switch on it
// instead of inspecting error text.
type ErrorKind string

// Error kinds.
const (
	KindNotFound          ErrorKind = "not_found"
	KindInvalidQuantity   ErrorKind = "invalid_quantity"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindDuplicateCode     ErrorKind = "duplicate_code"
	KindInvalidReference  ErrorKind = "invalid_reference"
	KindHasDependents     ErrorKind = "has_dependents"
	KindConflict          ErrorKind = "conflict"
	KindInvalidInput      ErrorKind = "invalid_input"
)

// Error is a domain error tagged with its kind.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error of the same kind, so the sentinels
// below match any error of their kind through errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether the operation may succeed if repeated unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == KindConflict
}

// Sentinels for errors.Is.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidQuantity   = &Error{Kind: KindInvalidQuantity}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrDuplicateCode     = &Error{Kind: KindDuplicateCode}
	ErrInvalidReference  = &Error{Kind: KindInvalidReference}
	ErrHasDependents     = &Error{Kind: KindHasDependents}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
)

// Errorf builds a domain error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError tags err with kind, keeping it in the chain.
func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first domain error in err's chain, or "" if
// there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
