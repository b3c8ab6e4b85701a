package storage

import (
	"errors"
	"fmt"
)

// Kind tags a store failure.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// Error is the failure value returned by CommandStore implementations.
type Error struct {
	Kind Kind
	Op   string
	ID   int64
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.ID != 0 {
		msg += fmt.Sprintf(" (id %d)", e.ID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports that no record exists for id.
func NotFound(op string, id int64) error {
	return &Error{Kind: KindNotFound, Op: op, ID: id}
}

// Invalid reports a rejected write, such as a constraint violation.
func Invalid(op string, err error) error {
	return &Error{Kind: KindInvalid, Op: op, Err: err}
}

// Internal wraps an unexpected backend failure.
func Internal(op string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf returns the kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool { return err != nil && KindOf(err) == KindNotFound }

func IsInvalid(err error) bool { return err != nil && KindOf(err) == KindInvalid }
