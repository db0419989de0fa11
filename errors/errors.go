package errors

import (
	"fmt"
	"reflect"
)

// Root errors shared by every package. A transfer specific failure is
// registered next to the code that returns it, see x/transfer/errors.go.
var (
	// ErrUnauthorized is returned when the caller did not sign as the
	// initiator, the authority or the configuration owner.
	ErrUnauthorized = Register(2, "unauthorized")

	// ErrNotFound is returned when a transfer, an account or a
	// configuration is missing from the store.
	ErrNotFound = Register(3, "not found")

	// ErrDuplicate is returned when a record with the same key exists.
	ErrDuplicate = Register(4, "duplicate")

	// ErrInvalidModel is returned when a model cannot be encoded, decoded
	// or breaks its own invariants.
	ErrInvalidModel = Register(5, "invalid model")

	// ErrCannotBeModified is returned when an update touches an immutable
	// field.
	ErrCannotBeModified = Register(6, "cannot be modified")

	// ErrEmpty is returned when a required value is missing.
	ErrEmpty = Register(7, "value is empty")

	// ErrInvalidState is returned when a record is not in a state that
	// allows the requested operation.
	ErrInvalidState = Register(8, "invalid state")

	// ErrInvalidType is returned for an unknown hash or condition type.
	ErrInvalidType = Register(9, "invalid type")

	// ErrInvalidInput is returned for malformed user input.
	ErrInvalidInput = Register(10, "invalid input")

	// ErrInvalidAmount is returned for a value that is zero or negative
	// where a positive one is required.
	ErrInvalidAmount = Register(11, "invalid amount")

	// ErrInsufficientAmount is returned when a balance or an allowance is
	// too small.
	ErrInsufficientAmount = Register(12, "insufficient amount")

	// ErrOverflow is returned when a balance would not fit into int64.
	ErrOverflow = Register(13, "value overflow")

	// ErrDatabase is returned when the underlying storage failed.
	ErrDatabase = Register(14, "database")

	// ErrPanic is set by Recover only. The panic value is kept in the
	// message, never the stack of the crash.
	ErrPanic = Register(99, "panic")
)

// registered ensures that no two root errors share a code. Code 1 stands
// for any error that does not wrap a registered one.
var registered = map[uint32]*Error{1: nil}

// Register declares a new root error. It panics if the code is already in
// use, so call it only when initializing package variables.
func Register(code uint32, description string) *Error {
	if prev, ok := registered[code]; ok {
		desc := "reserved"
		if prev != nil {
			desc = prev.desc
		}
		panic(fmt.Sprintf("error code %d already registered as %q", code, desc))
	}
	e := &Error{code: code, desc: description}
	registered[code] = e
	return e
}

// Error is a root error. Errors returned at runtime wrap one of them, so
// that callers can test for the kind of failure with Is and clients can
// tell it apart by Code.
type Error struct {
	code uint32
	desc string
}

func (e *Error) Error() string {
	return e.desc
}

// Code returns the registered code.
func (e *Error) Code() uint32 {
	return e.code
}

// New returns this root error wrapped with given description.
func (e *Error) New(description string) error {
	return Wrap(e, description)
}

// Newf is New with formatting.
func (e *Error) Newf(format string, args ...interface{}) error {
	return Wrap(e, fmt.Sprintf(format, args...))
}

// Is returns true if err is this root error or wraps it. A nil root error
// matches only a nil err, including a typed nil pointer.
func (e *Error) Is(err error) bool {
	if e == nil {
		if err == nil {
			return true
		}
		v := reflect.ValueOf(err)
		return v.Kind() == reflect.Ptr && v.IsNil()
	}
	for err != nil {
		if err == e {
			return true
		}
		c, ok := err.(causer)
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}

// Recover turns a panic into an ErrPanic assigned to err. Call it with
// defer.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = Wrapf(ErrPanic, "%v", r)
	}
}

// Code returns the code of the root error wrapped by err, or 1 if there is
// none.
func Code(err error) uint32 {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.code
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return 1
}

type causer interface {
	Cause() error
}
