package intscan

import (
	"errors"
	"strconv"
)

// ErrSyntax indicates that no integer could be found at the start of the input.
var ErrSyntax = errors.New("invalid syntax")

// ErrRange indicates that a value is out of range for the target type.
var ErrRange = errors.New("value out of range")

// Err returns ErrSyntax for InvalidArgument, ErrRange for OutOfRange
// and nil otherwise.
func (s Status) Err() error {
	switch s {
	case InvalidArgument:
		return ErrSyntax
	case OutOfRange:
		return ErrRange
	}
	return nil
}

// Error records a failed scan.
type Error struct {
	Offset int   // the offset at which scanning stopped
	Err    error // ErrSyntax or ErrRange
}

func (e *Error) Error() string {
	return e.Err.Error() + " at offset " + strconv.Itoa(e.Offset)
}

func (e *Error) Unwrap() error { return e.Err }

// Err returns nil if r.Status is OK, otherwise returns an *Error.
func (r Result) Err() error {
	if err := r.Status.Err(); err != nil {
		return &Error{Offset: r.End, Err: err}
	}
	return nil
}
