package termclock

import "errors"

var (
	// ErrBeforeCourtEpoch is returned when converting a wall-clock time that
	// precedes the start of term 0.
	ErrBeforeCourtEpoch = errors.New("time is before the court epoch")

	// ErrTermOverflow is returned when term arithmetic would exceed the
	// maximum representable term.
	ErrTermOverflow = errors.New("term overflow")

	// ErrTermUnderflow is returned when computing the distance from a term to
	// an earlier one.
	ErrTermUnderflow = errors.New("term underflow")
)
