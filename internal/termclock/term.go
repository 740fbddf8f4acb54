// Package termclock defines the discrete clock all adjudication state is
// versioned against. A Term is a logical tick; every checkpoint, draft and
// phase boundary is expressed in terms, never in wall-clock durations.
package termclock

import (
	"time"

	"github.com/quorumnet/tribunal/internal/safemath"
)

var now = time.Now

// CourtEpoch is the wall-clock instant of term 0.
var CourtEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// TermDuration is the wall-clock length of one term.
const TermDuration = 8 * time.Hour

// Term is a discrete tick of the adjudication clock.
type Term uint64

// CurrentTerm returns the term the wall clock is currently in.
func CurrentTerm() Term {
	t, err := FromTime(now())
	if err != nil {
		// The clock precedes the epoch only in misconfigured environments;
		// treat it as term 0 rather than propagating an error to every read.
		return 0
	}
	return t
}

// FromTime converts a wall-clock time to the term containing it.
func FromTime(t time.Time) (Term, error) {
	if t.Before(CourtEpoch) {
		return 0, ErrBeforeCourtEpoch
	}
	return Term(t.Sub(CourtEpoch) / TermDuration), nil
}

// StartTime returns the wall-clock instant at which the term begins.
func (t Term) StartTime() time.Time {
	return CourtEpoch.Add(time.Duration(t) * TermDuration)
}

// Add returns the term n ticks after t.
func (t Term) Add(n uint64) (Term, error) {
	v, ok := safemath.Add64(uint64(t), n)
	if !ok {
		return 0, ErrTermOverflow
	}
	return Term(v), nil
}

// Delta returns the number of ticks from u to t. It fails if u is after t.
func (t Term) Delta(u Term) (uint64, error) {
	v, ok := safemath.Sub64(uint64(t), uint64(u))
	if !ok {
		return 0, ErrTermUnderflow
	}
	return v, nil
}

// Before reports whether t precedes u.
func (t Term) Before(u Term) bool {
	return t < u
}

// After reports whether t follows u.
func (t Term) After(u Term) bool {
	return t > u
}
