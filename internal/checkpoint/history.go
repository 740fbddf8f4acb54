// Package checkpoint implements the time-versioned value primitive the
// sortition index is built from: an append-only series of (term, weight)
// pairs answering "what was the value as of term T" for any T, forever.
package checkpoint

import (
	"sort"

	"github.com/quorumnet/tribunal/internal/stake"
	"github.com/quorumnet/tribunal/internal/termclock"
)

// Checkpoint is one recorded (term, value) pair.
type Checkpoint struct {
	Term  termclock.Term
	Value stake.Weight
}

// History is the ordered checkpoint series for a single slot. The zero value
// is an empty history ready for use.
type History struct {
	checkpoints []Checkpoint
}

// Add records value at term. Writes must not go backwards: a term strictly
// earlier than the latest checkpoint fails with ErrPastTerm, while a write at
// the exact latest term overwrites that checkpoint in place.
func (h *History) Add(term termclock.Term, value stake.Weight) error {
	if n := len(h.checkpoints); n > 0 {
		last := &h.checkpoints[n-1]
		if term < last.Term {
			return ErrPastTerm
		}
		if term == last.Term {
			last.Value = value
			return nil
		}
	}
	h.checkpoints = append(h.checkpoints, Checkpoint{Term: term, Value: value})
	return nil
}

// ValueAt returns the value as of term: the value of the last checkpoint at
// or before it, or zero if the history starts later.
func (h *History) ValueAt(term termclock.Term) stake.Weight {
	// Index of the first checkpoint strictly after term.
	i := sort.Search(len(h.checkpoints), func(i int) bool {
		return h.checkpoints[i].Term > term
	})
	if i == 0 {
		return stake.Weight{}
	}
	return h.checkpoints[i-1].Value
}

// Latest returns the most recent checkpoint, if any.
func (h *History) Latest() (Checkpoint, bool) {
	if len(h.checkpoints) == 0 {
		return Checkpoint{}, false
	}
	return h.checkpoints[len(h.checkpoints)-1], true
}

// First returns the oldest checkpoint, if any.
func (h *History) First() (Checkpoint, bool) {
	if len(h.checkpoints) == 0 {
		return Checkpoint{}, false
	}
	return h.checkpoints[0], true
}

// Len returns the number of recorded checkpoints.
func (h *History) Len() int {
	return len(h.checkpoints)
}
