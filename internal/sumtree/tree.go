// Package sumtree implements the checkpointed 16-ary sum tree behind juror
// sortition. Leaves hold per-participant weights, internal nodes hold the
// checkpointed sum of their children, and every node keeps its full history,
// so cumulative-weight searches can be answered at any past term.
package sumtree

import (
	"fmt"

	"github.com/quorumnet/tribunal/internal/checkpoint"
	"github.com/quorumnet/tribunal/internal/safemath"
	"github.com/quorumnet/tribunal/internal/stake"
	"github.com/quorumnet/tribunal/internal/termclock"
)

// BranchingFactor is the number of children under each internal node.
const BranchingFactor = 16

const bitsPerLevel = 4

// Key identifies a leaf. Keys are dense, assigned sequentially from 0 on
// insert, and never reused.
type Key uint64

// Level is a node's distance from the leaves. Leaves are level 0 and the
// root sits at the tree's current height.
type Level uint8

type nodeID struct {
	level Level
	key   Key
}

// heightMark records a height change so that reads at past terms descend
// from the root that existed then.
type heightMark struct {
	term   termclock.Term
	height Level
}

// Tree is the checkpointed sum-tree index. It knows keys, weights and terms;
// disputes, rounds and randomness are layered on top by the caller.
type Tree struct {
	nodes   map[nodeID]*checkpoint.History
	heights []heightMark
	nextKey Key
}

// New returns an empty tree of height 1.
func New() *Tree {
	return &Tree{
		nodes:   make(map[nodeID]*checkpoint.History),
		heights: []heightMark{{term: 0, height: 1}},
	}
}

// Size returns the number of inserted leaves.
func (t *Tree) Size() uint64 {
	return uint64(t.nextKey)
}

func (t *Tree) height() Level {
	return t.heights[len(t.heights)-1].height
}

// HeightAt returns the tree height as of term.
func (t *Tree) HeightAt(term termclock.Term) Level {
	for i := len(t.heights) - 1; i >= 0; i-- {
		if t.heights[i].term <= term {
			return t.heights[i].height
		}
	}
	return t.heights[0].height
}

func ancestorKey(key Key, level Level) Key {
	return key >> (bitsPerLevel * uint(level))
}

// history returns the checkpoint history for id, allocating it on first use.
func (t *Tree) history(id nodeID) *checkpoint.History {
	h, ok := t.nodes[id]
	if !ok {
		h = &checkpoint.History{}
		t.nodes[id] = h
	}
	return h
}

// latestAt returns the most recent value of id, zero if the node is fresh.
func (t *Tree) latestAt(id nodeID) stake.Weight {
	if h, ok := t.nodes[id]; ok {
		if last, exists := h.Latest(); exists {
			return last.Value
		}
	}
	return stake.Weight{}
}

// valueAsOf returns the value of id as of term, zero if the node is fresh.
func (t *Tree) valueAsOf(id nodeID, term termclock.Term) stake.Weight {
	if h, ok := t.nodes[id]; ok {
		return h.ValueAt(term)
	}
	return stake.Weight{}
}

// checkRootPath verifies that term is not behind the latest checkpoint of
// any node on the path from leaf key to the root at the given height. Every
// write validates its full path before mutating anything, which is what
// makes failures atomic.
func (t *Tree) checkRootPath(key Key, height Level, term termclock.Term) error {
	for l := Level(0); l <= height; l++ {
		h, ok := t.nodes[nodeID{level: l, key: ancestorKey(key, l)}]
		if !ok {
			continue
		}
		if last, exists := h.Latest(); exists && term < last.Term {
			return fmt.Errorf("term %d is behind checkpoint at term %d: %w", term, last.Term, checkpoint.ErrPastTerm)
		}
	}
	return nil
}

// insertShape returns the key the next insert will use, the height the tree
// will have after it, and whether the insert grows the tree.
func (t *Tree) insertShape() (Key, Level, bool) {
	key := t.nextKey
	height := t.height()
	if span, ok := safemath.Pow16(uint64(height)); ok && uint64(key) == span {
		return key, height + 1, true
	}
	return key, height, false
}

// CheckInsert validates an insert of weight as of term without applying it.
// A nil result guarantees the matching Insert cannot fail, which lets
// callers journal the operation between validation and application.
func (t *Tree) CheckInsert(term termclock.Term, weight stake.Weight) error {
	key, height, grown := t.insertShape()

	total := t.latestAt(nodeID{level: t.height(), key: 0})
	if _, ok := total.Add(weight); !ok {
		return fmt.Errorf("insert of %s onto total %s: %w", weight, total, ErrOverflow)
	}

	if err := t.checkRootPath(key, height, term); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if grown {
		// The old root is not on the new leaf's path but is folded into the
		// new root at term, so it bounds the write term too.
		if err := t.checkRootPath(0, height-1, term); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
	}
	return nil
}

// Insert appends a new leaf holding weight as of term and returns its key.
// The tree grows one level when the new key falls outside the current root's
// span; the old root becomes the first child of the new one.
func (t *Tree) Insert(term termclock.Term, weight stake.Weight) (Key, error) {
	if err := t.CheckInsert(term, weight); err != nil {
		return 0, err
	}
	key, height, grown := t.insertShape()
	total := t.latestAt(nodeID{level: t.height(), key: 0})

	// Validated above; no Add below can fail.
	if grown {
		t.heights = append(t.heights, heightMark{term: term, height: height})
		if !total.IsZero() {
			_ = t.history(nodeID{level: height, key: 0}).Add(term, total)
		}
	}
	_ = t.history(nodeID{level: 0, key: key}).Add(term, weight)
	for l := Level(1); l <= height; l++ {
		id := nodeID{level: l, key: ancestorKey(key, l)}
		sum, _ := t.latestAt(id).Add(weight)
		_ = t.history(id).Add(term, sum)
	}

	t.nextKey++
	return key, nil
}

// Set overwrites the leaf's value as of term and propagates the difference
// along the root path.
func (t *Tree) Set(key Key, term termclock.Term, weight stake.Weight) error {
	if key >= t.nextKey {
		return fmt.Errorf("set key %d: %w", key, ErrKeyNotFound)
	}
	old := t.latestAt(nodeID{level: 0, key: key})
	if delta, ok := weight.Sub(old); ok {
		return t.applyDelta(key, term, weight, delta, true)
	}
	delta, _ := old.Sub(weight)
	return t.applyDelta(key, term, weight, delta, false)
}

// shiftedLeaf returns the leaf's latest value moved by the signed delta,
// checking key existence and over/underflow.
func (t *Tree) shiftedLeaf(key Key, delta stake.Weight, positive bool) (stake.Weight, error) {
	if key >= t.nextKey {
		return stake.Weight{}, fmt.Errorf("update key %d: %w", key, ErrKeyNotFound)
	}
	old := t.latestAt(nodeID{level: 0, key: key})
	if positive {
		next, ok := old.Add(delta)
		if !ok {
			return stake.Weight{}, fmt.Errorf("update key %d by +%s: %w", key, delta, ErrOverflow)
		}
		return next, nil
	}
	next, ok := old.Sub(delta)
	if !ok {
		return stake.Weight{}, fmt.Errorf("update key %d by -%s exceeds value %s: %w", key, delta, old, ErrUnderflow)
	}
	return next, nil
}

// CheckUpdate validates an update without applying it. A nil result
// guarantees the matching Update cannot fail.
func (t *Tree) CheckUpdate(key Key, term termclock.Term, delta stake.Weight, positive bool) error {
	if _, err := t.shiftedLeaf(key, delta, positive); err != nil {
		return err
	}
	return t.checkDelta(key, term, delta, positive)
}

// Update applies a signed delta to the leaf's current value as of term,
// propagating along the root path like Set.
func (t *Tree) Update(key Key, term termclock.Term, delta stake.Weight, positive bool) error {
	next, err := t.shiftedLeaf(key, delta, positive)
	if err != nil {
		return err
	}
	return t.applyDelta(key, term, next, delta, positive)
}

// checkDelta verifies that shifting the leaf's root path by delta at term
// violates neither the total bound nor term monotonicity.
func (t *Tree) checkDelta(key Key, term termclock.Term, delta stake.Weight, positive bool) error {
	height := t.height()
	if positive {
		total := t.latestAt(nodeID{level: height, key: 0})
		if _, ok := total.Add(delta); !ok {
			return fmt.Errorf("delta +%s onto total %s: %w", delta, total, ErrOverflow)
		}
	}
	return t.checkRootPath(key, height, term)
}

// applyDelta writes the new leaf value and shifts every ancestor sum by
// delta, all checkpointed at term. Validation happens before any mutation.
func (t *Tree) applyDelta(key Key, term termclock.Term, leafValue, delta stake.Weight, positive bool) error {
	if err := t.checkDelta(key, term, delta, positive); err != nil {
		return err
	}
	height := t.height()

	// Validated above; no Add below can fail. Ancestor subtractions cannot
	// underflow because each ancestor's sum includes the leaf's value.
	_ = t.history(nodeID{level: 0, key: key}).Add(term, leafValue)
	for l := Level(1); l <= height; l++ {
		id := nodeID{level: l, key: ancestorKey(key, l)}
		cur := t.latestAt(id)
		var sum stake.Weight
		if positive {
			sum, _ = cur.Add(delta)
		} else {
			sum, _ = cur.Sub(delta)
		}
		_ = t.history(id).Add(term, sum)
	}
	return nil
}

// ValueAt returns the leaf's value as of term, zero if the key did not exist
// yet at that term.
func (t *Tree) ValueAt(key Key, term termclock.Term) stake.Weight {
	if key >= t.nextKey {
		return stake.Weight{}
	}
	return t.valueAsOf(nodeID{level: 0, key: key}, term)
}

// TotalAt returns the total tree weight as of term.
func (t *Tree) TotalAt(term termclock.Term) stake.Weight {
	return t.valueAsOf(nodeID{level: t.HeightAt(term), key: 0}, term)
}
