package sumtree

import (
	"fmt"
	"sort"

	"github.com/quorumnet/tribunal/internal/stake"
	"github.com/quorumnet/tribunal/internal/termclock"
)

// Match is one resolved search target: the leaf whose cumulative prefix sum
// first exceeds the target, and its value at the searched term.
type Match struct {
	Key   Key
	Value stake.Weight
}

// Search resolves each cumulative threshold in targets against the tree as
// of term: the match for target t is the unique leaf k such that the sum of
// all leaves with smaller keys is <= t and adding leaf k's value exceeds t.
// All targets are resolved in a single descent, sharing accumulated sibling
// sums. Results are returned in the order the targets were given.
//
// Every target must be strictly below TotalAt(term), and the tree must have
// weight recorded at term, otherwise ErrSearchOutOfBounds is returned.
func (t *Tree) Search(targets []stake.Weight, term termclock.Term) ([]Match, error) {
	total := t.TotalAt(term)
	if total.IsZero() {
		return nil, fmt.Errorf("no weight recorded at term %d: %w", term, ErrSearchOutOfBounds)
	}
	for i, target := range targets {
		if target.Cmp(total) >= 0 {
			return nil, fmt.Errorf("target %d (%s) not below total %s: %w", i, target, total, ErrSearchOutOfBounds)
		}
	}
	if len(targets) == 0 {
		return nil, nil
	}

	// The descent consumes targets in ascending order; sort an index view
	// and fill results back at the original positions.
	idx := make([]int, len(targets))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return targets[idx[a]].Cmp(targets[idx[b]]) < 0
	})
	rem := make([]stake.Weight, len(idx))
	for i, j := range idx {
		rem[i] = targets[j]
	}

	out := make([]Match, len(targets))
	t.searchNode(t.HeightAt(term), 0, term, idx, rem, out)
	return out, nil
}

// searchNode resolves the sorted targets rem (paired index-wise with idx)
// inside the subtree rooted at (level, key). Each child is visited at most
// once: the prefix of targets falling under it descends with thresholds
// unchanged, and the child's sum is subtracted from the rest.
func (t *Tree) searchNode(level Level, key Key, term termclock.Term, idx []int, rem []stake.Weight, out []Match) {
	if level == 0 {
		v := t.valueAsOf(nodeID{level: 0, key: key}, term)
		for _, i := range idx {
			out[i] = Match{Key: key, Value: v}
		}
		return
	}

	first := key * BranchingFactor
	for c := Key(0); c < BranchingFactor && len(idx) > 0; c++ {
		sum := t.valueAsOf(nodeID{level: level - 1, key: first + c}, term)
		if sum.IsZero() {
			continue
		}
		k := 0
		for k < len(rem) && rem[k].Cmp(sum) < 0 {
			k++
		}
		if k > 0 {
			t.searchNode(level-1, first+c, term, idx[:k], rem[:k], out)
			idx = idx[k:]
			rem = rem[k:]
		}
		for j := range rem {
			// Cannot underflow: every remaining threshold is >= sum.
			rem[j], _ = rem[j].Sub(sum)
		}
	}
}
