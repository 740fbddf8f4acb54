package sumtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumnet/tribunal/internal/stake"
	"github.com/quorumnet/tribunal/internal/termclock"
)

// buildTree inserts the given leaf values at term.
func buildTree(t *testing.T, term termclock.Term, values []uint64) *Tree {
	t.Helper()
	tree := New()
	for _, v := range values {
		_, err := tree.Insert(term, w(v))
		require.NoError(t, err)
	}
	return tree
}

func TestSearchLastLeaf(t *testing.T) {
	// Leaves [3,4,2,1,2,3], total 15. The prefix sum first exceeds 14 at the
	// sixth leaf, so target 14 lands on key 5.
	tree := buildTree(t, 1, []uint64{3, 4, 2, 1, 2, 3})
	require.Equal(t, uint64(15), tree.TotalAt(1).Uint64())

	matches, err := tree.Search([]stake.Weight{w(14)}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, Key(5), matches[0].Key)
	assert.Equal(t, uint64(3), matches[0].Value.Uint64())
}

func TestSearchEveryBoundary(t *testing.T) {
	// Same layout; every target maps to the leaf owning its prefix-sum span:
	// key 0 owns [0,3), key 1 owns [3,7), key 2 [7,9), key 3 [9,10),
	// key 4 [10,12), key 5 [12,15).
	tree := buildTree(t, 1, []uint64{3, 4, 2, 1, 2, 3})

	wantKeys := []Key{0, 0, 0, 1, 1, 1, 1, 2, 2, 3, 4, 4, 5, 5, 5}
	for target := uint64(0); target < 15; target++ {
		matches, err := tree.Search([]stake.Weight{w(target)}, 1)
		require.NoError(t, err)
		assert.Equal(t, wantKeys[target], matches[0].Key, "target %d", target)
	}
}

func TestSearchBatchPreservesOrder(t *testing.T) {
	tree := buildTree(t, 1, []uint64{3, 4, 2, 1, 2, 3})

	// Deliberately unsorted targets; results come back in the given order.
	targets := []stake.Weight{w(14), w(0), w(9), w(3)}
	matches, err := tree.Search(targets, 1)
	require.NoError(t, err)
	require.Len(t, matches, 4)
	assert.Equal(t, Key(5), matches[0].Key)
	assert.Equal(t, Key(0), matches[1].Key)
	assert.Equal(t, Key(3), matches[2].Key)
	assert.Equal(t, Key(1), matches[3].Key)
}

func TestSearchAcrossGrowth(t *testing.T) {
	// 20 equal leaves force a height-2 tree; searches must still resolve
	// every span correctly on both sides of the growth boundary.
	tree := New()
	for i := 0; i < 20; i++ {
		_, err := tree.Insert(termclock.Term(i+1), w(10))
		require.NoError(t, err)
	}

	for i := uint64(0); i < 20; i++ {
		matches, err := tree.Search([]stake.Weight{w(i*10 + 5)}, 20)
		require.NoError(t, err)
		assert.Equal(t, Key(i), matches[0].Key, "target %d", i*10+5)
	}

	// As of term 10 only ten leaves carry weight.
	matches, err := tree.Search([]stake.Weight{w(95)}, 10)
	require.NoError(t, err)
	assert.Equal(t, Key(9), matches[0].Key)
}

func TestSearchHistorical(t *testing.T) {
	tree := New()
	key, err := tree.Insert(1, w(10))
	require.NoError(t, err)
	_, err = tree.Insert(1, w(10))
	require.NoError(t, err)

	// Later the first leaf is emptied; a search at the old term still finds
	// it, a search at the new term does not.
	require.NoError(t, tree.Set(key, 5, w(0)))

	matches, err := tree.Search([]stake.Weight{w(5)}, 1)
	require.NoError(t, err)
	assert.Equal(t, Key(0), matches[0].Key)

	matches, err = tree.Search([]stake.Weight{w(5)}, 5)
	require.NoError(t, err)
	assert.Equal(t, Key(1), matches[0].Key)
}

func TestSearchOutOfBounds(t *testing.T) {
	t.Run("target_at_total", func(t *testing.T) {
		tree := buildTree(t, 1, []uint64{3, 4, 2, 1, 2, 3})
		_, err := tree.Search([]stake.Weight{w(15)}, 1)
		assert.ErrorIs(t, err, ErrSearchOutOfBounds)
	})

	t.Run("empty_tree", func(t *testing.T) {
		tree := New()
		_, err := tree.Search([]stake.Weight{w(0)}, 1)
		assert.ErrorIs(t, err, ErrSearchOutOfBounds)
	})

	t.Run("term_before_first_checkpoint", func(t *testing.T) {
		tree := buildTree(t, 5, []uint64{3, 4})
		_, err := tree.Search([]stake.Weight{w(0)}, 4)
		assert.ErrorIs(t, err, ErrSearchOutOfBounds)
	})

	t.Run("one_bad_target_fails_the_batch", func(t *testing.T) {
		tree := buildTree(t, 1, []uint64{3, 4})
		_, err := tree.Search([]stake.Weight{w(0), w(7)}, 1)
		assert.ErrorIs(t, err, ErrSearchOutOfBounds)
	})
}
