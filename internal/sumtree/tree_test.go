package sumtree

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumnet/tribunal/internal/checkpoint"
	"github.com/quorumnet/tribunal/internal/stake"
	"github.com/quorumnet/tribunal/internal/termclock"
)

func w(v uint64) stake.Weight {
	return stake.FromUint64(v)
}

func TestInsertAssignsDenseKeys(t *testing.T) {
	tree := New()
	for i := uint64(0); i < 5; i++ {
		key, err := tree.Insert(1, w(i+1))
		require.NoError(t, err)
		assert.Equal(t, Key(i), key)
	}
	assert.Equal(t, uint64(5), tree.Size())
}

func TestTotalMatchesSumOfLeaves(t *testing.T) {
	tree := New()
	values := []uint64{3, 0, 7, 12, 5, 1, 9}
	for i, v := range values {
		_, err := tree.Insert(termclock.Term(i+1), w(v))
		require.NoError(t, err)
	}

	// At every term, the root total equals the sum of all leaf values as of
	// that term.
	for term := termclock.Term(0); term <= termclock.Term(len(values)+2); term++ {
		expected := stake.Weight{}
		for key := Key(0); key < Key(len(values)); key++ {
			var ok bool
			expected, ok = expected.Add(tree.ValueAt(key, term))
			require.True(t, ok)
		}
		assert.Equal(t, 0, tree.TotalAt(term).Cmp(expected), "term %d", term)
	}
}

func TestTreeGrowsAtSixteenLeaves(t *testing.T) {
	tree := New()
	assert.Equal(t, Level(1), tree.HeightAt(0))

	// Insert 40 leaves with weights base^exponent, base cycling over 1,2,3.
	expected := stake.Weight{}
	for i := 0; i < 40; i++ {
		base := int64(i%3 + 1)
		exp := big.NewInt(int64(i/3 + 1))
		value := new(big.Int).Exp(big.NewInt(base), exp, nil)
		weight, ok := stake.FromBig(value)
		require.True(t, ok)

		term := termclock.Term(i + 1)
		_, err := tree.Insert(term, weight)
		require.NoError(t, err)

		expected, ok = expected.Add(weight)
		require.True(t, ok)
		assert.Equal(t, 0, tree.TotalAt(term).Cmp(expected), "total after insert %d", i)
	}

	assert.Equal(t, Level(2), tree.HeightAt(41))
	// Reads before the growth still descend from the old root.
	assert.Equal(t, Level(1), tree.HeightAt(16))
}

func TestSetPropagatesDelta(t *testing.T) {
	tree := New()
	for i := uint64(0); i < 20; i++ {
		_, err := tree.Insert(1, w(10))
		require.NoError(t, err)
	}
	require.Equal(t, uint64(200), tree.TotalAt(1).Uint64())

	// raise a leaf
	require.NoError(t, tree.Set(7, 2, w(25)))
	assert.Equal(t, uint64(25), tree.ValueAt(7, 2).Uint64())
	assert.Equal(t, uint64(215), tree.TotalAt(2).Uint64())

	// lower it again
	require.NoError(t, tree.Set(7, 3, w(0)))
	assert.Equal(t, uint64(0), tree.ValueAt(7, 3).Uint64())
	assert.Equal(t, uint64(190), tree.TotalAt(3).Uint64())

	// the old checkpoints are untouched
	assert.Equal(t, uint64(10), tree.ValueAt(7, 1).Uint64())
	assert.Equal(t, uint64(200), tree.TotalAt(1).Uint64())
}

func TestUpdate(t *testing.T) {
	tree := New()
	key, err := tree.Insert(1, w(100))
	require.NoError(t, err)

	t.Run("positive_delta", func(t *testing.T) {
		require.NoError(t, tree.Update(key, 2, w(50), true))
		assert.Equal(t, uint64(150), tree.ValueAt(key, 2).Uint64())
		assert.Equal(t, uint64(150), tree.TotalAt(2).Uint64())
	})

	t.Run("negative_delta", func(t *testing.T) {
		require.NoError(t, tree.Update(key, 3, w(120), false))
		assert.Equal(t, uint64(30), tree.ValueAt(key, 3).Uint64())
	})

	t.Run("underflow_rejected", func(t *testing.T) {
		err := tree.Update(key, 4, w(31), false)
		assert.ErrorIs(t, err, ErrUnderflow)
		assert.Equal(t, uint64(30), tree.ValueAt(key, 4).Uint64())
	})

	t.Run("unknown_key", func(t *testing.T) {
		err := tree.Update(Key(99), 4, w(1), true)
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestOverflowRejectedAtomically(t *testing.T) {
	tree := New()
	_, err := tree.Insert(1, stake.MaxWeight())
	require.NoError(t, err)

	_, err = tree.Insert(2, w(1))
	assert.ErrorIs(t, err, ErrOverflow)
	// nothing changed: no key was assigned and the total is intact
	assert.Equal(t, uint64(1), tree.Size())
	assert.Equal(t, 0, tree.TotalAt(2).Cmp(stake.MaxWeight()))

	err = tree.Update(0, 2, w(1), true)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestPastTermWritesRejected(t *testing.T) {
	tree := New()
	key, err := tree.Insert(5, w(10))
	require.NoError(t, err)

	t.Run("update_in_the_past", func(t *testing.T) {
		err := tree.Update(key, 3, w(1), true)
		assert.ErrorIs(t, err, checkpoint.ErrPastTerm)
		assert.Equal(t, uint64(10), tree.ValueAt(key, 5).Uint64())
		assert.Equal(t, uint64(10), tree.TotalAt(5).Uint64())
	})

	t.Run("insert_in_the_past", func(t *testing.T) {
		_, err := tree.Insert(4, w(1))
		assert.ErrorIs(t, err, checkpoint.ErrPastTerm)
		assert.Equal(t, uint64(1), tree.Size())
	})

	t.Run("write_at_latest_term_overwrites", func(t *testing.T) {
		require.NoError(t, tree.Set(key, 5, w(20)))
		assert.Equal(t, uint64(20), tree.ValueAt(key, 5).Uint64())
	})
}

func TestCheckWithoutApply(t *testing.T) {
	tree := New()
	key, err := tree.Insert(3, w(10))
	require.NoError(t, err)

	t.Run("check_insert_passes_without_writing", func(t *testing.T) {
		require.NoError(t, tree.CheckInsert(3, w(5)))
		assert.Equal(t, uint64(1), tree.Size())
		assert.Equal(t, uint64(10), tree.TotalAt(3).Uint64())
	})

	t.Run("check_insert_past_term", func(t *testing.T) {
		assert.ErrorIs(t, tree.CheckInsert(2, w(1)), checkpoint.ErrPastTerm)
	})

	t.Run("check_update_mirrors_update", func(t *testing.T) {
		require.NoError(t, tree.CheckUpdate(key, 4, w(5), true))
		assert.ErrorIs(t, tree.CheckUpdate(key, 4, w(11), false), ErrUnderflow)
		assert.ErrorIs(t, tree.CheckUpdate(Key(9), 4, w(1), true), ErrKeyNotFound)
		assert.ErrorIs(t, tree.CheckUpdate(key, 2, w(1), true), checkpoint.ErrPastTerm)
		// no check left a checkpoint behind
		assert.Equal(t, uint64(10), tree.ValueAt(key, 4).Uint64())
		assert.Equal(t, uint64(10), tree.TotalAt(4).Uint64())
	})

	t.Run("check_rejects_overflow", func(t *testing.T) {
		full := New()
		_, err := full.Insert(1, stake.MaxWeight())
		require.NoError(t, err)
		assert.ErrorIs(t, full.CheckInsert(2, w(1)), ErrOverflow)
		assert.ErrorIs(t, full.CheckUpdate(0, 2, w(1), true), ErrOverflow)
	})
}

func TestHistoricalReadsAreStable(t *testing.T) {
	tree := New()
	key, err := tree.Insert(1, w(10))
	require.NoError(t, err)

	snapshotValue := tree.ValueAt(key, 1).Uint64()
	snapshotTotal := tree.TotalAt(1).Uint64()

	for term := termclock.Term(2); term < 30; term++ {
		require.NoError(t, tree.Set(key, term, w(uint64(term)*3)))
		_, err := tree.Insert(term, w(uint64(term)))
		require.NoError(t, err)
	}

	assert.Equal(t, snapshotValue, tree.ValueAt(key, 1).Uint64())
	assert.Equal(t, snapshotTotal, tree.TotalAt(1).Uint64())
}
