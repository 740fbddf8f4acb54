package termclock

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTime(t *testing.T) {
	t.Run("epoch_is_term_zero", func(t *testing.T) {
		term, err := FromTime(CourtEpoch)
		require.NoError(t, err)
		assert.Equal(t, Term(0), term)
	})

	t.Run("one_duration_later_is_term_one", func(t *testing.T) {
		term, err := FromTime(CourtEpoch.Add(TermDuration))
		require.NoError(t, err)
		assert.Equal(t, Term(1), term)
	})

	t.Run("mid_term_rounds_down", func(t *testing.T) {
		term, err := FromTime(CourtEpoch.Add(TermDuration + TermDuration/2))
		require.NoError(t, err)
		assert.Equal(t, Term(1), term)
	})

	t.Run("before_epoch_fails", func(t *testing.T) {
		_, err := FromTime(CourtEpoch.Add(-time.Second))
		assert.ErrorIs(t, err, ErrBeforeCourtEpoch)
	})
}

func TestCurrentTerm(t *testing.T) {
	defer func() { now = time.Now }()

	now = func() time.Time { return CourtEpoch.Add(5 * TermDuration) }
	assert.Equal(t, Term(5), CurrentTerm())

	now = func() time.Time { return CourtEpoch.Add(-time.Hour) }
	assert.Equal(t, Term(0), CurrentTerm())
}

func TestTermArithmetic(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		term, err := Term(10).Add(5)
		require.NoError(t, err)
		assert.Equal(t, Term(15), term)
	})

	t.Run("add_overflow", func(t *testing.T) {
		_, err := Term(math.MaxUint64).Add(1)
		assert.ErrorIs(t, err, ErrTermOverflow)
	})

	t.Run("delta", func(t *testing.T) {
		d, err := Term(15).Delta(Term(10))
		require.NoError(t, err)
		assert.Equal(t, uint64(5), d)
	})

	t.Run("delta_underflow", func(t *testing.T) {
		_, err := Term(10).Delta(Term(15))
		assert.ErrorIs(t, err, ErrTermUnderflow)
	})
}

func TestStartTime(t *testing.T) {
	assert.Equal(t, CourtEpoch, Term(0).StartTime())
	assert.Equal(t, CourtEpoch.Add(3*TermDuration), Term(3).StartTime())
}

func TestBeforeAfter(t *testing.T) {
	assert.True(t, Term(1).Before(Term(2)))
	assert.False(t, Term(2).Before(Term(2)))
	assert.True(t, Term(3).After(Term(2)))
	assert.False(t, Term(2).After(Term(2)))
}
