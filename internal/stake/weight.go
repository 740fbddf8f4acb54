// Package stake provides the bounded arithmetic used for staked balances.
// Weights are unsigned and capped at 2^192-1 so that checkpointed sums can
// never wrap; every operation that could leave the bound reports failure
// instead of saturating.
package stake

import (
	"math/big"

	"github.com/holiman/uint256"
)

// WeightBytes is the fixed encoded size of a Weight.
const WeightBytes = 24

// maxWeight is 2^192 - 1.
var maxWeight = func() *uint256.Int {
	one := uint256.NewInt(1)
	m := new(uint256.Int).Lsh(one, 192)
	return m.Sub(m, one)
}()

// Weight is an unsigned stake amount bounded to 192 bits.
type Weight struct {
	n uint256.Int
}

// MaxWeight returns the largest storable weight.
func MaxWeight() Weight {
	var w Weight
	w.n.Set(maxWeight)
	return w
}

// FromUint64 returns v as a Weight.
func FromUint64(v uint64) Weight {
	var w Weight
	w.n.SetUint64(v)
	return w
}

// FromBig converts b to a Weight. It reports false if b is negative or
// exceeds the 192-bit bound.
func FromBig(b *big.Int) (Weight, bool) {
	var w Weight
	if b.Sign() < 0 {
		return Weight{}, false
	}
	if overflow := w.n.SetFromBig(b); overflow || w.n.Gt(maxWeight) {
		return Weight{}, false
	}
	return w, true
}

// Add returns w+o, reporting false if the sum exceeds the bound.
func (w Weight) Add(o Weight) (Weight, bool) {
	var z Weight
	if _, overflow := z.n.AddOverflow(&w.n, &o.n); overflow || z.n.Gt(maxWeight) {
		return Weight{}, false
	}
	return z, true
}

// Sub returns w-o, reporting false if o exceeds w.
func (w Weight) Sub(o Weight) (Weight, bool) {
	var z Weight
	if _, underflow := z.n.SubOverflow(&w.n, &o.n); underflow {
		return Weight{}, false
	}
	return z, true
}

// Cmp compares w and o, returning -1, 0 or +1.
func (w Weight) Cmp(o Weight) int {
	return w.n.Cmp(&o.n)
}

func (w Weight) IsZero() bool {
	return w.n.IsZero()
}

// Uint64 returns the low 64 bits of w.
func (w Weight) Uint64() uint64 {
	return w.n.Uint64()
}

func (w Weight) String() string {
	return w.n.Dec()
}

// Bytes24 returns the fixed big-endian encoding of w.
func (w Weight) Bytes24() [WeightBytes]byte {
	full := w.n.Bytes32()
	var out [WeightBytes]byte
	copy(out[:], full[32-WeightBytes:])
	return out
}

// FromBytes24 decodes a Weight from its fixed big-endian encoding.
func FromBytes24(b [WeightBytes]byte) Weight {
	var w Weight
	w.n.SetBytes(b[:])
	return w
}

// Mod interprets the 32-byte value as an unsigned integer and reduces it
// modulo w. Used to map raw randomness onto the [0, total) target range.
// It reports false if w is zero.
func (w Weight) Mod(raw [32]byte) (Weight, bool) {
	if w.n.IsZero() {
		return Weight{}, false
	}
	var z Weight
	v := new(uint256.Int).SetBytes(raw[:])
	z.n.Mod(v, &w.n)
	return z, true
}
