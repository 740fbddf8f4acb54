package court

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/quorumnet/tribunal/internal/stake"
)

// Seeder supplies the randomness disputes are anchored to. Implementations
// may wrap a verifiable random source; tests inject fixed seeds.
type Seeder interface {
	NextSeed() [32]byte
}

// BlakeSeeder chains blake2b over an initial seed. Deterministic: an engine
// replayed with the same initial seed reproduces every draw.
type BlakeSeeder struct {
	state [32]byte
}

func NewBlakeSeeder(seed [32]byte) *BlakeSeeder {
	return &BlakeSeeder{state: seed}
}

func (s *BlakeSeeder) NextSeed() [32]byte {
	s.state = blake2b.Sum256(s.state[:])
	return s.state
}

// drawTarget derives the cumulative-weight target for one slot draw by
// hashing the dispute seed with the round id and a running nonce, reduced
// into [0, total). It reports false only when total is zero.
func drawTarget(seed [32]byte, round RoundID, nonce uint64, total stake.Weight) (stake.Weight, bool) {
	buf := make([]byte, 0, len(seed)+24)
	buf = append(buf, seed[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(round.Dispute))
	buf = binary.LittleEndian.AppendUint64(buf, round.Number)
	buf = binary.LittleEndian.AppendUint64(buf, nonce)
	h := blake2b.Sum256(buf)
	return total.Mod(h)
}
