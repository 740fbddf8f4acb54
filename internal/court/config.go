package court

import (
	"errors"

	"github.com/quorumnet/tribunal/internal/stake"
)

// Config carries the adjudication policy. All durations are in terms.
type Config struct {
	// CommitTerms, RevealTerms and AppealTerms are the lengths of the three
	// post-draft phases, measured from the round's draft term.
	CommitTerms uint64
	RevealTerms uint64
	AppealTerms uint64

	// DraftTermOffset is the number of terms between an accepted appeal and
	// the new round's draft term.
	DraftTermOffset uint64

	// MaxRounds is the round number at which adjudication becomes final:
	// the round spawned with this number skips drafting and is decided by
	// full-stake voting, with no further appeal.
	MaxRounds uint64

	// DraftBatchSize bounds the number of slots drawn per DraftBatch call.
	DraftBatchSize uint64

	// MaxSlotsPerJuror caps how many slots one juror may hold in a round.
	// Zero means uncapped, i.e. pure stake-proportional sortition.
	MaxSlotsPerJuror uint64

	// MinActiveStake is the floor for juror registration, for remaining
	// active after a deactivation, and for final-round voting eligibility.
	MinActiveStake stake.Weight

	// VoteOutcomes is the number of outcomes passed to the voting subsystem
	// when a ballot is created.
	VoteOutcomes uint8
}

// DefaultConfig returns a workable policy for tests and the demo binary.
func DefaultConfig() Config {
	return Config{
		CommitTerms:      2,
		RevealTerms:      2,
		AppealTerms:      1,
		DraftTermOffset:  1,
		MaxRounds:        4,
		DraftBatchSize:   10,
		MaxSlotsPerJuror: 0,
		MinActiveStake:   stake.FromUint64(100),
		VoteOutcomes:     2,
	}
}

func (c Config) Validate() error {
	if c.CommitTerms == 0 || c.RevealTerms == 0 || c.AppealTerms == 0 {
		return errors.New("phase durations must be at least one term")
	}
	if c.DraftBatchSize == 0 {
		return errors.New("draft batch size must be positive")
	}
	if c.VoteOutcomes < 2 {
		return errors.New("votes need at least two outcomes")
	}
	return nil
}
