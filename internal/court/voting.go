package court

import "github.com/quorumnet/tribunal/internal/stake"

// Voting is the external commit-reveal voting subsystem, keyed by round id.
// The engine calls it at phase boundaries and trusts its results; it never
// duplicates tallying.
type Voting interface {
	// CreateVote opens a ballot for the round with the given number of
	// possible outcomes.
	CreateVote(round RoundID, outcomes uint8) error

	// VoterWeight returns the weight the subsystem recorded for the juror
	// in the round's ballot.
	VoterWeight(round RoundID, juror JurorID) (stake.Weight, error)

	// WinningOutcome returns the tallied outcome of the round's ballot.
	WinningOutcome(round RoundID) (uint8, error)
}
