package court

import (
	"fmt"

	"github.com/quorumnet/tribunal/internal/stake"
	"github.com/quorumnet/tribunal/internal/termclock"
)

// OpKind tags a journaled engine operation.
type OpKind uint8

const (
	OpRegisterJuror OpKind = iota + 1
	OpActivateStake
	OpDeactivateStake
	OpOpenDispute
	OpDraftBatch
	OpAppeal
	OpAdvance
)

// Op is one committed engine operation. The full engine state is a pure
// function of the ordered op sequence plus the dispute seed source, so a
// journal of ops replayed in order rebuilds identical state.
type Op struct {
	Kind    OpKind
	Juror   JurorID
	Dispute DisputeID
	Round   uint64
	Term    termclock.Term
	Amount  stake.Weight
	Count   uint64
}

// Journal receives every committed operation for durable storage.
type Journal interface {
	Append(op Op) error
}

// Apply re-executes a journaled operation. Used when replaying a journal
// into a fresh engine; the engine's own journal must be detached while
// replaying so ops are not recorded twice.
func (e *Engine) Apply(op Op) error {
	switch op.Kind {
	case OpRegisterJuror:
		return e.RegisterJuror(op.Juror, op.Term, op.Amount)
	case OpActivateStake:
		return e.ActivateStake(op.Juror, op.Term, op.Amount)
	case OpDeactivateStake:
		return e.DeactivateStake(op.Juror, op.Term, op.Amount)
	case OpOpenDispute:
		return e.OpenDispute(op.Dispute, op.Term, op.Count)
	case OpDraftBatch:
		return e.DraftBatch(op.Dispute, op.Term)
	case OpAppeal:
		return e.Appeal(op.Dispute, op.Round, op.Term)
	case OpAdvance:
		return e.Advance(op.Dispute, op.Term)
	default:
		return fmt.Errorf("unknown op kind %d", op.Kind)
	}
}

// record appends op to the attached journal, if any.
func (e *Engine) record(op Op) error {
	if e.journal == nil {
		return nil
	}
	return e.journal.Append(op)
}
