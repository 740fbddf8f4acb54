package court

import (
	"encoding/hex"

	"github.com/quorumnet/tribunal/internal/termclock"
)

// DisputeID identifies a dispute. IDs are assigned by the caller.
type DisputeID uint64

// JurorID identifies a registered participant.
type JurorID [20]byte

func (id JurorID) String() string {
	return hex.EncodeToString(id[:])
}

// RoundID identifies one adjudication round within a dispute. It is the key
// the external voting subsystem indexes its ballots by.
type RoundID struct {
	Dispute DisputeID
	Number  uint64
}

// Phase is the adjudication state of a round.
type Phase uint8

const (
	PhaseDrafting Phase = iota
	PhaseCommitting
	PhaseRevealing
	PhaseAppealable
	PhaseAppealed
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseDrafting:
		return "drafting"
	case PhaseCommitting:
		return "committing"
	case PhaseRevealing:
		return "revealing"
	case PhaseAppealable:
		return "appealable"
	case PhaseAppealed:
		return "appealed"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Slot records a drafted juror and the number of slots (vote weight) they
// hold in the round. A juror drawn more than once accumulates slots.
type Slot struct {
	Juror JurorID
	Slots uint64
}

// Round is one adjudication round. Its content guarantees (who may vote and
// with what weight) are fixed at creation; only the phase and the drafted
// slots evolve, and slots only during drafting.
type Round struct {
	ID              RoundID
	DraftTerm       termclock.Term
	CommitEndTerm   termclock.Term
	RevealEndTerm   termclock.Term
	AppealEndTerm   termclock.Term
	JurorsRequested uint64
	JurorsDrafted   uint64
	Slots           []Slot
	Phase           Phase
	Final           bool
	Outcome         uint8

	draftNonce uint64
	slotIndex  map[JurorID]int
}

// slotCount returns the number of slots the juror currently holds.
func (r *Round) slotCount(id JurorID) uint64 {
	if i, ok := r.slotIndex[id]; ok {
		return r.Slots[i].Slots
	}
	return 0
}

// addSlot assigns one more slot to the juror.
func (r *Round) addSlot(id JurorID) {
	if i, ok := r.slotIndex[id]; ok {
		r.Slots[i].Slots++
		return
	}
	r.slotIndex[id] = len(r.Slots)
	r.Slots = append(r.Slots, Slot{Juror: id, Slots: 1})
}

// clone returns a defensive copy for external readers.
func (r *Round) clone() Round {
	out := *r
	out.Slots = append([]Slot(nil), r.Slots...)
	out.slotIndex = nil
	return out
}

// Dispute is a dispute with its ordered rounds. The latest round is the only
// one whose state may still change.
type Dispute struct {
	ID     DisputeID
	Rounds []*Round

	// seed anchors every pseudo-random draw for this dispute.
	seed [32]byte
}

func (d *Dispute) latest() *Round {
	return d.Rounds[len(d.Rounds)-1]
}
