package store

import (
	"encoding/binary"
	"fmt"

	"github.com/quorumnet/tribunal/internal/court"
	"github.com/quorumnet/tribunal/internal/stake"
	"github.com/quorumnet/tribunal/internal/termclock"
)

// Op records are fixed width:
// kind(1) juror(20) dispute(8) round(8) term(8) amount(24) count(8).
const opRecordSize = 1 + 20 + 8 + 8 + 8 + stake.WeightBytes + 8

func encodeOp(op court.Op) []byte {
	buf := make([]byte, 0, opRecordSize)
	buf = append(buf, byte(op.Kind))
	buf = append(buf, op.Juror[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(op.Dispute))
	buf = binary.BigEndian.AppendUint64(buf, op.Round)
	buf = binary.BigEndian.AppendUint64(buf, uint64(op.Term))
	amount := op.Amount.Bytes24()
	buf = append(buf, amount[:]...)
	buf = binary.BigEndian.AppendUint64(buf, op.Count)
	return buf
}

func decodeOp(raw []byte) (court.Op, error) {
	if len(raw) != opRecordSize {
		return court.Op{}, fmt.Errorf("malformed op record of %d bytes", len(raw))
	}
	var op court.Op
	op.Kind = court.OpKind(raw[0])
	raw = raw[1:]
	copy(op.Juror[:], raw[:20])
	raw = raw[20:]
	op.Dispute = court.DisputeID(binary.BigEndian.Uint64(raw))
	raw = raw[8:]
	op.Round = binary.BigEndian.Uint64(raw)
	raw = raw[8:]
	op.Term = termclock.Term(binary.BigEndian.Uint64(raw))
	raw = raw[8:]
	var amount [stake.WeightBytes]byte
	copy(amount[:], raw[:stake.WeightBytes])
	op.Amount = stake.FromBytes24(amount)
	raw = raw[stake.WeightBytes:]
	op.Count = binary.BigEndian.Uint64(raw)
	return op, nil
}

// Round snapshots: dispute(8) number(8) draft(8) commitEnd(8) revealEnd(8)
// appealEnd(8) requested(8) drafted(8) phase(1) final(1) outcome(1)
// slotCount(4) then slotCount * (juror(20) slots(8)).
const roundHeaderSize = 8*8 + 3 + 4

func encodeRound(r court.Round) []byte {
	buf := make([]byte, 0, roundHeaderSize+len(r.Slots)*28)
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.ID.Dispute))
	buf = binary.BigEndian.AppendUint64(buf, r.ID.Number)
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.DraftTerm))
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.CommitEndTerm))
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.RevealEndTerm))
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.AppealEndTerm))
	buf = binary.BigEndian.AppendUint64(buf, r.JurorsRequested)
	buf = binary.BigEndian.AppendUint64(buf, r.JurorsDrafted)
	buf = append(buf, byte(r.Phase), boolByte(r.Final), r.Outcome)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(r.Slots)))
	for _, s := range r.Slots {
		buf = append(buf, s.Juror[:]...)
		buf = binary.BigEndian.AppendUint64(buf, s.Slots)
	}
	return buf
}

func decodeRound(raw []byte) (court.Round, error) {
	if len(raw) < roundHeaderSize {
		return court.Round{}, fmt.Errorf("malformed round record of %d bytes", len(raw))
	}
	var r court.Round
	r.ID.Dispute = court.DisputeID(binary.BigEndian.Uint64(raw))
	raw = raw[8:]
	r.ID.Number = binary.BigEndian.Uint64(raw)
	raw = raw[8:]
	r.DraftTerm = termclock.Term(binary.BigEndian.Uint64(raw))
	raw = raw[8:]
	r.CommitEndTerm = termclock.Term(binary.BigEndian.Uint64(raw))
	raw = raw[8:]
	r.RevealEndTerm = termclock.Term(binary.BigEndian.Uint64(raw))
	raw = raw[8:]
	r.AppealEndTerm = termclock.Term(binary.BigEndian.Uint64(raw))
	raw = raw[8:]
	r.JurorsRequested = binary.BigEndian.Uint64(raw)
	raw = raw[8:]
	r.JurorsDrafted = binary.BigEndian.Uint64(raw)
	raw = raw[8:]
	r.Phase = court.Phase(raw[0])
	r.Final = raw[1] != 0
	r.Outcome = raw[2]
	raw = raw[3:]
	count := binary.BigEndian.Uint32(raw)
	raw = raw[4:]
	if len(raw) != int(count)*28 {
		return court.Round{}, fmt.Errorf("malformed round slots of %d bytes for %d slots", len(raw), count)
	}
	r.Slots = make([]court.Slot, count)
	for i := range r.Slots {
		copy(r.Slots[i].Juror[:], raw[:20])
		r.Slots[i].Slots = binary.BigEndian.Uint64(raw[20:])
		raw = raw[28:]
	}
	return r, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
