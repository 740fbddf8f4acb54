package store

import (
	"encoding/binary"
	"fmt"

	"github.com/quorumnet/tribunal/internal/court"
)

// makeRoundKey builds the key for a round snapshot.
func makeRoundKey(id court.RoundID) []byte {
	key := make([]byte, 17)
	key[0] = prefixRound
	binary.BigEndian.PutUint64(key[1:], uint64(id.Dispute))
	binary.BigEndian.PutUint64(key[9:], id.Number)
	return key
}

// PutRound stores a round snapshot, overwriting any previous one.
func (l *Ledger) PutRound(r court.Round) error {
	if err := l.db.Put(makeRoundKey(r.ID), encodeRound(r)); err != nil {
		return fmt.Errorf("put round %d/%d: %w", r.ID.Dispute, r.ID.Number, err)
	}
	return nil
}

// GetRound retrieves a round snapshot.
func (l *Ledger) GetRound(id court.RoundID) (court.Round, error) {
	raw, err := l.db.Get(makeRoundKey(id))
	if err != nil {
		return court.Round{}, fmt.Errorf("get round %d/%d: %w", id.Dispute, id.Number, err)
	}
	return decodeRound(raw)
}

// RoundsForDispute retrieves every stored round of a dispute in order.
func (l *Ledger) RoundsForDispute(id court.DisputeID) ([]court.Round, error) {
	start := makeRoundKey(court.RoundID{Dispute: id})
	end := makeRoundKey(court.RoundID{Dispute: id + 1})
	iter, err := l.db.NewIterator(start, end)
	if err != nil {
		return nil, fmt.Errorf("create round iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck // read-only iterator

	var rounds []court.Round
	for iter.Next() {
		if !iter.Valid() {
			break
		}
		value, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read round: %w", err)
		}
		r, err := decodeRound(value)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	return rounds, nil
}
