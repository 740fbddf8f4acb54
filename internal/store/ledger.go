// Package store persists adjudication state through an append-only ledger
// of engine operations. Replaying the ledger in order into a fresh engine
// rebuilds identical in-memory state, so the ledger is the single durable
// source of truth; round snapshots are kept alongside for direct reads.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quorumnet/tribunal/internal/court"
	"github.com/quorumnet/tribunal/pkg/db"
	"github.com/quorumnet/tribunal/pkg/log"
)

// Prefix constants for all record types.
const (
	prefixOp byte = iota + 1
	prefixOpSeq
	prefixRound
)

var opSeqKey = []byte{prefixOpSeq}

// makeOpKey builds the key for the op at seq. Big-endian so iteration order
// matches append order.
func makeOpKey(seq uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixOp
	binary.BigEndian.PutUint64(key[1:], seq)
	return key
}

// Ledger is the durable operation log over a KVStore.
type Ledger struct {
	db  db.KVStore
	seq uint64
	log zerolog.Logger
}

// NewLedger opens a ledger over kv, resuming the sequence counter if the
// store already holds one.
func NewLedger(kv db.KVStore) (*Ledger, error) {
	l := &Ledger{db: kv, log: log.Store}
	raw, err := kv.Get(opSeqKey)
	switch {
	case errors.Is(err, db.ErrNotFound):
		// Fresh store; the counter is written with the first append. Any
		// other failure must not be mistaken for freshness, or the next
		// append would overwrite op 0.
	case err != nil:
		return nil, fmt.Errorf("read op sequence: %w", err)
	default:
		if len(raw) != 8 {
			return nil, fmt.Errorf("malformed op sequence record of %d bytes", len(raw))
		}
		l.seq = binary.BigEndian.Uint64(raw)
	}
	return l, nil
}

// Len returns the number of appended operations.
func (l *Ledger) Len() uint64 {
	return l.seq
}

// Append records op as the next ledger entry. The entry and the sequence
// counter are committed in one atomic batch. Append implements
// court.Journal.
func (l *Ledger) Append(op court.Op) error {
	batch := l.db.NewBatch()
	defer batch.Close() //nolint:errcheck // no-op after commit

	if err := batch.Put(makeOpKey(l.seq), encodeOp(op)); err != nil {
		return fmt.Errorf("put op %d: %w", l.seq, err)
	}
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], l.seq+1)
	if err := batch.Put(opSeqKey, seqBuf[:]); err != nil {
		return fmt.Errorf("put op sequence: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit op %d: %w", l.seq, err)
	}
	l.seq++
	return nil
}

// Replay streams every recorded operation, in append order, to apply.
func (l *Ledger) Replay(apply func(court.Op) error) error {
	start := makeOpKey(0)
	end := []byte{prefixOp + 1}
	iter, err := l.db.NewIterator(start, end)
	if err != nil {
		return fmt.Errorf("create op iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck // read-only iterator

	var n uint64
	for iter.Next() {
		if !iter.Valid() {
			break
		}
		value, err := iter.Value()
		if err != nil {
			return fmt.Errorf("read op %d: %w", n, err)
		}
		op, err := decodeOp(value)
		if err != nil {
			return fmt.Errorf("decode op %d: %w", n, err)
		}
		if err := apply(op); err != nil {
			return fmt.Errorf("apply op %d: %w", n, err)
		}
		n++
	}
	l.log.Info().Uint64("ops", n).Msg("ledger replayed")
	return nil
}

// ReplayInto rebuilds engine state from the ledger. The engine must be fresh
// and must not have this ledger attached as its journal yet, otherwise every
// replayed op would be appended again.
func (l *Ledger) ReplayInto(e *court.Engine) error {
	return l.Replay(e.Apply)
}
