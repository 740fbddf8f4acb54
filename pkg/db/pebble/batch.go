package pebble

import (
	"errors"

	"github.com/cockroachdb/pebble"

	"github.com/quorumnet/tribunal/pkg/db"
)

var ErrBatchDone = errors.New("kv-store: batch already committed or closed")

// Batch collects writes and applies them atomically on Commit.
type Batch struct {
	batch *pebble.Batch
	done  bool
}

func (p *KVStore) NewBatch() db.Batch {
	return &Batch{batch: p.db.NewBatch()}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done {
		return ErrBatchDone
	}
	return b.batch.Set(key, value, nil)
}

func (b *Batch) Delete(key []byte) error {
	if b.done {
		return ErrBatchDone
	}
	return b.batch.Delete(key, nil)
}

func (b *Batch) Commit() error {
	if b.done {
		return ErrBatchDone
	}
	if err := b.batch.Commit(pebble.Sync); err != nil {
		return err
	}
	b.done = true
	return nil
}

func (b *Batch) Close() error {
	if b.done {
		return nil
	}
	b.done = true
	return b.batch.Close()
}
