// Package db defines the storage contracts the adjudication ledger runs on.
// Callers above this layer speak only these interfaces; concrete engines live
// in subpackages.
package db

import "errors"

// ErrNotFound is returned by Get when no value is stored under the key.
// Implementations must return it, possibly wrapped, so callers can tell an
// absent key from a failed read.
var ErrNotFound = errors.New("kv-store: key not found")

// KVStore is an ordered key-value store. Single writes go through Writer and
// Delete; multi-key writes that must land together go through a Batch.
type KVStore interface {
	Writer
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	NewBatch() Batch
	NewIterator(start, end []byte) (Iterator, error)
	Close() error
}

type Writer interface {
	Put(key []byte, value []byte) error
}

// Batch accumulates writes and applies them in one atomic Commit. A batch
// that is closed without committing discards everything it holds.
type Batch interface {
	Writer
	Delete(key []byte) error
	Commit() error
	Close() error
}

// Iterator walks the keys of a half-open range in ascending order. The first
// Next positions it on the first entry; it must be closed after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Valid() bool
	Close() error
}
