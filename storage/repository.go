// Package storage provides the storage medium abstraction for locally
// persisted credential records.
package storage

import "errors"

var (
	// ErrNotFound is returned by Get when no value is stored under the key.
	ErrNotFound = errors.New("record not found")
	// ErrCorrupt is returned when a stored value exists but cannot be decoded or authenticated.
	ErrCorrupt = errors.New("record corrupt")
	// ErrClosed is returned by operations on a repository that has been closed.
	ErrClosed = errors.New("repository closed")
)

// BatchTx provides Put and Delete within an atomic transaction.
type BatchTx interface {
	Put(key string, value []byte) error
	Delete(key string) error
}

// Repository is a flat key-value medium. Implementations must be safe for
// concurrent use. Delete of an absent key is not an error.
type Repository interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	// Batch runs fn atomically: either every write in fn is applied or none is.
	Batch(fn func(tx BatchTx) error) error
	Close() error
}
