// Package memory provides a thread-safe in-memory implementation of
// storage.Repository. Values are kept in memguard enclaves, so they are
// encrypted while resident and never swapped to disk in clear.
package memory

import (
	"fmt"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/pocketledger/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Suitable for testing and for sessions that should not outlive the process.
type Repository struct {
	mu     sync.RWMutex
	data   map[string]*memguard.Enclave
	closed bool
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{data: make(map[string]*memguard.Enclave)}
}

// seal moves a copy of value into an enclave. memguard wipes the buffer it
// is given, so the caller's slice is left untouched. Empty values are
// stored as a nil enclave because memguard refuses zero-length buffers.
func seal(value []byte) *memguard.Enclave {
	if len(value) == 0 {
		return nil
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	return memguard.NewEnclave(buf)
}

func open(e *memguard.Enclave) ([]byte, error) {
	if e == nil {
		return []byte{}, nil
	}
	lb, err := e.Open()
	if err != nil {
		return nil, fmt.Errorf("opening enclave: %w", err)
	}
	defer lb.Destroy()
	out := make([]byte, lb.Size())
	copy(out, lb.Bytes())
	return out, nil
}

func (r *Repository) Get(key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, storage.ErrClosed
	}
	e, ok := r.data[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return open(e)
}

func (r *Repository) Put(key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return storage.ErrClosed
	}
	r.data[key] = seal(value)
	return nil
}

func (r *Repository) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return storage.ErrClosed
	}
	delete(r.data, key)
	return nil
}

// Batch executes fn within a batch transaction. On error, all writes are rolled back.
func (r *Repository) Batch(fn func(tx storage.BatchTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return storage.ErrClosed
	}

	snapshot := make(map[string]*memguard.Enclave, len(r.data))
	for k, v := range r.data {
		snapshot[k] = v
	}
	if err := fn(&memoryBatchTx{data: r.data}); err != nil {
		r.data = snapshot
		return err
	}
	return nil
}

// Close drops every stored value. Further calls return storage.ErrClosed.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = make(map[string]*memguard.Enclave)
	r.closed = true
	return nil
}

type memoryBatchTx struct {
	data map[string]*memguard.Enclave
}

func (tx *memoryBatchTx) Put(key string, value []byte) error {
	tx.data[key] = seal(value)
	return nil
}

func (tx *memoryBatchTx) Delete(key string) error {
	delete(tx.data, key)
	return nil
}
