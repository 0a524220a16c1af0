package storage

import (
	"encoding/json"
	"fmt"

	"github.com/jmcleod/pocketledger/internal/util"
)

const aadPrefix = "pocketledger:credential:"

// Sealed wraps a Repository so that every value is stored as a JSON
// Envelope encrypted with key. The key name is bound as AAD, so a value
// copied under another key fails to open.
type Sealed struct {
	inner Repository
	key   []byte
}

var _ Repository = (*Sealed)(nil)

// NewSealed returns a Repository that encrypts values before handing them to inner.
func NewSealed(inner Repository, key []byte) (*Sealed, error) {
	if len(key) != util.KeySize {
		return nil, fmt.Errorf("sealing key must be exactly %d bytes, got %d", util.KeySize, len(key))
	}
	return &Sealed{inner: inner, key: util.CopyBytes(key)}, nil
}

func (s *Sealed) seal(key string, value []byte) ([]byte, error) {
	env, err := SealRecord(s.key, value, []byte(aadPrefix+key))
	if err != nil {
		return nil, fmt.Errorf("sealing %s: %w", key, err)
	}
	return json.Marshal(env)
}

func (s *Sealed) Get(key string) ([]byte, error) {
	raw, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", key, ErrCorrupt, err)
	}
	plain, err := OpenRecord(s.key, &env, []byte(aadPrefix+key))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", key, ErrCorrupt, err)
	}
	return plain, nil
}

func (s *Sealed) Put(key string, value []byte) error {
	data, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Put(key, data)
}

func (s *Sealed) Delete(key string) error {
	return s.inner.Delete(key)
}

func (s *Sealed) Batch(fn func(tx BatchTx) error) error {
	return s.inner.Batch(func(tx BatchTx) error {
		return fn(&sealedTx{parent: s, tx: tx})
	})
}

// Close wipes the sealing key and closes the wrapped repository.
func (s *Sealed) Close() error {
	util.WipeBytes(s.key)
	return s.inner.Close()
}

type sealedTx struct {
	parent *Sealed
	tx     BatchTx
}

func (t *sealedTx) Put(key string, value []byte) error {
	data, err := t.parent.seal(key, value)
	if err != nil {
		return err
	}
	return t.tx.Put(key, data)
}

func (t *sealedTx) Delete(key string) error {
	return t.tx.Delete(key)
}

