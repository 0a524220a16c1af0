// Package credstore persists the session token and a cached copy of the
// signed-in user's profile.
//
// The store never returns errors: a failing medium is logged and treated as
// "absent" on reads and as a no-op on writes. Callers must not assume a
// write reached durable storage.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jmcleod/pocketledger/model"
	"github.com/jmcleod/pocketledger/storage"
)

// Keys under which the two credential records are stored.
const (
	TokenKey = "auth_token"
	UserKey  = "user_data"
)

// StorageError describes a failed operation on the credential medium.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("credential store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store is the credential store. It is safe for concurrent use when the
// underlying repository is.
type Store struct {
	repo   storage.Repository
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger that receives storage failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New returns a Store over repo.
func New(repo storage.Repository, opts ...Option) *Store {
	s := &Store{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return s
}

func (s *Store) report(ctx context.Context, op, key string, err error) {
	serr := &StorageError{Op: op, Key: key, Err: err}
	s.logger.ErrorContext(ctx, "credential store failure", "op", op, "key", key, "error", serr)
}

// SaveToken stores token, replacing any previous value.
func (s *Store) SaveToken(ctx context.Context, token string) {
	if err := s.repo.Put(TokenKey, []byte(token)); err != nil {
		s.report(ctx, "save", TokenKey, err)
	}
}

// Token returns the stored token. ok is false when no usable token is
// stored. A token that cannot be decrypted is deleted.
func (s *Store) Token(ctx context.Context) (token string, ok bool) {
	data, err := s.repo.Get(TokenKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.report(ctx, "get", TokenKey, err)
		}
		if errors.Is(err, storage.ErrCorrupt) {
			s.RemoveToken(ctx)
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// RemoveToken deletes the stored token. Removing an absent token is a no-op.
func (s *Store) RemoveToken(ctx context.Context) {
	if err := s.repo.Delete(TokenKey); err != nil {
		s.report(ctx, "remove", TokenKey, err)
	}
}

// SaveUser stores a serialised copy of p, replacing any previous value.
func (s *Store) SaveUser(ctx context.Context, p model.Profile) {
	data, err := json.Marshal(p)
	if err != nil {
		s.report(ctx, "encode", UserKey, err)
		return
	}
	if err := s.repo.Put(UserKey, data); err != nil {
		s.report(ctx, "save", UserKey, err)
	}
}

// User returns the cached profile. A record that cannot be decoded is
// treated as absent and deleted, so it is not reported again on every read.
func (s *Store) User(ctx context.Context) (model.Profile, bool) {
	data, err := s.repo.Get(UserKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.report(ctx, "get", UserKey, err)
		}
		if errors.Is(err, storage.ErrCorrupt) {
			s.RemoveUser(ctx)
		}
		return model.Profile{}, false
	}
	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		s.report(ctx, "decode", UserKey, fmt.Errorf("%w: %v", storage.ErrCorrupt, err))
		s.RemoveUser(ctx)
		return model.Profile{}, false
	}
	return p, true
}

// RemoveUser deletes the cached profile. Removing an absent profile is a no-op.
func (s *Store) RemoveUser(ctx context.Context) {
	if err := s.repo.Delete(UserKey); err != nil {
		s.report(ctx, "remove", UserKey, err)
	}
}

// SaveCredentials writes the token and the profile together, so a reader
// never observes one without the other.
func (s *Store) SaveCredentials(ctx context.Context, token string, p model.Profile) {
	data, err := json.Marshal(p)
	if err != nil {
		s.report(ctx, "encode", UserKey, err)
		return
	}
	err = s.repo.Batch(func(tx storage.BatchTx) error {
		if err := tx.Put(TokenKey, []byte(token)); err != nil {
			return err
		}
		return tx.Put(UserKey, data)
	})
	if err != nil {
		s.report(ctx, "save", TokenKey+"+"+UserKey, err)
	}
}

// ClearAll removes both records in one batch. If the batch fails each key
// is removed on its own so that no stale credential survives a logout.
func (s *Store) ClearAll(ctx context.Context) {
	err := s.repo.Batch(func(tx storage.BatchTx) error {
		if err := tx.Delete(TokenKey); err != nil {
			return err
		}
		return tx.Delete(UserKey)
	})
	if err == nil {
		return
	}
	s.report(ctx, "clear", TokenKey+"+"+UserKey, err)
	s.RemoveToken(ctx)
	s.RemoveUser(ctx)
}
