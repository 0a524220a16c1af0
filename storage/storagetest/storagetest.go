// Package storagetest holds the conformance suite every storage.Repository
// implementation is expected to pass.
package storagetest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/pocketledger/storage"
)

// Run exercises repo with the common suite. repo must start empty.
func Run(t *testing.T, repo storage.Repository) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		require.NoError(t, repo.Put("auth_token", []byte("t1")))
		got, err := repo.Get("auth_token")
		require.NoError(t, err)
		assert.Equal(t, []byte("t1"), got)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.Get("no-such-key")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, repo.Put("ow", []byte("v1")))
		require.NoError(t, repo.Put("ow", []byte("v2")))
		got, err := repo.Get("ow")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("CallerBufferUntouched", func(t *testing.T) {
		value := []byte("keep-me")
		require.NoError(t, repo.Put("buf", value))
		assert.Equal(t, []byte("keep-me"), value)

		got, err := repo.Get("buf")
		require.NoError(t, err)
		got[0] = 'X'
		again, err := repo.Get("buf")
		require.NoError(t, err)
		assert.Equal(t, []byte("keep-me"), again)
	})

	t.Run("EmptyValue", func(t *testing.T) {
		require.NoError(t, repo.Put("empty", []byte{}))
		got, err := repo.Get("empty")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		require.NoError(t, repo.Put("del", []byte("x")))
		require.NoError(t, repo.Delete("del"))
		require.NoError(t, repo.Delete("del"))
		require.NoError(t, repo.Delete("never-existed"))
		_, err := repo.Get("del")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("BatchCommits", func(t *testing.T) {
		require.NoError(t, repo.Put("b-old", []byte("old")))
		err := repo.Batch(func(tx storage.BatchTx) error {
			if err := tx.Put("b-new", []byte("new")); err != nil {
				return err
			}
			return tx.Delete("b-old")
		})
		require.NoError(t, err)

		got, err := repo.Get("b-new")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), got)
		_, err = repo.Get("b-old")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("BatchRollsBack", func(t *testing.T) {
		require.NoError(t, repo.Put("rb", []byte("before")))
		boom := errors.New("boom")
		err := repo.Batch(func(tx storage.BatchTx) error {
			if err := tx.Put("rb", []byte("after")); err != nil {
				return err
			}
			if err := tx.Put("rb-extra", []byte("x")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := repo.Get("rb")
		require.NoError(t, err)
		assert.Equal(t, []byte("before"), got)
		_, err = repo.Get("rb-extra")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
