package bbolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/jmcleod/pocketledger/storage/storagetest"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.db")
	s, err := NewRepositoryFromFile(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestBBoltRepository(t *testing.T) {
	s, _ := newTestStore(t)
	storagetest.Run(t, s)
}

func TestBBoltSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")

	s, err := NewRepositoryFromFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put("auth_token", []byte("persisted")))
	require.NoError(t, s.Close())

	s, err = NewRepositoryFromFile(path, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get("auth_token")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}

func TestBBoltNewRepositoryCreatesBucket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.db")
	db, err := bbolt.Open(path, 0600, nil)
	require.NoError(t, err)
	defer db.Close()

	s, err := NewRepository(db)
	require.NoError(t, err)
	require.NoError(t, s.Put("k", []byte("v")))
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}
