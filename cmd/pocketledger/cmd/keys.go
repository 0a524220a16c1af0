package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jmcleod/pocketledger/internal/util"
)

const (
	credentialsFile = "credentials.db"
	keyFile         = "credentials.key"
	saltFile        = "credentials.salt"
)

var defaultKDFParams = util.DefaultKDFParams()

// loadStoreKey returns the key that seals the credential store. With a
// passphrase the key is derived with Argon2id from a salt kept in dir;
// without one a random key is created once in dir and reused.
func loadStoreKey(dir, passphrase string, params util.KDFParams) ([]byte, error) {
	if passphrase != "" {
		salt, err := readOrCreate(filepath.Join(dir, saltFile), util.SaltSize)
		if err != nil {
			return nil, err
		}
		return util.DeriveKey(passphrase, salt, params)
	}
	return readOrCreate(filepath.Join(dir, keyFile), util.KeySize)
}

// readOrCreate reads exactly size bytes from path, creating the file with
// fresh random content (mode 0600) when it does not exist.
func readOrCreate(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) != size {
			return nil, fmt.Errorf("%s: expected %d bytes, found %d", path, size, len(data))
		}
		return data, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	data, err = util.RandomBytes(size)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return data, nil
}
