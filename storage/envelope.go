package storage

import (
	"fmt"

	"github.com/jmcleod/pocketledger/internal/util"
)

const (
	envelopeVersion = 1
	envelopeScheme  = "aes256gcm"
	nonceSize       = 12
)

// Envelope is a sealed value containing AES-256-GCM encrypted data.
type Envelope struct {
	Ver        int    `json:"ver"`
	Scheme     string `json:"scheme"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// SealRecord encrypts plaintext into an Envelope bound to aad.
func SealRecord(key, plaintext, aad []byte) (*Envelope, error) {
	sealed, err := util.Seal(key, plaintext, aad)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Ver:        envelopeVersion,
		Scheme:     envelopeScheme,
		Nonce:      sealed[:nonceSize],
		Ciphertext: sealed[nonceSize:],
	}, nil
}

// OpenRecord decrypts an Envelope sealed with the same key and aad.
func OpenRecord(key []byte, env *Envelope, aad []byte) ([]byte, error) {
	if env.Ver != envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Ver)
	}
	if env.Scheme != envelopeScheme {
		return nil, fmt.Errorf("unsupported envelope scheme: %s", env.Scheme)
	}
	sealed := make([]byte, 0, len(env.Nonce)+len(env.Ciphertext))
	sealed = append(sealed, env.Nonce...)
	sealed = append(sealed, env.Ciphertext...)
	return util.Open(key, sealed, aad)
}
