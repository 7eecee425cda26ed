// Package credential provides passphrase verification for unlock
// re-authentication, account records, and an in-memory cache of per-session
// unlock secrets that is wiped whenever a session locks.
package credential

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/internquest/sessionguard/internal/util"
)

// Argon2idParams are the KDF parameters stored alongside each hash so that
// verification survives parameter changes.
type Argon2idParams struct {
	Time        uint32 `json:"time"`
	MemoryKiB   uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
	KeyLen      uint32 `json:"key_len"`
}

// DefaultArgon2idParams returns the parameters used for new hashes.
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
	}
}

// Hash is a passphrase hash with its salt and parameters, JSON-serializable
// for storage in an account record.
type Hash struct {
	Salt   []byte         `json:"salt"`
	Key    []byte         `json:"key"`
	Params Argon2idParams `json:"params"`
}

const saltLen = 16

// HashPassphrase derives an Argon2id hash of the NFKD-normalized
// passphrase under the default parameters.
func HashPassphrase(passphrase string) (Hash, error) {
	salt, err := util.RandomBytes(saltLen)
	if err != nil {
		return Hash{}, fmt.Errorf("generating salt: %w", err)
	}
	params := DefaultArgon2idParams()
	key := deriveKey(passphrase, salt, params)
	return Hash{Salt: salt, Key: key, Params: params}, nil
}

// Verify reports whether the passphrase matches the hash. Comparison is
// constant-time.
func (h Hash) Verify(passphrase string) bool {
	if len(h.Key) == 0 || len(h.Salt) == 0 {
		return false
	}
	key := deriveKey(passphrase, h.Salt, h.Params)
	defer util.WipeBytes(key)
	return subtle.ConstantTimeCompare(key, h.Key) == 1
}

func deriveKey(passphrase string, salt []byte, params Argon2idParams) []byte {
	normalized := util.Normalize(passphrase)
	return argon2.IDKey([]byte(normalized), salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen)
}
