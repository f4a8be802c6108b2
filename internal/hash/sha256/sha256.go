// Package sha256 digests archived page bodies.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements harvest.Hasher. The zero value is ready to use.
type Hasher struct {
	// Length truncates the hex digest when positive. Archive names use a short prefix.
	Length int
}

// New returns a hasher producing full-length digests.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex SHA-256 of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	if h != nil && h.Length > 0 && h.Length < len(digest) {
		digest = digest[:h.Length]
	}
	return digest, nil
}
