// Package idgen produces customer-facing transaction identifiers.
package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// Alphabet is the fixed character set identifiers are drawn from.
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// DefaultLength is used when no length is configured.
	DefaultLength = 10
)

// Func generates an identifier of the requested length.
type Func func(length int) (string, error)

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Generate returns a random identifier of length characters from Alphabet.
// Uniqueness is not checked here; the external_id unique index is authoritative.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("id length must be positive, got %d", length)
	}
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = Alphabet[n.Int64()]
	}
	return string(out), nil
}
