package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// SecretSize is the length of a generated bearer secret in characters.
const SecretSize = 40

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecret returns a random alphanumeric string of n characters.
// Alphanumeric secrets survive the "id|secret" framing and URL query strings
// without escaping.
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("secret size must be positive, got %d", n)
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}

	// Rejection sampling keeps the distribution uniform over the alphabet.
	var b strings.Builder
	b.Grow(n)
	limit := byte(256 - 256%len(secretAlphabet))
	for b.Len() < n {
		for _, c := range buf {
			if c >= limit {
				continue
			}
			b.WriteByte(secretAlphabet[int(c)%len(secretAlphabet)])
			if b.Len() == n {
				break
			}
		}
		if b.Len() < n {
			if _, err := rand.Read(buf); err != nil {
				return "", fmt.Errorf("failed to generate random secret: %w", err)
			}
		}
	}
	return b.String(), nil
}

// MustGenerateSecret is like GenerateSecret but panics on error.
func MustGenerateSecret(n int) string {
	s, err := GenerateSecret(n)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate secret: %v", err))
	}
	return s
}

// HashSecret returns the lowercase hex SHA-256 digest of a bearer secret.
// The registry only ever stores this value.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// EqualHash compares two digests in constant time.
func EqualHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
