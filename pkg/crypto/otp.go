package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
)

// HashCode returns the one-way digest of a plaintext one-time code.
// The digest is what gets persisted; the plaintext is never stored.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// DigestEqual compares two code digests in constant time.
func DigestEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Fingerprint returns a short, non-reversible tag for a code digest,
// safe to include in logs for correlation. Never log the code itself.
func Fingerprint(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}

// GenerateNumericCode produces a uniformly random, zero-padded numeric code
// of the requested number of digits using the supplied entropy source.
func GenerateNumericCode(random io.Reader, digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("crypto: code length must be positive, got %d", digits)
	}
	if random == nil {
		random = rand.Reader
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(random, limit)
	if err != nil {
		return "", fmt.Errorf("crypto: generate code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}

// GenerateToken returns a random URL-safe, unpadded token of the requested
// byte length using the supplied entropy source.
func GenerateToken(random io.Reader, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("crypto: token length must be positive, got %d", length)
	}
	if random == nil {
		random = rand.Reader
	}

	buffer := make([]byte, length)
	if _, err := io.ReadFull(random, buffer); err != nil {
		return "", fmt.Errorf("crypto: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
