package services

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	publicNumberDigits = 9

	// maxNumberAttempts bounds the retry loop when a freshly generated
	// public number collides with an existing row.
	maxNumberAttempts = 5
)

// randomPublicNumber generates a uniformly random number with exactly
// publicNumberDigits digits from the supplied entropy source.
func randomPublicNumber(random io.Reader) (int64, error) {
	if random == nil {
		random = rand.Reader
	}

	low := int64(1)
	for i := 1; i < publicNumberDigits; i++ {
		low *= 10
	}

	n, err := rand.Int(random, big.NewInt(low*9))
	if err != nil {
		return 0, fmt.Errorf("generate public number: %w", err)
	}

	return low + n.Int64(), nil
}
