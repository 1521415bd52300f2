package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Pickup codes are 6-digit decimal numbers. The space (900k) is small enough
// that collisions happen; generation is retried on a unique violation rather
// than ever overwriting an existing code.
const (
	codeMin  = 100000
	codeSpan = 900000
)

// generatePickupCode returns a random code in [100000, 999999].
func generatePickupCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate pickup code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
