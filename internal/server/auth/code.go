package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeMin = 100000
	codeMax = 999999
)

var codeSpan = big.NewInt(codeMax - codeMin + 1)

// NewVerificationCode returns a six-digit code drawn uniformly from
// [100000, 999999] using crypto/rand.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
