package randomness

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// CryptoPicker implements usecase.WinnerPicker with crypto/rand. Draws
// from the OS entropy source and rejection-samples so every index in
// [0, n) is equally likely.
type CryptoPicker struct{}

// NewCryptoPicker creates a CryptoPicker.
func NewCryptoPicker() *CryptoPicker {
	return &CryptoPicker{}
}

// Pick returns a uniform index in [0, n).
func (CryptoPicker) Pick(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("pick: pool size must be positive, got %d", n)
	}
	if n == 1 {
		return 0, nil
	}

	bound := uint64(n)
	// Largest multiple of bound that fits in a uint64. Values at or
	// above it are rejected to avoid modulo bias.
	limit := math.MaxUint64 - (math.MaxUint64 % bound)

	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("pick: reading entropy: %w", err)
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return int(v % bound), nil
		}
	}
}
