package cryptoutils

import (
	"crypto/rand"
	"fmt"
	"io"
)

// FillRandom fills b from crypto/rand.
func FillRandom(b []byte) error {
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return fmt.Errorf("failed to read random bytes: %w", err)
	}
	return nil
}

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := FillRandom(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Wipe zeroes b.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
