package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"fmt"

	"github.com/ruteri/ddssec-engine/interfaces"
)

const (
	AES128KeySize = 16
	AES256KeySize = 32

	// MaxTagSize is the full AES-GCM tag length. Shorter tags are truncations of it.
	MaxTagSize = 16
)

// ValidateGCMParams checks AES-GCM inputs before any cryptographic work.
func ValidateGCMParams(key, iv []byte, tagSize, dataSize int) error {
	switch {
	case len(key) != AES128KeySize && len(key) != AES256KeySize:
		return fmt.Errorf("%w: AES key must be 16 or 32 bytes, got %d", interfaces.ErrBadParameters, len(key))
	case len(iv) == 0:
		return fmt.Errorf("%w: empty IV", interfaces.ErrBadParameters)
	case tagSize <= 0 || tagSize > MaxTagSize:
		return fmt.Errorf("%w: tag size %d outside [1, %d]", interfaces.ErrBadParameters, tagSize, MaxTagSize)
	case dataSize <= 0:
		return fmt.Errorf("%w: empty data", interfaces.ErrBadParameters)
	}
	return nil
}

func newGCM(key, iv []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// GCMSealInPlace encrypts data in place and returns a tag of tagSize bytes.
// On error data is left untouched.
func GCMSealInPlace(key, iv []byte, tagSize int, data []byte) ([]byte, error) {
	if err := ValidateGCMParams(key, iv, tagSize, len(data)); err != nil {
		return nil, err
	}
	gcm, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, data, nil)
	defer Wipe(sealed)

	tag := make([]byte, tagSize)
	copy(tag, sealed[len(data):])
	copy(data, sealed[:len(data)])
	return tag, nil
}

// GCMOpenInPlace verifies tag and decrypts data in place. Truncated tags are
// compared against the leading bytes of the recomputed full tag. On error data
// still holds the ciphertext and every intermediate buffer has been zeroed.
func GCMOpenInPlace(key, iv, tag, data []byte) error {
	if err := ValidateGCMParams(key, iv, len(tag), len(data)); err != nil {
		return err
	}
	gcm, err := newGCM(key, iv)
	if err != nil {
		return err
	}

	// The GCM keystream is the encryption of zeros under the same key and IV.
	keystream := gcm.Seal(nil, iv, make([]byte, len(data)), nil)
	defer Wipe(keystream)

	plaintext := make([]byte, len(data))
	defer Wipe(plaintext)
	subtle.XORBytes(plaintext, data, keystream[:len(data)])

	resealed := gcm.Seal(nil, iv, plaintext, nil)
	defer Wipe(resealed)

	if subtle.ConstantTimeCompare(resealed[len(data):len(data)+len(tag)], tag) != 1 {
		return interfaces.ErrAuthentication
	}

	copy(data, plaintext)
	return nil
}
