package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	sealVersion   = 1
	sealSaltSize  = 16
	sealNonceSize = 12
)

// ErrUnseal is returned when a sealed blob cannot be authenticated.
var ErrUnseal = errors.New("failed to unseal data")

func sealingKey(passphrase, salt []byte) []byte {
	// Parameters: time=1, memory=64*1024, threads=4, keyLen=32
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// Seal encrypts plaintext under a key derived from passphrase with Argon2id.
// aad is authenticated but not stored; the same aad must be passed to Unseal.
//
// Format: [version (1 byte)][salt (16 bytes)][nonce (12 bytes)][ciphertext||tag]
func Seal(passphrase, aad, plaintext []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("empty sealing passphrase")
	}

	header := make([]byte, 1+sealSaltSize+sealNonceSize)
	header[0] = sealVersion
	if err := FillRandom(header[1:]); err != nil {
		return nil, err
	}
	salt := header[1 : 1+sealSaltSize]
	nonce := header[1+sealSaltSize:]

	key := sealingKey(passphrase, salt)
	defer Wipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	out := make([]byte, len(header), len(header)+len(plaintext)+aesGCM.Overhead())
	copy(out, header)
	return aesGCM.Seal(out, nonce, plaintext, aad), nil
}

// Unseal reverses Seal.
func Unseal(passphrase, aad, sealed []byte) ([]byte, error) {
	if len(sealed) < 1+sealSaltSize+sealNonceSize {
		return nil, fmt.Errorf("%w: sealed data too short", ErrUnseal)
	}
	if sealed[0] != sealVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrUnseal, sealed[0])
	}
	salt := sealed[1 : 1+sealSaltSize]
	nonce := sealed[1+sealSaltSize : 1+sealSaltSize+sealNonceSize]
	ciphertext := sealed[1+sealSaltSize+sealNonceSize:]

	key := sealingKey(passphrase, salt)
	defer Wipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnseal, err)
	}
	return plaintext, nil
}
