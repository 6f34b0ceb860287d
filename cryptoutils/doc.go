// Package cryptoutils provides the cryptographic primitives of the DDS-Security engine.
//
//   - Diffie-Hellman over the RFC 5114 2048-bit MODP group with a 256-bit subgroup
//   - HMAC-SHA256 and SHA-256 used by key-material and session-key derivation
//   - AES-GCM with arbitrary IV lengths and truncated tags, operating in place
//   - X509PKI, the crypto/x509 implementation of interfaces.PKI
//   - Seal/Unseal for objects at rest (Argon2id + AES-GCM)
//
// # In-place AES-GCM
//
// GCMSealInPlace overwrites the plaintext with ciphertext and returns the tag.
// GCMOpenInPlace only overwrites the ciphertext once the tag verifies; every
// scratch buffer holding candidate plaintext is zeroed before returning.
//
// # Sealed object format
//
//	[version (1 byte)][salt (16 bytes)][nonce (12 bytes)][ciphertext||tag]
package cryptoutils
