package interfaces

import (
	"crypto"
	"crypto/x509"
)

// PKI is the X.509 collaborator used by identity operations.
//
// Implementations must report parse failures wrapping ErrBadFormat and
// verification or key mismatch failures wrapping ErrSecurity.
type PKI interface {
	// ParseCA parses a PEM or DER certificate that must carry the CA flag.
	ParseCA(data []byte) (*x509.Certificate, error)

	// ParseAndVerify parses a certificate and verifies it chains to ca.
	ParseAndVerify(data []byte, ca *x509.Certificate) (*x509.Certificate, error)

	// CheckKeyPair parses a private key, decrypting it with password when the
	// PEM block is encrypted, and checks it matches cert's public key.
	CheckKeyPair(cert *x509.Certificate, keyData, password []byte) (crypto.Signer, error)

	// Sign signs message with key. ECDSA keys produce ASN.1 DER signatures
	// over the SHA-256 digest of message.
	Sign(key crypto.Signer, message []byte) ([]byte, error)

	// SignVerify verifies signature over message with pub.
	SignVerify(pub crypto.PublicKey, message, signature []byte) error
}
