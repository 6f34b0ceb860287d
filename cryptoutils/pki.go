package cryptoutils

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/ruteri/ddssec-engine/interfaces"
)

// MaxECDSASignatureSize bounds a DER ECDSA P-256 signature.
const MaxECDSASignatureSize = 2*32 + 9

// X509PKI implements interfaces.PKI with crypto/x509.
type X509PKI struct {
	// Now returns the verification time. Defaults to time.Now.
	Now func() time.Time
}

var _ interfaces.PKI = (*X509PKI)(nil)

// NewX509PKI returns a PKI that verifies certificates at the current time.
func NewX509PKI() *X509PKI {
	return &X509PKI{Now: time.Now}
}

func (p *X509PKI) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// ParseCA parses a certificate and requires the CA basic constraint.
func (p *X509PKI) ParseCA(data []byte) (*x509.Certificate, error) {
	cert, err := DecodeCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBadFormat, err)
	}
	if !cert.IsCA {
		return nil, fmt.Errorf("%w: certificate is not a CA certificate (IsCA flag not set)", interfaces.ErrBadFormat)
	}
	return cert, nil
}

// ParseAndVerify parses a certificate and verifies it was issued by ca.
func (p *X509PKI) ParseAndVerify(data []byte, ca *x509.Certificate) (*x509.Certificate, error) {
	if ca == nil {
		return nil, fmt.Errorf("%w: no CA to verify against", interfaces.ErrMissingData)
	}
	cert, err := DecodeCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBadFormat, err)
	}

	roots := x509.NewCertPool()
	roots.AddCert(ca)
	_, err = cert.Verify(x509.VerifyOptions{
		Roots:       roots,
		CurrentTime: p.now(),
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrSecurity, err)
	}
	return cert, nil
}

// CheckKeyPair parses keyData and checks it is the private half of cert's public key.
func (p *X509PKI) CheckKeyPair(cert *x509.Certificate, keyData, password []byte) (crypto.Signer, error) {
	if cert == nil {
		return nil, fmt.Errorf("%w: no certificate to match", interfaces.ErrMissingData)
	}
	key, err := DecodePrivateKey(keyData, password)
	if err != nil {
		//nolint:staticcheck // matches the legacy PEM decryption in DecodePrivateKey
		if errors.Is(err, x509.IncorrectPasswordError) {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrSecurity, err)
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBadFormat, err)
	}

	pub, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(cert.PublicKey) {
		return nil, fmt.Errorf("%w: private key doesn't match certificate", interfaces.ErrSecurity)
	}
	return key, nil
}

// Sign signs the SHA-256 digest of message. Ed25519 keys sign message directly.
func (p *X509PKI) Sign(key crypto.Signer, message []byte) ([]byte, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		return ecdsa.SignASN1(rand.Reader, k, SHA256(message))
	case ed25519.PrivateKey:
		return ed25519.Sign(k, message), nil
	case *rsa.PrivateKey:
		return rsa.SignPKCS1v15(rand.Reader, k, crypto.SHA256, SHA256(message))
	default:
		return nil, fmt.Errorf("%w: unsupported private key type %T", interfaces.ErrBadParameters, key)
	}
}

// SignVerify checks signature over message with pub.
func (p *X509PKI) SignVerify(pub crypto.PublicKey, message, signature []byte) error {
	var valid bool
	switch k := pub.(type) {
	case *ecdsa.PublicKey:
		valid = ecdsa.VerifyASN1(k, SHA256(message), signature)
	case ed25519.PublicKey:
		valid = ed25519.Verify(k, message, signature)
	case *rsa.PublicKey:
		valid = rsa.VerifyPKCS1v15(k, crypto.SHA256, SHA256(message), signature) == nil
	default:
		return fmt.Errorf("%w: unsupported public key type %T", interfaces.ErrBadParameters, pub)
	}
	if !valid {
		return fmt.Errorf("%w: invalid signature", interfaces.ErrSecurity)
	}
	return nil
}
