package cryptoutils

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// DecodeCertificate parses a certificate in PEM or DER form.
func DecodeCertificate(data []byte) (*x509.Certificate, error) {
	if len(data) == 0 {
		return nil, errors.New("empty certificate")
	}
	der := data
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
		}
		der = block.Bytes
	}
	return x509.ParseCertificate(der)
}

// EncodeCertificatePEM returns the PEM encoding of cert.
func EncodeCertificatePEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

// SubjectName returns the RFC 2253 string form of the certificate subject.
func SubjectName(cert *x509.Certificate) string {
	return cert.Subject.String()
}

// SignatureAlgorithmName returns the name of the algorithm the issuer used to sign cert.
func SignatureAlgorithmName(cert *x509.Certificate) string {
	return cert.SignatureAlgorithm.String()
}

// SubjectSHA256 hashes the DER-encoded subject.
func SubjectSHA256(cert *x509.Certificate) []byte {
	return SHA256(cert.RawSubject)
}

// DecodePrivateKey parses a PEM or DER private key. Legacy encrypted PEM
// blocks (Proc-Type: 4,ENCRYPTED) are decrypted with password.
func DecodePrivateKey(data, password []byte) (crypto.Signer, error) {
	if len(data) == 0 {
		return nil, errors.New("empty private key")
	}

	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
		//nolint:staticcheck // legacy PEM encryption is what identity blobs use
		if x509.IsEncryptedPEMBlock(block) {
			decrypted, err := x509.DecryptPEMBlock(block, password)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt private key: %w", err)
			}
			der = decrypted
		}
	}

	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type: %T", key)
		}
		return signer, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("failed to parse private key")
}
