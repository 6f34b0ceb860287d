package identity

import (
	"crypto"
	"crypto/x509"
	"fmt"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/interfaces"
)

// Identity holds the CA, certificate and private key of a participant.
// Each field is write-once until unloaded.
type Identity struct {
	ca      *x509.Certificate
	cert    *x509.Certificate
	privkey crypto.Signer
}

// HasCA reports whether a CA certificate is loaded.
func (id *Identity) HasCA() bool { return id.ca != nil }

// HasCert reports whether an identity certificate is loaded.
func (id *Identity) HasCert() bool { return id.cert != nil }

// HasPrivateKey reports whether a private key is loaded.
func (id *Identity) HasPrivateKey() bool { return id.privkey != nil }

// CA returns the loaded CA certificate.
func (id *Identity) CA() (*x509.Certificate, error) {
	if id.ca == nil {
		return nil, fmt.Errorf("%w: no CA loaded", interfaces.ErrNotFound)
	}
	return id.ca, nil
}

// Certificate returns the loaded identity certificate.
func (id *Identity) Certificate() (*x509.Certificate, error) {
	if id.cert == nil {
		return nil, fmt.Errorf("%w: no certificate loaded", interfaces.ErrNotFound)
	}
	return id.cert, nil
}

// PrivateKey returns the loaded private key.
func (id *Identity) PrivateKey() (crypto.Signer, error) {
	if id.privkey == nil {
		return nil, fmt.Errorf("%w: no private key loaded", interfaces.ErrNotFound)
	}
	return id.privkey, nil
}

// CheckLoadCA reports why a CA cannot be loaded now, if it cannot.
func (id *Identity) CheckLoadCA() error {
	if id.ca != nil {
		return fmt.Errorf("%w: CA already loaded", interfaces.ErrAlreadyInitialized)
	}
	return nil
}

// CheckLoadCertificate reports why a certificate verified against the own CA
// cannot be loaded now, if it cannot.
func (id *Identity) CheckLoadCertificate() error {
	if id.ca == nil {
		return fmt.Errorf("%w: a CA must be loaded before the certificate", interfaces.ErrMissingData)
	}
	if id.cert != nil {
		return fmt.Errorf("%w: certificate already loaded", interfaces.ErrAlreadyInitialized)
	}
	return nil
}

// CheckLoadPrivateKey reports why a private key cannot be loaded now, if it cannot.
func (id *Identity) CheckLoadPrivateKey() error {
	if id.privkey != nil {
		return fmt.Errorf("%w: private key already loaded", interfaces.ErrAlreadyInitialized)
	}
	if id.cert == nil {
		return fmt.Errorf("%w: a certificate must be loaded before the private key", interfaces.ErrMissingData)
	}
	return nil
}

// LoadCA parses data as a CA certificate.
func (id *Identity) LoadCA(pki interfaces.PKI, data []byte) error {
	if err := id.CheckLoadCA(); err != nil {
		return err
	}
	ca, err := pki.ParseCA(data)
	if err != nil {
		return err
	}
	id.ca = ca
	return nil
}

// LoadCertificate parses data and verifies it against this identity's CA.
func (id *Identity) LoadCertificate(pki interfaces.PKI, data []byte) error {
	if err := id.CheckLoadCertificate(); err != nil {
		return err
	}
	return id.LoadCertificateVerifiedBy(pki, data, id.ca)
}

// LoadCertificateVerifiedBy parses data and verifies it against ca, which may
// belong to another identity. Used for remote participants.
func (id *Identity) LoadCertificateVerifiedBy(pki interfaces.PKI, data []byte, ca *x509.Certificate) error {
	if id.cert != nil {
		return fmt.Errorf("%w: certificate already loaded", interfaces.ErrAlreadyInitialized)
	}
	cert, err := pki.ParseAndVerify(data, ca)
	if err != nil {
		return err
	}
	id.cert = cert
	return nil
}

// LoadPrivateKey parses keyData, decrypting it with password, and checks it
// matches the loaded certificate.
func (id *Identity) LoadPrivateKey(pki interfaces.PKI, keyData, password []byte) error {
	if err := id.CheckLoadPrivateKey(); err != nil {
		return err
	}
	key, err := pki.CheckKeyPair(id.cert, keyData, password)
	if err != nil {
		return err
	}
	id.privkey = key
	return nil
}

func (id *Identity) UnloadCA() error {
	if id.ca == nil {
		return fmt.Errorf("%w: no CA loaded", interfaces.ErrNotFound)
	}
	id.ca = nil
	return nil
}

func (id *Identity) UnloadCertificate() error {
	if id.cert == nil {
		return fmt.Errorf("%w: no certificate loaded", interfaces.ErrNotFound)
	}
	id.cert = nil
	return nil
}

// UnloadPrivateKey drops the private key and zeroes its scalar where the key type allows it.
func (id *Identity) UnloadPrivateKey() error {
	if id.privkey == nil {
		return fmt.Errorf("%w: no private key loaded", interfaces.ErrNotFound)
	}
	wipeSigner(id.privkey)
	id.privkey = nil
	return nil
}

// Wipe unloads every field. It is the pool wipe function for identities.
func (id *Identity) Wipe() {
	if id.privkey != nil {
		wipeSigner(id.privkey)
	}
	*id = Identity{}
}

// Sign signs message with the loaded private key.
func (id *Identity) Sign(pki interfaces.PKI, message []byte) ([]byte, error) {
	key, err := id.PrivateKey()
	if err != nil {
		return nil, err
	}
	return pki.Sign(key, message)
}

// Verify checks signature over message with the loaded certificate's public key.
func (id *Identity) Verify(pki interfaces.PKI, message, signature []byte) error {
	cert, err := id.Certificate()
	if err != nil {
		return err
	}
	return pki.SignVerify(cert.PublicKey, message, signature)
}

// CertificatePEM returns the loaded certificate in PEM form.
func (id *Identity) CertificatePEM() ([]byte, error) {
	cert, err := id.Certificate()
	if err != nil {
		return nil, err
	}
	return cryptoutils.EncodeCertificatePEM(cert), nil
}
