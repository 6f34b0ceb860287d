package engine

import (
	"context"
	"crypto/x509"
	"log/slog"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/handles"
	"github.com/ruteri/ddssec-engine/identity"
	"github.com/ruteri/ddssec-engine/interfaces"
)

func (e *Engine) CreateIdentity() (interfaces.HandleID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.identities.Create(identity.Identity{})
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	e.log.Debug("Created identity handle", slog.Int("handle", int(id)))
	return id, nil
}

// DeleteIdentity unloads the CA, certificate and private key and frees the handle.
func (e *Engine) DeleteIdentity(ih interfaces.HandleID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.identities.Delete(ih)
}

func (e *Engine) IdentityInfo() handles.Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.identities.Info()
}

// withIdentity runs fn on identity ih under the engine lock.
func (e *Engine) withIdentity(ih interfaces.HandleID, fn func(id *identity.Identity) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.identities.Get(ih)
	if err != nil {
		return err
	}
	return fn(id)
}

// LoadCA loads the named object as identity ih's CA certificate.
func (e *Engine) LoadCA(ctx context.Context, ih interfaces.HandleID, name string) error {
	return e.withIdentity(ih, func(id *identity.Identity) error {
		if err := id.CheckLoadCA(); err != nil {
			return err
		}
		data, err := e.fetchObject(ctx, name)
		if err != nil {
			return err
		}
		if err := id.LoadCA(e.pki, data); err != nil {
			return err
		}
		e.log.Debug("Loaded CA", slog.Int("handle", int(ih)), slog.String("object", name))
		return nil
	})
}

func (e *Engine) UnloadCA(ih interfaces.HandleID) error {
	return e.withIdentity(ih, (*identity.Identity).UnloadCA)
}

// CASubjectName returns the subject of the CA certificate.
func (e *Engine) CASubjectName(ih interfaces.HandleID) (string, error) {
	return e.caString(ih, cryptoutils.SubjectName)
}

// CASignatureAlgorithm returns the name of the algorithm the CA certificate is signed with.
func (e *Engine) CASignatureAlgorithm(ih interfaces.HandleID) (string, error) {
	return e.caString(ih, cryptoutils.SignatureAlgorithmName)
}

func (e *Engine) caString(ih interfaces.HandleID, fn func(*x509.Certificate) string) (string, error) {
	var out string
	err := e.withIdentity(ih, func(id *identity.Identity) error {
		ca, err := id.CA()
		if err != nil {
			return err
		}
		out = fn(ca)
		return nil
	})
	return out, err
}

// LoadCertificate loads the named object as identity ih's certificate,
// verified against its CA.
func (e *Engine) LoadCertificate(ctx context.Context, ih interfaces.HandleID, name string) error {
	return e.withIdentity(ih, func(id *identity.Identity) error {
		if err := id.CheckLoadCertificate(); err != nil {
			return err
		}
		data, err := e.fetchObject(ctx, name)
		if err != nil {
			return err
		}
		if err := id.LoadCertificate(e.pki, data); err != nil {
			return err
		}
		e.log.Debug("Loaded certificate", slog.Int("handle", int(ih)), slog.String("object", name))
		return nil
	})
}

// LoadRemoteCertificate loads a peer certificate from data into identity rih,
// verified against the CA of local identity lih.
func (e *Engine) LoadRemoteCertificate(rih interfaces.HandleID, data []byte, lih interfaces.HandleID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	local, err := e.identities.Get(lih)
	if err != nil {
		return err
	}
	ca, err := local.CA()
	if err != nil {
		return err
	}
	remote, err := e.identities.Get(rih)
	if err != nil {
		return err
	}
	if err := remote.LoadCertificateVerifiedBy(e.pki, data, ca); err != nil {
		e.log.Info("Rejected remote certificate",
			slog.Int("handle", int(rih)),
			slog.Int("local", int(lih)),
			"err", err)
		return err
	}
	return nil
}

func (e *Engine) UnloadCertificate(ih interfaces.HandleID) error {
	return e.withIdentity(ih, (*identity.Identity).UnloadCertificate)
}

// Certificate returns identity ih's certificate in PEM form.
func (e *Engine) Certificate(ih interfaces.HandleID) ([]byte, error) {
	var out []byte
	err := e.withIdentity(ih, func(id *identity.Identity) error {
		var err error
		out, err = id.CertificatePEM()
		return err
	})
	return out, err
}

func (e *Engine) CertificateSubjectName(ih interfaces.HandleID) (string, error) {
	return e.certString(ih, cryptoutils.SubjectName)
}

func (e *Engine) CertificateSignatureAlgorithm(ih interfaces.HandleID) (string, error) {
	return e.certString(ih, cryptoutils.SignatureAlgorithmName)
}

// CertificateSubjectSHA256 returns SHA-256 of the DER-encoded subject.
func (e *Engine) CertificateSubjectSHA256(ih interfaces.HandleID) ([]byte, error) {
	return e.certBytes(ih, cryptoutils.SubjectSHA256)
}

// CertificateRawSubject returns the DER-encoded subject.
func (e *Engine) CertificateRawSubject(ih interfaces.HandleID) ([]byte, error) {
	return e.certBytes(ih, func(c *x509.Certificate) []byte {
		return append([]byte(nil), c.RawSubject...)
	})
}

func (e *Engine) certString(ih interfaces.HandleID, fn func(*x509.Certificate) string) (string, error) {
	var out string
	err := e.withIdentity(ih, func(id *identity.Identity) error {
		cert, err := id.Certificate()
		if err != nil {
			return err
		}
		out = fn(cert)
		return nil
	})
	return out, err
}

func (e *Engine) certBytes(ih interfaces.HandleID, fn func(*x509.Certificate) []byte) ([]byte, error) {
	var out []byte
	err := e.withIdentity(ih, func(id *identity.Identity) error {
		cert, err := id.Certificate()
		if err != nil {
			return err
		}
		out = fn(cert)
		return nil
	})
	return out, err
}

// VerifySignature checks signature over message with identity rih's certificate.
func (e *Engine) VerifySignature(rih interfaces.HandleID, message, signature []byte) error {
	return e.withIdentity(rih, func(id *identity.Identity) error {
		return id.Verify(e.pki, message, signature)
	})
}

// LoadPrivateKey loads the named object as identity ih's private key,
// decrypting it with password when it is encrypted.
func (e *Engine) LoadPrivateKey(ctx context.Context, ih interfaces.HandleID, name string, password []byte) error {
	return e.withIdentity(ih, func(id *identity.Identity) error {
		if err := id.CheckLoadPrivateKey(); err != nil {
			return err
		}
		data, err := e.fetchObject(ctx, name)
		if err != nil {
			return err
		}
		defer cryptoutils.Wipe(data)
		if err := id.LoadPrivateKey(e.pki, data, password); err != nil {
			return err
		}
		e.log.Debug("Loaded private key", slog.Int("handle", int(ih)), slog.String("object", name))
		return nil
	})
}

func (e *Engine) UnloadPrivateKey(ih interfaces.HandleID) error {
	return e.withIdentity(ih, (*identity.Identity).UnloadPrivateKey)
}

// Sign signs message with identity ih's private key.
func (e *Engine) Sign(ih interfaces.HandleID, message []byte) ([]byte, error) {
	var out []byte
	err := e.withIdentity(ih, func(id *identity.Identity) error {
		var err error
		out, err = id.Sign(e.pki, message)
		return err
	})
	return out, err
}
