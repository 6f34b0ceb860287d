package engine

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/ruteri/ddssec-engine/keymaterial"
	"github.com/ruteri/ddssec-engine/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyPassword = "secret"

type testObjects struct {
	objects  map[string][]byte
	otherCA  []byte
	otherPEM []byte
}

// newTestObjects issues two participants under one CA and a third under an
// unrelated CA.
func newTestObjects(t *testing.T) testObjects {
	t.Helper()
	caPEM, caKey, err := cryptoutils.NewCA("Identity CA")
	require.NoError(t, err)

	objects := map[string][]byte{"identity_ca.pem": caPEM}
	for _, name := range []string{"alice", "bob"} {
		certPEM, key, err := cryptoutils.IssueCertificate(caPEM, caKey, name)
		require.NoError(t, err)
		keyPEM, err := cryptoutils.MarshalPrivateKeyPEM(key, []byte(keyPassword))
		require.NoError(t, err)
		objects[name+"_cert.pem"] = certPEM
		objects[name+"_key.pem"] = keyPEM
	}

	otherCA, otherKey, err := cryptoutils.NewCA("Other CA")
	require.NoError(t, err)
	otherPEM, _, err := cryptoutils.IssueCertificate(otherCA, otherKey, "mallory")
	require.NoError(t, err)

	return testObjects{objects: objects, otherCA: otherCA, otherPEM: otherPEM}
}

func newTestEngine(t *testing.T, objects map[string][]byte, store interfaces.ObjectStore) *Engine {
	t.Helper()
	builtin, err := storage.NewBuiltinStore(objects)
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := New(DefaultConfig(), cryptoutils.NewX509PKI(), builtin, store, log)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

// loadParticipant creates an identity with CA, certificate and private key.
func loadParticipant(t *testing.T, e *Engine, name string) interfaces.HandleID {
	t.Helper()
	ctx := context.Background()
	ih, err := e.CreateIdentity()
	require.NoError(t, err)
	require.NoError(t, e.LoadCA(ctx, ih, "identity_ca.pem"))
	require.NoError(t, e.LoadCertificate(ctx, ih, name+"_cert.pem"))
	require.NoError(t, e.LoadPrivateKey(ctx, ih, name+"_key.pem", []byte(keyPassword)))
	return ih
}

func TestNew(t *testing.T) {
	builtin, err := storage.NewBuiltinStore(nil)
	require.NoError(t, err)

	_, err = New(DefaultConfig(), nil, builtin, nil, nil)
	assert.Error(t, err)
	_, err = New(DefaultConfig(), cryptoutils.NewX509PKI(), nil, nil, nil)
	assert.Error(t, err)

	e, err := New(DefaultConfig(), cryptoutils.NewX509PKI(), builtin, nil, nil)
	require.NoError(t, err)
	pools := e.Pools()
	assert.EqualValues(t, 4, pools[PoolIdentity].Capacity)
	assert.EqualValues(t, 4, pools[PoolHandshake].Capacity)
	assert.EqualValues(t, 4, pools[PoolSharedSecret].Capacity)
	assert.EqualValues(t, 256, pools[PoolKeyMaterial].Capacity)
}

func TestEngine_IdentityHandleReuse(t *testing.T) {
	e := newTestEngine(t, nil, nil)

	for want := interfaces.HandleID(0); want < 3; want++ {
		ih, err := e.CreateIdentity()
		require.NoError(t, err)
		assert.Equal(t, want, ih)
	}
	require.NoError(t, e.DeleteIdentity(1))
	assert.ErrorIs(t, e.DeleteIdentity(1), interfaces.ErrNotFound)

	ih, err := e.CreateIdentity()
	require.NoError(t, err)
	assert.EqualValues(t, 1, ih, "lowest free slot is reused")

	ih, err = e.CreateIdentity()
	require.NoError(t, err)
	assert.EqualValues(t, 3, ih)

	_, err = e.CreateIdentity()
	assert.ErrorIs(t, err, interfaces.ErrCapacityExhausted)
	assert.EqualValues(t, 4, e.IdentityInfo().Allocated)
}

func TestEngine_Identity(t *testing.T) {
	ctx := context.Background()
	objs := newTestObjects(t)
	e := newTestEngine(t, objs.objects, nil)

	ih, err := e.CreateIdentity()
	require.NoError(t, err)

	assert.ErrorIs(t, e.LoadCertificate(ctx, ih, "alice_cert.pem"), interfaces.ErrMissingData)
	assert.ErrorIs(t, e.LoadCA(ctx, ih, "missing.pem"), interfaces.ErrObjectNotFound)
	require.NoError(t, e.LoadCA(ctx, ih, "identity_ca.pem"))
	assert.ErrorIs(t, e.LoadCA(ctx, ih, "identity_ca.pem"), interfaces.ErrAlreadyInitialized)

	subject, err := e.CASubjectName(ih)
	require.NoError(t, err)
	assert.Equal(t, "CN=Identity CA", subject)
	alg, err := e.CASignatureAlgorithm(ih)
	require.NoError(t, err)
	assert.Equal(t, "ECDSA-SHA256", alg)

	assert.ErrorIs(t, e.LoadPrivateKey(ctx, ih, "alice_key.pem", []byte(keyPassword)), interfaces.ErrMissingData)
	require.NoError(t, e.LoadCertificate(ctx, ih, "alice_cert.pem"))

	cert, err := e.Certificate(ih)
	require.NoError(t, err)
	assert.Equal(t, objs.objects["alice_cert.pem"], cert)

	subject, err = e.CertificateSubjectName(ih)
	require.NoError(t, err)
	assert.Equal(t, "CN=alice", subject)

	raw, err := e.CertificateRawSubject(ih)
	require.NoError(t, err)
	digest, err := e.CertificateSubjectSHA256(ih)
	require.NoError(t, err)
	assert.Equal(t, cryptoutils.SHA256(raw), digest)

	assert.Error(t, e.LoadPrivateKey(ctx, ih, "alice_key.pem", []byte("wrong")))
	assert.ErrorIs(t, e.LoadPrivateKey(ctx, ih, "bob_key.pem", []byte(keyPassword)), interfaces.ErrSecurity,
		"key must match the certificate")
	require.NoError(t, e.LoadPrivateKey(ctx, ih, "alice_key.pem", []byte(keyPassword)))

	require.NoError(t, e.UnloadPrivateKey(ih))
	_, err = e.Sign(ih, []byte("msg"))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, e.UnloadCertificate(ih))
	_, err = e.Certificate(ih)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, e.UnloadCA(ih))
	_, err = e.CASubjectName(ih)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = e.CASubjectName(3)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestEngine_RemoteCertificateAndSignature(t *testing.T) {
	objs := newTestObjects(t)
	e := newTestEngine(t, objs.objects, nil)

	local := loadParticipant(t, e, "alice")
	remote, err := e.CreateIdentity()
	require.NoError(t, err)

	assert.ErrorIs(t, e.LoadRemoteCertificate(remote, objs.otherPEM, local), interfaces.ErrSecurity,
		"certificate from another CA")
	require.NoError(t, e.LoadRemoteCertificate(remote, objs.objects["alice_cert.pem"], local))

	msg := []byte("handshake reply token")
	sig, err := e.Sign(local, msg)
	require.NoError(t, err)
	require.NoError(t, e.VerifySignature(remote, msg, sig))
	assert.ErrorIs(t, e.VerifySignature(remote, []byte("handshake reply tokeN"), sig), interfaces.ErrSecurity)

	// A remote identity's CA is never loaded, so it cannot vouch for others.
	other, err := e.CreateIdentity()
	require.NoError(t, err)
	assert.ErrorIs(t, e.LoadRemoteCertificate(other, objs.objects["bob_cert.pem"], remote), interfaces.ErrNotFound)
}

// runHandshake drives both engines through DH and the challenge exchange and
// returns the key material each derives.
func runHandshake(t *testing.T, a, b *Engine) (interfaces.HandleID, interfaces.HandleID) {
	t.Helper()
	ha, err := a.CreateHandshake()
	require.NoError(t, err)
	hb, err := b.CreateHandshake()
	require.NoError(t, err)

	require.NoError(t, a.GenerateDH(ha))
	require.NoError(t, b.GenerateDH(hb))
	pa, err := a.DHPublicKey(ha)
	require.NoError(t, err)
	assert.Len(t, pa, cryptoutils.DHPublicKeySize)
	pb, err := b.DHPublicKey(hb)
	require.NoError(t, err)
	require.NoError(t, a.SetDHPublicKey(ha, pb))
	require.NoError(t, b.SetDHPublicKey(hb, pa))

	require.NoError(t, a.GenerateChallenge(ha, 1, 32))
	require.NoError(t, b.GenerateChallenge(hb, 2, 32))
	c1, err := a.Challenge(ha, 1)
	require.NoError(t, err)
	c2, err := b.Challenge(hb, 2)
	require.NoError(t, err)
	require.NoError(t, a.SetChallenge(ha, 2, c2))
	require.NoError(t, b.SetChallenge(hb, 1, c1))

	ssa, err := a.DeriveSharedSecret(ha)
	require.NoError(t, err)
	ssb, err := b.DeriveSharedSecret(hb)
	require.NoError(t, err)

	secretA, err := a.SharedSecret(ssa)
	require.NoError(t, err)
	secretB, err := b.SharedSecret(ssb)
	require.NoError(t, err)
	assert.Equal(t, secretA, secretB)
	assert.Equal(t, c1, secretA.Challenge1)

	ka, err := a.GenerateKeyMaterial(ssa)
	require.NoError(t, err)
	kb, err := b.GenerateKeyMaterial(ssb)
	require.NoError(t, err)
	return ka, kb
}

func TestEngine_HandshakeBetweenEngines(t *testing.T) {
	a := newTestEngine(t, nil, nil)
	b := newTestEngine(t, nil, nil)
	ka, kb := runHandshake(t, a, b)

	sa, err := a.SerializeKeyMaterial(ka)
	require.NoError(t, err)
	sb, err := b.SerializeKeyMaterial(kb)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
	assert.Len(t, sa, 4+4+32+4+4+32+4)

	_, salt, err := a.KeyMaterialPart(ka, keymaterial.PartSalt)
	require.NoError(t, err)
	assert.NotEqual(t, make([]byte, keymaterial.KeyStorageSize), salt)

	// Data sealed by one side opens on the other.
	data := []byte("sample payload")
	iv := bytes.Repeat([]byte{7}, 12)
	tag, err := a.SessionEncrypt(ka, 1, false, iv, 16, data)
	require.NoError(t, err)
	require.NoError(t, b.SessionDecrypt(kb, 1, false, iv, tag, data))
	assert.Equal(t, []byte("sample payload"), data)
}

func TestEngine_HandshakeErrors(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	hh, err := e.CreateHandshake()
	require.NoError(t, err)

	_, err = e.DHPublicKey(hh)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	_, err = e.DeriveSharedSecret(hh)
	assert.ErrorIs(t, err, interfaces.ErrMissingData)

	require.NoError(t, e.GenerateDH(hh))
	assert.ErrorIs(t, e.GenerateDH(hh), interfaces.ErrAlreadyInitialized)
	require.NoError(t, e.UnloadDH(hh))
	require.NoError(t, e.UnloadDH(hh))

	assert.ErrorIs(t, e.GenerateChallenge(hh, 1, 600000), interfaces.ErrSizeLimit)
	assert.ErrorIs(t, e.GenerateChallenge(hh, 3, 16), interfaces.ErrBadParameters)
	assert.ErrorIs(t, e.SetChallenge(hh, 1, make([]byte, 513)), interfaces.ErrOverflow)
	_, err = e.Challenge(hh, 2)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, e.DeleteHandshake(hh))
	assert.ErrorIs(t, e.GenerateDH(hh), interfaces.ErrNotFound)
}

func TestEngine_SharedSecretCapacity(t *testing.T) {
	a := newTestEngine(t, nil, nil)
	b := newTestEngine(t, nil, nil)

	// Fill the shared-secret pool of a.
	for i := 0; i < 4; i++ {
		runHandshake(t, a, b)
		for hh := interfaces.HandleID(0); hh < 4; hh++ {
			a.DeleteHandshake(hh)
			b.DeleteHandshake(hh)
		}
		for ssh := interfaces.HandleID(0); ssh < 4; ssh++ {
			b.DeleteSharedSecret(ssh)
		}
	}
	assert.EqualValues(t, 4, a.SharedSecretInfo().Allocated)

	hh, err := a.CreateHandshake()
	require.NoError(t, err)
	require.NoError(t, a.GenerateDH(hh))
	pub, err := a.DHPublicKey(hh)
	require.NoError(t, err)
	require.NoError(t, a.SetDHPublicKey(hh, pub))
	require.NoError(t, a.GenerateChallenge(hh, 1, 8))
	require.NoError(t, a.GenerateChallenge(hh, 2, 8))

	_, err = a.DeriveSharedSecret(hh)
	assert.ErrorIs(t, err, interfaces.ErrCapacityExhausted)

	// The handshake is not consumed by the failed attempt.
	require.NoError(t, a.DeleteSharedSecret(0))
	ssh, err := a.DeriveSharedSecret(hh)
	require.NoError(t, err)
	assert.EqualValues(t, 0, ssh)
	_, err = a.DeriveSharedSecret(hh)
	assert.ErrorIs(t, err, interfaces.ErrNoMoreRoom)
}

func TestEngine_DeriveStateBeforeCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SharedSecretCapacity = 1
	builtin, err := storage.NewBuiltinStore(nil)
	require.NoError(t, err)
	e, err := New(cfg, cryptoutils.NewX509PKI(), builtin, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(e.Close)

	ready := func() interfaces.HandleID {
		hh, err := e.CreateHandshake()
		require.NoError(t, err)
		require.NoError(t, e.GenerateDH(hh))
		pub, err := e.DHPublicKey(hh)
		require.NoError(t, err)
		require.NoError(t, e.SetDHPublicKey(hh, pub))
		require.NoError(t, e.GenerateChallenge(hh, 1, 8))
		require.NoError(t, e.GenerateChallenge(hh, 2, 8))
		return hh
	}

	first := ready()
	ssh, err := e.DeriveSharedSecret(first)
	require.NoError(t, err)
	require.EqualValues(t, 1, e.SharedSecretInfo().Allocated)

	_, err = e.DeriveSharedSecret(first)
	assert.ErrorIs(t, err, interfaces.ErrNoMoreRoom)

	empty, err := e.CreateHandshake()
	require.NoError(t, err)
	_, err = e.DeriveSharedSecret(empty)
	assert.ErrorIs(t, err, interfaces.ErrMissingData)

	second := ready()
	_, err = e.DeriveSharedSecret(second)
	assert.ErrorIs(t, err, interfaces.ErrCapacityExhausted)

	require.NoError(t, e.DeleteSharedSecret(ssh))
	_, err = e.DeriveSharedSecret(second)
	assert.NoError(t, err)
}

func TestEngine_KeyMaterial(t *testing.T) {
	e := newTestEngine(t, nil, nil)

	kh, err := e.CreateKeyMaterial(true, false)
	require.NoError(t, err)

	cp, err := e.CopyKeyMaterial(kh)
	require.NoError(t, err)
	orig, err := e.SerializeKeyMaterial(kh)
	require.NoError(t, err)
	copied, err := e.SerializeKeyMaterial(cp)
	require.NoError(t, err)
	assert.Equal(t, orig, copied)

	reg, err := e.RegisterKeyMaterial(kh, true, true)
	require.NoError(t, err)
	id, key, err := e.KeyMaterialPart(reg, keymaterial.PartReceiverSpecific)
	require.NoError(t, err)
	assert.NotEqual(t, make([]byte, keymaterial.KeyIDSize), id)
	assert.NotEqual(t, make([]byte, 16), key[:16])
	assert.Equal(t, make([]byte, 16), key[16:], "128-bit kinds use half the storage")

	serialized, err := e.SerializeKeyMaterial(reg)
	require.NoError(t, err)
	back, err := e.DeserializeKeyMaterial(serialized)
	require.NoError(t, err)
	again, err := e.SerializeKeyMaterial(back)
	require.NoError(t, err)
	assert.Equal(t, serialized, again)

	_, err = e.DeserializeKeyMaterial(serialized[:len(serialized)-1])
	assert.ErrorIs(t, err, interfaces.ErrBadFormat)

	_, _, err = e.KeyMaterialPart(kh, keymaterial.Part(7))
	assert.ErrorIs(t, err, interfaces.ErrBadParameters)

	k1, err := e.SessionKey(kh, 1, false)
	require.NoError(t, err)
	assert.Len(t, k1, keymaterial.SessionKeySize)
	k2, err := e.SessionKey(kh, 2, false)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	require.NoError(t, e.DeleteKeyMaterial(kh))
	_, err = e.SessionKey(kh, 1, false)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.EqualValues(t, 3, e.KeyMaterialInfo().Allocated)
}

func TestEngine_KeyMaterialCapacity(t *testing.T) {
	builtin, err := storage.NewBuiltinStore(nil)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.KeyMaterialCapacity = 2
	e, err := New(cfg, cryptoutils.NewX509PKI(), builtin, nil, nil)
	require.NoError(t, err)

	kh, err := e.CreateKeyMaterial(false, true)
	require.NoError(t, err)
	serialized, err := e.SerializeKeyMaterial(kh)
	require.NoError(t, err)
	_, err = e.DeserializeKeyMaterial(serialized)
	require.NoError(t, err)

	_, err = e.DeserializeKeyMaterial(serialized)
	assert.ErrorIs(t, err, interfaces.ErrCapacityExhausted)
	_, err = e.CopyKeyMaterial(kh)
	assert.ErrorIs(t, err, interfaces.ErrCapacityExhausted)
}

func TestEngine_AES(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	key := bytes.Repeat([]byte{1}, 32)
	iv := bytes.Repeat([]byte{2}, 12)
	data := []byte("plaintext")

	tag, err := e.AESEncrypt(key, iv, 12, data)
	require.NoError(t, err)
	assert.Len(t, tag, 12)
	assert.NotEqual(t, []byte("plaintext"), data)

	sealed := bytes.Clone(data)
	badTag := bytes.Clone(tag)
	badTag[0] ^= 1
	assert.ErrorIs(t, e.AESDecrypt(key, iv, badTag, data), interfaces.ErrAuthentication)
	assert.Equal(t, sealed, data, "failed decrypt leaves data unchanged")

	require.NoError(t, e.AESDecrypt(key, iv, tag, data))
	assert.Equal(t, []byte("plaintext"), data)

	_, err = e.AESEncrypt(key[:20], iv, 12, data)
	assert.ErrorIs(t, err, interfaces.ErrBadParameters)
}

func TestEngine_ObjectLoading(t *testing.T) {
	ctx := context.Background()
	objs := newTestObjects(t)

	persistent, err := storage.NewFileBackend(filepath.Join(t.TempDir(), "objects"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, persistent.Store(ctx, "stored_ca.pem", objs.otherCA))

	e := newTestEngine(t, objs.objects, persistent)

	require.NoError(t, e.LoadObjectBuiltin(ctx, "identity_ca.pem"))
	assert.ErrorIs(t, e.LoadObjectStorage(ctx, "stored_ca.pem"), interfaces.ErrOutOfMemory)
	e.UnloadObject()
	require.NoError(t, e.LoadObjectStorage(ctx, "stored_ca.pem"))
	st := e.ObjectStatus()
	assert.True(t, st.Loaded)
	assert.Equal(t, "stored_ca.pem", st.Name)
	assert.Equal(t, len(objs.otherCA), st.Size)
	assert.Equal(t, persistent.LocationURI(), st.Store)

	// The scratch object is consulted before the stores.
	ih, err := e.CreateIdentity()
	require.NoError(t, err)
	require.NoError(t, e.LoadCA(ctx, ih, "stored_ca.pem"))
	subject, err := e.CASubjectName(ih)
	require.NoError(t, err)
	assert.Equal(t, "CN=Other CA", subject)
	e.UnloadObject()
	e.UnloadObject()
	assert.False(t, e.ObjectStatus().Loaded)

	// Builtin objects are reachable without a scratch load.
	ih2, err := e.CreateIdentity()
	require.NoError(t, err)
	require.NoError(t, e.LoadCA(ctx, ih2, "identity_ca.pem"))

	assert.ErrorIs(t, e.LoadObjectBuiltin(ctx, "stored_ca.pem"), interfaces.ErrObjectNotFound)
	assert.ErrorIs(t, e.LoadObjectStorage(ctx, "missing.pem"), interfaces.ErrObjectNotFound)

	noStore := newTestEngine(t, objs.objects, nil)
	assert.ErrorIs(t, noStore.LoadObjectStorage(ctx, "stored_ca.pem"), interfaces.ErrBackendUnavailable)
}

func TestEngine_Close(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	_, err := e.CreateKeyMaterial(true, true)
	require.NoError(t, err)
	_, err = e.CreateHandshake()
	require.NoError(t, err)

	e.Close()
	for name, info := range e.Pools() {
		assert.Zero(t, info.Allocated, name)
	}
}
