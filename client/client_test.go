package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/engine"
	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/ruteri/ddssec-engine/keymaterial"
	"github.com/ruteri/ddssec-engine/storage"
	"github.com/ruteri/ddssec-engine/ta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyPassword = "secret"

func newTestObjects(t *testing.T) map[string][]byte {
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
	return objects
}

func newTestClient(t *testing.T, objects map[string][]byte) *Client {
	t.Helper()
	builtin, err := storage.NewBuiltinStore(objects)
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewFileBackend(t.TempDir(), log)
	require.NoError(t, err)
	e, err := engine.New(engine.DefaultConfig(), cryptoutils.NewX509PKI(), builtin, store, log)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return New(ta.NewSession(e, log, nil))
}

func requireCode(t *testing.T, want Code, err error) {
	t.Helper()
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, want, cerr.Code, cerr.Error())
}

func TestCodeFromResult(t *testing.T) {
	assert.Equal(t, CodeParam, CodeFromResult(ta.ResultBadParameters))
	assert.Equal(t, CodeNotFound, CodeFromResult(ta.ResultItemNotFound))
	assert.Equal(t, CodeBadFormat, CodeFromResult(ta.ResultBadFormat))
	assert.Equal(t, CodeMemory, CodeFromResult(ta.ResultOutOfMemory))
	assert.Equal(t, CodeSecurity, CodeFromResult(ta.ResultSecurity))
	assert.Equal(t, CodeData, CodeFromResult(ta.ResultNoData))
	assert.Equal(t, CodeShortBuffer, CodeFromResult(ta.ResultShortBuffer))
	assert.Equal(t, CodeTEE, CodeFromResult(ta.ResultGeneric))
	assert.Equal(t, CodeTEE, CodeFromResult(ta.ResultNotSupported))
	assert.Equal(t, "NOT_FOUND", CodeNotFound.String())
}

func TestError_Is(t *testing.T) {
	err := newError(ta.CmdIHDelete, ta.ResultItemNotFound)
	assert.True(t, errors.Is(err, &Error{Code: CodeNotFound}))
	assert.False(t, errors.Is(err, &Error{Code: CodeParam}))
	assert.Contains(t, err.Error(), "ih_delete")
}

func TestClient_Identity(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, newTestObjects(t))

	ih, err := c.CreateIdentity(ctx)
	require.NoError(t, err)
	requireCode(t, CodeNotFound, c.LoadCA(ctx, ih, "missing.pem"))
	requireCode(t, CodeData, c.LoadCertificate(ctx, ih, "alice_cert.pem"))
	require.NoError(t, c.LoadCA(ctx, ih, "identity_ca.pem"))
	require.NoError(t, c.LoadCertificate(ctx, ih, "alice_cert.pem"))
	requireCode(t, CodeSecurity, c.LoadPrivateKey(ctx, ih, "alice_key.pem", []byte("wrong")))
	require.NoError(t, c.LoadPrivateKey(ctx, ih, "alice_key.pem", []byte(keyPassword)))

	subject, err := c.CASubjectName(ctx, ih)
	require.NoError(t, err)
	assert.Equal(t, "CN=Identity CA", subject)
	subject, err = c.CertificateSubjectName(ctx, ih)
	require.NoError(t, err)
	assert.Equal(t, "CN=alice", subject)
	alg, err := c.CertificateSignatureAlgorithm(ctx, ih)
	require.NoError(t, err)
	assert.Equal(t, "ECDSA-SHA256", alg)
	hash, err := c.CertificateSubjectSHA256(ctx, ih)
	require.NoError(t, err)
	assert.Len(t, hash, cryptoutils.SHA256Size)
	raw, err := c.CertificateRawSubject(ctx, ih)
	require.NoError(t, err)
	assert.Equal(t, cryptoutils.SHA256(raw), hash)

	cert, err := c.Certificate(ctx, ih)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(cert, []byte("-----BEGIN CERTIFICATE-----")))

	// A remote identity verifies what the local one signs.
	rih, err := c.CreateIdentity(ctx)
	require.NoError(t, err)
	require.NoError(t, c.LoadRemoteCertificate(ctx, rih, cert, ih))
	sig, err := c.Sign(ctx, ih, []byte("message"))
	require.NoError(t, err)
	require.NoError(t, c.VerifySignature(ctx, rih, []byte("message"), sig))
	requireCode(t, CodeSecurity, c.VerifySignature(ctx, rih, []byte("tampered"), sig))

	info, err := c.IdentityInfo(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, info.Capacity)
	assert.EqualValues(t, 2, info.Allocated)

	require.NoError(t, c.UnloadPrivateKey(ctx, ih))
	_, err = c.Sign(ctx, ih, []byte("message"))
	requireCode(t, CodeNotFound, err)
	require.NoError(t, c.UnloadCertificate(ctx, ih))
	require.NoError(t, c.UnloadCA(ctx, ih))
	require.NoError(t, c.DeleteIdentity(ctx, ih))
	requireCode(t, CodeNotFound, c.DeleteIdentity(ctx, ih))
}

func TestClient_Handshake(t *testing.T) {
	ctx := context.Background()
	a := newTestClient(t, nil)
	b := newTestClient(t, nil)

	ha, err := a.CreateHandshake(ctx)
	require.NoError(t, err)
	hb, err := b.CreateHandshake(ctx)
	require.NoError(t, err)

	require.NoError(t, a.GenerateDH(ctx, ha))
	require.NoError(t, b.GenerateDH(ctx, hb))
	pa, err := a.DHPublicKey(ctx, ha)
	require.NoError(t, err)
	pb, err := b.DHPublicKey(ctx, hb)
	require.NoError(t, err)
	require.NoError(t, a.SetDHPublicKey(ctx, ha, pb))
	require.NoError(t, b.SetDHPublicKey(ctx, hb, pa))

	require.NoError(t, a.GenerateChallenge(ctx, ha, 1, 32))
	require.NoError(t, b.GenerateChallenge(ctx, hb, 2, 32))
	c1, err := a.Challenge(ctx, ha, 1)
	require.NoError(t, err)
	assert.Len(t, c1, 32)
	c2, err := b.Challenge(ctx, hb, 2)
	require.NoError(t, err)
	require.NoError(t, a.SetChallenge(ctx, ha, 2, c2))
	require.NoError(t, b.SetChallenge(ctx, hb, 1, c1))

	ssa, err := a.DeriveSharedSecret(ctx, ha)
	require.NoError(t, err)
	ssb, err := b.DeriveSharedSecret(ctx, hb)
	require.NoError(t, err)
	secretA, err := a.SharedSecret(ctx, ssa)
	require.NoError(t, err)
	secretB, err := b.SharedSecret(ctx, ssb)
	require.NoError(t, err)
	assert.Equal(t, secretA, secretB)
	assert.Equal(t, c1, secretA.Challenge1)
	assert.Equal(t, c2, secretA.Challenge2)

	ka, err := a.GenerateKeyMaterial(ctx, ssa)
	require.NoError(t, err)
	kb, err := b.GenerateKeyMaterial(ctx, ssb)
	require.NoError(t, err)
	kmA, err := a.KeyMaterial(ctx, ka)
	require.NoError(t, err)
	kmB, err := b.KeyMaterial(ctx, kb)
	require.NoError(t, err)
	assert.Equal(t, kmA.MasterSenderKey, kmB.MasterSenderKey)
	assert.Equal(t, kmA.MasterSalt, kmB.MasterSalt)

	iv := bytes.Repeat([]byte{1}, 12)
	ciphertext, tag, err := a.SessionEncrypt(ctx, ka, 9, false, iv, 16, []byte("hello dds"))
	require.NoError(t, err)
	assert.Len(t, tag, 16)
	assert.NotEqual(t, []byte("hello dds"), ciphertext)
	plaintext, err := b.SessionDecrypt(ctx, kb, 9, false, iv, tag, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello dds"), plaintext)

	_, err = b.SessionDecrypt(ctx, kb, 10, false, iv, tag, ciphertext)
	requireCode(t, CodeSecurity, err)

	require.NoError(t, a.UnloadDH(ctx, ha))
	require.NoError(t, a.UnloadChallenges(ctx, ha))
	require.NoError(t, a.DeleteSharedSecret(ctx, ssa))
	require.NoError(t, a.DeleteHandshake(ctx, ha))
	info, err := a.SharedSecretInfo(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, info.Allocated)
	info, err = a.HandshakeInfo(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, info.Allocated)
}

func TestClient_KeyMaterial(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, nil)

	kh, err := c.CreateKeyMaterial(ctx, true, true)
	require.NoError(t, err)
	rh, err := c.RegisterKeyMaterial(ctx, kh, true, true)
	require.NoError(t, err)

	data, err := c.SerializeKeyMaterial(ctx, rh)
	require.NoError(t, err)
	assert.Len(t, data, keymaterial.MaxSerializedSize)
	dh, err := c.DeserializeKeyMaterial(ctx, data)
	require.NoError(t, err)

	want, err := c.KeyMaterial(ctx, rh)
	require.NoError(t, err)
	got, err := c.KeyMaterial(ctx, dh)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.HasReceiverSpecific())

	_, err = c.DeserializeKeyMaterial(ctx, data[:10])
	requireCode(t, CodeBadFormat, err)

	ch, err := c.CopyKeyMaterial(ctx, dh)
	require.NoError(t, err)
	key, err := c.SessionKey(ctx, ch, 1, true)
	require.NoError(t, err)
	assert.Len(t, key, keymaterial.SessionKeySize)
	other, err := c.SessionKey(ctx, ch, 2, true)
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	iv := bytes.Repeat([]byte{3}, 12)
	ciphertext, tag, err := c.SessionEncrypt(ctx, dh, 5, true, iv, 8, []byte("receiver only"))
	require.NoError(t, err)
	plaintext, err := c.SessionDecrypt(ctx, ch, 5, true, iv, tag, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("receiver only"), plaintext)

	require.NoError(t, c.DeleteKeyMaterial(ctx, ch))
	_, err = c.SessionKey(ctx, ch, 1, false)
	requireCode(t, CodeNotFound, err)
	info, err := c.KeyMaterialInfo(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, info.Allocated)
}

func TestClient_AES(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, nil)
	key := bytes.Repeat([]byte{9}, 32)
	iv := bytes.Repeat([]byte{2}, 12)

	ciphertext, tag, err := c.AESEncrypt(ctx, key, iv, 16, []byte("raw key data"))
	require.NoError(t, err)
	plaintext, err := c.AESDecrypt(ctx, key, iv, tag, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw key data"), plaintext)

	tag[0] ^= 0xff
	_, err = c.AESDecrypt(ctx, key, iv, tag, ciphertext)
	requireCode(t, CodeSecurity, err)

	_, _, err = c.AESEncrypt(ctx, key[:7], iv, 16, []byte("x"))
	requireCode(t, CodeParam, err)
}

func TestClient_Objects(t *testing.T) {
	ctx := context.Background()
	objects := newTestObjects(t)
	c := newTestClient(t, objects)

	requireCode(t, CodeNotFound, c.LoadObjectBuiltin(ctx, "missing.pem"))
	require.NoError(t, c.LoadObjectBuiltin(ctx, "identity_ca.pem"))
	require.NoError(t, c.UnloadObject(ctx))
	requireCode(t, CodeNotFound, c.LoadObjectStorage(ctx, "identity_ca.pem"))
}

func loadIdentity(t *testing.T, c *Client, name string) interfaces.HandleID {
	t.Helper()
	ctx := context.Background()
	ih, err := c.CreateIdentity(ctx)
	require.NoError(t, err)
	require.NoError(t, c.LoadCA(ctx, ih, "identity_ca.pem"))
	require.NoError(t, c.LoadCertificate(ctx, ih, name+"_cert.pem"))
	require.NoError(t, c.LoadPrivateKey(ctx, ih, name+"_key.pem", []byte(keyPassword)))
	return ih
}

func TestHandshake(t *testing.T) {
	ctx := context.Background()
	a := newTestClient(t, nil)
	b := newTestClient(t, nil)

	ka, kb, err := Handshake(ctx, a, b, 64)
	require.NoError(t, err)
	sa, err := a.SerializeKeyMaterial(ctx, ka)
	require.NoError(t, err)
	sb, err := b.SerializeKeyMaterial(ctx, kb)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)

	// Only the key material handles outlive the exchange.
	for _, c := range []*Client{a, b} {
		info, err := c.HandshakeInfo(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, info.Allocated)
		info, err = c.SharedSecretInfo(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, info.Allocated)
	}

	_, _, err = Handshake(ctx, a, b, 4096)
	requireCode(t, CodeShortBuffer, err)
}

func TestHandshake_ReleasesOnFailure(t *testing.T) {
	ctx := context.Background()
	a := newTestClient(t, nil)
	b := newTestClient(t, nil)

	// Fill the responder's key material pool so its generate step fails.
	for i := 0; i < engine.DefaultConfig().KeyMaterialCapacity; i++ {
		_, err := b.CreateKeyMaterial(ctx, true, true)
		require.NoError(t, err)
	}

	ki, kr, err := Handshake(ctx, a, b, 32)
	requireCode(t, CodeMemory, err)
	assert.Equal(t, interfaces.InvalidHandle, ki)
	assert.Equal(t, interfaces.InvalidHandle, kr)

	info, err := a.KeyMaterialInfo(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, info.Allocated, "initiator key material released")
	for _, c := range []*Client{a, b} {
		info, err := c.HandshakeInfo(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, info.Allocated)
		info, err = c.SharedSecretInfo(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, info.Allocated)
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	objects := newTestObjects(t)
	a := newTestClient(t, objects)
	b := newTestClient(t, objects)

	alice := loadIdentity(t, a, "alice")
	bob := loadIdentity(t, b, "bob")

	require.NoError(t, Authenticate(ctx, a, alice, b, bob, []byte("challenge")))
	require.NoError(t, Authenticate(ctx, b, bob, a, alice, []byte("challenge")))

	info, err := b.IdentityInfo(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.Allocated, "temporary remote identity released")

	// A verifier trusting another CA rejects the signer.
	other, otherKey, err := cryptoutils.NewCA("Other CA")
	require.NoError(t, err)
	malloryPEM, malloryKey, err := cryptoutils.IssueCertificate(other, otherKey, "mallory")
	require.NoError(t, err)
	malloryKeyPEM, err := cryptoutils.MarshalPrivateKeyPEM(malloryKey, []byte(keyPassword))
	require.NoError(t, err)
	m := newTestClient(t, map[string][]byte{
		"identity_ca.pem":  other,
		"mallory_cert.pem": malloryPEM,
		"mallory_key.pem":  malloryKeyPEM,
	})
	mallory := loadIdentity(t, m, "mallory")
	err = Authenticate(ctx, m, mallory, b, bob, []byte("challenge"))
	assert.ErrorIs(t, err, &Error{Code: CodeSecurity})
}
