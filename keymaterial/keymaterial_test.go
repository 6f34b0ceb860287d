package keymaterial

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/ruteri/ddssec-engine/handshake"
	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hmacOf(key []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

func TestCreate_Kinds(t *testing.T) {
	tests := []struct {
		useGCM, use256 bool
		kind           interfaces.TransformationKind
	}{
		{false, false, interfaces.KindAES128GMAC},
		{true, false, interfaces.KindAES128GCM},
		{false, true, interfaces.KindAES256GMAC},
		{true, true, interfaces.KindAES256GCM},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			km, err := Create(tt.useGCM, tt.use256)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, km.Kind)

			w := tt.kind.KeyWidth()
			assert.NotEqual(t, make([]byte, w), km.MasterSalt[:w])
			assert.NotEqual(t, make([]byte, w), km.MasterSenderKey[:w])
			assert.Equal(t, make([]byte, KeyStorageSize-w), km.MasterSalt[w:], "bytes past the key width stay zero")
			assert.False(t, km.HasReceiverSpecific())
		})
	}
}

// resetKeyIDs restarts the shared key-id counter for one test.
func resetKeyIDs(t *testing.T) {
	t.Helper()
	saved := keyIDCounter.Load()
	keyIDCounter.Store(0)
	t.Cleanup(func() { keyIDCounter.Store(saved) })
}

func TestCreate_UniqueSenderKeyIDs(t *testing.T) {
	resetKeyIDs(t)
	a, err := Create(true, false)
	require.NoError(t, err)
	b, err := Create(true, false)
	require.NoError(t, err)

	idA := binary.LittleEndian.Uint32(a.SenderKeyID[:])
	idB := binary.LittleEndian.Uint32(b.SenderKeyID[:])
	assert.EqualValues(t, 0, idA)
	assert.EqualValues(t, 1, idB, "ids are consecutive little-endian counter values")
}

func TestGenerate(t *testing.T) {
	secret := &handshake.SharedSecret{
		SharedKey:  bytes.Repeat([]byte{0x11}, 32),
		Challenge1: []byte("challenge-one"),
		Challenge2: []byte("challenge-two"),
	}

	km, err := Generate(secret)
	require.NoError(t, err)
	assert.Equal(t, interfaces.KindAES256GCM, km.Kind)
	assert.Equal(t, hmacOf(secret.SharedKey, secret.Challenge1, []byte("keyexchange salt"), secret.Challenge2), km.MasterSalt[:])
	assert.Equal(t, hmacOf(secret.SharedKey, secret.Challenge2, []byte("key exchange key"), secret.Challenge1), km.MasterSenderKey[:])
	assert.Equal(t, [KeyIDSize]byte{}, km.SenderKeyID)
	assert.False(t, km.HasReceiverSpecific())

	_, err = Generate(&handshake.SharedSecret{})
	assert.ErrorIs(t, err, interfaces.ErrMissingData)
}

func TestRegister(t *testing.T) {
	src, err := Create(true, true)
	require.NoError(t, err)

	t.Run("no origin auth", func(t *testing.T) {
		out, err := src.Register(false, true)
		require.NoError(t, err)
		assert.Equal(t, src.MasterSenderKey, out.MasterSenderKey)
		assert.Equal(t, src.SenderKeyID, out.SenderKeyID)
		assert.False(t, out.HasReceiverSpecific())
	})

	t.Run("generate receiver specific", func(t *testing.T) {
		out, err := src.Register(true, true)
		require.NoError(t, err)
		assert.True(t, out.HasReceiverSpecific())
		assert.NotEqual(t, src.SenderKeyID, out.ReceiverSpecificKeyID)

		t.Run("copy receiver specific", func(t *testing.T) {
			copied, err := out.Register(true, false)
			require.NoError(t, err)
			assert.Equal(t, out, copied)
		})
	})

	t.Run("copy propagates zero", func(t *testing.T) {
		out, err := src.Register(true, false)
		require.NoError(t, err)
		assert.False(t, out.HasReceiverSpecific())
	})

	t.Run("none stays zero", func(t *testing.T) {
		none, err := Deserialize(make([]byte, 44))
		require.NoError(t, err)
		before := keyIDCounter.Load()

		out, err := none.Register(true, true)
		require.NoError(t, err)
		assert.Equal(t, KeyMaterial{Kind: interfaces.KindNone}, out)
		assert.Equal(t, before, keyIDCounter.Load(), "no key id is consumed")
	})
}

func TestPart(t *testing.T) {
	km, err := Create(true, false)
	require.NoError(t, err)

	kind, salt, err := km.Part(PartSalt)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, byte(interfaces.KindAES128GCM)}, kind)
	assert.Equal(t, km.MasterSalt[:], salt)

	id, key, err := km.Part(PartSender)
	require.NoError(t, err)
	assert.Equal(t, km.SenderKeyID[:], id)
	assert.Equal(t, km.MasterSenderKey[:], key)

	key[0] ^= 0xff
	assert.NotEqual(t, km.MasterSenderKey[:], key, "parts are copies")

	_, _, err = km.Part(Part(3))
	assert.ErrorIs(t, err, interfaces.ErrBadParameters)
}

func TestWipe(t *testing.T) {
	km, err := Create(true, true)
	require.NoError(t, err)
	km.Wipe()
	assert.Equal(t, KeyMaterial{}, km)
}
