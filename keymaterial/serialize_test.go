package keymaterial

import (
	"testing"

	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialize_RoundTrip(t *testing.T) {
	resetKeyIDs(t)
	withReceiver := func(useGCM, use256 bool) KeyMaterial {
		km, err := Create(useGCM, use256)
		require.NoError(t, err)
		out, err := km.Register(true, true)
		require.NoError(t, err)
		return out
	}
	registeredNone := func() KeyMaterial {
		var none KeyMaterial
		out, err := none.Register(true, true)
		require.NoError(t, err)
		return out
	}
	created := func(useGCM, use256 bool) KeyMaterial {
		km, err := Create(useGCM, use256)
		require.NoError(t, err)
		return km
	}

	tests := []struct {
		name string
		km   KeyMaterial
		size int
	}{
		{"none", KeyMaterial{}, 44},
		{"none registered with receiver", registeredNone(), 44},
		{"aes128 gmac", created(false, false), 4 + 4 + 16 + 4 + 4 + 16 + 4},
		{"aes128 gcm with receiver", withReceiver(true, false), 4 + 4 + 16 + 4 + 4 + 16 + 4 + 4 + 16},
		{"aes256 gmac", created(false, true), 4 + 4 + 32 + 4 + 4 + 32 + 4},
		{"aes256 gcm with receiver", withReceiver(true, true), MaxSerializedSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.km.Serialize()
			require.NoError(t, err)
			assert.Len(t, data, tt.size)
			assert.Equal(t, tt.size, tt.km.SerializedSize())

			got, err := Deserialize(data)
			require.NoError(t, err)
			assert.Equal(t, tt.km, got)
		})
	}
}

func TestSerialize_Layout(t *testing.T) {
	km := KeyMaterial{Kind: interfaces.KindAES128GCM}
	for i := 0; i < 16; i++ {
		km.MasterSalt[i] = byte(i)
		km.MasterSenderKey[i] = byte(0x80 + i)
	}
	km.SenderKeyID = [4]byte{1, 0, 0, 0}

	data, err := km.Serialize()
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 0, 0, 2}, data[0:4])
	assert.Equal(t, []byte{0, 0, 0, 16}, data[4:8])
	assert.Equal(t, km.MasterSalt[:16], data[8:24])
	assert.Equal(t, []byte{1, 0, 0, 0}, data[24:28])
	assert.Equal(t, []byte{0, 0, 0, 16}, data[28:32])
	assert.Equal(t, km.MasterSenderKey[:16], data[32:48])
	assert.Equal(t, []byte{0, 0, 0, 0}, data[48:52])
}

func TestDeserialize_Rejects(t *testing.T) {
	km, err := Create(true, true)
	require.NoError(t, err)
	valid, err := km.Serialize()
	require.NoError(t, err)

	mutate := func(f func(b []byte) []byte) []byte {
		b := make([]byte, len(valid))
		copy(b, valid)
		return f(b)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short kind", []byte{0, 0, 4}},
		{"unknown kind", mutate(func(b []byte) []byte { b[3] = 9; return b })},
		{"kind prefix", mutate(func(b []byte) []byte { b[0] = 1; return b })},
		{"salt length 17", mutate(func(b []byte) []byte { b[7] = 17; return b })},
		{"salt length mismatches kind", mutate(func(b []byte) []byte { b[7] = 16; return b })},
		{"header prefix", mutate(func(b []byte) []byte { b[5] = 1; return b })},
		{"sender key length", mutate(func(b []byte) []byte { b[4+4+32+4+3] = 0; return b })},
		{"receiver length", mutate(func(b []byte) []byte { b[len(b)-1] = 8; return b })},
		{"truncated", valid[:len(valid)-1]},
		{"trailing", append(mutate(func(b []byte) []byte { return b }), 0)},
		{"none padding", append([]byte{0, 0, 0, 0, 1}, make([]byte, 39)...)},
		{"none truncated", make([]byte, 43)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.data)
			assert.ErrorIs(t, err, interfaces.ErrBadFormat)
		})
	}
}
