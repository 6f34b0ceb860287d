package cryptoutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealUnseal(t *testing.T) {
	passphrase := []byte("storage passphrase")

	testCases := []struct {
		name string
		data []byte
	}{
		{
			name: "Simple string",
			data: []byte("This is a secret message"),
		},
		{
			name: "Binary data",
			data: []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD},
		},
		{
			name: "Empty data",
			data: []byte{},
		},
		{
			name: "Long data",
			data: make([]byte, 1024),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sealed, err := Seal(passphrase, []byte("object-name"), tc.data)
			require.NoError(t, err)

			opened, err := Unseal(passphrase, []byte("object-name"), sealed)
			require.NoError(t, err)
			assert.Equal(t, len(tc.data), len(opened))
			assert.Equal(t, string(tc.data), string(opened))
		})
	}
}

func TestUnsealFailures(t *testing.T) {
	passphrase := []byte("storage passphrase")
	sealed, err := Seal(passphrase, []byte("name"), []byte("private key bytes"))
	require.NoError(t, err)

	_, err = Unseal([]byte("wrong passphrase"), []byte("name"), sealed)
	assert.ErrorIs(t, err, ErrUnseal, "wrong passphrase")

	_, err = Unseal(passphrase, []byte("other-name"), sealed)
	assert.ErrorIs(t, err, ErrUnseal, "sealed blob moved to another name")

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0x01
	_, err = Unseal(passphrase, []byte("name"), tampered)
	assert.ErrorIs(t, err, ErrUnseal, "tampered ciphertext")

	_, err = Unseal(passphrase, nil, sealed[:10])
	assert.ErrorIs(t, err, ErrUnseal, "truncated blob")

	_, err = Seal(nil, nil, []byte("data"))
	assert.Error(t, err, "empty passphrase")
}
