package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageFactory_StoreFor(t *testing.T) {
	dir := t.TempDir()
	builtin, err := NewBuiltinStore(map[string][]byte{"identity_ca.pem": []byte("ca")})
	require.NoError(t, err)
	factory := NewStorageFactory(testLogger(), builtin, []byte("passphrase"))

	tests := []struct {
		uri     string
		want    string
		wantErr error
	}{
		{uri: "builtin://", want: "builtin"},
		{uri: "file://" + filepath.Join(dir, "objects"), want: "file-objects"},
		{uri: "sqlite://" + filepath.Join(dir, "objects.db"), want: "sqlite-" + filepath.Join(dir, "objects.db")},
		{uri: "redis://localhost:6379/0?prefix=test:", want: "redis-localhost:6379"},
		{uri: "vault://vault.example.com:8200/secret/ddssec?token=t", want: "vault-secret-ddssec"},
		{uri: "s3://bucket/prefix?region=eu-west-1", want: "s3-bucket"},
		{uri: "ipfs://localhost:5001/ddssec?timeout=5s", want: "ipfs-localhost-5001"},
		{uri: "github://acme/pki/certs", want: "github-acme-pki"},
		{uri: "file://" + filepath.Join(dir, "sealed") + "?sealed=true", want: "sealed-file-sealed"},
		{uri: "ftp://example.com", wantErr: interfaces.ErrInvalidLocationURI},
		{uri: "vault://vault.example.com:8200", wantErr: interfaces.ErrInvalidLocationURI},
		{uri: "ipfs://localhost:5001/?timeout=soon", wantErr: interfaces.ErrInvalidLocationURI},
		{uri: "github://acme", wantErr: interfaces.ErrInvalidLocationURI},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			store, err := factory.StoreForURI(tt.uri)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, store.Name())
		})
	}
}

func TestStorageFactory_SealedNeedsPassphrase(t *testing.T) {
	factory := NewStorageFactory(testLogger(), nil, nil)
	_, err := factory.StoreForURI("file://" + t.TempDir() + "?sealed=true")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestStorageFactory_CreateMultiStore(t *testing.T) {
	ctx := context.Background()
	builtin, err := NewBuiltinStore(map[string][]byte{"identity_ca.pem": []byte("builtin ca")})
	require.NoError(t, err)
	factory := NewStorageFactory(testLogger(), builtin, nil)

	var locations []interfaces.ObjectStoreLocation
	for _, uri := range []string{"file://" + t.TempDir(), "builtin://"} {
		loc, err := interfaces.NewObjectStoreLocation(uri)
		require.NoError(t, err)
		locations = append(locations, loc)
	}

	multi, err := factory.CreateMultiStore(locations)
	require.NoError(t, err)

	data, err := multi.Load(ctx, "identity_ca.pem")
	require.NoError(t, err)
	assert.Equal(t, []byte("builtin ca"), data, "falls back to the builtin table")

	require.NoError(t, multi.Store(ctx, "identity_ca.pem", []byte("file ca")))
	data, err = multi.Load(ctx, "identity_ca.pem")
	require.NoError(t, err)
	assert.Equal(t, []byte("file ca"), data, "first store wins once it has the object")

	_, err = factory.CreateMultiStore(nil)
	assert.Error(t, err)
}
