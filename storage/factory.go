package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/ddssec-engine/interfaces"
)

// StorageFactory creates object stores from location URIs and manages
// multi-store configurations for fallback.
type StorageFactory struct {
	log            *slog.Logger
	builtin        *BuiltinStore
	sealPassphrase []byte
}

// NewStorageFactory creates a new factory. builtin backs the builtin:// scheme
// and may be nil. sealPassphrase is required only by locations with sealed=true.
func NewStorageFactory(logger *slog.Logger, builtin *BuiltinStore, sealPassphrase []byte) *StorageFactory {
	return &StorageFactory{
		log:            logger,
		builtin:        builtin,
		sealPassphrase: sealPassphrase,
	}
}

// StoreFor creates an object store from a location.
// The URI format is [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - builtin:// - The fixed in-process table
//   - file:// - Local directory
//   - sqlite:// - SQLite database file
//   - redis:// - Redis keys, ?prefix=
//   - vault:// - HashiCorp Vault KV v2, host/mount/path, ?token= &insecure=true
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS node MFS directory
//   - github:// - Read-only files in a repository directory, ?ref=
//
// Any location may add sealed=true to encrypt objects at rest.
func (sf *StorageFactory) StoreFor(location interfaces.ObjectStoreLocation) (interfaces.ObjectStore, error) {
	store, err := sf.createStore(location)
	if err != nil {
		return nil, err
	}
	if !location.GetParamBool("sealed") {
		return store, nil
	}
	if len(sf.sealPassphrase) == 0 {
		return nil, fmt.Errorf("%w: sealed store %s requires a passphrase", interfaces.ErrInvalidLocationURI, location)
	}
	return NewSealedStore(store, sf.sealPassphrase)
}

// StoreForURI parses uri and creates its store.
func (sf *StorageFactory) StoreForURI(uri string) (interfaces.ObjectStore, error) {
	location, err := interfaces.NewObjectStoreLocation(uri)
	if err != nil {
		return nil, err
	}
	return sf.StoreFor(location)
}

func (sf *StorageFactory) createStore(location interfaces.ObjectStoreLocation) (interfaces.ObjectStore, error) {
	sf.log.Debug("Creating object store",
		slog.String("scheme", location.Scheme),
		slog.String("host", location.Host))

	switch location.Scheme {
	case "builtin":
		if sf.builtin == nil {
			return NewBuiltinStore(nil)
		}
		return sf.builtin, nil
	case "file":
		return sf.createFileBackend(location)
	case "sqlite":
		return sf.createSQLiteBackend(location)
	case "redis":
		return sf.createRedisBackend(location)
	case "vault":
		return sf.createVaultBackend(location)
	case "s3":
		return sf.createS3Backend(location)
	case "ipfs":
		return sf.createIPFSBackend(location)
	case "github":
		return sf.createGitHubBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiStore creates a multi-store from a list of locations. Locations
// that fail to build are logged and skipped.
func (sf *StorageFactory) CreateMultiStore(locations []interfaces.ObjectStoreLocation) (interfaces.ObjectStore, error) {
	backends := make([]interfaces.ObjectStore, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StoreFor(location)
		if err != nil {
			sf.log.Warn("Failed to create object store",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid object stores created")
	}
	if len(backends) == 1 {
		return backends[0], nil
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

// localPath joins host and path so that both file:///abs and file://./rel work.
func localPath(location interfaces.ObjectStoreLocation) (string, error) {
	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return "", fmt.Errorf("%w: empty path in %s", interfaces.ErrInvalidLocationURI, location)
	}
	return path, nil
}

// createFileBackend handles file:///absolute/path or file://./relative/path.
func (sf *StorageFactory) createFileBackend(location interfaces.ObjectStoreLocation) (interfaces.ObjectStore, error) {
	path, err := localPath(location)
	if err != nil {
		return nil, err
	}
	return NewFileBackend(path, sf.log)
}

// createSQLiteBackend handles sqlite:///absolute/objects.db or sqlite://./objects.db.
func (sf *StorageFactory) createSQLiteBackend(location interfaces.ObjectStoreLocation) (interfaces.ObjectStore, error) {
	path, err := localPath(location)
	if err != nil {
		return nil, err
	}
	return NewSQLiteBackend(path, sf.log)
}

// createRedisBackend handles redis://[user:password@]host:port[/db]?prefix=ddssec:
func (sf *StorageFactory) createRedisBackend(location interfaces.ObjectStoreLocation) (interfaces.ObjectStore, error) {
	prefix := location.GetParam("prefix")
	if prefix == "" {
		prefix = "ddssec:"
	}

	// go-redis rejects query options it does not know.
	u := url.URL{Scheme: "redis", Host: location.Host, Path: location.Path}
	if location.Auth != "" {
		userinfo, err := url.Parse("redis://" + location.Auth + "@x")
		if err == nil {
			u.User = userinfo.User
		}
	}

	opts, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}
	return NewRedisBackend(redis.NewClient(opts), prefix, sf.log), nil
}

// createVaultBackend handles vault://host:port/mount/path?token=...&insecure=true
// The token falls back to VAULT_TOKEN.
func (sf *StorageFactory) createVaultBackend(location interfaces.ObjectStoreLocation) (interfaces.ObjectStore, error) {
	parts := strings.SplitN(strings.Trim(location.Path, "/"), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("%w: vault URI needs a mount path", interfaces.ErrInvalidLocationURI)
	}
	mountPath := parts[0]
	dataPath := ""
	if len(parts) == 2 {
		dataPath = parts[1]
	}

	scheme := "https"
	if location.GetParamBool("insecure") {
		scheme = "http"
	}

	token := location.GetParam("token")
	if token == "" {
		token = os.Getenv("VAULT_TOKEN")
	}

	return NewVaultBackend(fmt.Sprintf("%s://%s", scheme, location.Host), mountPath, dataPath, VaultOptions{Token: token}, sf.log)
}

// createS3Backend handles s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
func (sf *StorageFactory) createS3Backend(location interfaces.ObjectStoreLocation) (interfaces.ObjectStore, error) {
	bucketName := location.Host
	if bucketName == "" {
		return nil, fmt.Errorf("%w: s3 URI needs a bucket", interfaces.ErrInvalidLocationURI)
	}

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if location.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(location.Auth, ":")
		accessKey, _ = url.PathUnescape(accessKey)
		secretKey, _ = url.PathUnescape(secretKey)
	}

	return NewS3Backend(bucketName, strings.TrimPrefix(location.Path, "/"), region, location.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

// createIPFSBackend handles ipfs://host:port/base/dir?timeout=30s
func (sf *StorageFactory) createIPFSBackend(location interfaces.ObjectStoreLocation) (interfaces.ObjectStore, error) {
	host, port, found := strings.Cut(location.Host, ":")
	if !found || port == "" {
		port = "5001"
	}

	timeout := 30 * time.Second
	if raw := location.GetParam("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
		timeout = parsed
	}

	baseDir := location.Path
	if strings.Trim(baseDir, "/") == "" {
		baseDir = "/ddssec"
	}

	return NewIPFSBackend(host, port, baseDir, timeout, sf.log)
}

// createGitHubBackend handles github://owner/repo/dir?ref=main
func (sf *StorageFactory) createGitHubBackend(location interfaces.ObjectStoreLocation) (interfaces.ObjectStore, error) {
	repo, dir, _ := strings.Cut(strings.TrimPrefix(location.Path, "/"), "/")
	if location.Host == "" || repo == "" {
		return nil, fmt.Errorf("%w: expected github://owner/repo[/dir]", interfaces.ErrInvalidLocationURI)
	}
	return NewGitHubBackend(location.Host, repo, dir, location.GetParam("ref"), sf.log), nil
}
