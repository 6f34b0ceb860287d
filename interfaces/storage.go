package interfaces

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// MaxObjectNameLen bounds object names, terminator included.
const MaxObjectNameLen = 64

// ValidateObjectName checks that name is non-empty, has no NUL byte and fits
// in MaxObjectNameLen bytes once terminated.
func ValidateObjectName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty object name", ErrBadParameters)
	}
	if len(name) >= MaxObjectNameLen {
		return fmt.Errorf("%w: object name longer than %d bytes", ErrBadParameters, MaxObjectNameLen-1)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: object name contains NUL", ErrBadParameters)
	}
	return nil
}

// ObjectStoreLocation represents URI for an object store.
type ObjectStoreLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewObjectStoreLocation creates a new store location from a URI string with validation.
func NewObjectStoreLocation(uri string) (ObjectStoreLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return ObjectStoreLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "builtin", "file", "sqlite", "redis", "vault", "s3", "ipfs", "github":
	default:
		return ObjectStoreLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return ObjectStoreLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc ObjectStoreLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc ObjectStoreLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc ObjectStoreLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

// ObjectStore provides name-addressed blob storage for identity objects.
type ObjectStore interface {
	// Load retrieves an object by name. Returns ErrObjectNotFound if absent.
	Load(ctx context.Context, name string) ([]byte, error)

	// Store saves an object under name, replacing any previous value.
	Store(ctx context.Context, name string, data []byte) error

	// Available checks if the store is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this store.
	LocationURI() string
}

// ObjectStoreFactory creates object stores.
type ObjectStoreFactory interface {
	// StoreFor creates a store from a location.
	StoreFor(location ObjectStoreLocation) (ObjectStore, error)

	// CreateMultiStore creates a store that falls back across locations in order.
	CreateMultiStore(locations []ObjectStoreLocation) (ObjectStore, error)
}
