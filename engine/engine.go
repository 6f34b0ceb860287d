package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/handles"
	"github.com/ruteri/ddssec-engine/handshake"
	"github.com/ruteri/ddssec-engine/identity"
	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/ruteri/ddssec-engine/keymaterial"
	"github.com/ruteri/ddssec-engine/storage"
)

// Pool names as reported by Pools and used as metric labels.
const (
	PoolIdentity     = "identity"
	PoolHandshake    = "handshake"
	PoolSharedSecret = "shared_secret"
	PoolKeyMaterial  = "key_material"
)

// Config sets the pool capacities.
type Config struct {
	IdentityCapacity     int
	HandshakeCapacity    int
	SharedSecretCapacity int
	KeyMaterialCapacity  int
}

// DefaultConfig returns the standard capacities: four identities, handshakes
// and shared secrets, and 256 key materials.
func DefaultConfig() Config {
	return Config{
		IdentityCapacity:     4,
		HandshakeCapacity:    4,
		SharedSecretCapacity: 4,
		KeyMaterialCapacity:  256,
	}
}

// Engine owns every handle pool and the scratch object slot. All methods are
// safe for concurrent use; a single mutex serializes them, so callers on
// different sessions share capacity and see each other's allocations.
type Engine struct {
	mu  sync.Mutex
	log *slog.Logger
	pki interfaces.PKI

	builtin interfaces.ObjectStore
	store   interfaces.ObjectStore
	objects storage.ObjectMemory

	identities *handles.Pool[identity.Identity]
	handshakes *handles.Pool[handshake.Handshake]
	secrets    *handles.Pool[handshake.SharedSecret]
	keys       *handles.Pool[keymaterial.KeyMaterial]
}

// New creates an engine. builtin serves fixed objects and store, which may be
// nil, serves persistent ones.
func New(cfg Config, pki interfaces.PKI, builtin, store interfaces.ObjectStore, log *slog.Logger) (*Engine, error) {
	if pki == nil {
		return nil, errors.New("engine: PKI is required")
	}
	if builtin == nil {
		return nil, errors.New("engine: builtin object store is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		log:        log,
		pki:        pki,
		builtin:    builtin,
		store:      store,
		identities: handles.NewPool(PoolIdentity, cfg.IdentityCapacity, (*identity.Identity).Wipe),
		handshakes: handles.NewPool(PoolHandshake, cfg.HandshakeCapacity, (*handshake.Handshake).Wipe),
		secrets:    handles.NewPool(PoolSharedSecret, cfg.SharedSecretCapacity, (*handshake.SharedSecret).Wipe),
		keys:       handles.NewPool(PoolKeyMaterial, cfg.KeyMaterialCapacity, (*keymaterial.KeyMaterial).Wipe),
	}, nil
}

// Pools reports the occupancy of every pool.
func (e *Engine) Pools() map[string]handles.Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	return map[string]handles.Info{
		PoolIdentity:     e.identities.Info(),
		PoolHandshake:    e.handshakes.Info(),
		PoolSharedSecret: e.secrets.Info(),
		PoolKeyMaterial:  e.keys.Info(),
	}
}

// Close wipes every handle and the scratch object.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.identities.Reset()
	e.handshakes.Reset()
	e.secrets.Reset()
	e.keys.Reset()
	e.objects.Unload()
}

// LoadObjectBuiltin loads a builtin object into the scratch slot.
func (e *Engine) LoadObjectBuiltin(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.objects.Load(ctx, e.builtin, name)
}

// LoadObjectStorage loads a persistent object into the scratch slot.
func (e *Engine) LoadObjectStorage(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return fmt.Errorf("%w: no persistent object store configured", interfaces.ErrBackendUnavailable)
	}
	return e.objects.Load(ctx, e.store, name)
}

// UnloadObject zeroes and releases the scratch slot.
func (e *Engine) UnloadObject() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.objects.Unload()
}

// ObjectStatus describes the scratch slot and the configured persistent store.
type ObjectStatus struct {
	Loaded bool   `json:"loaded"`
	Name   string `json:"name,omitempty"`
	Size   int    `json:"size"`
	Store  string `json:"store,omitempty"`
}

func (e *Engine) ObjectStatus() ObjectStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	var st ObjectStatus
	st.Name, st.Loaded = e.objects.Loaded()
	st.Size = e.objects.Size()
	if e.store != nil {
		st.Store = e.store.LocationURI()
	}
	return st
}

// fetchObject returns the named object from the scratch slot if it holds it,
// then from the persistent store, then from the builtin table.
// The caller holds e.mu.
func (e *Engine) fetchObject(ctx context.Context, name string) ([]byte, error) {
	if err := interfaces.ValidateObjectName(name); err != nil {
		return nil, err
	}
	if data, ok := e.objects.Get(name); ok {
		return data, nil
	}
	if e.store != nil {
		data, err := e.store.Load(ctx, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, interfaces.ErrObjectNotFound) {
			return nil, err
		}
	}
	return e.builtin.Load(ctx, name)
}

// AESEncrypt seals data in place under a raw key and returns the tag.
func (e *Engine) AESEncrypt(key, iv []byte, tagSize int, data []byte) ([]byte, error) {
	return cryptoutils.GCMSealInPlace(key, iv, tagSize, data)
}

// AESDecrypt opens data in place under a raw key. On failure data is unchanged.
func (e *Engine) AESDecrypt(key, iv, tag, data []byte) error {
	return cryptoutils.GCMOpenInPlace(key, iv, tag, data)
}
