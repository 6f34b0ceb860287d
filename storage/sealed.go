package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/interfaces"
)

// SealedStore encrypts objects before handing them to an inner store. The
// object name is bound as associated data so a sealed blob cannot be replayed
// under another name.
type SealedStore struct {
	inner      interfaces.ObjectStore
	passphrase []byte
}

// NewSealedStore wraps inner. The passphrase is copied.
func NewSealedStore(inner interfaces.ObjectStore, passphrase []byte) (*SealedStore, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: empty sealing passphrase", interfaces.ErrBadParameters)
	}
	return &SealedStore{
		inner:      inner,
		passphrase: append([]byte(nil), passphrase...),
	}, nil
}

// Load fetches and unseals the object.
func (s *SealedStore) Load(ctx context.Context, name string) ([]byte, error) {
	sealed, err := s.inner.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := cryptoutils.Unseal(s.passphrase, []byte(name), sealed)
	if errors.Is(err, cryptoutils.ErrUnseal) {
		return nil, fmt.Errorf("%w: %s: %w", interfaces.ErrSecurity, name, err)
	}
	return data, err
}

// Store seals and writes the object.
func (s *SealedStore) Store(ctx context.Context, name string, data []byte) error {
	if err := interfaces.ValidateObjectName(name); err != nil {
		return err
	}
	sealed, err := cryptoutils.Seal(s.passphrase, []byte(name), data)
	if err != nil {
		return err
	}
	return s.inner.Store(ctx, name, sealed)
}

func (s *SealedStore) Available(ctx context.Context) bool { return s.inner.Available(ctx) }

func (s *SealedStore) Name() string { return "sealed-" + s.inner.Name() }

func (s *SealedStore) LocationURI() string { return s.inner.LocationURI() }
