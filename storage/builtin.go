package storage

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/ruteri/ddssec-engine/interfaces"
)

// BuiltinStore serves a fixed name to bytes table compiled into or handed to
// the process at startup. It is read-only.
type BuiltinStore struct {
	objects map[string][]byte
}

// NewBuiltinStore copies objects into a new read-only store.
func NewBuiltinStore(objects map[string][]byte) (*BuiltinStore, error) {
	table := make(map[string][]byte, len(objects))
	for name, data := range objects {
		if err := interfaces.ValidateObjectName(name); err != nil {
			return nil, fmt.Errorf("builtin object %q: %w", name, err)
		}
		table[name] = bytes.Clone(data)
	}
	return &BuiltinStore{objects: table}, nil
}

// Load returns a copy of the named object.
func (s *BuiltinStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := interfaces.ValidateObjectName(name); err != nil {
		return nil, err
	}
	data, ok := s.objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrObjectNotFound, name)
	}
	return bytes.Clone(data), nil
}

// Store always fails.
func (s *BuiltinStore) Store(ctx context.Context, name string, data []byte) error {
	return fmt.Errorf("%w: builtin objects are fixed", interfaces.ErrReadOnlyStore)
}

func (s *BuiltinStore) Available(ctx context.Context) bool { return true }

func (s *BuiltinStore) Name() string { return "builtin" }

func (s *BuiltinStore) LocationURI() string { return "builtin://" }

// Names lists the objects in the table, sorted.
func (s *BuiltinStore) Names() []string {
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
