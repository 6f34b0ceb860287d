package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/interfaces"
)

// MaxObjectSize bounds a single object held in ObjectMemory.
const MaxObjectSize = 2 << 16

// ObjectMemory is a single scratch slot for one loaded object. A second load
// fails until the slot is unloaded. It is not safe for concurrent use.
type ObjectMemory struct {
	name   string
	data   []byte
	loaded bool
}

// Load fetches name from store into the slot.
func (m *ObjectMemory) Load(ctx context.Context, store interfaces.ObjectStore, name string) error {
	if err := interfaces.ValidateObjectName(name); err != nil {
		return err
	}
	if m.loaded {
		return fmt.Errorf("%w: object %q already loaded", interfaces.ErrOutOfMemory, m.name)
	}
	data, err := store.Load(ctx, name)
	if err != nil {
		return err
	}
	if len(data) > MaxObjectSize {
		cryptoutils.Wipe(data)
		return fmt.Errorf("%w: object %q is %d bytes, limit %d", interfaces.ErrOverflow, name, len(data), MaxObjectSize)
	}
	m.name = name
	m.data = data
	m.loaded = true
	return nil
}

// Get returns a copy of the loaded object if it was loaded under name.
func (m *ObjectMemory) Get(name string) ([]byte, bool) {
	if !m.loaded || m.name != name {
		return nil, false
	}
	return bytes.Clone(m.data), true
}

// Loaded returns the name of the loaded object.
func (m *ObjectMemory) Loaded() (string, bool) {
	return m.name, m.loaded
}

// Size returns the length of the loaded object, or 0.
func (m *ObjectMemory) Size() int {
	return len(m.data)
}

// Unload zeroes and releases the slot. Unloading an empty slot is a no-op.
func (m *ObjectMemory) Unload() {
	cryptoutils.Wipe(m.data)
	*m = ObjectMemory{}
}
