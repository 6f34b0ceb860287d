package handles

import (
	"fmt"

	"github.com/ruteri/ddssec-engine/interfaces"
)

// Info reports the occupancy of a pool.
type Info struct {
	Capacity  uint32 `json:"capacity"`
	Allocated uint32 `json:"allocated"`
}

type slot[T any] struct {
	initialized bool
	payload     T
}

// Pool is a fixed-capacity arena of payloads addressed by dense int32 indices.
// A Pool is not safe for concurrent use; the engine serializes access.
type Pool[T any] struct {
	name      string
	slots     []slot[T]
	allocated uint32
	wipe      func(*T)
}

// NewPool creates a pool of the given capacity. wipe, if not nil, is called on
// a payload before its slot is released and must zero any secret it owns.
func NewPool[T any](name string, capacity int, wipe func(*T)) *Pool[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Pool[T]{
		name:  name,
		slots: make([]slot[T], capacity),
		wipe:  wipe,
	}
}

// Name returns the pool name used in logs and metrics.
func (p *Pool[T]) Name() string {
	return p.name
}

// Create stores payload in the lowest free slot and returns its index.
func (p *Pool[T]) Create(payload T) (interfaces.HandleID, error) {
	for i := range p.slots {
		if p.slots[i].initialized {
			continue
		}
		p.slots[i].payload = payload
		p.slots[i].initialized = true
		p.allocated++
		return interfaces.HandleID(i), nil
	}
	return interfaces.InvalidHandle, fmt.Errorf("%w: %s pool holds %d handles", interfaces.ErrCapacityExhausted, p.name, len(p.slots))
}

// Get returns a pointer to the payload at id. The pointer is valid until the
// slot is deleted.
func (p *Pool[T]) Get(id interfaces.HandleID) (*T, error) {
	if id < 0 || int(id) >= len(p.slots) || !p.slots[id].initialized {
		return nil, fmt.Errorf("%w: %s handle %d", interfaces.ErrNotFound, p.name, id)
	}
	return &p.slots[id].payload, nil
}

// Delete wipes the payload at id and frees the slot. Deleting an index that is
// not live is an error.
func (p *Pool[T]) Delete(id interfaces.HandleID) error {
	payload, err := p.Get(id)
	if err != nil {
		return err
	}
	if p.wipe != nil {
		p.wipe(payload)
	}
	var zero T
	p.slots[id].payload = zero
	p.slots[id].initialized = false
	p.allocated--
	return nil
}

// Info returns the pool capacity and the number of live handles.
func (p *Pool[T]) Info() Info {
	return Info{
		Capacity:  uint32(len(p.slots)),
		Allocated: p.allocated,
	}
}

// Each calls fn for every live handle in index order until fn returns false.
func (p *Pool[T]) Each(fn func(id interfaces.HandleID, payload *T) bool) {
	for i := range p.slots {
		if !p.slots[i].initialized {
			continue
		}
		if !fn(interfaces.HandleID(i), &p.slots[i].payload) {
			return
		}
	}
}

// Reset deletes every live handle.
func (p *Pool[T]) Reset() {
	p.Each(func(id interfaces.HandleID, _ *T) bool {
		_ = p.Delete(id)
		return true
	})
}
