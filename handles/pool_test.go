package handles

import (
	"testing"

	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type secret struct {
	key []byte
}

func TestPool_LowestFreeIndex(t *testing.T) {
	pool := NewPool[secret]("test", 4, nil)

	for want := int32(0); want < 3; want++ {
		id, err := pool.Create(secret{})
		require.NoError(t, err)
		assert.Equal(t, want, id, "ids should be allocated sequentially")
	}

	require.NoError(t, pool.Delete(1))
	id, err := pool.Create(secret{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), id, "deleted slot should be reused first")

	id, err = pool.Create(secret{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), id)
}

func TestPool_CapacityExhausted(t *testing.T) {
	pool := NewPool[secret]("test", 2, nil)

	_, err := pool.Create(secret{})
	require.NoError(t, err)
	_, err = pool.Create(secret{})
	require.NoError(t, err)

	id, err := pool.Create(secret{})
	assert.ErrorIs(t, err, interfaces.ErrCapacityExhausted)
	assert.Equal(t, interfaces.InvalidHandle, id)
	assert.Equal(t, Info{Capacity: 2, Allocated: 2}, pool.Info())
}

func TestPool_DeleteUnknown(t *testing.T) {
	pool := NewPool[secret]("test", 2, nil)

	tests := []struct {
		name string
		id   int32
	}{
		{"never created", 0},
		{"negative", -1},
		{"out of range", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, pool.Delete(tt.id), interfaces.ErrNotFound)
			_, err := pool.Get(tt.id)
			assert.ErrorIs(t, err, interfaces.ErrNotFound)
		})
	}

	id, err := pool.Create(secret{})
	require.NoError(t, err)
	require.NoError(t, pool.Delete(id))
	assert.ErrorIs(t, pool.Delete(id), interfaces.ErrNotFound, "double delete must fail")
}

func TestPool_WipeOnDelete(t *testing.T) {
	var wiped []byte
	pool := NewPool[secret]("test", 1, func(s *secret) {
		for i := range s.key {
			s.key[i] = 0
		}
		wiped = s.key
	})

	key := []byte{1, 2, 3, 4}
	id, err := pool.Create(secret{key: key})
	require.NoError(t, err)

	got, err := pool.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.key)

	require.NoError(t, pool.Delete(id))
	assert.Equal(t, []byte{0, 0, 0, 0}, key, "secret must be zeroed before release")
	assert.Equal(t, []byte{0, 0, 0, 0}, wiped)
}

func TestPool_InfoTracksLiveHandles(t *testing.T) {
	pool := NewPool[secret]("test", 8, nil)
	live := 0
	for i := 0; i < 5; i++ {
		_, err := pool.Create(secret{})
		require.NoError(t, err)
		live++
		assert.Equal(t, uint32(live), pool.Info().Allocated)
	}
	require.NoError(t, pool.Delete(2))
	require.NoError(t, pool.Delete(4))
	assert.Equal(t, Info{Capacity: 8, Allocated: 3}, pool.Info())

	var ids []int32
	pool.Each(func(id int32, _ *secret) bool {
		ids = append(ids, id)
		return true
	})
	assert.Equal(t, []int32{0, 1, 3}, ids)

	pool.Reset()
	assert.Equal(t, uint32(0), pool.Info().Allocated)
}
