package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationCache_SetAndGet(t *testing.T) {
	cache := NewLocationCache(4)

	cache.Set(11.0168, 76.9558, "Coimbatore")

	label, ok := cache.Get(11.0168, 76.9558)
	require.True(t, ok)
	assert.Equal(t, "Coimbatore", label)
}

func TestLocationCache_RoundsNearbyPositions(t *testing.T) {
	cache := NewLocationCache(4)
	cache.Set(11.01681, 76.95579, "Coimbatore")

	label, ok := cache.Get(11.016798, 76.955812)
	require.True(t, ok, "positions within rounding precision share an entry")
	assert.Equal(t, "Coimbatore", label)

	_, ok = cache.Get(11.0178, 76.9558)
	assert.False(t, ok)
}

func TestLocationCache_Get_NotFound(t *testing.T) {
	cache := NewLocationCache(4)
	_, ok := cache.Get(0, 0)
	assert.False(t, ok)
}

func TestLocationCache_DeleteAndReset(t *testing.T) {
	cache := NewLocationCache(2)
	cache.Set(1, 2, "a")
	cache.Set(3, 4, "b")
	assert.Equal(t, 2, cache.Len())

	cache.Delete(1, 2)
	_, ok := cache.Get(1, 2)
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len())

	cache.Reset()
	assert.Zero(t, cache.Len())
}

func TestLocationCache_NegativePrecision(t *testing.T) {
	cache := NewLocationCache(-3)
	cache.Set(10.4, 20.4, "x")
	label, ok := cache.Get(10.1, 19.6)
	require.True(t, ok)
	assert.Equal(t, "x", label)
}

func TestLocationCache_Concurrent(t *testing.T) {
	cache := NewLocationCache(4)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			lat := float64(n) / 10
			cache.Set(lat, lat, fmt.Sprintf("p%d", n))
			cache.Get(lat, lat)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())
}
