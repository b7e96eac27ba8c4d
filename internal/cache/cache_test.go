package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoviewer/camsync/pkg/core"
)

func TestPoseCache_NewPoseCache(t *testing.T) {
	cache := NewPoseCache()

	require.NotNil(t, cache)
	assert.False(t, cache.Valid())

	_, ok := cache.Get()
	assert.False(t, ok, "expected empty cache to report no sample")
}

func TestPoseCache_SetAndGet(t *testing.T) {
	cache := NewPoseCache()

	sample := core.PoseSample{
		Time:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Frame:   42,
		Camera:  core.GeoPoint{Lon: 7.0, Lat: 47.0},
		LookAt:  core.GeoPoint{Lon: 7.01, Lat: 47.0},
		Tilt:    45,
		Heading: 270,
		Range:   2000,
	}

	cache.Set(sample)

	got, ok := cache.Get()
	require.True(t, ok, "expected to find a cached sample")
	assert.Equal(t, uint(42), got.Frame)
	assert.Equal(t, 7.01, got.LookAt.Lon)
	assert.Equal(t, float64(2000), got.Range)
	assert.True(t, cache.Valid())
}

func TestPoseCache_Overwrite(t *testing.T) {
	cache := NewPoseCache()

	cache.Set(core.PoseSample{Frame: 1, Range: 100})
	cache.Set(core.PoseSample{Frame: 2, Range: 200})

	got, ok := cache.Get()
	require.True(t, ok)
	assert.Equal(t, uint(2), got.Frame)
	assert.Equal(t, float64(200), got.Range)
}

func TestPoseCache_Reset(t *testing.T) {
	cache := NewPoseCache()

	cache.Set(core.PoseSample{Frame: 7})
	require.True(t, cache.Valid())

	cache.Reset()

	assert.False(t, cache.Valid())
	_, ok := cache.Get()
	assert.False(t, ok, "expected no sample after reset")

	// Verify we can still cache after reset
	cache.Set(core.PoseSample{Frame: 8})
	got, ok := cache.Get()
	require.True(t, ok, "expected to find sample set after reset")
	assert.Equal(t, uint(8), got.Frame)
}

func TestPoseCache_Concurrent(t *testing.T) {
	cache := NewPoseCache()
	var wg sync.WaitGroup

	// Concurrent writes
	for i := uint(0); i < 100; i++ {
		wg.Add(1)
		go func(frame uint) {
			defer wg.Done()
			cache.Set(core.PoseSample{Frame: frame})
		}(i)
	}
	wg.Wait()

	_, ok := cache.Get()
	assert.True(t, ok)

	// Concurrent reads
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.Get()
		}()
		go func() {
			defer wg.Done()
			cache.Valid()
		}()
	}
	wg.Wait()
}

// SafeCounter tests

func TestSafeCounter_InitialValue(t *testing.T) {
	c := &SafeCounter{}
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_Set(t *testing.T) {
	c := &SafeCounter{}

	c.Set(42)
	assert.Equal(t, int(42), c.Value())

	c.Set(100)
	assert.Equal(t, int(100), c.Value())

	c.Set(0)
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_Inc(t *testing.T) {
	c := &SafeCounter{}

	c.Inc()
	assert.Equal(t, int(1), c.Value())

	c.Inc()
	c.Inc()
	assert.Equal(t, int(3), c.Value())
}

func TestSafeCounter_Concurrent(t *testing.T) {
	c := &SafeCounter{}
	var wg sync.WaitGroup

	// Concurrent increments
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, int(1000), c.Value())
}
