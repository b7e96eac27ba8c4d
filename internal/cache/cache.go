package cache

import (
	"sync"

	"github.com/geoviewer/camsync/pkg/core"
)

// PoseCache holds the most recently observed camera pose so status reporting
// can read it without a db round trip. Latency in these calls is critical
// because Set runs on the frame-end path.
type PoseCache struct {
	m      sync.RWMutex
	valid  bool
	latest core.PoseSample
}

func NewPoseCache() *PoseCache {
	return &PoseCache{}
}

// Set replaces the cached sample.
func (c *PoseCache) Set(s core.PoseSample) {
	c.m.Lock()
	c.latest = s
	c.valid = true
	c.m.Unlock()
}

// Get returns the cached sample and whether one has been set since the last reset.
func (c *PoseCache) Get() (core.PoseSample, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.latest, c.valid
}

// Valid reports whether a sample has been cached since the last reset.
func (c *PoseCache) Valid() bool {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.valid
}

// Reset invalidates the cached sample.
func (c *PoseCache) Reset() {
	c.m.Lock()
	c.latest = core.PoseSample{}
	c.valid = false
	c.m.Unlock()
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
