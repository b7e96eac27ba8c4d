package mapview

import (
	"sync"
)

// Canvas is the in-process Map implementation. It keeps features and drag
// routings in guarded maps and simulates pointer gestures for the demo and
// for drag-driven callers. Write counts per feature feed the performance
// monitor.
type Canvas struct {
	m        sync.Mutex
	features map[string]Feature
	handlers map[string]DragHandler
	writes   map[string]int

	originX    float64 // map x of pixel (0,0)
	originY    float64 // map y of pixel (0,0), top edge
	resolution float64 // map units per pixel
	srid       int
}

var _ Map = (*Canvas)(nil)

// NewCanvas creates a canvas whose top-left pixel sits at the given
// projected origin with the given resolution.
func NewCanvas(originX, originY, resolution float64) *Canvas {
	return &Canvas{
		features:   make(map[string]Feature),
		handlers:   make(map[string]DragHandler),
		writes:     make(map[string]int),
		originX:    originX,
		originY:    originY,
		resolution: resolution,
		srid:       3857,
	}
}

func (c *Canvas) AddFeature(f Feature) {
	c.m.Lock()
	defer c.m.Unlock()
	c.features[f.ID] = f
	c.writes[f.ID]++
}

func (c *Canvas) RemoveFeature(id string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.features, id)
}

func (c *Canvas) AttachDrag(id string, h DragHandler) {
	c.m.Lock()
	defer c.m.Unlock()
	c.handlers[id] = h
}

func (c *Canvas) DetachDrag(id string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.handlers, id)
}

func (c *Canvas) PixelToMap(px Pixel) (x, y float64) {
	c.m.Lock()
	defer c.m.Unlock()
	return c.originX + px.X*c.resolution, c.originY - px.Y*c.resolution
}

func (c *Canvas) MapToPixel(x, y float64) Pixel {
	c.m.Lock()
	defer c.m.Unlock()
	return Pixel{
		X: (x - c.originX) / c.resolution,
		Y: (c.originY - y) / c.resolution,
	}
}

func (c *Canvas) Resolution() float64 {
	c.m.Lock()
	defer c.m.Unlock()
	return c.resolution
}

func (c *Canvas) SRID() int {
	return c.srid
}

// Feature returns the stored feature by ID.
func (c *Canvas) Feature(id string) (Feature, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	f, ok := c.features[id]
	return f, ok
}

// HasFeature reports whether a feature is currently on the canvas.
func (c *Canvas) HasFeature(id string) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.features[id]
	return ok
}

// FeatureCount returns the number of features on the canvas.
func (c *Canvas) FeatureCount() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.features)
}

// WriteCount returns how many times the feature has been added or replaced.
func (c *Canvas) WriteCount(id string) int {
	c.m.Lock()
	defer c.m.Unlock()
	return c.writes[id]
}

// TotalWrites returns the total feature write count across all features.
func (c *Canvas) TotalWrites() int {
	c.m.Lock()
	defer c.m.Unlock()
	total := 0
	for _, n := range c.writes {
		total += n
	}
	return total
}

// HasDragHandler reports whether a drag routing exists for the feature.
func (c *Canvas) HasDragHandler(id string) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.handlers[id]
	return ok
}

// BeginDrag simulates a pointer-down gesture on the feature. The handler
// runs outside the canvas lock so it may mutate features freely.
func (c *Canvas) BeginDrag(id string) {
	c.m.Lock()
	h, ok := c.handlers[id]
	c.m.Unlock()
	if ok {
		h.DragStart(id)
	}
}

// DragTo simulates a pointer-move gesture dropping the feature at px.
func (c *Canvas) DragTo(id string, px Pixel) {
	c.m.Lock()
	h, ok := c.handlers[id]
	c.m.Unlock()
	if ok {
		h.DragMove(id, px)
	}
}
