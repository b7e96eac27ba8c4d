// pkg/core/session.go
package core

import "time"

// Session represents one recording session: the lifetime of an activated
// controller against one engine, from :SESSION:START: to :SESSION:END:.
type Session struct {
	ID              uint
	Name            string
	EngineName      string
	ProjectionSRID  int
	GimbalThreshold float64
	StartTime       time.Time
	Tag             string
	Addons          []string
}

// MarkerKind identifies which of the two draggable markers an event refers to.
type MarkerKind string

const (
	MarkerCamera MarkerKind = "camera"
	MarkerLookAt MarkerKind = "lookat"
)

// PoseSample is one committed pose sync, recorded after change detection
// let it through.
type PoseSample struct {
	Time       time.Time
	Frame      uint
	Camera     GeoPoint
	LookAt     GeoPoint
	Tilt       float64
	Heading    float64
	Range      float64
	Degenerate bool
}

// DragEvent is one user edit on a marker: the drop position and the view
// values derived from it. Applied is false when the drag was rejected
// (zero-distance guard) and nothing was pushed to the engine.
type DragEvent struct {
	Time       time.Time
	Frame      uint
	Marker     MarkerKind
	Drop       GeoPoint
	Heading    float64
	Range      float64
	Degenerate bool
	Applied    bool
}

// GeneralEvent is a free-form session annotation.
type GeneralEvent struct {
	Time      time.Time
	Frame     uint
	Name      string
	Message   string
	ExtraData map[string]any
}
