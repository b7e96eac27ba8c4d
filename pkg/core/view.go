// pkg/core/view.go
package core

import "fmt"

// GeoPoint is a geographic position in EPSG:4326 (longitude, latitude in degrees).
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lon, p.Lat)
}

// TransitionSpeed controls how the 3D engine animates view changes.
type TransitionSpeed float64

const (
	// TransitionDefault lets the engine ease between views at its own pace.
	TransitionDefault TransitionSpeed = -1
	// TransitionInstant teleports the view with no animated easing.
	TransitionInstant TransitionSpeed = 0
)

// CameraView is the engine's camera-centric readout of the current view.
type CameraView struct {
	Position GeoPoint
	Altitude float64 // meters above terrain
	Tilt     float64 // degrees from nadir
	Heading  float64 // degrees clockwise from north
}

// LookAtView is the engine's target-centric readout of the current view.
type LookAtView struct {
	Position GeoPoint
	Altitude float64 // meters above terrain
	Tilt     float64 // degrees from nadir
	Heading  float64 // degrees clockwise from north
	Range    float64 // camera to target distance in meters
}

// AbstractView is the serializable pose pushed back into the engine:
// a look-at point plus orientation and range. The engine derives the
// camera position from it.
type AbstractView struct {
	LookAt   GeoPoint
	Altitude float64
	Tilt     float64
	Heading  float64
	Range    float64
}
