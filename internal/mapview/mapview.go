// Package mapview defines the 2D map surface the sync controller draws on.
// The map is a non-owned external collaborator: the controller only ever
// creates, updates, and removes the features it authored itself.
package mapview

import (
	geom "github.com/peterstace/simplefeatures/geom"
)

// Pixel is a screen coordinate. Y grows downward.
type Pixel struct {
	X float64
	Y float64
}

// Style describes how a feature is drawn.
type Style struct {
	Icon        string  // external graphic for point features
	Scale       float64 // icon scale factor
	StrokeColor string  // css color for line features
	StrokeWidth float64
	FillColor   string
}

// Feature is one drawable map feature in map-projected coordinates.
// Rotation only applies to point features and is measured in degrees
// clockwise from screen-up.
type Feature struct {
	ID       string
	Geometry geom.Geometry
	Rotation float64
	Style    Style
}

// DragHandler receives drag gestures on a feature it was attached to.
// DragStart fires once when the gesture begins, DragMove on every pointer
// move until release.
type DragHandler interface {
	DragStart(featureID string)
	DragMove(featureID string, px Pixel)
}

// Map is the surface contract consumed by the sync controller.
type Map interface {
	// AddFeature inserts the feature, replacing any feature with the same ID.
	AddFeature(f Feature)
	// RemoveFeature removes the feature and is a no-op for unknown IDs.
	RemoveFeature(id string)
	// AttachDrag routes drag gestures on the feature to h.
	AttachDrag(id string, h DragHandler)
	// DetachDrag removes a drag routing and is a no-op for unknown IDs.
	DetachDrag(id string)
	// PixelToMap converts a screen pixel to map-projected coordinates.
	PixelToMap(px Pixel) (x, y float64)
	// MapToPixel converts map-projected coordinates to a screen pixel.
	MapToPixel(x, y float64) Pixel
	// Resolution returns the current map units per pixel.
	Resolution() float64
	// SRID returns the EPSG code of the map projection.
	SRID() int
}
