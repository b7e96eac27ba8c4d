// pkg/core/pose.go
package core

import "fmt"

// CameraPose is the combined camera/look-at pose recomputed on every sync.
// It is ephemeral: derived from the engine's two view readouts, consumed by
// the map-side rendering, and never stored by the controller beyond the
// change-detection snapshot.
type CameraPose struct {
	Camera  GeoPoint
	LookAt  GeoPoint
	Tilt    float64 // degrees from nadir, [0, 90]
	Heading float64 // degrees clockwise from north
	Range   float64 // meters, camera to look-at, > 0
}

// Validate checks the pose invariants.
func (p CameraPose) Validate() error {
	if p.Range <= 0 {
		return fmt.Errorf("pose range must be positive, got %f", p.Range)
	}
	if p.Tilt < 0 || p.Tilt > 90 {
		return fmt.Errorf("pose tilt must be in [0, 90], got %f", p.Tilt)
	}
	return nil
}

// Degenerate reports whether the pose sits in the gimbal-lock zone for the
// given threshold: the camera is (near) directly above the look-at point and
// heading/range cannot be derived from on-screen drag deltas.
func (p CameraPose) Degenerate(thresholdDeg float64) bool {
	return p.Tilt < thresholdDeg
}
