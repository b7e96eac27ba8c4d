// pkg/engine/engine.go
package engine

import "github.com/geoviewer/camsync/pkg/core"

// Handle is a live 3D engine reference. The sync controller treats it as a
// non-owned external collaborator: it may be swapped at runtime, and the
// controller only ever holds the subscriptions it created itself.
//
// Frame-end listeners are invoked by the engine after each rendered frame,
// at an unbounded rate. Implementations must call listeners from a single
// goroutine at a time.
type Handle interface {
	// ViewAsCamera returns the current view as a camera-centric pose.
	ViewAsCamera() core.CameraView
	// ViewAsLookAt returns the current view as a target-centric pose.
	ViewAsLookAt() core.LookAtView
	// ApplyView pushes an abstract view into the engine. The engine settles
	// on it and emits a frame-end notification of its own.
	ApplyView(view core.AbstractView) error
	// SetTransitionSpeed switches between eased and instantaneous view
	// transitions.
	SetTransitionSpeed(speed core.TransitionSpeed) error
	// AddFrameEndListener subscribes fn to frame-end notifications and
	// returns a token for removal.
	AddFrameEndListener(fn func()) int
	// RemoveFrameEndListener unsubscribes a previously added listener.
	// Unknown tokens are ignored.
	RemoveFrameEndListener(id int)
}

// Named is implemented by engines that can report a human-readable name,
// used to label recording sessions.
type Named interface {
	Name() string
}
