// Package sim provides a simulated 3D engine for demos and tests: a frame
// loop that orbits a look-at point and answers the view readouts a real
// globe renderer would.
package sim

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/geoviewer/camsync/internal/channel"
	"github.com/geoviewer/camsync/internal/geo"
	"github.com/geoviewer/camsync/pkg/core"
	"github.com/geoviewer/camsync/pkg/engine"
)

const (
	defaultFrameInterval = 33 * time.Millisecond
	pendingViewBuffer    = 16
)

// Config holds the tunable parts of the simulated engine.
type Config struct {
	// Name labels recording sessions started against this engine.
	// Defaults to "globe-sim".
	Name string
	// FrameInterval is the wall-clock period of the frame loop. Defaults
	// to 33ms.
	FrameInterval time.Duration
	// OrbitDegPerFrame advances the heading by this many degrees on every
	// frame. Zero leaves the view stationary.
	OrbitDegPerFrame float64
	// InitialView seeds the engine state. A zero Range falls back to
	// DefaultView.
	InitialView core.AbstractView
}

// DefaultConfig returns the stock demo configuration: a slow orbit over the
// default view.
func DefaultConfig() Config {
	return Config{
		Name:             "globe-sim",
		FrameInterval:    defaultFrameInterval,
		OrbitDegPerFrame: 0.5,
		InitialView:      DefaultView(),
	}
}

// DefaultView is the pose the engine boots with when none is configured.
func DefaultView() core.AbstractView {
	return core.AbstractView{
		LookAt:  core.GeoPoint{Lon: 13.377704, Lat: 52.516275},
		Tilt:    60,
		Heading: 0,
		Range:   750,
	}
}

// Engine is a simulated 3D engine handle. It renders nothing: each frame
// applies pending view pushes, advances the orbit and notifies frame-end
// listeners, which is all a sync client observes of a real engine anyway.
type Engine struct {
	cfg Config

	m         sync.Mutex
	view      core.AbstractView
	speed     core.TransitionSpeed
	listeners map[int]func()
	nextID    int
	frames    uint64

	pending  channel.Channel[core.AbstractView]
	stopChan chan struct{}
	wg       sync.WaitGroup
}

var (
	_ engine.Handle = (*Engine)(nil)
	_ engine.Named  = (*Engine)(nil)
)

// New creates a simulated engine. Zero config fields fall back to the
// defaults; the frame loop does not run until Start.
func New(cfg Config) *Engine {
	if cfg.Name == "" {
		cfg.Name = "globe-sim"
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = defaultFrameInterval
	}
	if cfg.InitialView.Range <= 0 {
		cfg.InitialView = DefaultView()
	}
	return &Engine{
		cfg:       cfg,
		view:      cfg.InitialView,
		speed:     core.TransitionDefault,
		listeners: make(map[int]func()),
		pending:   channel.New[core.AbstractView](pendingViewBuffer),
		stopChan:  make(chan struct{}),
	}
}

// Name returns the engine name used to label recording sessions.
func (e *Engine) Name() string {
	return e.cfg.Name
}

// ViewAsCamera returns the camera-centric readout of the current view.
func (e *Engine) ViewAsCamera() core.CameraView {
	e.m.Lock()
	defer e.m.Unlock()
	return cameraFromView(e.view)
}

// ViewAsLookAt returns the target-centric readout of the current view.
func (e *Engine) ViewAsLookAt() core.LookAtView {
	e.m.Lock()
	defer e.m.Unlock()
	return core.LookAtView{
		Position: e.view.LookAt,
		Altitude: e.view.Altitude,
		Tilt:     e.view.Tilt,
		Heading:  e.view.Heading,
		Range:    e.view.Range,
	}
}

// ApplyView queues an abstract view for the next frame. The view lands when
// the frame runs, followed by the frame-end notification.
func (e *Engine) ApplyView(view core.AbstractView) error {
	if view.Range <= 0 {
		return fmt.Errorf("view range must be positive, got %f", view.Range)
	}
	if view.Tilt < 0 || view.Tilt > 90 {
		return fmt.Errorf("view tilt must be in [0, 90], got %f", view.Tilt)
	}

	e.m.Lock()
	defer e.m.Unlock()
	// the length check is reliable under the mutex: the frame loop only
	// ever shrinks the buffer
	if e.pending.Len() >= pendingViewBuffer {
		return fmt.Errorf("pending view buffer full")
	}
	e.pending.Send(view)
	return nil
}

// SetTransitionSpeed records the transition mode. The simulation teleports
// either way; the knob only exists so clients can exercise it.
func (e *Engine) SetTransitionSpeed(speed core.TransitionSpeed) error {
	e.m.Lock()
	defer e.m.Unlock()
	e.speed = speed
	return nil
}

// TransitionSpeed returns the last speed set, TransitionDefault initially.
func (e *Engine) TransitionSpeed() core.TransitionSpeed {
	e.m.Lock()
	defer e.m.Unlock()
	return e.speed
}

// AddFrameEndListener subscribes fn to frame-end notifications.
func (e *Engine) AddFrameEndListener(fn func()) int {
	e.m.Lock()
	defer e.m.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners[id] = fn
	return id
}

// RemoveFrameEndListener unsubscribes a listener. Unknown ids are ignored.
func (e *Engine) RemoveFrameEndListener(id int) {
	e.m.Lock()
	defer e.m.Unlock()
	delete(e.listeners, id)
}

// Frames returns the number of frames rendered so far.
func (e *Engine) Frames() uint64 {
	e.m.Lock()
	defer e.m.Unlock()
	return e.frames
}

// Step renders a single frame: pending views are applied, the orbit
// advances and frame-end listeners run. The background loop calls it on
// every tick; without a running loop it can be driven manually.
func (e *Engine) Step() {
	e.m.Lock()
	for {
		select {
		case view := <-e.pending.Receive():
			e.view = view
			continue
		default:
		}
		break
	}
	e.view.Heading = normalizeHeading(e.view.Heading + e.cfg.OrbitDegPerFrame)
	e.frames++

	// listeners read views back through the engine, so they must run
	// outside the mutex
	notify := make([]func(), 0, len(e.listeners))
	for _, fn := range e.listeners {
		notify = append(notify, fn)
	}
	e.m.Unlock()

	for _, fn := range notify {
		fn()
	}
}

// Start launches the frame loop goroutine.
func (e *Engine) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.cfg.FrameInterval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stopChan:
				return
			case <-ticker.C:
				e.Step()
			}
		}
	}()
}

// Stop terminates the frame loop.
func (e *Engine) Stop() {
	close(e.stopChan)
	e.wg.Wait()
}

// cameraFromView derives the camera placement from an abstract view. The
// camera sits on the ground circle around the look-at point at the bearing
// -heading+180, so that looking back at the target reads out the stored
// heading again under the map's negated-bearing convention.
func cameraFromView(view core.AbstractView) core.CameraView {
	ground := geo.GroundDistance(view.Range, view.Tilt)
	tiltRad := view.Tilt * math.Pi / 180
	return core.CameraView{
		Position: geo.Destination(view.LookAt, -view.Heading+180, ground),
		Altitude: view.Altitude + view.Range*math.Cos(tiltRad),
		Tilt:     view.Tilt,
		Heading:  view.Heading,
	}
}

func normalizeHeading(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
