// Package control implements the 2D/3D camera view synchronization core:
// it keeps the 2D map representation of a 3D camera pose (camera marker,
// look-at marker, connecting line) consistent with the live engine view, and
// translates marker drags back into engine view updates.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/geoviewer/camsync/internal/geo"
	"github.com/geoviewer/camsync/internal/mapview"
	"github.com/geoviewer/camsync/pkg/core"
	"github.com/geoviewer/camsync/pkg/engine"
)

// Feature IDs of the three map features the controller authors. The
// controller never touches any other feature on the map.
const (
	FeatureCamera = "camsync:camera"
	FeatureLookAt = "camsync:lookat"
	FeatureLine   = "camsync:line"
)

var (
	// ErrNotReady is returned when an operation needs a live engine handle
	// and none is set.
	ErrNotReady = errors.New("no live engine handle")
	// ErrAlreadyActive is returned by Activate on an active controller.
	ErrAlreadyActive = errors.New("controller already active")
)

// Recorder consumes committed pose syncs and drag edits off the hot path.
// Implementations must not block.
type Recorder interface {
	OnPose(sample core.PoseSample)
	OnDrag(event core.DragEvent)
}

// Config holds the tunable parts of the controller.
type Config struct {
	// GimbalThresholdDeg is the tilt below which the pose is treated as
	// degenerate. Defaults to 1 degree.
	GimbalThresholdDeg float64
	// MinDragDistanceM rejects camera drags that land closer than this to
	// the anchored look-at point, where no bearing can be derived.
	// Defaults to 0.1 m.
	MinDragDistanceM float64

	CameraStyle mapview.Style
	LookAtStyle mapview.Style
	LineStyle   mapview.Style
}

// DefaultConfig returns the stock controller configuration.
func DefaultConfig() Config {
	return Config{
		GimbalThresholdDeg: 1.0,
		MinDragDistanceM:   0.1,
		CameraStyle:        mapview.Style{Icon: "camera.png", Scale: 1},
		LookAtStyle:        mapview.Style{Icon: "crosshair.png", Scale: 1},
		LineStyle:          mapview.Style{StrokeColor: "#ff6600", StrokeWidth: 2},
	}
}

// Dependencies are the injected collaborators of the controller.
type Dependencies struct {
	Map      mapview.Map
	Logger   *slog.Logger
	Recorder Recorder // optional
}

// renderState is the change-detection snapshot of the last committed sync.
type renderState struct {
	valid        bool
	camX, camY   float64
	lookX, lookY float64
	degenerate   bool
	pose         core.CameraPose
}

// dragAnchor is captured at drag start and stays fixed for the gesture.
type dragAnchor struct {
	lookAt     core.GeoPoint
	rangeM     float64
	tilt       float64
	heading    float64
	degenerate bool
}

// Controller is the camera view synchronization control. It owns exactly
// three map features and one frame-end subscription on the current engine;
// the engine handle and the map are shared, non-owned references.
type Controller struct {
	deps Dependencies
	cfg  Config

	m          sync.Mutex
	handle     engine.Handle
	active     bool
	listenerID int

	last          renderState
	anchor        dragAnchor
	flyToSpeedSet bool

	framesSeen      uint64
	framesCommitted uint64
	dragsApplied    uint64
	dragsRejected   uint64

	// OTEL metrics
	framesMetric metric.Int64Counter
	dragsMetric  metric.Int64Counter
}

// Snapshot is the controller status surface consumed by the monitor and the
// :STATUS: command.
type Snapshot struct {
	Active          bool
	Ready           bool
	Degenerate      bool
	FramesSeen      uint64
	FramesCommitted uint64
	DragsApplied    uint64
	DragsRejected   uint64
	Pose            core.CameraPose
	PoseValid       bool
}

// New creates a controller. The map is required; the logger defaults to
// slog.Default and the recorder may be nil.
func New(deps Dependencies, cfg Config) (*Controller, error) {
	if deps.Map == nil {
		return nil, fmt.Errorf("control: map is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.GimbalThresholdDeg == 0 {
		cfg.GimbalThresholdDeg = 1.0
	}
	if cfg.MinDragDistanceM == 0 {
		cfg.MinDragDistanceM = 0.1
	}

	c := &Controller{
		deps: deps,
		cfg:  cfg,
	}

	m := meter()
	var err error
	c.framesMetric, err = m.Int64Counter(
		"sync.frames",
		metric.WithDescription("Frame-end notifications, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}
	c.dragsMetric, err = m.Int64Counter(
		"sync.drags",
		metric.WithDescription("Marker drag edits, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating drags counter: %w", err)
	}

	return c, nil
}

// SetEngine replaces the active engine reference. While active, the old
// frame-end subscription is detached, the new handle is subscribed, and an
// immediate resynchronization runs. A nil handle simply detaches.
func (c *Controller) SetEngine(h engine.Handle) {
	c.m.Lock()
	defer c.m.Unlock()

	if c.active && c.handle != nil {
		c.handle.RemoveFrameEndListener(c.listenerID)
	}
	c.handle = h
	// the teleport flag belongs to the engine it was set on
	c.flyToSpeedSet = false

	if h == nil {
		c.deps.Logger.Debug("engine handle cleared")
		return
	}
	if c.active {
		c.listenerID = h.AddFrameEndListener(c.frameEnd)
		c.deps.Logger.Info("engine handle swapped, resynchronizing")
		c.syncLocked()
	}
}

// Reconfigure swaps the tunables at runtime, applying the same zero-value
// coercion as New. While active the features are re-rendered immediately so
// new styles and the new threshold take effect without a restart.
func (c *Controller) Reconfigure(cfg Config) {
	if cfg.GimbalThresholdDeg == 0 {
		cfg.GimbalThresholdDeg = 1.0
	}
	if cfg.MinDragDistanceM == 0 {
		cfg.MinDragDistanceM = 0.1
	}

	c.m.Lock()
	defer c.m.Unlock()

	c.cfg = cfg
	c.last = renderState{}
	if c.active && c.handle != nil {
		c.syncLocked()
	}
	c.deps.Logger.Info("controller reconfigured",
		"gimbalThresholdDeg", cfg.GimbalThresholdDeg,
		"minDragDistanceM", cfg.MinDragDistanceM)
}

// Activate attaches the controller to the map and the engine: adds the
// three features, routes marker drags, subscribes to frame-end and performs
// an initial sync. Returns ErrNotReady without a live engine handle and
// ErrAlreadyActive if already active.
func (c *Controller) Activate() error {
	c.m.Lock()
	defer c.m.Unlock()

	if c.active {
		return ErrAlreadyActive
	}
	if c.handle == nil {
		return ErrNotReady
	}

	c.active = true
	c.flyToSpeedSet = false
	c.last = renderState{}

	router := markerDrag{c: c}
	c.deps.Map.AttachDrag(FeatureCamera, router)
	c.deps.Map.AttachDrag(FeatureLookAt, router)
	c.listenerID = c.handle.AddFrameEndListener(c.frameEnd)

	c.syncLocked()
	c.deps.Logger.Info("controller activated")
	return nil
}

// Deactivate detaches the frame-end subscription and drag routings and
// removes the three features. Idempotent.
func (c *Controller) Deactivate() {
	c.m.Lock()
	defer c.m.Unlock()

	if !c.active {
		return
	}
	if c.handle != nil {
		c.handle.RemoveFrameEndListener(c.listenerID)
	}
	c.deps.Map.DetachDrag(FeatureCamera)
	c.deps.Map.DetachDrag(FeatureLookAt)
	c.deps.Map.RemoveFeature(FeatureCamera)
	c.deps.Map.RemoveFeature(FeatureLookAt)
	c.deps.Map.RemoveFeature(FeatureLine)

	c.active = false
	c.flyToSpeedSet = false
	c.last = renderState{}
	c.deps.Logger.Info("controller deactivated")
}

// Snapshot returns the current controller status.
func (c *Controller) Snapshot() Snapshot {
	c.m.Lock()
	defer c.m.Unlock()
	return Snapshot{
		Active:          c.active,
		Ready:           c.handle != nil,
		Degenerate:      c.last.degenerate,
		FramesSeen:      c.framesSeen,
		FramesCommitted: c.framesCommitted,
		DragsApplied:    c.dragsApplied,
		DragsRejected:   c.dragsRejected,
		Pose:            c.last.pose,
		PoseValid:       c.last.valid,
	}
}

// frameEnd is the engine's per-frame notification. It must stay cheap: one
// pose readout, change detection, and feature writes only when something
// moved.
func (c *Controller) frameEnd() {
	c.m.Lock()
	defer c.m.Unlock()
	if !c.active || c.handle == nil {
		return
	}
	c.framesSeen++
	c.framesMetric.Add(context.Background(), 1, metricOutcome("seen"))
	c.syncLocked()
}

// syncLocked recomputes the pose from the engine and commits it to the map
// features if anything changed. Callers hold c.m.
func (c *Controller) syncLocked() {
	pose, ok := c.readPoseLocked()
	if !ok {
		return
	}

	degenerate := pose.Degenerate(c.cfg.GimbalThresholdDeg)
	camX, camY := geo.To3857(pose.Camera)
	lookX, lookY := geo.To3857(pose.LookAt)

	if c.last.valid &&
		c.last.degenerate == degenerate &&
		c.last.camX == camX && c.last.camY == camY &&
		c.last.lookX == lookX && c.last.lookY == lookY {
		return
	}

	// marker rotation: in the degenerate case the screen bearing is
	// meaningless, fall back to the engine heading; otherwise derive it
	// from the projected pixels so it matches the map visually
	var rotation float64
	if degenerate {
		rotation = pose.Heading
	} else {
		camPx := c.deps.Map.MapToPixel(camX, camY)
		lookPx := c.deps.Map.MapToPixel(lookX, lookY)
		rotation = geo.PixelBearing(camPx.X, camPx.Y, lookPx.X, lookPx.Y)
	}

	c.deps.Map.AddFeature(mapview.Feature{
		ID:       FeatureCamera,
		Geometry: geo.PointFromXY(camX, camY).AsGeometry(),
		Rotation: rotation,
		Style:    c.cfg.CameraStyle,
	})
	if degenerate {
		c.deps.Map.RemoveFeature(FeatureLookAt)
		c.deps.Map.RemoveFeature(FeatureLine)
	} else {
		c.deps.Map.AddFeature(mapview.Feature{
			ID:       FeatureLookAt,
			Geometry: geo.PointFromXY(lookX, lookY).AsGeometry(),
			Style:    c.cfg.LookAtStyle,
		})
		c.deps.Map.AddFeature(mapview.Feature{
			ID:       FeatureLine,
			Geometry: geo.Line3857(camX, camY, lookX, lookY).AsGeometry(),
			Style:    c.cfg.LineStyle,
		})
	}

	c.last = renderState{
		valid: true,
		camX:  camX, camY: camY,
		lookX: lookX, lookY: lookY,
		degenerate: degenerate,
		pose:       pose,
	}
	c.framesCommitted++
	c.framesMetric.Add(context.Background(), 1, metricOutcome("committed"))

	if c.deps.Recorder != nil {
		c.deps.Recorder.OnPose(core.PoseSample{
			Time:       time.Now(),
			Frame:      uint(c.framesSeen),
			Camera:     pose.Camera,
			LookAt:     pose.LookAt,
			Tilt:       pose.Tilt,
			Heading:    pose.Heading,
			Range:      pose.Range,
			Degenerate: degenerate,
		})
	}
}

// readPoseLocked assembles the combined pose from the engine's two view
// readouts. Callers hold c.m.
func (c *Controller) readPoseLocked() (core.CameraPose, bool) {
	cam := c.handle.ViewAsCamera()
	look := c.handle.ViewAsLookAt()
	pose := core.CameraPose{
		Camera:  cam.Position,
		LookAt:  look.Position,
		Tilt:    look.Tilt,
		Heading: look.Heading,
		Range:   look.Range,
	}
	if err := pose.Validate(); err != nil {
		c.deps.Logger.Debug("skipping invalid pose", "error", err)
		return pose, false
	}
	return pose, true
}

// dragStart captures the gesture anchor and switches the engine to
// instantaneous transitions once per activation, so drag pushes land
// without animated easing.
func (c *Controller) dragStart() {
	c.m.Lock()
	defer c.m.Unlock()
	if !c.active || c.handle == nil {
		return
	}

	cam := c.handle.ViewAsCamera()
	look := c.handle.ViewAsLookAt()
	degenerate := look.Tilt < c.cfg.GimbalThresholdDeg

	// in the degenerate zone dividing by sin(tilt) would blow up the
	// range, keep the engine's own readout instead
	rangeM := look.Range
	if !degenerate {
		rangeM = geo.SlantRange(geo.Distance(cam.Position, look.Position), look.Tilt)
	}

	c.anchor = dragAnchor{
		lookAt:     look.Position,
		rangeM:     rangeM,
		tilt:       look.Tilt,
		heading:    look.Heading,
		degenerate: degenerate,
	}

	if !c.flyToSpeedSet {
		if err := c.handle.SetTransitionSpeed(core.TransitionInstant); err != nil {
			c.deps.Logger.Warn("failed to set transition speed", "error", err)
		} else {
			c.flyToSpeedSet = true
		}
	}
}

// dragMove handles one pointer move of an active gesture: the dropped pixel
// becomes a geographic point and an updated abstract view is pushed to the
// engine.
func (c *Controller) dragMove(marker core.MarkerKind, px mapview.Pixel) {
	c.m.Lock()
	defer c.m.Unlock()
	if !c.active || c.handle == nil {
		return
	}

	x, y := c.deps.Map.PixelToMap(px)
	drop := geo.From3857(x, y)

	event := core.DragEvent{
		Time:       time.Now(),
		Frame:      uint(c.framesSeen),
		Marker:     marker,
		Drop:       drop,
		Heading:    c.anchor.heading,
		Range:      c.anchor.rangeM,
		Degenerate: c.anchor.degenerate,
	}

	if marker == core.MarkerLookAt || c.anchor.degenerate {
		// the dropped point becomes the new look-at, range and heading
		// stay anchored
		event.Applied = c.pushViewLocked(core.AbstractView{
			LookAt:  drop,
			Tilt:    c.anchor.tilt,
			Heading: c.anchor.heading,
			Range:   c.anchor.rangeM,
		})
	} else {
		// camera drag: look-at stays anchored, heading and range are
		// rederived from the dropped point
		ground := geo.Distance(drop, c.anchor.lookAt)
		if ground < c.cfg.MinDragDistanceM {
			// no bearing can be derived this close to the look-at point
			c.deps.Logger.Debug("rejecting zero-distance camera drag",
				"distance", ground)
			event.Applied = false
		} else {
			heading := -geo.Bearing(drop, c.anchor.lookAt)
			if heading < 0 {
				heading += 360
			}
			rangeM := geo.SlantRange(ground, c.anchor.tilt)
			event.Heading = heading
			event.Range = rangeM
			event.Applied = c.pushViewLocked(core.AbstractView{
				LookAt:  c.anchor.lookAt,
				Tilt:    c.anchor.tilt,
				Heading: heading,
				Range:   rangeM,
			})
		}
	}

	if event.Applied {
		c.dragsApplied++
		c.dragsMetric.Add(context.Background(), 1, metricOutcome("applied"))
	} else {
		c.dragsRejected++
		c.dragsMetric.Add(context.Background(), 1, metricOutcome("rejected"))
	}

	if c.deps.Recorder != nil {
		c.deps.Recorder.OnDrag(event)
	}
}

// pushViewLocked applies an abstract view to the engine. Failures are
// absorbed: the frame loop must keep running.
func (c *Controller) pushViewLocked(view core.AbstractView) bool {
	if err := c.handle.ApplyView(view); err != nil {
		c.deps.Logger.Error("failed to apply view", "error", err)
		return false
	}
	return true
}

// markerDrag routes map drag gestures into the controller.
type markerDrag struct {
	c *Controller
}

var _ mapview.DragHandler = markerDrag{}

func (d markerDrag) DragStart(featureID string) {
	d.c.dragStart()
}

func (d markerDrag) DragMove(featureID string, px mapview.Pixel) {
	switch featureID {
	case FeatureCamera:
		d.c.dragMove(core.MarkerCamera, px)
	case FeatureLookAt:
		d.c.dragMove(core.MarkerLookAt, px)
	}
}

func metricOutcome(outcome string) metric.AddOption {
	return metric.WithAttributes(outcomeAttr(outcome))
}
