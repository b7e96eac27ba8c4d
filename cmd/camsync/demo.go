package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/geoviewer/camsync/internal/config"
	"github.com/geoviewer/camsync/internal/control"
	"github.com/geoviewer/camsync/internal/dispatcher"
	"github.com/geoviewer/camsync/internal/geo"
	"github.com/geoviewer/camsync/internal/storage"
	"github.com/geoviewer/camsync/pkg/core"
)

// demoStops are the views the demo flies the engine through, all around the
// stock start position so they stay inside the demo canvas.
var demoStops = []struct {
	name string
	view core.AbstractView
}{
	{"brandenburg gate", core.AbstractView{LookAt: core.GeoPoint{Lon: 13.377704, Lat: 52.516275}, Tilt: 60, Heading: 0, Range: 750}},
	{"museum island", core.AbstractView{LookAt: core.GeoPoint{Lon: 13.401810, Lat: 52.521918}, Tilt: 55, Heading: 120, Range: 900}},
	{"tempelhof field", core.AbstractView{LookAt: core.GeoPoint{Lon: 13.401667, Lat: 52.473056}, Tilt: 45, Heading: 210, Range: 1500}},
	{"overhead survey", core.AbstractView{LookAt: core.GeoPoint{Lon: 13.377704, Lat: 52.516275}, Tilt: 0.5, Heading: 0, Range: 2000}},
}

// dispatchDemoEvent pushes one command through the dispatcher the same way a
// host application would.
func dispatchDemoEvent(command string, args []string) {
	if eventDispatcher == nil {
		return
	}
	if _, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	}); err != nil {
		Logger.Warn("Demo command failed", "command", command, "error", err)
	}
}

// populateDemoData drives the full pipeline end to end without a host
// application: it starts a recording session over the command surface, lets
// the simulated engine orbit, flies it across a few landmarks including a
// near-vertical pass, and replays the marker drags an operator would make
// on the map.
func populateDemoData() {
	addonsJSON, _ := json.Marshal([]string{"camsync-demo"})

	dispatchDemoEvent(":SESSION:START:", []string{
		"Demo Flight",
		config.GetEngineConfig().Name,
		"3857",
		strconv.FormatFloat(config.GetControlConfig().GimbalThresholdDeg, 'f', -1, 64),
		"Demo",
		string(addonsJSON),
	})

	dispatchDemoEvent(":ENGINE:SET:", nil)
	dispatchDemoEvent(":ACTIVATE:", nil)

	// let the orbit lay down a baseline track
	time.Sleep(3 * time.Second)

	for _, stop := range demoStops {
		dispatchDemoEvent(":EVENT:", []string{"waypoint", stop.name})
		dispatchDemoEvent(":ENGINE:VIEW:", viewArgs(stop.view))
		time.Sleep(2 * time.Second)
	}

	// an operator nudging the markers on the map
	dragLookAtBy(600, 400)
	time.Sleep(1 * time.Second)
	dragCameraBy(-900, 300)
	time.Sleep(1 * time.Second)
	// a drop straight onto the look-at point gets discarded
	dragCameraOntoLookAt()
	time.Sleep(1 * time.Second)

	snap := controller.Snapshot()
	Logger.Info("Demo pipeline status",
		"framesSeen", snap.FramesSeen,
		"framesCommitted", snap.FramesCommitted,
		"dragsApplied", snap.DragsApplied,
		"dragsRejected", snap.DragsRejected)

	dispatchDemoEvent(":METRIC:", []string{
		"camsync_engine",
		"demo_flight",
		"tag::engine::" + config.GetEngineConfig().Name,
		"field::int::frames_committed::" + strconv.FormatUint(snap.FramesCommitted, 10),
		"field::int::drags_applied::" + strconv.FormatUint(snap.DragsApplied, 10),
	})

	dispatchDemoEvent(":DEACTIVATE:", nil)
	dispatchDemoEvent(":SESSION:END:", nil)
	dispatchDemoEvent(":EXPORT:KML:", nil)

	uploadDemoRecording()
}

// viewArgs renders a view as the wire layout :ENGINE:VIEW: expects:
// lon, lat, altitude, tilt, heading, range.
func viewArgs(v core.AbstractView) []string {
	return []string{
		strconv.FormatFloat(v.LookAt.Lon, 'f', -1, 64),
		strconv.FormatFloat(v.LookAt.Lat, 'f', -1, 64),
		strconv.FormatFloat(v.Altitude, 'f', -1, 64),
		strconv.FormatFloat(v.Tilt, 'f', -1, 64),
		strconv.FormatFloat(v.Heading, 'f', -1, 64),
		strconv.FormatFloat(v.Range, 'f', -1, 64),
	}
}

// dragLookAtBy drags the look-at marker by map-meter offsets from its
// current position, the way an operator drops it on a new target.
func dragLookAtBy(dxM, dyM float64) {
	eng := currentEngine()
	if eng == nil {
		return
	}
	x, y := geo.To3857(eng.ViewAsLookAt().Position)
	canvas.BeginDrag(control.FeatureLookAt)
	canvas.DragTo(control.FeatureLookAt, canvas.MapToPixel(x+dxM, y+dyM))
}

// dragCameraBy drags the camera marker by map-meter offsets from its
// current ground position.
func dragCameraBy(dxM, dyM float64) {
	eng := currentEngine()
	if eng == nil {
		return
	}
	x, y := geo.To3857(eng.ViewAsCamera().Position)
	canvas.BeginDrag(control.FeatureCamera)
	canvas.DragTo(control.FeatureCamera, canvas.MapToPixel(x+dxM, y+dyM))
}

// dragCameraOntoLookAt drops the camera marker exactly on the look-at
// point, which the controller rejects as geometrically meaningless.
func dragCameraOntoLookAt() {
	eng := currentEngine()
	if eng == nil {
		return
	}
	x, y := geo.To3857(eng.ViewAsLookAt().Position)
	canvas.BeginDrag(control.FeatureCamera)
	canvas.DragTo(control.FeatureCamera, canvas.MapToPixel(x, y))
}

// uploadDemoRecording pushes the exported session file to the replay
// frontend when one is reachable.
func uploadDemoRecording() {
	uploadable, ok := storageBackend.(storage.Uploadable)
	if !ok {
		return
	}
	path := uploadable.GetExportedFilePath()
	if path == "" {
		return
	}
	if err := apiClient.Healthcheck(); err != nil {
		Logger.Info("Replay frontend offline, keeping export local", "path", path)
		return
	}
	if err := apiClient.Upload(path, uploadable.GetExportMetadata()); err != nil {
		Logger.Error("Failed to upload recording", "error", err)
		return
	}
	Logger.Info("Uploaded recording", "path", path)
	fmt.Println("Demo recording uploaded from", path)
}
