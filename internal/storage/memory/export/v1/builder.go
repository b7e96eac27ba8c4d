package v1

import (
	"encoding/json"
	"time"

	"github.com/geoviewer/camsync/pkg/core"
)

// SessionData contains all the data needed to build an export
type SessionData struct {
	Session *core.Session
	EndTime time.Time

	PoseSamples   []core.PoseSample
	DragEvents    []core.DragEvent
	GeneralEvents []core.GeneralEvent
}

// Build creates an Export from the session data
func Build(data *SessionData) Export {
	export := Export{
		Addons: []string{},
		Poses:  make([][]any, 0, len(data.PoseSamples)),
		Drags:  make([][]any, 0, len(data.DragEvents)),
		Events: make([][]any, 0, len(data.GeneralEvents)),
	}

	if data.Session != nil {
		export.ServiceVersion = "1.0.0"
		export.SessionName = data.Session.Name
		export.EngineName = data.Session.EngineName
		export.ProjectionSRID = data.Session.ProjectionSRID
		export.GimbalThreshold = data.Session.GimbalThreshold
		export.Tag = data.Session.Tag
		if len(data.Session.Addons) > 0 {
			export.Addons = data.Session.Addons
		}
		if !data.Session.StartTime.IsZero() {
			export.StartTime = data.Session.StartTime.Format(time.RFC3339)
		}
	}

	var maxFrame uint = 0
	var lastTime time.Time

	// Convert pose samples
	// Format: [frameNum, [camLon, camLat], [lookLon, lookLat], tilt, heading, range, degenerate]
	for _, p := range data.PoseSamples {
		pose := []any{
			p.Frame,
			[]float64{p.Camera.Lon, p.Camera.Lat},
			[]float64{p.LookAt.Lon, p.LookAt.Lat},
			p.Tilt,
			p.Heading,
			p.Range,
			boolToInt(p.Degenerate),
		}
		export.Poses = append(export.Poses, pose)
		if p.Frame > maxFrame {
			maxFrame = p.Frame
		}
		if p.Time.After(lastTime) {
			lastTime = p.Time
		}
	}

	// Convert drag events
	// Format: [frameNum, marker, [lon, lat], heading, range, applied]
	for _, d := range data.DragEvents {
		drag := []any{
			d.Frame,
			string(d.Marker),
			[]float64{d.Drop.Lon, d.Drop.Lat},
			d.Heading,
			d.Range,
			boolToInt(d.Applied),
		}
		export.Drags = append(export.Drags, drag)
		if d.Frame > maxFrame {
			maxFrame = d.Frame
		}
		if d.Time.After(lastTime) {
			lastTime = d.Time
		}
	}

	// Convert general events
	// Format: [frameNum, "type", message] with extra data appended when present
	for _, evt := range data.GeneralEvents {
		// Try to parse message as JSON - if it's a valid JSON array/object,
		// use the parsed value, otherwise keep it as a string
		var message any = evt.Message
		if len(evt.Message) > 0 && (evt.Message[0] == '[' || evt.Message[0] == '{') {
			var parsed any
			if err := json.Unmarshal([]byte(evt.Message), &parsed); err == nil {
				message = parsed
			}
		}

		row := []any{
			evt.Frame,
			evt.Name,
			message,
		}
		if len(evt.ExtraData) > 0 {
			row = append(row, evt.ExtraData)
		}
		export.Events = append(export.Events, row)

		if evt.Frame > maxFrame {
			maxFrame = evt.Frame
		}
		if evt.Time.After(lastTime) {
			lastTime = evt.Time
		}
	}

	export.EndFrame = maxFrame
	export.Duration = duration(data, lastTime)

	return export
}

// duration derives the session length in seconds: the explicit end time when
// the session has ended, otherwise the time of the latest recorded row.
func duration(data *SessionData, lastTime time.Time) float64 {
	if data.Session == nil || data.Session.StartTime.IsZero() {
		return 0
	}
	switch {
	case !data.EndTime.IsZero():
		return data.EndTime.Sub(data.Session.StartTime).Seconds()
	case !lastTime.IsZero():
		return lastTime.Sub(data.Session.StartTime).Seconds()
	default:
		return 0
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
