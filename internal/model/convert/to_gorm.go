// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/geoviewer/camsync/internal/geo"
	"github.com/geoviewer/camsync/internal/model"
	"github.com/geoviewer/camsync/pkg/core"
)

// geoPointToPoint projects a lon/lat core.GeoPoint into a web mercator geom.Point
func geoPointToPoint(p core.GeoPoint) geom.Point {
	return geo.Point3857(p)
}

// addonsToJSON converts a []string to datatypes.JSON for DB storage.
func addonsToJSON(addons []string) datatypes.JSON {
	if len(addons) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(addons)
	return datatypes.JSON(data)
}

// extraDataToJSON converts an event payload map to datatypes.JSON for DB storage.
func extraDataToJSON(extra map[string]any) datatypes.JSON {
	if len(extra) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(extra)
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
// The database ID is left unset so Create can assign it.
func CoreToSession(s core.Session) model.Session {
	return model.Session{
		Name:            s.Name,
		EngineName:      s.EngineName,
		ProjectionSRID:  s.ProjectionSRID,
		GimbalThreshold: s.GimbalThreshold,
		StartTime:       s.StartTime,
		Tag:             s.Tag,
		Addons:          addonsToJSON(s.Addons),
	}
}

// CoreToPoseSample converts a core.PoseSample to a GORM model.PoseSample.
// SessionID is stamped by the write path, not here.
func CoreToPoseSample(p core.PoseSample) model.PoseSample {
	return model.PoseSample{
		Time:           p.Time,
		CaptureFrame:   p.Frame,
		CameraPosition: geoPointToPoint(p.Camera),
		LookAtPosition: geoPointToPoint(p.LookAt),
		Tilt:           p.Tilt,
		Heading:        p.Heading,
		ViewRange:      p.Range,
		Degenerate:     p.Degenerate,
	}
}

// CoreToDragEvent converts a core.DragEvent to a GORM model.DragEvent.
func CoreToDragEvent(d core.DragEvent) model.DragEvent {
	return model.DragEvent{
		Time:         d.Time,
		CaptureFrame: d.Frame,
		Marker:       string(d.Marker),
		DropPosition: geoPointToPoint(d.Drop),
		Heading:      d.Heading,
		ViewRange:    d.Range,
		Degenerate:   d.Degenerate,
		Applied:      d.Applied,
	}
}

// CoreToGeneralEvent converts a core.GeneralEvent to a GORM model.GeneralEvent.
func CoreToGeneralEvent(g core.GeneralEvent) model.GeneralEvent {
	return model.GeneralEvent{
		Time:         g.Time,
		CaptureFrame: g.Frame,
		Name:         g.Name,
		Message:      g.Message,
		ExtraData:    extraDataToJSON(g.ExtraData),
	}
}
