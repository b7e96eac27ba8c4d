// Package convert provides functions to convert GORM models to core models
package convert

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/geoviewer/camsync/internal/geo"
	"github.com/geoviewer/camsync/internal/model"
	"github.com/geoviewer/camsync/pkg/core"
)

// pointToGeoPoint unprojects a web mercator geom.Point back to lon/lat
func pointToGeoPoint(p geom.Point) core.GeoPoint {
	coord, ok := p.Coordinates()
	if !ok {
		return core.GeoPoint{}
	}
	return geo.From3857(coord.XY.X, coord.XY.Y)
}

// addonsFromJSON decodes the stored addon list.
func addonsFromJSON(data []byte) []string {
	var addons []string
	if len(data) > 0 {
		_ = json.Unmarshal(data, &addons)
	}
	return addons
}

// extraDataFromJSON decodes the stored event payload.
func extraDataFromJSON(data []byte) map[string]any {
	var extra map[string]any
	if len(data) > 0 {
		_ = json.Unmarshal(data, &extra)
	}
	return extra
}

// SessionToCore converts a GORM Session to a core.Session.
// GORM Session.ID maps to core Session.ID.
func SessionToCore(s model.Session) core.Session {
	return core.Session{
		ID:              s.ID,
		Name:            s.Name,
		EngineName:      s.EngineName,
		ProjectionSRID:  s.ProjectionSRID,
		GimbalThreshold: s.GimbalThreshold,
		StartTime:       s.StartTime,
		Tag:             s.Tag,
		Addons:          addonsFromJSON(s.Addons),
	}
}

// PoseSampleToCore converts a GORM PoseSample to a core.PoseSample.
func PoseSampleToCore(p model.PoseSample) core.PoseSample {
	return core.PoseSample{
		Time:       p.Time,
		Frame:      p.CaptureFrame,
		Camera:     pointToGeoPoint(p.CameraPosition),
		LookAt:     pointToGeoPoint(p.LookAtPosition),
		Tilt:       p.Tilt,
		Heading:    p.Heading,
		Range:      p.ViewRange,
		Degenerate: p.Degenerate,
	}
}

// DragEventToCore converts a GORM DragEvent to a core.DragEvent.
func DragEventToCore(d model.DragEvent) core.DragEvent {
	return core.DragEvent{
		Time:       d.Time,
		Frame:      d.CaptureFrame,
		Marker:     core.MarkerKind(d.Marker),
		Drop:       pointToGeoPoint(d.DropPosition),
		Heading:    d.Heading,
		Range:      d.ViewRange,
		Degenerate: d.Degenerate,
		Applied:    d.Applied,
	}
}

// GeneralEventToCore converts a GORM GeneralEvent to a core.GeneralEvent.
func GeneralEventToCore(g model.GeneralEvent) core.GeneralEvent {
	return core.GeneralEvent{
		Time:      g.Time,
		Frame:     g.CaptureFrame,
		Name:      g.Name,
		Message:   g.Message,
		ExtraData: extraDataFromJSON(g.ExtraData),
	}
}
