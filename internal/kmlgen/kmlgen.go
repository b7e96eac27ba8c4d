// Package kmlgen exports a recorded session as a KML document: the camera
// track as range-colored placemarks, the look-at ground track as a line and
// drag edits as paddle markers.
package kmlgen

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	kml "github.com/twpayne/go-kml"
	"github.com/twpayne/go-kml/icon"

	"github.com/geoviewer/camsync/pkg/core"
)

// Config holds the export settings.
type Config struct {
	// OutputDir is where exported documents land.
	OutputDir string
	// Gradient names the color gradient for the camera track, keyed by
	// slant range. Unknown names fall back to turbo.
	Gradient string
}

// Document is a recorded session ready for export.
type Document struct {
	Session core.Session
	Poses   []core.PoseSample
	Drags   []core.DragEvent
}

// Exporter writes session documents using one gradient configuration.
type Exporter struct {
	cfg Config
}

// NewExporter creates an exporter.
func NewExporter(cfg Config) *Exporter {
	return &Exporter{cfg: cfg}
}

// Export writes the document to <OutputDir>/<name>_<start>.kml and returns
// the path.
func (e *Exporter) Export(doc Document) (string, error) {
	if err := os.MkdirAll(e.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	sessionName := strings.ReplaceAll(doc.Session.Name, " ", "_")
	sessionName = strings.ReplaceAll(sessionName, ":", "_")
	timestamp := doc.Session.StartTime.Format("20060102_150405")
	outputPath := filepath.Join(e.cfg.OutputDir, fmt.Sprintf("%s_%s.kml", sessionName, timestamp))

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := e.Write(f, doc); err != nil {
		return "", err
	}
	return outputPath, nil
}

// Write renders the document as KML.
func (e *Exporter) Write(w io.Writer, doc Document) error {
	if len(doc.Poses) == 0 {
		return fmt.Errorf("no pose samples to export")
	}

	grad := gradientByName(e.cfg.Gradient)
	lo, hi := rangeBounds(doc.Poses)

	d := kml.Folder(kml.Name(doc.Session.Name)).Add(kml.Open(true))
	d.Add(sessionData(doc))
	d.Add(kml.TimeSpan(
		kml.Begin(doc.Poses[0].Time),
		kml.End(doc.Poses[len(doc.Poses)-1].Time),
	))
	d.Add(gradStyles(grad)...)
	d.Add(lookAtTrack(doc.Poses))
	d.Add(cameraTrack(doc.Poses, lo, hi))
	if len(doc.Drags) > 0 {
		d.Add(dragMarks(doc.Drags))
	}

	k := kml.KML(d)
	if err := k.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write kml: %w", err)
	}
	return nil
}

// sessionData carries the session metadata as KML extended data.
func sessionData(doc Document) kml.Element {
	e := kml.ExtendedData(
		kml.Data(kml.Name("Engine"), kml.Value(doc.Session.EngineName)),
		kml.Data(kml.Name("Tag"), kml.Value(doc.Session.Tag)),
	)
	e.Add(kml.Data(kml.Name("Projection"),
		kml.Value(fmt.Sprintf("EPSG:%d", doc.Session.ProjectionSRID))))
	e.Add(kml.Data(kml.Name("Samples"),
		kml.Value(fmt.Sprintf("%d", len(doc.Poses)))))
	e.Add(kml.Data(kml.Name("Drags"),
		kml.Value(fmt.Sprintf("%d", len(doc.Drags)))))
	return e
}

// lookAtTrack is the look-at ground path as a plain line.
func lookAtTrack(poses []core.PoseSample) kml.Element {
	f := kml.Folder(kml.Name("Look-At Track")).Add(kml.Visibility(true))
	var points []kml.Coordinate
	for _, p := range poses {
		points = append(points, kml.Coordinate{Lon: p.LookAt.Lon, Lat: p.LookAt.Lat})
	}
	f.Add(kml.Placemark(
		kml.Style(
			kml.LineStyle(
				kml.Width(4.0),
				kml.Color(color.RGBA{R: 0xd0, G: 0xd0, B: 0xd0, A: 0x66}),
			),
		),
		kml.LineString(kml.Coordinates(points...)),
	))
	return f
}

// cameraTrack is one placemark per pose sample, styled by where the slant
// range falls between the recording's bounds.
func cameraTrack(poses []core.PoseSample, lo, hi float64) kml.Element {
	f := kml.Folder(kml.Name("Camera Track")).Add(kml.Visibility(true))
	total := len(poses)
	for i, p := range poses {
		alt := p.Range * math.Cos(p.Tilt*math.Pi/180)
		desc := fmt.Sprintf(
			"Point %d of %d<br/>Frame: %d<br/>Position: %.6f %.6f<br/>Tilt: %.1f°<br/>Heading: %.1f°<br/>Range: %.0fm<br/>",
			i+1, total, p.Frame, p.Camera.Lat, p.Camera.Lon, p.Tilt, p.Heading, p.Range)
		if p.Degenerate {
			desc += "Degenerate: overhead view<br/>"
		}
		f.Add(kml.Placemark(
			kml.Description(desc),
			kml.TimeStamp(kml.When(p.Time)),
			kml.StyleURL(gradStyleURL(normalize(p.Range, lo, hi))),
			kml.Point(
				kml.AltitudeMode(kml.AltitudeModeRelativeToGround),
				kml.Coordinates(kml.Coordinate{Lon: p.Camera.Lon, Lat: p.Camera.Lat, Alt: alt}),
			),
		))
	}
	return f
}

// dragMarks renders the recorded marker edits, green when applied and red
// when rejected.
func dragMarks(drags []core.DragEvent) kml.Element {
	f := kml.Folder(kml.Name("Drag Edits")).Add(kml.Visibility(false))
	for _, d := range drags {
		paddle := "grn-circle"
		outcome := "applied"
		if !d.Applied {
			paddle = "red-circle"
			outcome = "rejected"
		}
		desc := fmt.Sprintf("Marker: %s<br/>Outcome: %s<br/>Heading: %.1f°<br/>Range: %.0fm<br/>",
			d.Marker, outcome, d.Heading, d.Range)
		f.Add(kml.Placemark(
			kml.Name(fmt.Sprintf("%s drag @ frame %d", d.Marker, d.Frame)),
			kml.Description(desc),
			kml.TimeStamp(kml.When(d.Time)),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: d.Drop.Lon, Lat: d.Drop.Lat}),
			),
			kml.Style(
				kml.IconStyle(
					kml.Scale(0.8),
					kml.Icon(
						kml.Href(icon.PaddleHref(paddle)),
					),
				),
			),
		))
	}
	return f
}

// rangeBounds returns the slant range extremes over the recording.
func rangeBounds(poses []core.PoseSample) (lo, hi float64) {
	lo, hi = poses[0].Range, poses[0].Range
	for _, p := range poses[1:] {
		if p.Range < lo {
			lo = p.Range
		}
		if p.Range > hi {
			hi = p.Range
		}
	}
	return lo, hi
}

// normalize maps v into [0, 1] between lo and hi. A flat recording maps
// everything to 0.
func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	t := (v - lo) / (hi - lo)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
