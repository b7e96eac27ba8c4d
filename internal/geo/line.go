package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Line3857 builds the two-point connector geometry between projected
// coordinates.
func Line3857(x1, y1, x2, y2 float64) geom.LineString {
	seq := geom.NewSequence([]float64{x1, y1, x2, y2}, geom.DimXY)
	return geom.NewLineString(seq)
}

// LineFromXYs builds a LineString from projected coordinate pairs.
// Used by the session exporter to assemble camera tracks.
func LineFromXYs(coords [][2]float64) (geom.LineString, error) {
	if len(coords) < 2 {
		return geom.LineString{}, fmt.Errorf("line must have at least 2 points, got %d", len(coords))
	}
	flatCoords := make([]float64, 0, len(coords)*2)
	for _, coord := range coords {
		flatCoords = append(flatCoords, coord[0], coord[1])
	}
	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}
