package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/geoviewer/camsync/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Geographic positions are EPSG:4326 (lon/lat degrees). Map features and
// stored samples use EPSG:3857 so the projected coordinates match what the
// map surface renders and what SQLite can round-trip as plain numbers.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PointFromString parses a "lon,lat" or "lon,lat,elev" string into a
// core.GeoPoint, returning the elevation separately.
func PointFromString(coords string) (point core.GeoPoint, elev float64, err error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.GeoPoint{}, 0, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.GeoPoint{}, 0, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.GeoPoint{}, 0, ErrInvalidCoordinates
	}
	if len(coordsSplit) > 2 {
		elev, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.GeoPoint{}, 0, ErrInvalidCoordinates
		}
	}
	return core.GeoPoint{Lon: lon, Lat: lat}, elev, nil
}

// To3857 projects a geographic point to Web Mercator.
func To3857(p core.GeoPoint) (x, y float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(p.Lon, p.Lat, 0)
	return x, y
}

// From3857 unprojects Web Mercator coordinates back to lon/lat.
func From3857(x, y float64) core.GeoPoint {
	epsg := wgs84.EPSG()
	f := epsg.Transform(3857, 4326)
	lon, lat, _ := f(x, y, 0)
	return core.GeoPoint{Lon: lon, Lat: lat}
}

// Point3857 projects a geographic point and wraps it as geometry.
func Point3857(p core.GeoPoint) geom.Point {
	x, y := To3857(p)
	return geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
			Z:  0,
		},
	)
}

// PointFromXY wraps already-projected coordinates as geometry.
func PointFromXY(x, y float64) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
			Z:  0,
		},
	)
}
