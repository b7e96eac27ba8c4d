package geo

import (
	"math"
	"testing"

	"github.com/geoviewer/camsync/pkg/core"
)

func TestDistance_OneDegreeAlongEquator(t *testing.T) {
	d := Distance(core.GeoPoint{Lon: 0, Lat: 0}, core.GeoPoint{Lon: 1, Lat: 0})

	// one degree of longitude on the equator is a*pi/180
	want := semiMajorAxis * math.Pi / 180
	if math.Abs(d-want) > 0.01 {
		t.Errorf("expected %f m, got %f m", want, d)
	}
}

func TestDistance_OneDegreeAlongMeridian(t *testing.T) {
	d := Distance(core.GeoPoint{Lon: 0, Lat: 0}, core.GeoPoint{Lon: 0, Lat: 1})

	// meridian arc from the equator to 1 degree latitude
	if math.Abs(d-110574.4) > 1.0 {
		t.Errorf("expected ~110574.4 m, got %f m", d)
	}
}

func TestDistance_CoincidentPoints(t *testing.T) {
	p := core.GeoPoint{Lon: 7.0, Lat: 47.0}

	d := Distance(p, p)
	if d != 0 {
		t.Errorf("expected 0 for coincident points, got %f", d)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := core.GeoPoint{Lon: 7.0, Lat: 47.0}
	b := core.GeoPoint{Lon: 7.01, Lat: 47.0}

	if d1, d2 := Distance(a, b), Distance(b, a); math.Abs(d1-d2) > 1e-6 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistance_HundredthDegreeAtLat47(t *testing.T) {
	d := Distance(core.GeoPoint{Lon: 7.0, Lat: 47.0}, core.GeoPoint{Lon: 7.01, Lat: 47.0})

	// 0.01 degree of longitude at 47N is roughly 760.6 m
	if d < 755 || d > 766 {
		t.Errorf("expected ~760.6 m, got %f m", d)
	}
}

func TestBearing_CardinalDirections(t *testing.T) {
	origin := core.GeoPoint{Lon: 0, Lat: 0}

	cases := []struct {
		name string
		to   core.GeoPoint
		want float64
	}{
		{"north", core.GeoPoint{Lon: 0, Lat: 1}, 0},
		{"east", core.GeoPoint{Lon: 1, Lat: 0}, 90},
		{"south", core.GeoPoint{Lon: 0, Lat: -1}, 180},
		{"west", core.GeoPoint{Lon: -1, Lat: 0}, 270},
	}
	for _, tc := range cases {
		got := Bearing(origin, tc.to)
		if math.Abs(got-tc.want) > 0.001 {
			t.Errorf("%s: expected bearing %f, got %f", tc.name, tc.want, got)
		}
	}
}

func TestBearing_NearEastAtLat47(t *testing.T) {
	brg := Bearing(core.GeoPoint{Lon: 7.0, Lat: 47.0}, core.GeoPoint{Lon: 7.01, Lat: 47.0})

	// geodesics bow poleward, so the initial bearing sits just north of east
	if math.Abs(brg-90) > 0.05 {
		t.Errorf("expected bearing near 90, got %f", brg)
	}
	if brg >= 90 {
		t.Errorf("expected bearing slightly below 90, got %f", brg)
	}
}

func TestDestination_RoundTripsWithInverse(t *testing.T) {
	start := core.GeoPoint{Lon: 7.0, Lat: 47.0}

	dest := Destination(start, 37.0, 5000.0)

	if d := Distance(start, dest); math.Abs(d-5000.0) > 0.01 {
		t.Errorf("expected distance 5000 m to destination, got %f", d)
	}
	if brg := Bearing(start, dest); math.Abs(brg-37.0) > 0.001 {
		t.Errorf("expected bearing 37 to destination, got %f", brg)
	}
}

func TestDestination_ZeroDistance(t *testing.T) {
	start := core.GeoPoint{Lon: 7.0, Lat: 47.0}

	if dest := Destination(start, 123.0, 0); dest != start {
		t.Errorf("expected start point back, got %v", dest)
	}
}

func TestDestination_DueNorth(t *testing.T) {
	start := core.GeoPoint{Lon: 7.0, Lat: 47.0}

	dest := Destination(start, 0, 10000.0)

	if math.Abs(dest.Lon-start.Lon) > 1e-9 {
		t.Errorf("expected longitude unchanged heading north, got %f", dest.Lon)
	}
	if dest.Lat <= start.Lat {
		t.Errorf("expected latitude to increase heading north, got %f", dest.Lat)
	}
}

func TestSlantRange_VerticalTilt(t *testing.T) {
	// at 90 degrees tilt the camera looks along the ground, range == ground
	if r := SlantRange(1000, 90); math.Abs(r-1000) > 1e-9 {
		t.Errorf("expected 1000, got %f", r)
	}
}

func TestSlantRange_FortyFiveDegrees(t *testing.T) {
	r := SlantRange(1000, 45)

	want := 1000 * math.Sqrt2
	if math.Abs(r-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, r)
	}
}

func TestSlantRange_GroundDistanceRoundTrip(t *testing.T) {
	for _, tilt := range []float64{5, 30, 45, 60, 89} {
		ground := 1234.5
		if back := GroundDistance(SlantRange(ground, tilt), tilt); math.Abs(back-ground) > 1e-9 {
			t.Errorf("tilt %f: expected %f, got %f", tilt, ground, back)
		}
	}
}

func TestPixelBearing_ScreenDirections(t *testing.T) {
	cases := []struct {
		name   string
		x2, y2 float64
		want   float64
	}{
		{"up", 0, -10, 0},
		{"right", 10, 0, 90},
		{"down", 0, 10, 180},
		{"left", -10, 0, 270},
		{"upper-right", 10, -10, 45},
	}
	for _, tc := range cases {
		got := PixelBearing(0, 0, tc.x2, tc.y2)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: expected %f, got %f", tc.name, tc.want, got)
		}
	}
}
