package geo

import (
	"math"

	"github.com/geoviewer/camsync/pkg/core"
)

// WGS84 ellipsoid.
const (
	semiMajorAxis = 6378137.0
	flattening    = 1.0 / 298.257223563
	semiMinorAxis = semiMajorAxis * (1 - flattening)

	// mean earth radius for the spherical fallback
	earthRadius = 6371008.8

	vincentyTolerance  = 1e-12
	vincentyIterations = 100
)

// Distance returns the ellipsoidal ground distance in meters between two
// geographic points, using the iterative Vincenty inverse formula. Points
// near the antipode can fail to converge; those fall back to the spherical
// law of cosines.
func Distance(from, to core.GeoPoint) float64 {
	d, _, ok := vincentyInverse(from, to)
	if !ok {
		return sphericalDistance(from, to)
	}
	return d
}

// Bearing returns the initial bearing in degrees from one geographic point
// toward another, clockwise from north, normalized to [0, 360).
func Bearing(from, to core.GeoPoint) float64 {
	_, brg, ok := vincentyInverse(from, to)
	if !ok {
		return sphericalBearing(from, to)
	}
	return normalizeDeg(brg)
}

// Destination returns the point reached by travelling distanceM meters from
// start along the given initial bearing (degrees clockwise from north),
// using the Vincenty direct formula.
func Destination(start core.GeoPoint, bearingDeg, distanceM float64) core.GeoPoint {
	if distanceM == 0 {
		return start
	}

	phi1 := start.Lat * math.Pi / 180
	alpha1 := bearingDeg * math.Pi / 180
	sinAlpha1, cosAlpha1 := math.Sin(alpha1), math.Cos(alpha1)

	tanU1 := (1 - flattening) * math.Tan(phi1)
	cosU1 := 1 / math.Sqrt(1+tanU1*tanU1)
	sinU1 := tanU1 * cosU1
	sigma1 := math.Atan2(tanU1, cosAlpha1)
	sinAlpha := cosU1 * sinAlpha1
	cosSqAlpha := 1 - sinAlpha*sinAlpha
	uSq := cosSqAlpha * (semiMajorAxis*semiMajorAxis - semiMinorAxis*semiMinorAxis) / (semiMinorAxis * semiMinorAxis)
	bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))

	sigma := distanceM / (semiMinorAxis * bigA)
	var sinSigma, cosSigma, cos2SigmaM float64
	for i := 0; i < vincentyIterations; i++ {
		cos2SigmaM = math.Cos(2*sigma1 + sigma)
		sinSigma = math.Sin(sigma)
		cosSigma = math.Cos(sigma)
		deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
		sigmaPrev := sigma
		sigma = distanceM/(semiMinorAxis*bigA) + deltaSigma
		if math.Abs(sigma-sigmaPrev) < vincentyTolerance {
			break
		}
	}

	tmp := sinU1*sinSigma - cosU1*cosSigma*cosAlpha1
	phi2 := math.Atan2(
		sinU1*cosSigma+cosU1*sinSigma*cosAlpha1,
		(1-flattening)*math.Sqrt(sinAlpha*sinAlpha+tmp*tmp),
	)
	lambda := math.Atan2(sinSigma*sinAlpha1, cosU1*cosSigma-sinU1*sinSigma*cosAlpha1)
	c := flattening / 16 * cosSqAlpha * (4 + flattening*(4-3*cosSqAlpha))
	l := lambda - (1-c)*flattening*sinAlpha*
		(sigma+c*math.Sin(sigma)*(cos2SigmaM+c*math.Cos(sigma)*(-1+2*cos2SigmaM*cos2SigmaM)))

	return core.GeoPoint{
		Lon: normalizeLon(start.Lon + l*180/math.Pi),
		Lat: phi2 * 180 / math.Pi,
	}
}

// SlantRange converts a ground distance to the camera-to-target range for a
// given tilt. The caller must guard the degenerate zone: tilt at or below
// the gimbal threshold never reaches this division.
func SlantRange(groundM, tiltDeg float64) float64 {
	return groundM / math.Sin(tiltDeg*math.Pi/180)
}

// GroundDistance is the inverse of SlantRange: the ground distance covered
// by a camera at the given range and tilt.
func GroundDistance(rangeM, tiltDeg float64) float64 {
	return rangeM * math.Sin(tiltDeg*math.Pi/180)
}

// PixelBearing returns the screen-space bearing in degrees from pixel
// (x1,y1) toward (x2,y2), clockwise from screen-up, normalized to [0, 360).
// Pixel y grows downward.
func PixelBearing(x1, y1, x2, y2 float64) float64 {
	return normalizeDeg(math.Atan2(x2-x1, y1-y2) * 180 / math.Pi)
}

// vincentyInverse runs the iterative Vincenty inverse formula. ok is false
// when the iteration failed to converge.
func vincentyInverse(from, to core.GeoPoint) (distanceM, bearingDeg float64, ok bool) {
	phi1 := from.Lat * math.Pi / 180
	phi2 := to.Lat * math.Pi / 180
	bigL := (to.Lon - from.Lon) * math.Pi / 180

	u1 := math.Atan((1 - flattening) * math.Tan(phi1))
	u2 := math.Atan((1 - flattening) * math.Tan(phi2))
	sinU1, cosU1 := math.Sin(u1), math.Cos(u1)
	sinU2, cosU2 := math.Sin(u2), math.Cos(u2)

	lambda := bigL
	var sinSigma, cosSigma, sigma, sinAlpha, cosSqAlpha, cos2SigmaM, sinLambda, cosLambda float64
	converged := false
	for i := 0; i < vincentyIterations; i++ {
		sinLambda, cosLambda = math.Sin(lambda), math.Cos(lambda)
		sinSigma = math.Sqrt(
			(cosU2*sinLambda)*(cosU2*sinLambda) +
				(cosU1*sinU2-sinU1*cosU2*cosLambda)*(cosU1*sinU2-sinU1*cosU2*cosLambda),
		)
		if sinSigma == 0 {
			// coincident points
			return 0, 0, true
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha = cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha == 0 {
			// both points on the equator
			cos2SigmaM = 0
		} else {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}
		c := flattening / 16 * cosSqAlpha * (4 + flattening*(4-3*cosSqAlpha))
		lambdaPrev := lambda
		lambda = bigL + (1-c)*flattening*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-lambdaPrev) < vincentyTolerance {
			converged = true
			break
		}
	}
	if !converged {
		return 0, 0, false
	}

	uSq := cosSqAlpha * (semiMajorAxis*semiMajorAxis - semiMinorAxis*semiMinorAxis) / (semiMinorAxis * semiMinorAxis)
	bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	distanceM = semiMinorAxis * bigA * (sigma - deltaSigma)
	bearingDeg = math.Atan2(cosU2*sinLambda, cosU1*sinU2-sinU1*cosU2*cosLambda) * 180 / math.Pi
	return distanceM, bearingDeg, true
}

// sphericalDistance is the spherical law of cosines fallback.
func sphericalDistance(from, to core.GeoPoint) float64 {
	phi1 := from.Lat * math.Pi / 180
	phi2 := to.Lat * math.Pi / 180
	dLon := (to.Lon - from.Lon) * math.Pi / 180
	central := math.Sin(phi1)*math.Sin(phi2) + math.Cos(phi1)*math.Cos(phi2)*math.Cos(dLon)
	// clamp rounding drift before acos
	central = math.Max(-1, math.Min(1, central))
	return earthRadius * math.Acos(central)
}

// sphericalBearing is the great-circle initial bearing fallback.
func sphericalBearing(from, to core.GeoPoint) float64 {
	phi1 := from.Lat * math.Pi / 180
	phi2 := to.Lat * math.Pi / 180
	dLon := (to.Lon - from.Lon) * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	return normalizeDeg(math.Atan2(y, x) * 180 / math.Pi)
}

func normalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
