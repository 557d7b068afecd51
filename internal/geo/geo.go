// Package geo holds the spherical-earth math used by the animation engine:
// great-circle distances, bearings, forward projection for dead reckoning,
// and the interpolation helpers applied on every render tick.
package geo

import "math"

// EarthRadiusMeters is the mean earth radius used for all spherical math.
const EarthRadiusMeters = 6371000.0

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// DistanceMeters returns the great-circle (haversine) distance between two
// coordinates in meters.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	deltaPhi := toRadians(lat2 - lat1)
	deltaLambda := toRadians(lon2 - lon1)

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// BearingDegrees calculates the initial bearing in degrees (0–360, clockwise
// from north) from point 1 to point 2.
func BearingDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	deltaLambda := toRadians(lon2 - lon1)

	y := math.Sin(deltaLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	theta := math.Atan2(y, x)
	return math.Mod(toDegrees(theta)+360, 360)
}

// ProjectMeters returns the coordinate reached by travelling the given
// distance along the given bearing from the start point, on a sphere.
func ProjectMeters(lat, lon, bearingDeg, meters float64) (float64, float64) {
	phi1 := toRadians(lat)
	lambda1 := toRadians(lon)
	theta := toRadians(bearingDeg)
	delta := meters / EarthRadiusMeters

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) +
		math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2))

	return toDegrees(phi2), math.Mod(toDegrees(lambda2)+540, 360) - 180
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// LerpAngle interpolates between two angles in degrees along the shortest
// arc, so 359°→1° is treated as a 2° turn rather than 358° the long way
// around. The result is normalized to [0, 360).
func LerpAngle(from, to, t float64) float64 {
	diff := math.Mod(to-from+540, 360) - 180
	return math.Mod(from+diff*t+360, 360)
}

// EaseOutCubic maps t ∈ [0,1] through the cubic ease-out curve 1-(1-t)³.
func EaseOutCubic(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	inv := 1 - t
	return 1 - inv*inv*inv
}
