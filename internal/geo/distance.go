// Package geo provides great-circle distance and point encoding for store
// coordinates.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by DistanceMeters.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are within WGS84 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// DistanceMeters returns the haversine distance between two coordinates.
// The result is symmetric and exactly zero for identical inputs.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}

	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lng2 - lng1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Distance is DistanceMeters for two Points.
func Distance(a, b Point) float64 {
	return DistanceMeters(a.Lat, a.Lng, b.Lat, b.Lng)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
