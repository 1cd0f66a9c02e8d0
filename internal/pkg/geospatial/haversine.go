package geospatial

import (
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// BoundDiagonalKm returns the great-circle distance in km between the
// corners of a viewport, a rough measure of how much of the globe a query
// covers.
func BoundDiagonalKm(b orb.Bound) float64 {
	return Haversine(b.Min[1], b.Min[0], b.Max[1], b.Max[0]) / 1000
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
