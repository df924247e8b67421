// Package geo provides great-circle distance math for geo-fencing checks.
package geo

import "math"

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the haversine distance between two coordinates.
func DistanceMeters(latA, lonA, latB, lonB float64) float64 {
	dLat := radians(latB - latA)
	dLon := radians(lonB - lonA)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(latA))*math.Cos(radians(latB))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
