// Package geo contains pure geographic computation helpers.
package geo

import (
	"math"
	"time"
)

const earthRadiusMiles = 3958.8

// Coordinate is a point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceMiles returns the great-circle distance in statute miles between
// two coordinates.
func DistanceMiles(a, b Coordinate) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMiles * c
}

// TravelTime estimates how long it takes to cover the given distance at the
// given average speed.
func TravelTime(miles, avgSpeedMPH float64) time.Duration {
	if avgSpeedMPH <= 0 {
		return 0
	}
	hours := miles / avgSpeedMPH
	return time.Duration(hours * float64(time.Hour))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
