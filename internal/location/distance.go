package location

import (
	"math"

	"github.com/randytsao24/reachmap/internal/models"
)

const (
	earthRadiusKm     = 6371
	earthRadiusMeters = earthRadiusKm * 1000

	// walkingSpeedKmPerMin is roughly 5 km/h
	walkingSpeedKmPerMin = 0.083
)

// Haversine calculates the distance in meters between two lat/lng points
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// DistanceKm returns the great-circle distance between two coordinates in kilometers
func DistanceKm(a, b models.Coordinate) float64 {
	return Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude) / 1000
}

// WalkingTimeMinutes converts a walking distance to minutes. No clamping is applied.
func WalkingTimeMinutes(distanceKm float64) float64 {
	return distanceKm / walkingSpeedKmPerMin
}
