package geo

import (
	"fmt"
	"math"

	"bloodlink/pkg/types"
)

const EarthRadiusKm = 6371.0

func ValidateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("lat %v, lon %v: %w", lat, lon, types.ErrInvalidCoordinate)
	}
	return nil
}

// DistanceKm is the great-circle distance between two points using the
// Haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) (float64, error) {
	if err := ValidateCoordinate(lat1, lon1); err != nil {
		return 0, err
	}
	if err := ValidateCoordinate(lat2, lon2); err != nil {
		return 0, err
	}

	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push a just outside [0, 1] near antipodes
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c, nil
}

func Between(a, b types.GeoPoint) (float64, error) {
	return DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
