package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the radius used for all distance ordering.
const EarthRadiusKm = 6378.388

type Coordinate struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

func (c Coordinate) Validate() error {
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %v", c.Longitude)
	}
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %v", c.Latitude)
	}
	return nil
}

// DistanceKm returns the great-circle distance between two points in degrees.
func DistanceKm(lon1, lat1, lon2, lat2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Pow(math.Sin(dPhi/2), 2) + math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)
	if a > 1 {
		a = 1
	}

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return DistanceKm(c.Longitude, c.Latitude, other.Longitude, other.Latitude)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
