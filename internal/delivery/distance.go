// Package delivery finds the pizzeria nearest to a customer and prices delivery from it.
package delivery

import (
	"math"

	"github.com/glebk/pizza-bot/internal/domain"
)

// EarthRadiusKm is the mean Earth radius
const EarthRadiusKm = 6371.0088

// DistanceKm returns the great-circle distance between a and b in kilometers,
// rounded to two decimal places.
func DistanceKm(a, b domain.Coordinates) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return math.Round(EarthRadiusKm*c*100) / 100
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
