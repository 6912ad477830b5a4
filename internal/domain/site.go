package domain

import "fmt"

// Coordinates is a latitude/longitude pair in degrees
type Coordinates struct {
	Lat float64
	Lon float64
}

// String implements fmt.Stringer
func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Site represents a pizzeria from the site directory
type Site struct {
	Address   string
	Alias     string
	Position  Coordinates
	CarrierID int64
}

// NearestSite is a site together with its distance to the customer
type NearestSite struct {
	Site
	DistanceKm float64
}

// CustomerAddress is a delivery address saved for a customer
type CustomerAddress struct {
	CustomerID int64
	Position   Coordinates
}
