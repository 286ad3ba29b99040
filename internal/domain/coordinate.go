// Package domain contains the core grid entities and value objects.
package domain

import (
	"fmt"
	"math"
)

// SRIDWGS84 is the spatial reference of all HGT data (WGS 84).
const SRIDWGS84 = 4326

// Coordinate represents a geographic WGS84 coordinate.
type Coordinate struct {
	Lat float64 // Latitude, degrees north
	Lng float64 // Longitude, degrees east
}

// NewCoordinate creates a coordinate from latitude and longitude.
func NewCoordinate(lat, lng float64) Coordinate {
	return Coordinate{Lat: lat, Lng: lng}
}

// Validate checks if the coordinate is a valid WGS84 position.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return &ValidationError{
			Field:      "coordinate",
			Value:      c,
			Constraint: "finite",
			Message:    "latitude and longitude must be finite numbers",
		}
	}
	if c.Lat < -90 || c.Lat > 90 {
		return &ValidationError{
			Field:      "latitude",
			Value:      c.Lat,
			Constraint: "[-90, 90]",
			Message:    "latitude must be between -90 and 90",
		}
	}
	if c.Lng < -180 || c.Lng > 180 {
		return &ValidationError{
			Field:      "longitude",
			Value:      c.Lng,
			Constraint: "[-180, 180]",
			Message:    "longitude must be between -180 and 180",
		}
	}
	return nil
}

// String returns a string representation of the coordinate.
func (c Coordinate) String() string {
	return fmt.Sprintf("(%g, %g)", c.Lat, c.Lng)
}

// Extent represents a geographic bounding box.
type Extent struct {
	MinLat float64 // Southern edge
	MinLng float64 // Western edge
	MaxLat float64 // Northern edge
	MaxLng float64 // Eastern edge
}

// Contains checks if a coordinate is within the extent, edges included.
func (e Extent) Contains(c Coordinate) bool {
	return c.Lat >= e.MinLat && c.Lat <= e.MaxLat &&
		c.Lng >= e.MinLng && c.Lng <= e.MaxLng
}

// ContainsStrict checks if a coordinate is within the extent, edges excluded.
func (e Extent) ContainsStrict(c Coordinate) bool {
	return c.Lat > e.MinLat && c.Lat < e.MaxLat &&
		c.Lng > e.MinLng && c.Lng < e.MaxLng
}

// IsValid checks if the extent has valid dimensions.
func (e Extent) IsValid() bool {
	return e.MinLat <= e.MaxLat && e.MinLng <= e.MaxLng
}

// Width returns the longitude span of the extent in degrees.
func (e Extent) Width() float64 {
	return math.Abs(e.MaxLng - e.MinLng)
}

// Height returns the latitude span of the extent in degrees.
func (e Extent) Height() float64 {
	return math.Abs(e.MaxLat - e.MinLat)
}

// Center returns the center coordinate of the extent.
func (e Extent) Center() Coordinate {
	return Coordinate{
		Lat: (e.MinLat + e.MaxLat) / 2,
		Lng: (e.MinLng + e.MaxLng) / 2,
	}
}

// String returns a string representation of the extent.
func (e Extent) String() string {
	return fmt.Sprintf("[(%g, %g), (%g, %g)]", e.MinLat, e.MinLng, e.MaxLat, e.MaxLng)
}
