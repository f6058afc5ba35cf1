package models

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Station is one battery-swap location as published in the snapshot table.
// Distance is only populated on the query side and is never persisted.
type Station struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	District  string  `json:"district"`
	City      string  `json:"city"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	State     string  `json:"state"`
	PlaceID   string  `json:"placeId,omitempty"`
	Distance  float64 `json:"distance,omitempty"`
}

// Validate checks that the station can safely reach the proximity engine
func (s *Station) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("station ID is required")
	}
	return ValidateCoordinates(s.Latitude, s.Longitude)
}

// ValidateCoordinates rejects NaN, infinite and out-of-range degrees.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return &InvalidCoordinateError{Latitude: lat, Longitude: lng}
	}
	return nil
}

// InvalidCoordinateError is returned for coordinates that are not valid degrees
type InvalidCoordinateError struct {
	Latitude  float64
	Longitude float64
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinate: lat=%v lng=%v", e.Latitude, e.Longitude)
}

func (e *InvalidCoordinateError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("kind", "InvalidCoordinate").
		Float64("lat", e.Latitude).
		Float64("lng", e.Longitude)
}
