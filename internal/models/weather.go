package models

import (
	"errors"
	"strings"
)

// ErrEmptyCity is returned when a city name is empty or whitespace-only after trim.
var ErrEmptyCity = errors.New("city name is required")

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// RequestKind identifies which variant of WeatherRequest is active.
type RequestKind int

const (
	ByCoordinates RequestKind = iota + 1
	ByCityName
)

func (k RequestKind) String() string {
	switch k {
	case ByCoordinates:
		return "coordinates"
	case ByCityName:
		return "city"
	default:
		return "unknown"
	}
}

// WeatherRequest selects a current-conditions query either by coordinates or by
// place name. Exactly one variant is set; the zero value is invalid.
type WeatherRequest struct {
	kind   RequestKind
	coords Coordinates
	city   string
}

// NewCoordinatesRequest returns a request for the given point.
func NewCoordinatesRequest(c Coordinates) WeatherRequest {
	return WeatherRequest{kind: ByCoordinates, coords: c}
}

// NewCityRequest trims name and returns a request for it.
// Returns ErrEmptyCity when nothing remains after trimming.
func NewCityRequest(name string) (WeatherRequest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return WeatherRequest{}, ErrEmptyCity
	}
	return WeatherRequest{kind: ByCityName, city: name}, nil
}

// Kind reports the active variant.
func (r WeatherRequest) Kind() RequestKind {
	return r.kind
}

// Coordinates returns the point for a ByCoordinates request.
func (r WeatherRequest) Coordinates() (Coordinates, bool) {
	return r.coords, r.kind == ByCoordinates
}

// City returns the trimmed place name for a ByCityName request.
func (r WeatherRequest) City() (string, bool) {
	return r.city, r.kind == ByCityName
}
