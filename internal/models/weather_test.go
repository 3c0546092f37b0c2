package models

import (
	"errors"
	"testing"
)

func TestNewCityRequest(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain", "Montreal", "Montreal", nil},
		{"trimmed", "  New York \t", "New York", nil},
		{"empty", "", "", ErrEmptyCity},
		{"whitespace only", " \t\n ", "", ErrEmptyCity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewCityRequest(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewCityRequest(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			city, ok := req.City()
			if !ok || city != tt.want {
				t.Errorf("City() = %q, %v, want %q, true", city, ok, tt.want)
			}
			if req.Kind() != ByCityName {
				t.Errorf("Kind() = %v, want %v", req.Kind(), ByCityName)
			}
			if _, ok := req.Coordinates(); ok {
				t.Error("Coordinates() ok = true on a city request")
			}
		})
	}
}

func TestNewCoordinatesRequest(t *testing.T) {
	req := NewCoordinatesRequest(Coordinates{Latitude: 45.5, Longitude: -73.6})
	if req.Kind() != ByCoordinates {
		t.Fatalf("Kind() = %v, want %v", req.Kind(), ByCoordinates)
	}
	c, ok := req.Coordinates()
	if !ok || c.Latitude != 45.5 || c.Longitude != -73.6 {
		t.Errorf("Coordinates() = %+v, %v", c, ok)
	}
	if _, ok := req.City(); ok {
		t.Error("City() ok = true on a coordinates request")
	}
}

func TestRequestKind_String(t *testing.T) {
	if got := ByCoordinates.String(); got != "coordinates" {
		t.Errorf("ByCoordinates.String() = %q", got)
	}
	if got := ByCityName.String(); got != "city" {
		t.Errorf("ByCityName.String() = %q", got)
	}
	if got := RequestKind(0).String(); got != "unknown" {
		t.Errorf("RequestKind(0).String() = %q", got)
	}
}
