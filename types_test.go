package trackguard

import (
	"errors"
	"math"
	"testing"
)

func TestFixValidate(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		wantErr  bool
	}{
		{name: "valid fix", lat: 7.0731, lng: 125.6128, wantErr: false},
		{name: "latitude at bound", lat: 90, lng: 0, wantErr: false},
		{name: "longitude at bound", lat: 0, lng: -180, wantErr: false},
		{name: "latitude too large", lat: 95, lng: 0, wantErr: true},
		{name: "latitude too small", lat: -95, lng: 0, wantErr: true},
		{name: "longitude too large", lat: 0, lng: 181, wantErr: true},
		{name: "longitude too small", lat: 0, lng: -181, wantErr: true},
		{name: "NaN latitude", lat: math.NaN(), lng: 0, wantErr: true},
		{name: "NaN longitude", lat: 0, lng: math.NaN(), wantErr: true},
		{name: "infinite latitude", lat: math.Inf(1), lng: 0, wantErr: true},
		{name: "negative infinite longitude", lat: 0, lng: math.Inf(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Fix{Latitude: tt.lat, Longitude: tt.lng}.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidCoordinates) {
				t.Errorf("expected ErrInvalidCoordinates, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected valid fix, got %v", err)
			}
		})
	}
}
