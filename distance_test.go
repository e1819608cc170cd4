package trackguard

import (
	"math"
	"testing"
)

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name            string
		lat1, lng1      float64
		lat2, lng2      float64
		expectedMeters  float64
		toleranceMeters float64 // absolute tolerance
		toleranceRatio  float64 // relative tolerance (percentage)
	}{
		{
			name:            "same point returns zero",
			lat1:            7.0731,
			lng1:            125.6128,
			lat2:            7.0731,
			lng2:            125.6128,
			expectedMeters:  0,
			toleranceMeters: 0.001,
		},
		{
			// 10 km due north of Davao City center: moving only in latitude,
			// the expected arc is exactly R * dLat.
			name:            "Davao City to 10km north",
			lat1:            7.0731,
			lng1:            125.6128,
			lat2:            7.0731 + 10000/earthRadiusMeters*(180/math.Pi),
			lng2:            125.6128,
			expectedMeters:  10000,
			toleranceMeters: 1,
		},
		{
			name:           "NYC to London",
			lat1:           40.7128,
			lng1:           -74.0060,
			lat2:           51.5074,
			lng2:           -0.1278,
			expectedMeters: 5570000,
			toleranceRatio: 0.01, // 1%
		},
		{
			name:           "Sydney to Tokyo",
			lat1:           -33.8688,
			lng1:           151.2093,
			lat2:           35.6762,
			lng2:           139.6503,
			expectedMeters: 7823000,
			toleranceRatio: 0.01,
		},
		{
			name:           "North Pole to South Pole (antipodal)",
			lat1:           90,
			lng1:           0,
			lat2:           -90,
			lng2:           0,
			expectedMeters: 20015000, // half circumference of Earth
			toleranceRatio: 0.01,
		},
		{
			name:            "across the boundary of a 100m zone",
			lat1:            7.0731,
			lng1:            125.6128,
			lat2:            7.0731 + 150/earthRadiusMeters*(180/math.Pi),
			lng2:            125.6128,
			expectedMeters:  150,
			toleranceMeters: 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineDistance(tt.lat1, tt.lng1, tt.lat2, tt.lng2)

			tolerance := tt.toleranceMeters
			if tt.toleranceRatio > 0 {
				tolerance = tt.expectedMeters * tt.toleranceRatio
			}

			if math.Abs(got-tt.expectedMeters) > tolerance {
				t.Errorf("expected %.1fm (±%.3f), got %.3fm", tt.expectedMeters, tolerance, got)
			}

			// Symmetry must hold for every pair
			reversed := HaversineDistance(tt.lat2, tt.lng2, tt.lat1, tt.lng1)
			if got != reversed {
				t.Errorf("distance not symmetric: %v vs %v", got, reversed)
			}
		})
	}
}

func TestHaversineDistanceNaN(t *testing.T) {
	if got := HaversineDistance(math.NaN(), 0, 0, 0); !math.IsNaN(got) {
		t.Errorf("expected NaN in to propagate, got %v", got)
	}
}

func TestGeofenceContains(t *testing.T) {
	fence := Geofence{
		CenterLatitude:  7.0731,
		CenterLongitude: 125.6128,
		RadiusMeters:    100,
	}

	inside := fixAtDistance(fence, 50)
	if !fence.Contains(inside) {
		t.Errorf("fix 50m from center should be inside a 100m zone")
	}

	outside := fixAtDistance(fence, 150)
	if fence.Contains(outside) {
		t.Errorf("fix 150m from center should be outside a 100m zone")
	}
}

// fixAtDistance returns a fix the given number of meters due north of the
// fence center, so its haversine distance to the center is exact.
func fixAtDistance(fence Geofence, meters float64) Fix {
	return Fix{
		Latitude:  fence.CenterLatitude + meters/earthRadiusMeters*(180/math.Pi),
		Longitude: fence.CenterLongitude,
	}
}
