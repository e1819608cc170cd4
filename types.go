package trackguard

import (
	"fmt"
	"math"
)

// Fix is a single reported device position. Immutable once created.
type Fix struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	TimestampMillis int64   `json:"timestamp"`
}

// Validate checks that the fix carries plausible coordinates.
// Non-finite values are rejected explicitly: NaN compares false against
// every bound, so a range check alone would let it through.
func (f Fix) Validate() error {
	if !isFinite(f.Latitude) || f.Latitude < -90 || f.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinates, f.Latitude)
	}
	if !isFinite(f.Longitude) || f.Longitude < -180 || f.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinates, f.Longitude)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Geofence is a circular safe zone. It is replaced wholesale, never patched;
// UpdatedAtMillis is the last-writer-wins tiebreak when a local change races
// with an update from another device.
type Geofence struct {
	CenterLatitude  float64 `json:"latitude"`
	CenterLongitude float64 `json:"longitude"`
	RadiusMeters    float64 `json:"radius"`
	UpdatedAtMillis int64   `json:"updatedAt"`
}

// Contains returns true if the fix lies inside the zone (boundary inclusive).
func (g Geofence) Contains(f Fix) bool {
	return g.Distance(f) <= g.RadiusMeters
}

// Distance returns the distance in meters from the fix to the zone center.
func (g Geofence) Distance(f Fix) float64 {
	return HaversineDistance(f.Latitude, f.Longitude, g.CenterLatitude, g.CenterLongitude)
}

// Direction indicates which way a geofence boundary was crossed.
type Direction int

const (
	// Entered means the subject moved from outside the zone to inside.
	Entered Direction = iota

	// Exited means the subject moved from inside the zone to outside.
	Exited
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	switch d {
	case Entered:
		return "entered"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// CrossingEvent is produced exactly once per boundary transition.
// It is transient: produced, dispatched, never stored.
type CrossingEvent struct {
	Fix            Fix       `json:"fix"`
	Geofence       Geofence  `json:"geofence"`
	DistanceMeters float64   `json:"distance_meters"`
	Direction      Direction `json:"direction"`
}

// AlertKind discriminates the signals delivered on the alert channel.
type AlertKind int

const (
	// AlertCrossing carries a geofence boundary crossing.
	AlertCrossing AlertKind = iota

	// AlertUnavailable signals that the fix source cannot produce fixes,
	// either terminally (permission denied) or transiently (no signal).
	AlertUnavailable
)

// String returns a human-readable kind name.
func (k AlertKind) String() string {
	switch k {
	case AlertCrossing:
		return "crossing"
	case AlertUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Alert is the single event type surfaced to the UI layer.
// Crossing is set only when Kind is AlertCrossing.
type Alert struct {
	Kind     AlertKind      `json:"kind"`
	Crossing *CrossingEvent `json:"crossing,omitempty"`
}
