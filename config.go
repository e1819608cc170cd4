package trackguard

import (
	"log"
	"time"

	"github.com/iverson-dev/trackguard/store"
)

// Config contains configuration options for a Monitor.
type Config struct {
	// Source produces position fixes. Required.
	Source FixSource

	// GeofenceStore holds the per-user safe-zone document shared across
	// devices. Default: SQLite store (creates trackguard.db).
	GeofenceStore store.GeofenceStore

	// HistoryStore holds the per-user ordered fix history.
	// Default: SQLite store sharing the geofence database.
	HistoryStore store.HistoryStore

	// Dispatcher receives crossing and unavailability alerts.
	// Default: a buffered channel dispatcher, consumed via Monitor.Events.
	Dispatcher AlertDispatcher

	// Logger receives non-fatal failures (dropped fixes, failed persistence).
	// Default: log.Default().
	Logger *log.Logger

	// MinInterval is the advisory maximum time between delivered fixes.
	// Default: 5 seconds.
	MinInterval time.Duration

	// MinDistanceMeters is the advisory movement threshold for a new fix.
	// Default: 1 meter.
	MinDistanceMeters float64

	// AlertBuffer is the capacity of the default alert channel.
	// Default: 16.
	AlertBuffer int

	// DatabasePath is the path for the default SQLite database.
	// Only used if GeofenceStore or HistoryStore is nil.
	// Default: "trackguard.db".
	DatabasePath string
}

// DefaultConfig returns a Config with sensible defaults.
// A Source must still be provided.
func DefaultConfig() Config {
	return Config{
		Logger:            log.Default(),
		MinInterval:       5 * time.Second,
		MinDistanceMeters: 1,
		AlertBuffer:       16,
		DatabasePath:      "trackguard.db",
	}
}

// applyDefaults fills in default values for zero-value fields.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Logger == nil {
		c.Logger = defaults.Logger
	}
	if c.MinInterval <= 0 {
		c.MinInterval = defaults.MinInterval
	}
	if c.MinDistanceMeters <= 0 {
		c.MinDistanceMeters = defaults.MinDistanceMeters
	}
	if c.AlertBuffer <= 0 {
		c.AlertBuffer = defaults.AlertBuffer
	}
	if c.DatabasePath == "" {
		c.DatabasePath = defaults.DatabasePath
	}
}
