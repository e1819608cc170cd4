package store

// Fix is a persisted device position.
// This is a copy of the main Fix type to avoid circular imports.
type Fix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// Geofence is the persisted per-user safe-zone document.
// This is a copy of the main Geofence type to avoid circular imports.
type Geofence struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
	UpdatedAt int64   `json:"updatedAt"`
}

// Subscription is a cancellable store watch.
type Subscription interface {
	// Cancel stops delivery. Callbacks already in flight may still run.
	Cancel()
}

// GeofenceStore persists the per-user geofence document.
// The document is replaced wholesale on every write; there is no partial
// update and no server-side locking. Implementations must be safe for
// concurrent use.
type GeofenceStore interface {
	// Read returns the user's geofence, or nil if none has been written.
	Read(userID string) (*Geofence, error)

	// Write replaces the user's geofence document.
	Write(userID string, fence *Geofence) error

	// Subscribe watches the user's geofence document and invokes onUpdate
	// whenever another writer replaces it. Delivery is best-effort; the
	// document's UpdatedAt field, not arrival order, decides conflicts.
	Subscribe(userID string, onUpdate func(*Geofence)) (Subscription, error)

	// Close releases any resources held by the store.
	Close() error
}

// HistoryStore persists the per-user ordered fix history.
// The whole list is replaced on every write, matching the backing store's
// replace primitive. Implementations must be safe for concurrent use.
type HistoryStore interface {
	// Replace overwrites the user's history with the given fixes.
	Replace(userID string, fixes []Fix) error

	// Read returns the user's history in insertion (chronological) order.
	// A user with no history yields an empty slice, not an error.
	Read(userID string) ([]Fix, error)

	// Close releases any resources held by the store.
	Close() error
}
