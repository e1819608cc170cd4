package trackguard

import "errors"

var (
	// ErrPermissionDenied is returned by a fix source when the platform
	// denies location access. Fatal to a session.
	ErrPermissionDenied = errors.New("trackguard: location permission denied")

	// ErrUnavailable is returned by a fix source that cannot currently
	// produce a fix (e.g. no signal). Transient; monitoring resumes when
	// fixes start arriving again.
	ErrUnavailable = errors.New("trackguard: location unavailable")

	// ErrInvalidRadius is returned when a geofence radius is not positive.
	ErrInvalidRadius = errors.New("trackguard: geofence radius must be positive")

	// ErrInvalidCoordinates is returned when a fix carries out-of-range
	// latitude or longitude.
	ErrInvalidCoordinates = errors.New("trackguard: invalid coordinates")

	// ErrAlreadyStarted is returned when Start is called on a running monitor.
	ErrAlreadyStarted = errors.New("trackguard: monitor already started")

	// ErrNotStarted is returned when an operation requiring a running
	// session is called before Start.
	ErrNotStarted = errors.New("trackguard: monitor not started")

	// ErrStopped is returned when Start is called on a stopped monitor.
	// Monitors are single-use; construct a new one per session.
	ErrStopped = errors.New("trackguard: monitor has been stopped")

	// ErrGeoIPDatabaseNotConfigured is returned when a GeoIP lookup is
	// attempted without configuring the database path.
	ErrGeoIPDatabaseNotConfigured = errors.New("trackguard: GeoIP database path not configured")

	// ErrInvalidIP is returned when an invalid IP address is provided.
	ErrInvalidIP = errors.New("trackguard: invalid IP address")
)
