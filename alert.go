package trackguard

import "log"

// AlertDispatcher surfaces crossing and unavailability signals to the UI
// layer. Dispatchers are stateless: every alert they receive is surfaced
// exactly once, with no batching or deduplication beyond the engine's
// hysteresis.
type AlertDispatcher interface {
	Dispatch(alert Alert)
}

// ChannelDispatcher delivers alerts on a buffered channel. It is the
// default dispatcher; consume via the Monitor's Events method.
// If the consumer falls behind and the buffer fills, the alert is dropped
// and logged rather than blocking fix processing.
type ChannelDispatcher struct {
	ch     chan Alert
	logger *log.Logger
}

// NewChannelDispatcher creates a dispatcher with the given buffer size.
func NewChannelDispatcher(buffer int, logger *log.Logger) *ChannelDispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &ChannelDispatcher{
		ch:     make(chan Alert, buffer),
		logger: logger,
	}
}

// Dispatch delivers the alert without blocking.
func (d *ChannelDispatcher) Dispatch(alert Alert) {
	select {
	case d.ch <- alert:
	default:
		d.logger.Printf("trackguard: alert channel full, dropping %v alert", alert.Kind)
	}
}

// Events returns the receive side of the alert channel.
func (d *ChannelDispatcher) Events() <-chan Alert {
	return d.ch
}

// Close closes the alert channel. Called by the Monitor on Stop, after it
// has guaranteed no further dispatch can occur.
func (d *ChannelDispatcher) Close() {
	close(d.ch)
}

// LogDispatcher writes every alert to a logger. Useful for headless
// deployments and debugging.
type LogDispatcher struct {
	Logger *log.Logger
}

// Dispatch logs the alert.
func (d *LogDispatcher) Dispatch(alert Alert) {
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}

	switch alert.Kind {
	case AlertCrossing:
		e := alert.Crossing
		logger.Printf("trackguard: %s safe zone at (%.5f, %.5f), distance %.1fm",
			e.Direction, e.Fix.Latitude, e.Fix.Longitude, e.DistanceMeters)
	case AlertUnavailable:
		logger.Printf("trackguard: location unavailable")
	}
}
