package trackguard

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/iverson-dev/trackguard/store"
)

// Monitor is a per-user geofence monitoring session. It consumes a stream
// of fixes from a FixSource, appends them to the persisted history,
// evaluates each against the active geofence and surfaces boundary
// crossings through its dispatcher. Geofence changes made locally are
// persisted for other devices; changes from other devices are adopted by
// last-writer-wins on the document timestamp.
//
// A Monitor is single-use: construct with New, Start once, Stop once.
// All state mutations are serialized internally, so the three external
// triggers (a new fix, a remote geofence update, a local call) may arrive
// from any goroutine.
type Monitor struct {
	config     Config
	fences     store.GeofenceStore
	history    store.HistoryStore
	dispatcher AlertDispatcher
	channel    *ChannelDispatcher // set when the default dispatcher is used
	logger     *log.Logger

	mu          sync.Mutex
	gen         int // bumped on Stop; callbacks carrying an older gen are discarded
	started     bool
	stopped     bool
	userID      string
	engine      *Engine
	activeFence *Geofence
	lastFix     *Fix
	fixes       []Fix
	fixSub      Subscription
	fenceSub    Subscription
}

// New creates a Monitor with the given configuration.
// If GeofenceStore or HistoryStore are not provided, a SQLite store is
// created at Config.DatabasePath and used for both.
func New(cfg Config) (*Monitor, error) {
	cfg.applyDefaults()

	if cfg.Source == nil {
		return nil, fmt.Errorf("trackguard: a fix source is required")
	}

	m := &Monitor{
		config:     cfg,
		fences:     cfg.GeofenceStore,
		history:    cfg.HistoryStore,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		engine:     NewEngine(),
	}

	// Initialize stores (default: SQLite)
	if m.fences == nil || m.history == nil {
		fences, history, err := store.NewSQLite(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("trackguard: failed to initialize SQLite store: %w", err)
		}
		if m.fences == nil {
			m.fences = fences
		}
		if m.history == nil {
			m.history = history
		}
	}

	// Initialize dispatcher (default: buffered channel)
	if m.dispatcher == nil {
		m.channel = NewChannelDispatcher(cfg.AlertBuffer, cfg.Logger)
		m.dispatcher = m.channel
	}

	return m, nil
}

// Start begins monitoring for the given user. It seeds state with one
// current fix, loads any persisted history and geofence, then opens the
// continuous fix subscription and the geofence document subscription.
//
// If the platform denies location access the session enters a terminal
// unavailable state: an AlertUnavailable signal is surfaced on the alert
// channel and Start returns nil without opening subscriptions.
func (m *Monitor) Start(userID string) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.userID = userID
	gen := m.gen
	m.mu.Unlock()

	// Load persisted history first: Replace overwrites the whole list, so
	// starting empty would clobber fixes from earlier sessions.
	if fixes, err := m.history.Read(userID); err != nil {
		m.logger.Printf("trackguard: failed to load history: %v", err)
	} else if len(fixes) > 0 {
		m.mu.Lock()
		if m.gen == gen {
			m.fixes = fixesFromRecords(fixes)
			last := m.fixes[len(m.fixes)-1]
			m.lastFix = &last
		}
		m.mu.Unlock()
	}

	// Adopt a geofence another device may already have persisted.
	if record, err := m.fences.Read(userID); err != nil {
		m.logger.Printf("trackguard: failed to load geofence: %v", err)
	} else if record != nil {
		m.applyRemoteFence(gen, record)
	}

	// Seed with one immediate fix so the session is never empty.
	first, err := m.config.Source.Current()
	switch {
	case errors.Is(err, ErrPermissionDenied):
		m.surfaceUnavailable(gen)
		return nil
	case errors.Is(err, ErrUnavailable):
		// No signal yet; surface once and keep going. Monitoring resumes
		// silently when the subscription starts delivering.
		m.surfaceUnavailable(gen)
	case err != nil:
		m.logger.Printf("trackguard: failed to get initial fix: %v", err)
	default:
		m.processFix(gen, first)
	}

	opts := SubscribeOptions{
		MinInterval:       m.config.MinInterval,
		MinDistanceMeters: m.config.MinDistanceMeters,
	}
	fixSub, err := m.config.Source.Subscribe(opts, func(fix Fix) {
		m.processFix(gen, fix)
	})
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			m.surfaceUnavailable(gen)
			return nil
		}
		return fmt.Errorf("trackguard: failed to subscribe to fixes: %w", err)
	}

	fenceSub, err := m.fences.Subscribe(userID, func(record *store.Geofence) {
		m.applyRemoteFence(gen, record)
	})
	if err != nil {
		fixSub.Cancel()
		return fmt.Errorf("trackguard: failed to subscribe to geofence updates: %w", err)
	}

	m.mu.Lock()
	if m.gen != gen {
		// Stopped while starting; release immediately.
		m.mu.Unlock()
		fixSub.Cancel()
		fenceSub.Cancel()
		return nil
	}
	m.fixSub = fixSub
	m.fenceSub = fenceSub
	m.mu.Unlock()

	return nil
}

// Stop releases the fix and geofence subscriptions and closes the alert
// channel. Idempotent: calling it twice or before Start is a no-op.
// After Stop returns, no further fix or geofence callback takes effect,
// even if a subscription delivers one in flight.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.gen++
	fixSub := m.fixSub
	fenceSub := m.fenceSub
	m.fixSub = nil
	m.fenceSub = nil
	if m.channel != nil {
		// Safe: every dispatch is generation-guarded under mu.
		m.channel.Close()
	}
	m.mu.Unlock()

	if fixSub != nil {
		fixSub.Cancel()
	}
	if fenceSub != nil {
		fenceSub.Cancel()
	}
}

// Close stops monitoring and releases the underlying stores.
// Should be called when the session's owner shuts down.
func (m *Monitor) Close() error {
	m.Stop()

	var errs []error
	if err := m.fences.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.history.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("trackguard: errors during close: %v", errs)
	}
	return nil
}

// SetGeofence replaces the active safe zone with a circle at the given
// center, resets the crossing engine so the next fix adopts a state
// silently, and persists the new document for other devices.
func (m *Monitor) SetGeofence(centerLat, centerLng, radiusMeters float64) error {
	if radiusMeters <= 0 {
		return ErrInvalidRadius
	}
	if err := (Fix{Latitude: centerLat, Longitude: centerLng}).Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if !m.started {
		m.mu.Unlock()
		return ErrNotStarted
	}

	fence := Geofence{
		CenterLatitude:  centerLat,
		CenterLongitude: centerLng,
		RadiusMeters:    radiusMeters,
		UpdatedAtMillis: time.Now().UnixMilli(),
	}
	m.activeFence = &fence
	m.engine.Reset()
	userID := m.userID
	m.mu.Unlock()

	// Fire-and-forget: a failed write never blocks monitoring, and the
	// document still propagates the next time the zone is changed.
	record := fenceToRecord(fence)
	go func() {
		if err := m.fences.Write(userID, record); err != nil {
			m.logger.Printf("trackguard: failed to persist geofence: %v", err)
		}
	}()

	return nil
}

// Events returns the alert channel when the default dispatcher is in use,
// or nil when a custom AlertDispatcher was configured. The channel is
// closed by Stop.
func (m *Monitor) Events() <-chan Alert {
	if m.channel == nil {
		return nil
	}
	return m.channel.Events()
}

// LastFix returns the most recent fix, if any.
func (m *Monitor) LastFix() (Fix, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastFix == nil {
		return Fix{}, false
	}
	return *m.lastFix, true
}

// Geofence returns the active safe zone, if any.
func (m *Monitor) Geofence() (Geofence, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeFence == nil {
		return Geofence{}, false
	}
	return *m.activeFence, true
}

// History returns a copy of the session's fix history in chronological
// order.
func (m *Monitor) History() []Fix {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := make([]Fix, len(m.fixes))
	copy(history, m.fixes)
	return history
}

// State returns the engine's current boundary state.
func (m *Monitor) State() ZoneState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.State()
}

// processFix handles one delivered fix: append to history, persist the
// updated history asynchronously, evaluate against the active geofence
// and dispatch any crossing. Fixes delivered to a stopped or superseded
// session are discarded by the generation guard.
func (m *Monitor) processFix(gen int, fix Fix) {
	if err := fix.Validate(); err != nil {
		m.logger.Printf("trackguard: dropping fix: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return
	}

	m.lastFix = &fix
	m.fixes = append(m.fixes, fix)

	// Snapshot now so the write carries the full history at call time; a
	// failed or slow write never blocks the next fix.
	records := fixesToRecords(m.fixes)
	userID := m.userID
	go func() {
		if err := m.history.Replace(userID, records); err != nil {
			m.logger.Printf("trackguard: failed to persist history: %v", err)
		}
	}()

	if m.activeFence == nil {
		return
	}
	if event := m.engine.Evaluate(fix, *m.activeFence); event != nil {
		m.dispatcher.Dispatch(Alert{Kind: AlertCrossing, Crossing: event})
	}
}

// applyRemoteFence adopts a geofence document written by another device
// if it is at least as new as the local one (last-writer-wins). Adoption
// resets the engine so the first fix against the new zone never fires.
func (m *Monitor) applyRemoteFence(gen int, record *store.Geofence) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return
	}
	if m.activeFence != nil && record.UpdatedAt < m.activeFence.UpdatedAtMillis {
		// Stale update from a slower device; the local zone is newer.
		return
	}

	fence := fenceFromRecord(record)
	if m.activeFence != nil && fence == *m.activeFence {
		// Our own write echoed back through the subscription. Nothing
		// changed, so don't reset the engine's crossing state.
		return
	}
	m.activeFence = &fence
	m.engine.Reset()
}

// surfaceUnavailable dispatches one AlertUnavailable signal unless the
// session has been stopped.
func (m *Monitor) surfaceUnavailable(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return
	}
	m.dispatcher.Dispatch(Alert{Kind: AlertUnavailable})
}

// fixesToRecords converts session fixes to their persisted shape.
func fixesToRecords(fixes []Fix) []store.Fix {
	records := make([]store.Fix, len(fixes))
	for i, fix := range fixes {
		records[i] = store.Fix{
			Latitude:  fix.Latitude,
			Longitude: fix.Longitude,
			Timestamp: fix.TimestampMillis,
		}
	}
	return records
}

// fixesFromRecords converts persisted fixes back to session fixes.
func fixesFromRecords(records []store.Fix) []Fix {
	fixes := make([]Fix, len(records))
	for i, record := range records {
		fixes[i] = Fix{
			Latitude:        record.Latitude,
			Longitude:       record.Longitude,
			TimestampMillis: record.Timestamp,
		}
	}
	return fixes
}

// fenceToRecord converts a geofence to its persisted shape.
func fenceToRecord(fence Geofence) *store.Geofence {
	return &store.Geofence{
		Latitude:  fence.CenterLatitude,
		Longitude: fence.CenterLongitude,
		Radius:    fence.RadiusMeters,
		UpdatedAt: fence.UpdatedAtMillis,
	}
}

// fenceFromRecord converts a persisted geofence to the session shape.
func fenceFromRecord(record *store.Geofence) Geofence {
	return Geofence{
		CenterLatitude:  record.Latitude,
		CenterLongitude: record.Longitude,
		RadiusMeters:    record.Radius,
		UpdatedAtMillis: record.UpdatedAt,
	}
}
