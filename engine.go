package trackguard

// ZoneState is the engine's view of where the subject last was relative
// to the active geofence.
type ZoneState int

const (
	// StateUnknown means no fix has been evaluated against the current
	// geofence configuration yet.
	StateUnknown ZoneState = iota

	// StateInside means the last evaluated fix was inside the zone.
	StateInside

	// StateOutside means the last evaluated fix was outside the zone.
	StateOutside
)

// String returns a human-readable state name.
func (s ZoneState) String() string {
	switch s {
	case StateInside:
		return "inside"
	case StateOutside:
		return "outside"
	default:
		return "unknown"
	}
}

// Engine decides, for each new fix, whether the subject crossed the
// geofence boundary. Hysteresis: a transition is reported only from a
// previously known state, so the first fix after (re)configuration never
// fires, and identical consecutive states never re-fire.
//
// Engine is a pure in-memory state machine and is not safe for concurrent
// use; the owning Monitor serializes access.
type Engine struct {
	state ZoneState
}

// NewEngine creates an engine in the unknown state.
func NewEngine() *Engine {
	return &Engine{state: StateUnknown}
}

// Evaluate applies a fix against the geofence and returns a CrossingEvent
// if the boundary was crossed, or nil otherwise. The engine state always
// advances to the fix's side of the boundary.
func (e *Engine) Evaluate(fix Fix, fence Geofence) *CrossingEvent {
	distance := fence.Distance(fix)

	target := StateOutside
	if distance <= fence.RadiusMeters {
		target = StateInside
	}

	previous := e.state
	e.state = target

	if previous == StateUnknown || previous == target {
		return nil
	}

	direction := Exited
	if target == StateInside {
		direction = Entered
	}

	return &CrossingEvent{
		Fix:            fix,
		Geofence:       fence,
		DistanceMeters: distance,
		Direction:      direction,
	}
}

// Reset returns the engine to the unknown state. Called whenever the
// geofence is (re)configured so the next fix adopts a state silently.
func (e *Engine) Reset() {
	e.state = StateUnknown
}

// State returns the engine's current state.
func (e *Engine) State() ZoneState {
	return e.state
}
