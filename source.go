package trackguard

import (
	"sync"
	"time"
)

// SubscribeOptions are advisory delivery knobs passed to a fix source.
// Platforms treat both as floors: a fix is delivered at least every
// MinInterval or every MinDistanceMeters of movement, whichever the
// source reports first.
type SubscribeOptions struct {
	MinInterval       time.Duration
	MinDistanceMeters float64
}

// Subscription is a cancellable stream of deliveries.
type Subscription interface {
	// Cancel stops delivery. Callbacks already in flight may still run;
	// the Monitor discards those via its generation guard.
	Cancel()
}

// FixSource produces device position fixes.
//
// Current returns the most recent fix immediately, failing with
// ErrPermissionDenied if the platform denies location access or
// ErrUnavailable if no fix can currently be produced. Subscribe opens a
// continuous stream of fixes at the requested cadence.
type FixSource interface {
	Current() (Fix, error)
	Subscribe(opts SubscribeOptions, onFix func(Fix)) (Subscription, error)
}

// funcSubscription adapts a cancel func to the Subscription interface.
type funcSubscription func()

func (f funcSubscription) Cancel() { f() }

// ManualSource is a FixSource fed programmatically via Push. It is used
// by the example console (fixes arrive over HTTP from the paired tracker
// device) and in tests.
type ManualSource struct {
	mu     sync.Mutex
	last   *Fix
	err    error
	nextID int
	subs   map[int]func(Fix)
}

// NewManualSource creates an empty manual source. Until the first Push,
// Current fails with ErrUnavailable.
func NewManualSource() *ManualSource {
	return &ManualSource{subs: make(map[int]func(Fix))}
}

// Push delivers a fix to all subscribers and records it as the current fix.
func (s *ManualSource) Push(fix Fix) {
	s.mu.Lock()
	s.last = &fix
	s.err = nil
	callbacks := make([]func(Fix), 0, len(s.subs))
	for _, fn := range s.subs {
		callbacks = append(callbacks, fn)
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(fix)
	}
}

// Fail makes subsequent Current calls return err until the next Push.
// Use ErrPermissionDenied or ErrUnavailable to simulate platform states.
func (s *ManualSource) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Current returns the last pushed fix.
func (s *ManualSource) Current() (Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return Fix{}, s.err
	}
	if s.last == nil {
		return Fix{}, ErrUnavailable
	}
	return *s.last, nil
}

// Subscribe registers a callback for future pushes. The cadence options
// are ignored: a manual source delivers every push.
func (s *ManualSource) Subscribe(_ SubscribeOptions, onFix func(Fix)) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err == ErrPermissionDenied {
		return nil, ErrPermissionDenied
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = onFix

	return funcSubscription(func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}), nil
}
