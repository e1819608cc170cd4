package store

import "sync"

// MemoryGeofenceStore implements GeofenceStore using an in-memory map
// with local subscriber fan-out. This is useful for testing and
// single-process deployments but offers no cross-device propagation.
type MemoryGeofenceStore struct {
	mu     sync.RWMutex
	fences map[string]*Geofence

	nextSubID int
	subs      map[string]map[int]func(*Geofence) // userID -> subID -> callback
}

// NewMemoryGeofenceStore creates a new in-memory geofence store.
func NewMemoryGeofenceStore() *MemoryGeofenceStore {
	return &MemoryGeofenceStore{
		fences: make(map[string]*Geofence),
		subs:   make(map[string]map[int]func(*Geofence)),
	}
}

// Read returns the user's geofence, or nil if none has been written.
func (s *MemoryGeofenceStore) Read(userID string) (*Geofence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fence, ok := s.fences[userID]
	if !ok {
		return nil, nil
	}
	copied := *fence
	return &copied, nil
}

// Write replaces the user's geofence and notifies subscribers.
func (s *MemoryGeofenceStore) Write(userID string, fence *Geofence) error {
	copied := *fence

	s.mu.Lock()
	s.fences[userID] = &copied
	callbacks := make([]func(*Geofence), 0, len(s.subs[userID]))
	for _, fn := range s.subs[userID] {
		callbacks = append(callbacks, fn)
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		delivered := copied
		fn(&delivered)
	}
	return nil
}

// Subscribe registers a callback for future geofence writes for the user.
func (s *MemoryGeofenceStore) Subscribe(userID string, onUpdate func(*Geofence)) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[userID] == nil {
		s.subs[userID] = make(map[int]func(*Geofence))
	}
	id := s.nextSubID
	s.nextSubID++
	s.subs[userID][id] = onUpdate

	return &memorySubscription{store: s, userID: userID, id: id}, nil
}

// Close is a no-op for the memory store.
func (s *MemoryGeofenceStore) Close() error {
	return nil
}

type memorySubscription struct {
	store  *MemoryGeofenceStore
	userID string
	id     int
	once   sync.Once
}

func (s *memorySubscription) Cancel() {
	s.once.Do(func() {
		s.store.mu.Lock()
		defer s.store.mu.Unlock()

		if subs, ok := s.store.subs[s.userID]; ok {
			delete(subs, s.id)
			if len(subs) == 0 {
				delete(s.store.subs, s.userID)
			}
		}
	})
}

// MemoryHistoryStore implements HistoryStore using an in-memory map.
// This is useful for testing but not recommended for production.
type MemoryHistoryStore struct {
	mu        sync.RWMutex
	histories map[string][]Fix
}

// NewMemoryHistoryStore creates a new in-memory history store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{
		histories: make(map[string][]Fix),
	}
}

// Replace overwrites the user's history.
func (s *MemoryHistoryStore) Replace(userID string, fixes []Fix) error {
	copied := make([]Fix, len(fixes))
	copy(copied, fixes)

	s.mu.Lock()
	s.histories[userID] = copied
	s.mu.Unlock()
	return nil
}

// Read returns the user's history in insertion order.
func (s *MemoryHistoryStore) Read(userID string) ([]Fix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.histories[userID]
	copied := make([]Fix, len(history))
	copy(copied, history)
	return copied, nil
}

// Close is a no-op for the memory store.
func (s *MemoryHistoryStore) Close() error {
	return nil
}
