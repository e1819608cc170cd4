package store

import (
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestMemoryGeofenceStore(t *testing.T) {
	s := NewMemoryGeofenceStore()
	defer s.Close()

	fence, err := s.Read("user1")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if fence != nil {
		t.Fatalf("expected nil for absent geofence, got %+v", fence)
	}

	var updates []*Geofence
	sub, err := s.Subscribe("user1", func(f *Geofence) {
		updates = append(updates, f)
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	written := &Geofence{Latitude: 7.0731, Longitude: 125.6128, Radius: 100, UpdatedAt: 42}
	if err := s.Write("user1", written); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	fence, err = s.Read("user1")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if fence == nil || fence.Radius != 100 || fence.UpdatedAt != 42 {
		t.Errorf("read back wrong geofence: %+v", fence)
	}

	if len(updates) != 1 {
		t.Fatalf("expected 1 subscriber delivery, got %d", len(updates))
	}

	// A write for another user is not delivered
	s.Write("user2", written)
	if len(updates) != 1 {
		t.Errorf("subscriber received another user's update")
	}

	// No deliveries after cancel
	sub.Cancel()
	s.Write("user1", written)
	if len(updates) != 1 {
		t.Errorf("subscriber received an update after cancel")
	}
	sub.Cancel() // idempotent
}

func TestMemoryHistoryStore(t *testing.T) {
	s := NewMemoryHistoryStore()
	defer s.Close()

	fixes, err := s.Read("user1")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if len(fixes) != 0 {
		t.Fatalf("expected empty history, got %d fixes", len(fixes))
	}

	first := []Fix{{Latitude: 1, Longitude: 2, Timestamp: 10}}
	if err := s.Replace("user1", first); err != nil {
		t.Fatalf("Failed to replace: %v", err)
	}

	// Replace overwrites the whole list
	second := []Fix{
		{Latitude: 1, Longitude: 2, Timestamp: 10},
		{Latitude: 3, Longitude: 4, Timestamp: 20},
	}
	if err := s.Replace("user1", second); err != nil {
		t.Fatalf("Failed to replace: %v", err)
	}

	fixes, err = s.Read("user1")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if len(fixes) != 2 || fixes[1].Timestamp != 20 {
		t.Errorf("read back wrong history: %+v", fixes)
	}
}

func TestRedisCloseShared(t *testing.T) {
	// The geofence and history stores share one client; closing both must
	// not surface a spurious "client is closed" from the second Close.
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	fences, history := NewRedis(client, "test:")
	if err := fences.Close(); err != nil {
		t.Fatalf("Failed to close geofence store: %v", err)
	}
	if err := history.Close(); err != nil {
		t.Errorf("closing the paired store should be a no-op, got %v", err)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	fences, history, err := NewSQLite(filepath.Join(t.TempDir(), "trackguard.db"))
	if err != nil {
		t.Fatalf("Failed to open SQLite store: %v", err)
	}
	defer fences.Close()

	fence, err := fences.Read("user1")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if fence != nil {
		t.Fatalf("expected nil for absent geofence, got %+v", fence)
	}

	written := &Geofence{Latitude: 7.0731, Longitude: 125.6128, Radius: 100, UpdatedAt: 42}
	if err := fences.Write("user1", written); err != nil {
		t.Fatalf("Failed to write geofence: %v", err)
	}

	// Writes replace the document wholesale
	written.Radius = 250
	written.UpdatedAt = 43
	if err := fences.Write("user1", written); err != nil {
		t.Fatalf("Failed to rewrite geofence: %v", err)
	}

	fence, err = fences.Read("user1")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if fence == nil || fence.Radius != 250 || fence.UpdatedAt != 43 {
		t.Errorf("read back wrong geofence: %+v", fence)
	}

	fixes := []Fix{
		{Latitude: 7.0731, Longitude: 125.6128, Timestamp: 10},
		{Latitude: 7.0740, Longitude: 125.6130, Timestamp: 20},
	}
	if err := history.Replace("user1", fixes); err != nil {
		t.Fatalf("Failed to replace history: %v", err)
	}
	if err := history.Replace("user1", fixes[:1]); err != nil {
		t.Fatalf("Failed to shrink history: %v", err)
	}

	got, err := history.Read("user1")
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(got) != 1 || got[0].Timestamp != 10 {
		t.Errorf("read back wrong history: %+v", got)
	}
}
