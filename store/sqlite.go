package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// defaultPollInterval is how often SQLite and MySQL subscriptions check
// the geofence row for a newer UpdatedAt. SQL databases have no change
// feed, so Subscribe is implemented by polling.
const defaultPollInterval = 2 * time.Second

// SQLiteGeofenceStore implements GeofenceStore using SQLite.
// It uses the pure Go modernc.org/sqlite driver. Subscribe polls the row,
// so propagation latency is bounded by the poll interval.
type SQLiteGeofenceStore struct {
	db *sql.DB
}

// SQLiteHistoryStore implements HistoryStore using SQLite.
type SQLiteHistoryStore struct {
	db *sql.DB
}

// NewSQLite creates SQLite-backed geofence and history stores sharing one
// database file. The file is created if it doesn't exist.
func NewSQLite(dbPath string) (*SQLiteGeofenceStore, *SQLiteHistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return &SQLiteGeofenceStore{db: db}, &SQLiteHistoryStore{db: db}, nil
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS geofences (
		user_id    TEXT PRIMARY KEY,
		latitude   REAL NOT NULL,
		longitude  REAL NOT NULL,
		radius     REAL NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS history (
		user_id   TEXT NOT NULL,
		seq       INTEGER NOT NULL,
		latitude  REAL NOT NULL,
		longitude REAL NOT NULL,
		timestamp INTEGER NOT NULL,
		PRIMARY KEY (user_id, seq)
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: failed to create schema: %w", err)
	}
	return nil
}

// Read returns the user's geofence, or nil if none has been written.
func (s *SQLiteGeofenceStore) Read(userID string) (*Geofence, error) {
	var fence Geofence
	err := s.db.QueryRow(
		"SELECT latitude, longitude, radius, updated_at FROM geofences WHERE user_id = ?",
		userID,
	).Scan(&fence.Latitude, &fence.Longitude, &fence.Radius, &fence.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to read geofence: %w", err)
	}
	return &fence, nil
}

// Write replaces the user's geofence document.
func (s *SQLiteGeofenceStore) Write(userID string, fence *Geofence) error {
	_, err := s.db.Exec(`
	INSERT OR REPLACE INTO geofences (user_id, latitude, longitude, radius, updated_at)
	VALUES (?, ?, ?, ?, ?)`,
		userID, fence.Latitude, fence.Longitude, fence.Radius, fence.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to write geofence: %w", err)
	}
	return nil
}

// Subscribe polls the user's geofence row and invokes onUpdate whenever
// a row with a newer updated_at appears.
func (s *SQLiteGeofenceStore) Subscribe(userID string, onUpdate func(*Geofence)) (Subscription, error) {
	return newPollSubscription(userID, s.Read, onUpdate), nil
}

// Close closes the database connection. When the paired history store
// shares the connection, closing either closes both.
func (s *SQLiteGeofenceStore) Close() error {
	return s.db.Close()
}

// Replace overwrites the user's history inside a transaction.
func (s *SQLiteHistoryStore) Replace(userID string, fixes []Fix) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin history replace: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM history WHERE user_id = ?", userID); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite: failed to clear history: %w", err)
	}

	for i, fix := range fixes {
		_, err := tx.Exec(
			"INSERT INTO history (user_id, seq, latitude, longitude, timestamp) VALUES (?, ?, ?, ?, ?)",
			userID, i, fix.Latitude, fix.Longitude, fix.Timestamp,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite: failed to insert fix: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit history replace: %w", err)
	}
	return nil
}

// Read returns the user's history in insertion order.
func (s *SQLiteHistoryStore) Read(userID string) ([]Fix, error) {
	rows, err := s.db.Query(
		"SELECT latitude, longitude, timestamp FROM history WHERE user_id = ? ORDER BY seq",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query history: %w", err)
	}
	defer rows.Close()

	fixes := []Fix{}
	for rows.Next() {
		var fix Fix
		if err := rows.Scan(&fix.Latitude, &fix.Longitude, &fix.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan fix: %w", err)
		}
		fixes = append(fixes, fix)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating history: %w", err)
	}
	return fixes, nil
}

// Close closes the database connection.
func (s *SQLiteHistoryStore) Close() error {
	return s.db.Close()
}

// pollSubscription implements Subscription by periodically re-reading the
// geofence document and reporting rows with a newer UpdatedAt. Shared by
// the SQLite and MySQL backends.
type pollSubscription struct {
	stop chan struct{}
	once sync.Once
}

func newPollSubscription(userID string, read func(string) (*Geofence, error), onUpdate func(*Geofence)) *pollSubscription {
	sub := &pollSubscription{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(defaultPollInterval)
		defer ticker.Stop()

		var lastSeen int64
		if fence, err := read(userID); err == nil && fence != nil {
			lastSeen = fence.UpdatedAt
		}

		for {
			select {
			case <-ticker.C:
				fence, err := read(userID)
				if err != nil || fence == nil {
					continue
				}
				if fence.UpdatedAt > lastSeen {
					lastSeen = fence.UpdatedAt
					onUpdate(fence)
				}
			case <-sub.stop:
				return
			}
		}
	}()

	return sub
}

func (s *pollSubscription) Cancel() {
	s.once.Do(func() { close(s.stop) })
}
