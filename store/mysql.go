package store

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLGeofenceStore implements GeofenceStore using MySQL, the database
// shared with the administrative console. Subscribe polls the row like
// the SQLite backend.
type MySQLGeofenceStore struct {
	db *sql.DB
}

// MySQLHistoryStore implements HistoryStore using MySQL.
type MySQLHistoryStore struct {
	db *sql.DB
}

// NewMySQL creates MySQL-backed geofence and history stores from an
// existing connection.
func NewMySQL(db *sql.DB) (*MySQLGeofenceStore, *MySQLHistoryStore, error) {
	if err := createMySQLSchema(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return &MySQLGeofenceStore{db: db}, &MySQLHistoryStore{db: db}, nil
}

// NewMySQLFromDSN creates MySQL-backed stores from a DSN.
// The DSN format is: user:password@tcp(host:port)/database
func NewMySQLFromDSN(dsn string) (*MySQLGeofenceStore, *MySQLHistoryStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("mysql: failed to connect: %w", err)
	}

	return NewMySQL(db)
}

func createMySQLSchema(db *sql.DB) error {
	schemas := []string{`
	CREATE TABLE IF NOT EXISTS geofences (
		user_id    VARCHAR(255) PRIMARY KEY,
		latitude   DOUBLE NOT NULL,
		longitude  DOUBLE NOT NULL,
		radius     DOUBLE NOT NULL,
		updated_at BIGINT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`, `
	CREATE TABLE IF NOT EXISTS history (
		user_id   VARCHAR(255) NOT NULL,
		seq       INT NOT NULL,
		latitude  DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		timestamp BIGINT NOT NULL,
		PRIMARY KEY (user_id, seq)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("mysql: failed to create schema: %w", err)
		}
	}
	return nil
}

// Read returns the user's geofence, or nil if none has been written.
func (s *MySQLGeofenceStore) Read(userID string) (*Geofence, error) {
	var fence Geofence
	err := s.db.QueryRow(
		"SELECT latitude, longitude, radius, updated_at FROM geofences WHERE user_id = ?",
		userID,
	).Scan(&fence.Latitude, &fence.Longitude, &fence.Radius, &fence.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mysql: failed to read geofence: %w", err)
	}
	return &fence, nil
}

// Write replaces the user's geofence document.
func (s *MySQLGeofenceStore) Write(userID string, fence *Geofence) error {
	_, err := s.db.Exec(`
	INSERT INTO geofences (user_id, latitude, longitude, radius, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		latitude = VALUES(latitude),
		longitude = VALUES(longitude),
		radius = VALUES(radius),
		updated_at = VALUES(updated_at)`,
		userID, fence.Latitude, fence.Longitude, fence.Radius, fence.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("mysql: failed to write geofence: %w", err)
	}
	return nil
}

// Subscribe polls the user's geofence row and invokes onUpdate whenever
// a row with a newer updated_at appears.
func (s *MySQLGeofenceStore) Subscribe(userID string, onUpdate func(*Geofence)) (Subscription, error) {
	return newPollSubscription(userID, s.Read, onUpdate), nil
}

// Close closes the database connection. When the paired history store
// shares the connection, closing either closes both.
func (s *MySQLGeofenceStore) Close() error {
	return s.db.Close()
}

// Replace overwrites the user's history inside a transaction.
func (s *MySQLHistoryStore) Replace(userID string, fixes []Fix) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("mysql: failed to begin history replace: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM history WHERE user_id = ?", userID); err != nil {
		tx.Rollback()
		return fmt.Errorf("mysql: failed to clear history: %w", err)
	}

	for i, fix := range fixes {
		_, err := tx.Exec(
			"INSERT INTO history (user_id, seq, latitude, longitude, timestamp) VALUES (?, ?, ?, ?, ?)",
			userID, i, fix.Latitude, fix.Longitude, fix.Timestamp,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("mysql: failed to insert fix: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mysql: failed to commit history replace: %w", err)
	}
	return nil
}

// Read returns the user's history in insertion order.
func (s *MySQLHistoryStore) Read(userID string) ([]Fix, error) {
	rows, err := s.db.Query(
		"SELECT latitude, longitude, timestamp FROM history WHERE user_id = ? ORDER BY seq",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("mysql: failed to query history: %w", err)
	}
	defer rows.Close()

	fixes := []Fix{}
	for rows.Next() {
		var fix Fix
		if err := rows.Scan(&fix.Latitude, &fix.Longitude, &fix.Timestamp); err != nil {
			return nil, fmt.Errorf("mysql: failed to scan fix: %w", err)
		}
		fixes = append(fixes, fix)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql: error iterating history: %w", err)
	}
	return fixes, nil
}

// Close closes the database connection.
func (s *MySQLHistoryStore) Close() error {
	return s.db.Close()
}
