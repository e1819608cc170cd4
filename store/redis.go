package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGeofenceStore implements GeofenceStore using Redis. The geofence
// document is a JSON blob, and Subscribe uses Redis pub/sub so that a
// write on one device reaches every other device the user is logged into.
type RedisGeofenceStore struct {
	conn   *redisConn
	prefix string
}

// RedisHistoryStore implements HistoryStore using Redis. The whole fix
// list is stored as one JSON blob, matching the replace semantics.
type RedisHistoryStore struct {
	conn   *redisConn
	prefix string
}

// redisConn wraps the client shared by a geofence/history store pair so
// that closing both stores closes the client exactly once instead of the
// second Close failing with redis.ErrClosed.
type redisConn struct {
	client *redis.Client
	once   sync.Once
	err    error
}

func (c *redisConn) close() error {
	c.once.Do(func() { c.err = c.client.Close() })
	return c.err
}

// RedisConfig contains configuration options for Redis.
type RedisConfig struct {
	// Addr is the Redis server address (e.g., "localhost:6379")
	Addr string

	// Password is the Redis password (empty for no auth)
	Password string

	// DB is the Redis database number (0-15)
	DB int

	// KeyPrefix is prepended to all keys (default: "trackguard:")
	// typically ends with a colon.
	KeyPrefix string
}

// NewRedis creates Redis-backed geofence and history stores sharing one
// client, from an existing client and a key prefix.
func NewRedis(client *redis.Client, keyPrefix string) (*RedisGeofenceStore, *RedisHistoryStore) {
	conn := &redisConn{client: client}
	return &RedisGeofenceStore{conn: conn, prefix: keyPrefix},
		&RedisHistoryStore{conn: conn, prefix: keyPrefix}
}

// NewRedisFromConfig creates Redis-backed stores and verifies the connection.
func NewRedisFromConfig(cfg RedisConfig) (*RedisGeofenceStore, *RedisHistoryStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("redis: failed to connect: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "trackguard:"
	}

	fences, history := NewRedis(client, prefix)
	return fences, history, nil
}

func (s *RedisGeofenceStore) key(userID string) string {
	return s.prefix + "geofence:" + userID
}

func (s *RedisGeofenceStore) channel(userID string) string {
	return s.prefix + "geofence-updates:" + userID
}

// Read returns the user's geofence, or nil if none has been written.
func (s *RedisGeofenceStore) Read(userID string) (*Geofence, error) {
	ctx := context.Background()

	raw, err := s.conn.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: failed to read geofence: %w", err)
	}

	var fence Geofence
	if err := json.Unmarshal(raw, &fence); err != nil {
		return nil, fmt.Errorf("redis: failed to decode geofence: %w", err)
	}
	return &fence, nil
}

// Write replaces the user's geofence document and publishes the new
// document to subscribers on other devices.
func (s *RedisGeofenceStore) Write(userID string, fence *Geofence) error {
	ctx := context.Background()

	raw, err := json.Marshal(fence)
	if err != nil {
		return fmt.Errorf("redis: failed to encode geofence: %w", err)
	}

	if err := s.conn.client.Set(ctx, s.key(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis: failed to write geofence: %w", err)
	}

	if err := s.conn.client.Publish(ctx, s.channel(userID), raw).Err(); err != nil {
		return fmt.Errorf("redis: failed to publish geofence update: %w", err)
	}
	return nil
}

// Subscribe listens on the user's geofence pub/sub channel and invokes
// onUpdate for every published document.
func (s *RedisGeofenceStore) Subscribe(userID string, onUpdate func(*Geofence)) (Subscription, error) {
	ctx := context.Background()
	pubsub := s.conn.client.Subscribe(ctx, s.channel(userID))

	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis: failed to subscribe: %w", err)
	}

	sub := &redisSubscription{pubsub: pubsub}

	go func() {
		for msg := range pubsub.Channel() {
			var fence Geofence
			if err := json.Unmarshal([]byte(msg.Payload), &fence); err != nil {
				continue
			}
			onUpdate(&fence)
		}
	}()

	return sub, nil
}

// Close closes the Redis connection. When the paired history store shares
// the client, closing either closes both.
func (s *RedisGeofenceStore) Close() error {
	return s.conn.close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	once   sync.Once
}

func (s *redisSubscription) Cancel() {
	s.once.Do(func() { s.pubsub.Close() })
}

func (s *RedisHistoryStore) key(userID string) string {
	return s.prefix + "history:" + userID
}

// Replace overwrites the user's history with one JSON blob.
func (s *RedisHistoryStore) Replace(userID string, fixes []Fix) error {
	ctx := context.Background()

	raw, err := json.Marshal(fixes)
	if err != nil {
		return fmt.Errorf("redis: failed to encode history: %w", err)
	}

	if err := s.conn.client.Set(ctx, s.key(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis: failed to write history: %w", err)
	}
	return nil
}

// Read returns the user's history in insertion order.
func (s *RedisHistoryStore) Read(userID string) ([]Fix, error) {
	ctx := context.Background()

	raw, err := s.conn.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return []Fix{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: failed to read history: %w", err)
	}

	var fixes []Fix
	if err := json.Unmarshal(raw, &fixes); err != nil {
		return nil, fmt.Errorf("redis: failed to decode history: %w", err)
	}
	return fixes, nil
}

// Close closes the Redis connection.
func (s *RedisHistoryStore) Close() error {
	return s.conn.close()
}
