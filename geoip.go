package trackguard

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/oschwald/geoip2-golang"
)

// GeoIPSource is a coarse FixSource backed by a MaxMind GeoLite2-City
// database. It derives an approximate position from the device's public
// IP address and serves as a fallback when no GPS feed is available.
// Accuracy is city-level at best.
type GeoIPSource struct {
	db     *geoip2.Reader
	ipFunc func() string

	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

// NewGeoIPSource opens a MaxMind GeoLite2-City database. ipFunc supplies
// the device's current public IP on each lookup.
func NewGeoIPSource(dbPath string, ipFunc func() string) (*GeoIPSource, error) {
	if dbPath == "" {
		return nil, ErrGeoIPDatabaseNotConfigured
	}

	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("trackguard: failed to open GeoIP database: %w", err)
	}

	return &GeoIPSource{
		db:     db,
		ipFunc: ipFunc,
		subs:   make(map[int]chan struct{}),
	}, nil
}

// Current looks up the device's IP and returns a city-level fix.
// Fails with ErrUnavailable when the IP cannot be resolved to a location.
func (s *GeoIPSource) Current() (Fix, error) {
	ip := s.ipFunc()
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Fix{}, fmt.Errorf("%w: %s", ErrInvalidIP, ip)
	}

	record, err := s.db.City(parsed)
	if err != nil {
		return Fix{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		// MaxMind returns an empty record for unknown networks.
		return Fix{}, ErrUnavailable
	}

	return Fix{
		Latitude:        record.Location.Latitude,
		Longitude:       record.Location.Longitude,
		TimestampMillis: time.Now().UnixMilli(),
	}, nil
}

// Subscribe polls at the requested interval and delivers each successful
// lookup. The distance threshold is ignored: IP geolocation has no
// movement signal to honor it with.
func (s *GeoIPSource) Subscribe(opts SubscribeOptions, onFix func(Fix)) (Subscription, error) {
	interval := opts.MinInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	stop := make(chan struct{})

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				fix, err := s.Current()
				if err != nil {
					continue
				}
				onFix(fix)
			case <-stop:
				return
			}
		}
	}()

	return funcSubscription(func() {
		s.mu.Lock()
		if ch, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
	}), nil
}

// Close cancels all subscriptions and closes the GeoIP database.
func (s *GeoIPSource) Close() error {
	s.mu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	return s.db.Close()
}
