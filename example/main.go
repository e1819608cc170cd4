package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/iverson-dev/trackguard"
	"github.com/iverson-dev/trackguard/store"
)

var (
	monitor *trackguard.Monitor
	source  *trackguard.ManualSource
)

func main() {
	source = trackguard.NewManualSource()

	cfg := trackguard.Config{
		Source:      source,
		MinInterval: 5 * time.Second,
	}

	// Zero-config uses SQLite (creates trackguard.db automatically).
	// Set REDIS_ADDR for the Redis realtime store with cross-device sync.
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		fences, history, err := store.NewRedisFromConfig(store.RedisConfig{Addr: addr})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		cfg.GeofenceStore = fences
		cfg.HistoryStore = history
	}

	var err error
	monitor, err = trackguard.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize monitor: %v", err)
	}
	defer monitor.Close()

	if err := monitor.Start("demo-user"); err != nil {
		log.Fatalf("Failed to start monitoring: %v", err)
	}

	// Surface alerts as they happen
	go func() {
		for alert := range monitor.Events() {
			switch alert.Kind {
			case trackguard.AlertCrossing:
				e := alert.Crossing
				log.Printf("ALERT: %s safe zone at (%.5f, %.5f), %.0fm from center",
					e.Direction, e.Fix.Latitude, e.Fix.Longitude, e.DistanceMeters)
			case trackguard.AlertUnavailable:
				log.Printf("ALERT: location unavailable")
			}
		}
	}()

	// HTTP handlers
	http.HandleFunc("/fix", fixHandler)
	http.HandleFunc("/geofence", geofenceHandler)
	http.HandleFunc("/history", historyHandler)
	http.HandleFunc("/status", statusHandler)

	fmt.Println("Trackguard example server running on :8080")
	fmt.Println("Endpoints:")
	fmt.Println("  POST /fix?lat=7.0731&lng=125.6128          - Report a position fix")
	fmt.Println("  POST /geofence?lat=7.0731&lng=125.6128&radius=100 - Set the safe zone")
	fmt.Println("  GET  /geofence                             - Show the safe zone")
	fmt.Println("  GET  /history                              - Show the fix history")
	fmt.Println("  GET  /status                               - Show last fix and state")

	log.Fatal(http.ListenAndServe(":8080", nil))
}

func fixHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "lat and lng required", http.StatusBadRequest)
		return
	}

	source.Push(trackguard.Fix{
		Latitude:        lat,
		Longitude:       lng,
		TimestampMillis: time.Now().UnixMilli(),
	})

	w.WriteHeader(http.StatusAccepted)
}

func geofenceHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		fence, ok := monitor.Geofence()
		if !ok {
			http.Error(w, "no geofence configured", http.StatusNotFound)
			return
		}
		writeJSON(w, fence)

	case http.MethodPost:
		lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		lng, err2 := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
		radius, err3 := strconv.ParseFloat(r.URL.Query().Get("radius"), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			http.Error(w, "lat, lng and radius required", http.StatusBadRequest)
			return
		}

		if err := monitor.SetGeofence(lat, lng, radius); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Attribute the edit to the device that made it
		device := trackguard.ExtractDeviceInfo(r)
		log.Printf("geofence set to (%.5f, %.5f) r=%.0fm by %s", lat, lng, radius, device.Label())

		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func historyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, monitor.History())
}

func statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := struct {
		State   string          `json:"state"`
		LastFix *trackguard.Fix `json:"last_fix,omitempty"`
	}{
		State: monitor.State().String(),
	}
	if fix, ok := monitor.LastFix(); ok {
		status.LastFix = &fix
	}
	writeJSON(w, status)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
