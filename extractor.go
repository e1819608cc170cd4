package trackguard

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// DeviceInfo identifies the device behind an HTTP request to the console.
// Geofence edits are attributed to a device so an operator can tell which
// phone or browser last moved the safe zone.
type DeviceInfo struct {
	IP         string `json:"ip"`
	UserAgent  string `json:"user_agent"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"device_type"` // mobile, desktop, tablet
}

// Label returns a compact human-readable description of the device,
// e.g. "Chrome 120 on Android 14 (mobile)".
func (d DeviceInfo) Label() string {
	label := d.Browser
	if label == "" {
		label = "unknown browser"
	}
	if d.OS != "" {
		label += " on " + d.OS
	}
	if d.DeviceType != "" {
		label += " (" + d.DeviceType + ")"
	}
	return label
}

// ExtractDeviceInfo extracts device information from an HTTP request.
func ExtractDeviceInfo(r *http.Request) DeviceInfo {
	ua := r.UserAgent()
	ip := extractIP(r)

	// Parse user agent
	parsed := useragent.New(ua)
	browser, browserVersion := parsed.Browser()
	if browserVersion != "" {
		browser = browser + " " + browserVersion
	}

	osInfo := parsed.OSInfo()
	os := osInfo.Name
	if osInfo.Version != "" {
		os = os + " " + osInfo.Version
	}

	// Determine device type
	deviceType := "desktop"
	if parsed.Mobile() {
		deviceType = "mobile"
	} else if parsed.Bot() {
		deviceType = "bot"
	} else if isTablet(ua) {
		deviceType = "tablet"
	}

	return DeviceInfo{
		IP:         ip,
		UserAgent:  ua,
		Browser:    browser,
		OS:         os,
		DeviceType: deviceType,
	}
}

// extractIP extracts the client IP from an HTTP request.
// It checks common proxy headers first, then falls back to RemoteAddr.
func extractIP(r *http.Request) string {
	// Check X-Forwarded-For header (comma-separated list, first is client)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if isValidIP(ip) {
				return ip
			}
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		ip := strings.TrimSpace(xri)
		if isValidIP(ip) {
			return ip
		}
	}

	// Fall back to RemoteAddr (strip the port)
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isValidIP reports whether the string parses as an IP address.
func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// isTablet heuristically detects tablets from the raw user agent.
func isTablet(ua string) bool {
	lowered := strings.ToLower(ua)
	return strings.Contains(lowered, "tablet") || strings.Contains(lowered, "ipad")
}
