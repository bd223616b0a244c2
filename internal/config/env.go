package config

import (
	"os"
	"time"
)

const (
	DefaultBackendURL     = "http://localhost:8000"
	DefaultBackendTimeout = 30 * time.Second
)

// Get returns the first non-empty environment variable from the provided keys.
func Get(keys ...string) string {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

// GetDefault is Get with a fallback for when every key is unset.
func GetDefault(fallback string, keys ...string) string {
	if value := Get(keys...); value != "" {
		return value
	}
	return fallback
}

// GetDuration parses the first non-empty key as a Go duration. Unset or
// malformed values yield fallback.
func GetDuration(fallback time.Duration, keys ...string) time.Duration {
	value := Get(keys...)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// BackendURL returns the analysis backend base URL.
func BackendURL() string {
	return GetDefault(DefaultBackendURL, "BSLNAV_BACKEND_URL")
}

// BackendTimeout returns the per-request timeout for the analysis backend.
func BackendTimeout() time.Duration {
	return GetDuration(DefaultBackendTimeout, "BSLNAV_BACKEND_TIMEOUT")
}
