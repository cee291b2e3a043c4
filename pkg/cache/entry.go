// Package cache provides the stale-retaining key/value store that fronts
// upstream weather lookups, with in-memory and Redis backends.
package cache

import (
	"time"
)

// Entry is a cached weather payload together with its freshness metadata.
// Expired entries are retained so they can still be served as a degraded
// fallback when the upstream is unavailable.
type Entry struct {
	// Key is the normalized lookup key the entry was stored under.
	Key string `json:"key"`

	// Data is the serialized payload.
	Data []byte `json:"data"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`

	// ExpiresAt is when the entry stops being fresh. The entry stays
	// servable as stale after this point until overwritten.
	ExpiresAt time.Time `json:"expires_at"`
}

// FreshAt reports whether the entry is still within its freshness window
// at the given time.
func (e *Entry) FreshAt(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age(now time.Time) time.Duration {
	age := now.Sub(e.StoredAt)
	if age < 0 {
		return 0
	}
	return age
}
