package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/torxx666/rainy-day/pkg/clock"
)

// ErrMiss indicates the key has never been written.
var ErrMiss = errors.New("cache miss")

// Store is the cache contract used by the retrieval path. Get returns the
// stored entry even when it has expired; callers decide freshness via
// Entry.FreshAt. Put unconditionally overwrites.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Key builds the cache key for a city lookup.
// City names are case-normalized so "Paris" and "paris" share one entry.
func Key(city string) string {
	return "weather:" + strings.ToLower(strings.TrimSpace(city))
}

// MemoryStore is the default in-process Store. Entries are immutable once
// written and the map is guarded by a single RWMutex; the key space is the
// finite set of queried cities, so no eviction is needed.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	clk     clock.Clock
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		clk:     clk,
	}
}

// Get returns the entry stored under key, expired or not.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		cacheMisses.Inc()
		return nil, ErrMiss
	}

	if entry.FreshAt(s.clk.Now()) {
		cacheHits.WithLabelValues("fresh").Inc()
	} else {
		cacheHits.WithLabelValues("stale").Inc()
	}

	return entry, nil
}

// Put overwrites the entry for key, resetting its freshness window.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, ttl time.Duration) error {
	now := s.clk.Now()
	entry := &Entry{
		Key:       key,
		Data:      data,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()

	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
