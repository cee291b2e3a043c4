package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/torxx666/rainy-day/pkg/clock"
)

// RedisStore is a Redis-backed Store. Entries are stored as JSON with the
// freshness deadline embedded, and the Redis TTL is the freshness TTL
// multiplied by RetentionFactor so that expired entries remain available
// for stale-serving until the retention window closes.
type RedisStore struct {
	rdb             *redis.Client
	clk             clock.Clock
	retentionFactor int
}

// NewRedisStore creates a Redis-backed store. retentionFactor must be at
// least 1; a factor of 4 keeps stale entries around for three extra TTLs.
func NewRedisStore(rdb *redis.Client, clk clock.Clock, retentionFactor int) *RedisStore {
	if rdb == nil {
		panic("redis client cannot be nil")
	}
	if retentionFactor < 1 {
		retentionFactor = 1
	}
	return &RedisStore{
		rdb:             rdb,
		clk:             clk,
		retentionFactor: retentionFactor,
	}
}

// Get returns the entry stored under key, expired or not. Entries past the
// retention window have been dropped by Redis and count as misses.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			cacheMisses.Inc()
			return nil, ErrMiss
		}
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("unmarshal cache entry: %w", err)
	}

	if entry.FreshAt(s.clk.Now()) {
		cacheHits.WithLabelValues("fresh").Inc()
	} else {
		cacheHits.WithLabelValues("stale").Inc()
	}

	return &entry, nil
}

// Put overwrites the entry for key, resetting its freshness window.
func (s *RedisStore) Put(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := s.clk.Now()
	entry := &Entry{
		Key:       key,
		Data:      data,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	retention := ttl * time.Duration(s.retentionFactor)
	if err := s.rdb.Set(ctx, key, raw, retention).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}
