// Package weather contains the retrieval orchestrator: the cache-aside
// lookup composed with the circuit breaker, retry policy and upstream
// adapter into one resilient operation.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/torxx666/rainy-day/pkg/breaker"
	"github.com/torxx666/rainy-day/pkg/cache"
	"github.com/torxx666/rainy-day/pkg/clock"
	"github.com/torxx666/rainy-day/pkg/logging"
	"github.com/torxx666/rainy-day/pkg/retry"
	"github.com/torxx666/rainy-day/pkg/upstream"
)

// Prometheus metrics for the retrieval path.
var (
	retrievalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_proxy_requests_total",
		Help: "Total retrievals by outcome",
	}, []string{"outcome"})

	retrievalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weather_proxy_request_duration_seconds",
		Help:    "Retrieval duration in seconds by outcome",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"outcome"})
)

// ServedFrom tells where a successful result came from.
type ServedFrom string

const (
	// ServedFreshCache is a hit within the freshness window.
	ServedFreshCache ServedFrom = "fresh_cache"

	// ServedUpstream is a live upstream fetch.
	ServedUpstream ServedFrom = "upstream_fetch"

	// ServedStaleCache is an expired entry served because the upstream
	// was unavailable.
	ServedStaleCache ServedFrom = "stale_cache"
)

// Errors surfaced to the transport layer. Raw upstream errors never escape
// the orchestrator.
var (
	// ErrInvalidCity means the key does not resolve to a real location.
	ErrInvalidCity = errors.New("city not found")

	// ErrUnavailable means the upstream is degraded and no stale fallback
	// exists.
	ErrUnavailable = errors.New("weather service unavailable")
)

// Result is a successful retrieval.
type Result struct {
	Reading    upstream.Reading
	ServedFrom ServedFrom
}

// Config holds orchestrator parameters.
type Config struct {
	// CacheTTL is the freshness window for cached readings.
	CacheTTL time.Duration

	// Retry is the per-permit retry policy.
	Retry retry.Config
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		CacheTTL: 300 * time.Second,
		Retry:    retry.DefaultConfig(),
	}
}

// Service is the retrieval orchestrator. One instance is shared by all
// requests; the breaker it holds represents the single logical upstream
// dependency.
type Service struct {
	store   cache.Store
	breaker *breaker.Breaker
	fetcher upstream.Fetcher
	cfg     Config
	clk     clock.Clock
	logger  zerolog.Logger
}

// NewService composes the retrieval pipeline. All collaborators are
// constructor-injected so tests can build isolated instances.
func NewService(store cache.Store, brk *breaker.Breaker, fetcher upstream.Fetcher, cfg Config, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		breaker: brk,
		fetcher: fetcher,
		cfg:     cfg,
		clk:     clk,
		logger:  logger,
	}
}

// Retrieve returns the most recent weather reading available for city.
// Fresh cache hits return without touching the upstream or the breaker; on
// miss or stale, the upstream is called under a breaker permit with the
// retry policy, falling back to the stale entry when the fetch fails.
func (s *Service) Retrieve(ctx context.Context, city string) (*Result, error) {
	start := s.clk.Now()
	logger := logging.WithRequest(ctx, s.logger).With().Str("city", city).Logger()

	key := cache.Key(city)

	// Cache failure degrades to upstream-only: caching is an optimization,
	// not a correctness dependency.
	var stale *upstream.Reading
	entry, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		reading, decodeErr := decodeReading(entry.Data)
		if decodeErr != nil {
			logger.Warn().Err(decodeErr).Msg("dropping undecodable cache entry")
		} else if entry.FreshAt(s.clk.Now()) {
			logger.Debug().Dur("age", entry.Age(s.clk.Now())).Msg("fresh cache hit")
			s.observe(logger, start, string(ServedFreshCache))
			return &Result{Reading: *reading, ServedFrom: ServedFreshCache}, nil
		} else {
			stale = reading
		}
	case errors.Is(err, cache.ErrMiss):
		logger.Debug().Msg("cache miss")
	default:
		logger.Warn().Err(err).Msg("cache read failed, continuing upstream-only")
	}

	if !s.breaker.Allow() {
		if stale != nil {
			logger.Warn().Msg("breaker open, serving stale entry")
			s.observe(logger, start, string(ServedStaleCache))
			return &Result{Reading: *stale, ServedFrom: ServedStaleCache}, nil
		}
		logger.Warn().Msg("breaker open, no stale fallback")
		s.observe(logger, start, "rejected")
		return nil, ErrUnavailable
	}

	var reading *upstream.Reading
	fetchErr := retry.Do(ctx, s.cfg.Retry, logger, upstream.IsRetryable, func(ctx context.Context) error {
		r, err := s.fetcher.Fetch(ctx, city)
		if err != nil {
			return err
		}
		reading = r
		return nil
	})

	if fetchErr == nil {
		if data, err := json.Marshal(reading); err != nil {
			logger.Warn().Err(err).Msg("failed to encode reading for cache")
		} else if err := s.store.Put(ctx, key, data, s.cfg.CacheTTL); err != nil {
			logger.Warn().Err(err).Msg("cache write failed")
		}
		s.breaker.RecordSuccess()
		s.observe(logger, start, string(ServedUpstream))
		return &Result{Reading: *reading, ServedFrom: ServedUpstream}, nil
	}

	if upstream.KindOf(fetchErr) == upstream.KindNotFound {
		// Caller input, not upstream health: the failure count stays
		// untouched and any half-open probe permit is released.
		s.breaker.RecordNeutral()
		logger.Info().Msg("city does not resolve")
		s.observe(logger, start, "invalid_city")
		return nil, ErrInvalidCity
	}

	// One recordFailure per exhausted permit, regardless of attempt count.
	s.breaker.RecordFailure()

	if stale != nil {
		logger.Warn().Err(fetchErr).Msg("upstream failed, serving stale entry")
		s.observe(logger, start, string(ServedStaleCache))
		return &Result{Reading: *stale, ServedFrom: ServedStaleCache}, nil
	}

	logger.Error().Err(fetchErr).Msg("upstream failed, no stale fallback")
	s.observe(logger, start, "unavailable")
	return nil, ErrUnavailable
}

func (s *Service) observe(logger zerolog.Logger, start time.Time, outcome string) {
	elapsed := s.clk.Now().Sub(start)
	retrievalsTotal.WithLabelValues(outcome).Inc()
	retrievalDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	logger.Info().
		Str("outcome", outcome).
		Dur("duration", elapsed).
		Msg("retrieval completed")
}

func decodeReading(data []byte) (*upstream.Reading, error) {
	var reading upstream.Reading
	if err := json.Unmarshal(data, &reading); err != nil {
		return nil, err
	}
	return &reading, nil
}
