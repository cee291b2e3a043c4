// Package warmer pre-populates the cache with popular cities so the first
// real requests after startup are served from cache.
package warmer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/torxx666/rainy-day/pkg/logging"
	"github.com/torxx666/rainy-day/pkg/weather"
)

// Prometheus metrics for cache warming.
var (
	warmingCitiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_proxy_cache_warming_cities_total",
		Help: "Number of cities warmed in cache by status",
	}, []string{"status"})

	warmingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weather_proxy_cache_warming_duration_seconds",
		Help:    "Time taken to warm the cache",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})
)

// Retriever is the slice of the orchestrator the warmer needs.
type Retriever interface {
	Retrieve(ctx context.Context, city string) (*weather.Result, error)
}

// Warmer fetches a fixed city list concurrently through the normal
// retrieval path, so warming respects the breaker and retry policy.
type Warmer struct {
	retriever   Retriever
	cities      []string
	concurrency int
	logger      zerolog.Logger
}

// New creates a warmer for the given city list.
func New(retriever Retriever, cities []string, logger zerolog.Logger) *Warmer {
	return &Warmer{
		retriever:   retriever,
		cities:      cities,
		concurrency: 4,
		logger:      logger,
	}
}

// Warm fetches every configured city. Individual failures are logged and
// counted but never abort the run; returns the success and failure counts.
func (w *Warmer) Warm(ctx context.Context) (succeeded, failed int) {
	if len(w.cities) == 0 {
		return 0, 0
	}

	start := time.Now()
	defer func() {
		warmingDuration.Observe(time.Since(start).Seconds())
	}()

	w.logger.Info().
		Int("cities", len(w.cities)).
		Msg("cache warming started")

	var okCount, failCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, city := range w.cities {
		g.Go(func() error {
			// Each warming fetch is its own traceable request.
			cctx := logging.WithCorrelationID(gctx, "")
			if _, err := w.retriever.Retrieve(cctx, city); err != nil {
				failCount.Add(1)
				warmingCitiesTotal.WithLabelValues("failed").Inc()
				w.logger.Warn().Err(err).Str("city", city).Msg("cache warming city failed")
				return nil
			}
			okCount.Add(1)
			warmingCitiesTotal.WithLabelValues("success").Inc()
			return nil
		})
	}
	_ = g.Wait()

	succeeded, failed = int(okCount.Load()), int(failCount.Load())
	w.logger.Info().
		Int("success", succeeded).
		Int("failed", failed).
		Msg("cache warming completed")

	return succeeded, failed
}
