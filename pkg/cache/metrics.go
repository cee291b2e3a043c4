package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_proxy_cache_hits_total",
			Help: "Total cache hits by freshness",
		},
		[]string{"freshness"}, // "fresh", "stale"
	)

	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_proxy_cache_misses_total",
			Help: "Total cache misses",
		},
	)

	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_proxy_cache_errors_total",
			Help: "Total cache backend errors by operation",
		},
		[]string{"operation"}, // "get", "set"
	)
)
