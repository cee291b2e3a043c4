// Package metrics documents the Prometheus metrics exposed by the weather
// proxy. Metrics are defined next to the code that drives them (cache,
// breaker, retry, upstream, weather, warmer) to keep packages modular;
// this package is the catalogue and the registry reference.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the Prometheus registerer used by the service. All metrics
// are registered automatically via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Catalogue
//
// Retrieval (pkg/weather):
//   - weather_proxy_requests_total{outcome} (Counter): retrievals by outcome
//     (fresh_cache, upstream_fetch, stale_cache, invalid_city, unavailable,
//     rejected)
//   - weather_proxy_request_duration_seconds{outcome} (Histogram): retrieval
//     duration by outcome
//
// Cache (pkg/cache):
//   - weather_proxy_cache_hits_total{freshness} (Counter): hits by freshness
//     (fresh, stale)
//   - weather_proxy_cache_misses_total (Counter): misses
//   - weather_proxy_cache_errors_total{operation} (Counter): backend errors
//
// Breaker (pkg/breaker):
//   - weather_proxy_breaker_state (Gauge): 0=closed, 1=open, 2=half_open
//   - weather_proxy_breaker_transitions_total{from,to} (Counter)
//   - weather_proxy_breaker_rejections_total (Counter)
//
// Retry (pkg/retry):
//   - weather_proxy_retries_total (Counter)
//   - weather_proxy_retry_backoff_seconds (Histogram)
//   - weather_proxy_retry_exhausted_total (Counter)
//
// Upstream (pkg/upstream):
//   - weather_proxy_upstream_request_duration_seconds{endpoint} (Histogram):
//     call duration by endpoint (geocoding, forecast)
//   - weather_proxy_upstream_errors_total{kind} (Counter)
//
// Warming (pkg/warmer):
//   - weather_proxy_cache_warming_cities_total{status} (Counter)
//   - weather_proxy_cache_warming_duration_seconds (Histogram)
//
// Example queries:
//
//	# Cache hit rate
//	sum(rate(weather_proxy_cache_hits_total[5m])) /
//	(sum(rate(weather_proxy_cache_hits_total[5m])) + sum(rate(weather_proxy_cache_misses_total[5m])))
//
//	# Breaker currently open
//	weather_proxy_breaker_state == 1
//
//	# P95 retrieval latency
//	histogram_quantile(0.95, rate(weather_proxy_request_duration_seconds_bucket[5m]))
