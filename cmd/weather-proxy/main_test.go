package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torxx666/rainy-day/pkg/config"
	"github.com/torxx666/rainy-day/pkg/logging"
	"github.com/torxx666/rainy-day/pkg/upstream"
	"github.com/torxx666/rainy-day/pkg/weather"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Address:            ":0",
			RateLimitPerMinute: 100,
		},
	}
}

type stubRetriever struct {
	result *weather.Result
	err    error
}

func (s *stubRetriever) Retrieve(_ context.Context, city string) (*weather.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := *s.result
	result.Reading.City = city
	return &result, nil
}

func doRequest(handler echo.HandlerFunc, target string, mw ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := handler
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	_ = h(c)
	return rec
}

func TestWeatherHandler_Success(t *testing.T) {
	svc := &stubRetriever{result: &weather.Result{
		Reading:    upstream.Reading{Temperature: 15.5, WindSpeed: 12.3, WeatherCode: 1},
		ServedFrom: weather.ServedUpstream,
	}}

	rec := doRequest(weatherHandler(svc), "/weather?city=Paris")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp weatherResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Paris", resp.City)
	assert.Equal(t, 15.5, resp.Temperature)
	assert.False(t, resp.Cached)
	assert.Equal(t, "upstream_fetch", resp.ServedFrom)
}

func TestWeatherHandler_CachedResultFlagged(t *testing.T) {
	svc := &stubRetriever{result: &weather.Result{
		Reading:    upstream.Reading{Temperature: 15.5},
		ServedFrom: weather.ServedFreshCache,
	}}

	rec := doRequest(weatherHandler(svc), "/weather?city=Paris")

	var resp weatherResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	assert.Equal(t, "fresh_cache", resp.ServedFrom)
}

func TestWeatherHandler_MissingCity(t *testing.T) {
	svc := &stubRetriever{err: errors.New("should not be called")}

	rec := doRequest(weatherHandler(svc), "/weather")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeatherHandler_InvalidCity(t *testing.T) {
	svc := &stubRetriever{err: weather.ErrInvalidCity}

	rec := doRequest(weatherHandler(svc), "/weather?city=Atlantis")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeatherHandler_Unavailable(t *testing.T) {
	svc := &stubRetriever{err: weather.ErrUnavailable}

	rec := doRequest(weatherHandler(svc), "/weather?city=Paris")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCorrelationMiddleware_GeneratesID(t *testing.T) {
	var captured string
	handler := func(c echo.Context) error {
		captured = logging.CorrelationID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}

	rec := doRequest(handler, "/weather?city=Paris", correlationMiddleware())

	assert.NotEmpty(t, captured, "handler context should carry a correlation id")
	assert.Equal(t, captured, rec.Header().Get(logging.CorrelationHeader))
}

func TestCorrelationMiddleware_HonorsInbound(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/weather?city=Paris", nil)
	req.Header.Set(logging.CorrelationHeader, "req-789")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := correlationMiddleware()(func(c echo.Context) error {
		assert.Equal(t, "req-789", logging.CorrelationID(c.Request().Context()))
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))

	assert.Equal(t, "req-789", rec.Header().Get(logging.CorrelationHeader))
}

func TestHealthHandler_NoRedisConfigured(t *testing.T) {
	rec := doRequest(healthHandler(nil), "/health")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Nil(t, resp.RedisConnected)
}

func TestHealthHandler_RedisDown(t *testing.T) {
	ping := func(context.Context) error { return errors.New("connection refused") }

	rec := doRequest(healthHandler(ping), "/health")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	require.NotNil(t, resp.RedisConnected)
	assert.False(t, *resp.RedisConnected)
}

func TestReadinessHandler(t *testing.T) {
	t.Run("ready without redis", func(t *testing.T) {
		rec := doRequest(readinessHandler(nil), "/health/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ready with healthy redis", func(t *testing.T) {
		ping := func(context.Context) error { return nil }
		rec := doRequest(readinessHandler(ping), "/health/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready when redis down", func(t *testing.T) {
		ping := func(context.Context) error { return errors.New("connection refused") }
		rec := doRequest(readinessHandler(ping), "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestLivenessHandler(t *testing.T) {
	rec := doRequest(livenessHandler, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	svc := &stubRetriever{result: &weather.Result{
		Reading:    upstream.Reading{Temperature: 15.5},
		ServedFrom: weather.ServedUpstream,
	}}

	// Route through the real server so all promauto metrics are reachable.
	cfg := testConfig()
	e := newServer(cfg, svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "# HELP"), "expected prometheus exposition format")
	assert.True(t, strings.Contains(body, "weather_proxy_breaker_state"), "expected breaker gauge to be registered")
}
