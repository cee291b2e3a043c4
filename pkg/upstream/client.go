// Package upstream adapts the Open-Meteo geocoding and forecast APIs into
// the single fetch capability the retrieval path depends on. It is the
// only package that performs external calls.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream calls.
var (
	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weather_proxy_upstream_request_duration_seconds",
		Help:    "Upstream call duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_proxy_upstream_errors_total",
		Help: "Total upstream call errors by kind",
	}, []string{"kind"})
)

// Reading is one weather observation for a city.
type Reading struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"wind_speed"`
	WeatherCode int     `json:"weather_code"`
}

// Fetcher is the abstract upstream capability: resolve a city to its most
// recent weather reading or a classified failure.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (*Reading, error)
}

// Config holds the upstream endpoints and the per-attempt timeout.
type Config struct {
	GeocodingURL   string
	ForecastURL    string
	AttemptTimeout time.Duration
}

// DefaultConfig returns the Open-Meteo endpoints with a 10s attempt timeout.
func DefaultConfig() Config {
	return Config{
		GeocodingURL:   "https://geocoding-api.open-meteo.com/v1/search",
		ForecastURL:    "https://api.open-meteo.com/v1/forecast",
		AttemptTimeout: 10 * time.Second,
	}
}

// Client fetches weather readings from Open-Meteo.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     zerolog.Logger
}

// NewClient creates an upstream client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	return &Client{
		// No client-level timeout: each attempt carries its own deadline
		// so an abandoned attempt's late response is simply discarded.
		httpClient: &http.Client{},
		cfg:        cfg,
		logger:     logger,
	}
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

// Fetch resolves the city and returns its current weather. The attempt is
// bounded by the configured per-attempt timeout.
func (c *Client) Fetch(ctx context.Context, city string) (*Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	lat, lon, err := c.geocode(ctx, city)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(KindOf(err))).Inc()
		return nil, err
	}

	reading, err := c.forecast(ctx, lat, lon)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(KindOf(err))).Inc()
		return nil, err
	}

	reading.City = city
	c.logger.Debug().
		Str("city", city).
		Float64("temperature", reading.Temperature).
		Msg("upstream fetch succeeded")

	return reading, nil
}

func (c *Client) geocode(ctx context.Context, city string) (float64, float64, error) {
	const op = "geocoding"

	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")
	params.Set("language", "en")
	params.Set("format", "json")

	var decoded geocodeResponse
	if err := c.getJSON(ctx, op, c.cfg.GeocodingURL+"?"+params.Encode(), &decoded); err != nil {
		return 0, 0, err
	}

	if len(decoded.Results) == 0 {
		return 0, 0, &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf("city %q not found", city)}
	}

	return decoded.Results[0].Latitude, decoded.Results[0].Longitude, nil
}

func (c *Client) forecast(ctx context.Context, lat, lon float64) (*Reading, error) {
	const op = "forecast"

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%g", lat))
	params.Set("longitude", fmt.Sprintf("%g", lon))
	params.Set("current_weather", "true")

	var decoded forecastResponse
	if err := c.getJSON(ctx, op, c.cfg.ForecastURL+"?"+params.Encode(), &decoded); err != nil {
		return nil, err
	}

	return &Reading{
		Temperature: decoded.CurrentWeather.Temperature,
		WindSpeed:   decoded.CurrentWeather.WindSpeed,
		WeatherCode: decoded.CurrentWeather.WeatherCode,
	}, nil
}

// getJSON performs a GET and decodes the JSON body, classifying failures.
func (c *Client) getJSON(ctx context.Context, op, rawURL string, out any) error {
	start := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Error{Kind: KindInvalidResponse, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: classifyTransportError(err), Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return &Error{Kind: KindUnreachable, Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return &Error{Kind: KindInvalidResponse, Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindInvalidResponse, Op: op, Err: err}
	}

	return nil
}

// classifyTransportError separates deadline hits from connection failures.
func classifyTransportError(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return KindTimeout
	}
	return KindUnreachable
}
