// Package testutil provides testing utilities for the weather proxy.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of a mock upstream endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockMeteo is a configurable mock Open-Meteo server serving both the
// geocoding and forecast endpoints.
type MockMeteo struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount  int
	geocodeCount  int
	forecastCount int
}

// GeocodePath and ForecastPath are the endpoint paths the mock serves.
const (
	GeocodePath  = "/v1/search"
	ForecastPath = "/v1/forecast"
)

// NewMockMeteo creates a mock upstream server. By default it resolves any
// city and returns a fixed weather reading.
func NewMockMeteo() *MockMeteo {
	mock := &MockMeteo{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		switch r.URL.Path {
		case GeocodePath:
			mock.geocodeCount++
		case ForecastPath:
			mock.forecastCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// GeocodingURL returns the mock geocoding endpoint URL.
func (m *MockMeteo) GeocodingURL() string {
	return m.server.URL + GeocodePath
}

// ForecastURL returns the mock forecast endpoint URL.
func (m *MockMeteo) ForecastURL() string {
	return m.server.URL + ForecastPath
}

// Close shuts down the mock server.
func (m *MockMeteo) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockMeteo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.geocodeCount = 0
	m.forecastCount = 0
}

// SetHandler installs a custom handler for a path.
func (m *MockMeteo) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a static response for a path.
func (m *MockMeteo) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// FailGeocoding makes the geocoding endpoint return the given status.
func (m *MockMeteo) FailGeocoding(statusCode int) {
	m.SetResponse(GeocodePath, MockResponse{
		StatusCode: statusCode,
		Body:       `{"error":true,"reason":"mock failure"}`,
	})
}

// FailForecast makes the forecast endpoint return the given status.
func (m *MockMeteo) FailForecast(statusCode int) {
	m.SetResponse(ForecastPath, MockResponse{
		StatusCode: statusCode,
		Body:       `{"error":true,"reason":"mock failure"}`,
	})
}

// ResolveNothing makes the geocoding endpoint return zero results, so every
// city lookup ends in a not-found outcome.
func (m *MockMeteo) ResolveNothing() {
	m.SetResponse(GeocodePath, MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"results":[]}`,
	})
}

// RequestCount returns the total number of requests seen.
func (m *MockMeteo) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GeocodeCount returns the number of geocoding requests seen.
func (m *MockMeteo) GeocodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.geocodeCount
}

// ForecastCount returns the number of forecast requests seen.
func (m *MockMeteo) ForecastCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.forecastCount
}

// defaultHandler resolves every city to fixed coordinates and serves a
// fixed current-weather reading.
func (m *MockMeteo) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case GeocodePath:
		name := r.URL.Query().Get("name")
		fmt.Fprintf(w, `{"results":[{"name":%q,"latitude":48.8566,"longitude":2.3522}]}`, name)
	case ForecastPath:
		fmt.Fprint(w, `{"current_weather":{"temperature":15.5,"windspeed":12.3,"weathercode":1}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// GeocodeBody builds a single-result geocoding response body.
func GeocodeBody(name string, lat, lon float64) string {
	return fmt.Sprintf(`{"results":[{"name":%q,"latitude":%g,"longitude":%g}]}`, name, lat, lon)
}

// ForecastBody builds a current-weather forecast response body.
func ForecastBody(temperature, windSpeed float64, weatherCode int) string {
	return fmt.Sprintf(`{"current_weather":{"temperature":%g,"windspeed":%g,"weathercode":%d}}`,
		temperature, windSpeed, weatherCode)
}
