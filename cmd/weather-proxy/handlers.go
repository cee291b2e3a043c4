package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/torxx666/rainy-day/pkg/logging"
	"github.com/torxx666/rainy-day/pkg/weather"
)

// retriever is the slice of the orchestrator the handlers need.
type retriever interface {
	Retrieve(ctx context.Context, city string) (*weather.Result, error)
}

type weatherResponse struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"wind_speed"`
	WeatherCode int     `json:"weather_code"`
	Cached      bool    `json:"cached"`
	ServedFrom  string  `json:"served_from"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	RedisConnected *bool  `json:"redis_connected,omitempty"`
}

// correlationMiddleware binds a correlation id to every request, honoring
// an inbound X-Correlation-ID header and echoing the id on the response.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(logging.CorrelationHeader)
			ctx := logging.WithCorrelationID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(logging.CorrelationHeader, logging.CorrelationID(ctx))
			return next(c)
		}
	}
}

// weatherHandler serves GET /weather?city=<name>.
func weatherHandler(svc retriever) echo.HandlerFunc {
	return func(c echo.Context) error {
		city := c.QueryParam("city")
		if city == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "city parameter is required"})
		}

		result, err := svc.Retrieve(c.Request().Context(), city)
		if err != nil {
			switch {
			case errors.Is(err, weather.ErrInvalidCity):
				return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			default:
				return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			}
		}

		return c.JSON(http.StatusOK, weatherResponse{
			City:        result.Reading.City,
			Temperature: result.Reading.Temperature,
			WindSpeed:   result.Reading.WindSpeed,
			WeatherCode: result.Reading.WeatherCode,
			Cached:      result.ServedFrom != weather.ServedUpstream,
			ServedFrom:  string(result.ServedFrom),
		})
	}
}

// healthHandler reports overall service health. ping is nil when no Redis
// backend is configured.
func healthHandler(ping func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := healthResponse{Status: "healthy", Version: version}

		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()

			connected := ping(ctx) == nil
			resp.RedisConnected = &connected
			if !connected {
				resp.Status = "degraded"
			}
		}

		return c.JSON(http.StatusOK, resp)
	}
}

// livenessHandler always reports alive while the process runs.
func livenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// readinessHandler fails when a configured Redis backend is unreachable.
func readinessHandler(ping func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()

			if err := ping(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, errorResponse{
					Error: "service not ready: redis not connected",
				})
			}
		}

		return c.JSON(http.StatusOK, healthResponse{Status: "ready", Version: version})
	}
}
