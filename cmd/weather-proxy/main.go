// Command weather-proxy serves cached, fault-tolerant weather lookups over
// HTTP, fronting the Open-Meteo APIs with a circuit breaker and retry.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/torxx666/rainy-day/pkg/breaker"
	"github.com/torxx666/rainy-day/pkg/cache"
	"github.com/torxx666/rainy-day/pkg/clock"
	"github.com/torxx666/rainy-day/pkg/config"
	"github.com/torxx666/rainy-day/pkg/logging"
	"github.com/torxx666/rainy-day/pkg/retry"
	"github.com/torxx666/rainy-day/pkg/upstream"
	"github.com/torxx666/rainy-day/pkg/warmer"
	"github.com/torxx666/rainy-day/pkg/weather"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("weather-proxy")

	clk := clock.New()

	// Cache backend selection. Redis failures at startup are fatal; once
	// running, backend errors degrade retrieval to upstream-only.
	var store cache.Store
	var redisPing func(ctx context.Context) error
	if cfg.Cache.Backend == config.BackendRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			DB:       cfg.Cache.Redis.DB,
			Password: cfg.Cache.Redis.Password,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			cancel()
			logger.Fatal().Err(err).Str("addr", cfg.Cache.Redis.Addr).Msg("failed to connect to redis")
		}
		cancel()
		logger.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("connected to redis")
		store = cache.NewRedisStore(rdb, clk, cfg.Cache.RetentionFactor)
		redisPing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		store = cache.NewMemoryStore(clk)
	}

	brk := breaker.New(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown,
	}, clk, logging.NewLogger("breaker"))

	fetcher := upstream.NewClient(upstream.Config{
		GeocodingURL:   cfg.Upstream.GeocodingURL,
		ForecastURL:    cfg.Upstream.ForecastURL,
		AttemptTimeout: cfg.Upstream.AttemptTimeout,
	}, logging.NewLogger("upstream"))

	svc := weather.NewService(store, brk, fetcher, weather.Config{
		CacheTTL: cfg.Cache.TTL,
		Retry: retry.Config{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
			Multiplier:     cfg.Retry.Multiplier,
		},
	}, clk, logging.NewLogger("retrieval"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Warming.Enabled {
		w := warmer.New(svc, cfg.Warming.Cities, logging.NewLogger("warmer"))
		go func() {
			// Let the server come up before warming.
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			w.Warm(ctx)
		}()
	}

	e := newServer(cfg, svc, redisPing)

	go func() {
		logger.Info().Str("address", cfg.Server.Address).Str("version", version).Msg("starting server")
		if err := e.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("server stopped")
}

// newServer wires the echo instance: middleware, routes, rate limiting.
func newServer(cfg *config.Config, svc retriever, redisPing func(ctx context.Context) error) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(correlationMiddleware())
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(cfg.Server.RateLimitPerMinute) / 60.0),
			Burst:     cfg.Server.RateLimitPerMinute,
			ExpiresIn: 3 * time.Minute,
		}),
	}))

	e.GET("/weather", weatherHandler(svc))
	e.GET("/health", healthHandler(redisPing))
	e.GET("/health/live", livenessHandler)
	e.GET("/health/ready", readinessHandler(redisPing))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
