// Package config loads and validates the service configuration. Values
// come from a config.yaml file and environment variable overrides; all
// behavior lives in the components the values are handed to.
package config

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type ServerConfig struct {
	Address            string `mapstructure:"address"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	TTL             time.Duration `mapstructure:"ttl"`
	RetentionFactor int           `mapstructure:"retention_factor"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
}

type UpstreamConfig struct {
	GeocodingURL   string        `mapstructure:"geocoding_url"`
	ForecastURL    string        `mapstructure:"forecast_url"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

type WarmingConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Cities  []string `mapstructure:"cities"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Warming  WarmingConfig  `mapstructure:"warming"`
}

// Load reads config.yaml from the given search paths (default: "." and
// "./config"), applies environment overrides, and validates the result.
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.rate_limit_per_minute", 100)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)
	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.ttl", "300s")
	v.SetDefault("cache.retention_factor", 4)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.cooldown", "60s")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff", "500ms")
	v.SetDefault("retry.max_backoff", "10s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("upstream.geocoding_url", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("upstream.forecast_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("upstream.attempt_timeout", "10s")
	v.SetDefault("warming.enabled", true)
	v.SetDefault("warming.cities", []string{
		"Paris", "London", "New York", "Tokyo", "Berlin",
		"Sydney", "Moscow", "Dubai", "Singapore", "Los Angeles",
	})

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file: defaults and environment variables apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Server,
				validation.Field(&c.Server.Address, validation.Required),
				validation.Field(&c.Server.RateLimitPerMinute, validation.Min(1)),
			)
		})),
		validation.Field(&c.Logging, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Logging,
				validation.Field(&c.Logging.Level,
					validation.Required,
					validation.In("debug", "info", "warn", "error"),
				),
			)
		})),
		validation.Field(&c.Cache, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Cache,
				validation.Field(&c.Cache.Backend,
					validation.Required,
					validation.In(BackendMemory, BackendRedis),
				),
				validation.Field(&c.Cache.TTL, validation.Required, validation.Min(time.Second)),
				validation.Field(&c.Cache.RetentionFactor, validation.Min(1)),
			)
		})),
		validation.Field(&c.Breaker, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Breaker,
				validation.Field(&c.Breaker.FailureThreshold, validation.Required, validation.Min(1)),
				validation.Field(&c.Breaker.Cooldown, validation.Required, validation.Min(time.Second)),
			)
		})),
		validation.Field(&c.Retry, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Retry,
				validation.Field(&c.Retry.MaxAttempts, validation.Required, validation.Min(1)),
				validation.Field(&c.Retry.InitialBackoff, validation.Required),
				validation.Field(&c.Retry.MaxBackoff, validation.Required),
				validation.Field(&c.Retry.Multiplier, validation.Required, validation.Min(1.0)),
			)
		})),
		validation.Field(&c.Upstream, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Upstream,
				validation.Field(&c.Upstream.GeocodingURL, validation.Required),
				validation.Field(&c.Upstream.ForecastURL, validation.Required),
				validation.Field(&c.Upstream.AttemptTimeout, validation.Required),
			)
		})),
	)
}
