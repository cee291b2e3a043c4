package breaker

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/torxx666/rainy-day/pkg/clock"
)

// Prometheus metrics for breaker state tracking.
var (
	breakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_proxy_breaker_transitions_total",
		Help: "Total breaker state transitions by from/to state",
	}, []string{"from", "to"})

	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weather_proxy_breaker_state",
		Help: "Current breaker state (0=closed, 1=open, 2=half_open)",
	})

	breakerRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_proxy_breaker_rejections_total",
		Help: "Total calls rejected by the breaker",
	})
)

// Config holds the breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	FailureThreshold int

	// Cooldown is how long the breaker stays open before permitting a
	// half-open probe.
	Cooldown time.Duration
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         60 * time.Second,
	}
}

// Breaker is a concurrency-safe three-state circuit breaker. All state
// transitions happen under one mutex with no I/O inside the critical
// section. The cooldown is evaluated lazily on Allow, not by a timer.
type Breaker struct {
	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	probeInFlight bool

	cfg    Config
	clk    clock.Clock
	logger zerolog.Logger
}

// New creates a closed breaker.
func New(cfg Config, clk clock.Clock, logger zerolog.Logger) *Breaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	return &Breaker{
		state:  StateClosed,
		cfg:    cfg,
		clk:    clk,
		logger: logger,
	}
}

// Allow reports whether a call may proceed. While open it grants exactly
// one probe once the cooldown has elapsed; concurrent callers in the same
// half-open window are rejected until the probe resolves.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.clk.Now().Sub(b.openedAt) >= b.cfg.Cooldown {
			b.setState(transition(b.state, eventCooldownElapsed))
			b.probeInFlight = true
			b.logger.Info().Msg("breaker half-open, sending probe")
			return true
		}
		breakerRejectionsTotal.Inc()
		return false
	case StateHalfOpen:
		if !b.probeInFlight {
			b.probeInFlight = true
			return true
		}
		breakerRejectionsTotal.Inc()
		return false
	default:
		return true
	}
}

// RecordSuccess registers a successful upstream call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.probeInFlight = false
		b.failures = 0
		b.setState(transition(b.state, eventSuccess))
		b.logger.Info().Msg("probe succeeded, breaker closed")
	}
	// A success observed while open belongs to an abandoned attempt and
	// is discarded.
}

// RecordFailure registers a failed upstream call. Retry exhaustion counts
// as a single failure.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		ev := eventFailure
		if b.failures >= b.cfg.FailureThreshold {
			ev = eventThresholdReached
			b.openedAt = b.clk.Now()
			b.logger.Warn().
				Int("failures", b.failures).
				Dur("cooldown", b.cfg.Cooldown).
				Msg("failure threshold reached, breaker open")
		}
		b.setState(transition(b.state, ev))
	case StateHalfOpen:
		b.probeInFlight = false
		b.openedAt = b.clk.Now()
		b.setState(transition(b.state, eventFailure))
		b.logger.Warn().Msg("probe failed, breaker reopened")
	}
}

// RecordNeutral releases a half-open probe without counting the outcome
// for or against upstream health. Used when the call resolved with a
// caller-input error such as an unknown city.
func (b *Breaker) RecordNeutral() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probeInFlight = false
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// setState applies a computed transition and updates metrics.
// Caller must hold b.mu.
func (b *Breaker) setState(next State) {
	if next == b.state {
		return
	}
	breakerTransitionsTotal.WithLabelValues(b.state.String(), next.String()).Inc()
	b.state = next
	breakerState.Set(float64(next))
}
