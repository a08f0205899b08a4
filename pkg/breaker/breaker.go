// Package breaker builds the gobreaker circuit breakers shared by upstream clients.
package breaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config: Closed -> (Failures consecutive errors) -> Open -> (after OpenFor) -> HalfOpen.
type Config struct {
	Name     string
	Failures int
	OpenFor  time.Duration
	// Interval clears the counts while closed; 0 never clears.
	Interval time.Duration
	Logger   *slog.Logger
}

// New returns a breaker that trips after cfg.Failures consecutive failures.
func New(cfg Config) *gobreaker.CircuitBreaker {
	if cfg.Failures < 1 {
		cfg.Failures = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	fails := uint32(cfg.Failures)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     cfg.Name,
		Interval: cfg.Interval,
		Timeout:  cfg.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}
