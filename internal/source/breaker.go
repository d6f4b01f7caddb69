package source

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds the circuit breaker thresholds for one adapter.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// Cooldown is how long the breaker stays open before a trial run.
	Cooldown time.Duration
	// Interval clears the failure counts while closed. Zero never clears.
	Interval time.Duration
}

// DefaultBreakerConfig returns thresholds suited to the aggregation tick.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 3,
		Cooldown:            5 * time.Minute,
		Interval:            0,
	}
}

// Breaker skips an adapter whose provider keeps failing until its
// cool-down elapses.
type Breaker struct {
	next Adapter
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next in a circuit breaker.
func NewBreaker(next Adapter, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultBreakerConfig().ConsecutiveFailures
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("source breaker state changed",
				zap.String("source", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Breaker{next: next, cb: cb}
}

// Name implements Adapter.
func (b *Breaker) Name() string { return b.next.Name() }

// State returns the breaker state, for status reporting.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Discover runs the wrapped adapter unless the breaker is open, in which
// case gobreaker.ErrOpenState is returned. Partial results pass through.
func (b *Breaker) Discover(ctx context.Context) (Discovery, error) {
	var d Discovery
	_, err := b.cb.Execute(func() (interface{}, error) {
		var err error
		d, err = b.next.Discover(ctx)
		return nil, err
	})
	return d, err
}

// IsOpen reports whether err means the adapter was skipped by its breaker.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
