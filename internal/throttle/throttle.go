// Package throttle paces outbound calls through a single shared clock.
package throttle

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Default pacing values.
const (
	DefaultInterval = 200 * time.Millisecond
	DefaultPenalty  = 1500 * time.Millisecond
)

// ErrRateLimited can be returned (or wrapped) by callers that detect
// provider throttling without an HTTP status at hand.
var ErrRateLimited = errors.New("rate limited (429)")

// rateLimiter is implemented by errors that carry a throttling signal,
// e.g. *httpx.StatusError.
type rateLimiter interface {
	RateLimited() bool
}

// IsRateLimited reports whether err signals provider throttling.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var rl rateLimiter
	return errors.As(err, &rl) && rl.RateLimited()
}

// Limiter guarantees a minimum spacing between the start times of all calls
// made through it. Spacing is measured on one clock shared by every caller.
type Limiter struct {
	mu       sync.Mutex
	next     time.Time // earliest start for the next call
	interval time.Duration
	penalty  time.Duration

	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	onPenalty func()
}

// Option configures Limiter.
type Option func(*Limiter)

// WithInterval sets the minimum spacing between call starts.
func WithInterval(d time.Duration) Option {
	return func(l *Limiter) {
		l.interval = d
	}
}

// WithPenalty sets how far the clock is pushed after a 429.
func WithPenalty(d time.Duration) Option {
	return func(l *Limiter) {
		l.penalty = d
	}
}

// WithClock replaces the time source and sleeper, for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		l.now = now
		l.sleep = sleep
	}
}

// WithPenaltyHook registers a callback invoked on every 429 penalty.
func WithPenaltyHook(fn func()) Option {
	return func(l *Limiter) {
		l.onPenalty = fn
	}
}

// New creates a Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		interval: DefaultInterval,
		penalty:  DefaultPenalty,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Do waits for the next free slot, then runs fn. A rate-limit failure from fn
// pushes the shared clock forward by the penalty before the error is
// returned unchanged. Other failures are returned unchanged. Do never retries.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.wait(ctx); err != nil {
		return err
	}

	err := fn(ctx)
	if IsRateLimited(err) {
		l.backoff()
	}
	return err
}

// Call is Do for functions that return a value.
func Call[T any](ctx context.Context, l *Limiter, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := l.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

// wait reserves a start slot under the lock and sleeps until it arrives.
func (l *Limiter) wait(ctx context.Context) error {
	l.mu.Lock()
	now := l.now()
	start := l.next
	if start.Before(now) {
		start = now
	}
	l.next = start.Add(l.interval)
	l.mu.Unlock()

	if d := start.Sub(now); d > 0 {
		return l.sleep(ctx, d)
	}
	return ctx.Err()
}

func (l *Limiter) backoff() {
	l.mu.Lock()
	penalized := l.now().Add(l.penalty)
	if penalized.After(l.next) {
		l.next = penalized
	}
	l.mu.Unlock()

	if l.onPenalty != nil {
		l.onPenalty()
	}
}

// NextAllowed returns the earliest time the next call may start.
func (l *Limiter) NextAllowed() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
