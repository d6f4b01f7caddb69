package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	inner := &fixedAdapter{name: "flaky", err: errors.New("boom"), d: Discovery{Mints: []string{"partial"}}}
	b := NewBreaker(inner, BreakerConfig{ConsecutiveFailures: 2, Cooldown: time.Hour}, nil)

	d, err := b.Discover(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"partial"}, d.Mints)

	_, err = b.Discover(context.Background())
	require.Error(t, err)
	assert.False(t, IsOpen(err))
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err = b.Discover(context.Background())
	assert.True(t, IsOpen(err))
	assert.Equal(t, 2, inner.runs, "open breaker skips the adapter")
	assert.Equal(t, "flaky", b.Name())
}

func TestBreaker_CancellationIsNotFailure(t *testing.T) {
	inner := &fixedAdapter{name: "slow", err: context.Canceled}
	b := NewBreaker(inner, BreakerConfig{ConsecutiveFailures: 1, Cooldown: time.Hour}, nil)

	for i := 0; i < 3; i++ {
		_, _ = b.Discover(context.Background())
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, 3, inner.runs)
}

func TestBreaker_SuccessResets(t *testing.T) {
	inner := &fixedAdapter{name: "ok"}
	b := NewBreaker(inner, DefaultBreakerConfig(), nil)

	_, err := b.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
