package ratelimiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fintrack/pkg/ratelimiter"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, capacity int) (*ratelimiter.Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l, err := ratelimiter.New(ratelimiter.Config{
		Capacity:       capacity,
		RefillRate:     1,
		RefillInterval: time.Second,
	}, ratelimiter.WithClock(clock.Now))
	require.NoError(t, err)
	return l, clock
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	for name, cfg := range map[string]ratelimiter.Config{
		"capacity": {Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		"rate":     {Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		"interval": {Capacity: 1, RefillRate: 1},
	} {
		_, err := ratelimiter.New(cfg)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig, name)
	}
}

func TestAllow_BurstThenRefill(t *testing.T) {
	t.Parallel()
	l, clock := newLimiter(t, 3)
	ctx := context.Background()

	for i := range 3 {
		res, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed(), "call %d", i)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, time.Second, res.RetryAfter())

	other, err := l.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, other.Allowed(), "keys are independent")

	clock.Advance(2 * time.Second)
	res, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Zero(t, res.RetryAfter())
}

func TestAllowN_Validation(t *testing.T) {
	t.Parallel()
	l, _ := newLimiter(t, 1)

	_, err := l.AllowN(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Allow(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatusAndReset(t *testing.T) {
	t.Parallel()
	l, _ := newLimiter(t, 2)

	_, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Status("k").Remaining)
	assert.Equal(t, 1, l.Status("k").Remaining, "status does not consume")

	l.Reset("k")
	assert.Equal(t, 2, l.Status("k").Remaining)
}
