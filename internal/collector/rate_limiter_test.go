package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_SpacesConsecutiveCalls(t *testing.T) {
	r := NewRateLimiter()
	ctx := context.Background()

	require.NoError(t, r.Wait(ctx))
	start := time.Now()
	require.NoError(t, r.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), minDelay)
}

func TestRateLimiter_ParksUntilReset(t *testing.T) {
	r := NewRateLimiter()
	ctx := context.Background()

	reset := time.Now().Add(150 * time.Millisecond)
	r.UpdateLimit(lowWatermark, reset)

	start := time.Now()
	require.NoError(t, r.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)

	// Quota is considered replenished after the reset.
	require.NoError(t, r.Wait(ctx))
}

func TestRateLimiter_ExpiredResetDoesNotBlock(t *testing.T) {
	r := NewRateLimiter()
	ctx := context.Background()

	r.UpdateLimit(0, time.Now().Add(-time.Minute))

	start := time.Now()
	require.NoError(t, r.Wait(ctx))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	r := NewRateLimiter()
	r.UpdateLimit(0, time.Now().Add(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
