package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kurihiro0119/github-contributor-stats/internal/errors"
	"github.com/kurihiro0119/github-contributor-stats/internal/scheduler"
)

func noop(context.Context) {}

func TestNew_Validation(t *testing.T) {
	_, err := scheduler.New(scheduler.Daily, "25:00", noop)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))

	_, err = scheduler.New(scheduler.Daily, "nine am", noop)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))

	_, err = scheduler.New(scheduler.Interval("fortnightly"), "09:00", noop)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))

	_, err = scheduler.New(scheduler.Hourly, "09:00", noop)
	assert.NoError(t, err)
}

func TestNext_Hourly(t *testing.T) {
	s, err := scheduler.New(scheduler.Hourly, "09:30", noop)
	require.NoError(t, err)

	// Before the minute mark: same hour.
	from := time.Date(2024, 3, 10, 14, 10, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC), s.Next(from))

	// Exactly on the minute mark: the following hour, never "now".
	from = time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC), s.Next(from))

	// Past the minute mark: the following hour.
	from = time.Date(2024, 3, 10, 14, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC), s.Next(from))
}

func TestNext_Daily(t *testing.T) {
	s, err := scheduler.New(scheduler.Daily, "09:00", noop)
	require.NoError(t, err)

	// Before today's slot: today.
	from := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), s.Next(from))

	// After today's slot: tomorrow.
	from = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), s.Next(from))

	// Month boundary.
	from = time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), s.Next(from))
}

func TestNext_Weekly(t *testing.T) {
	s, err := scheduler.New(scheduler.Weekly, "09:00", noop)
	require.NoError(t, err)

	// Wednesday: next Monday.
	from := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	next := s.Next(from)
	assert.Equal(t, time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC), next)
	assert.Equal(t, time.Monday, next.Weekday())

	// Monday before the slot: same day.
	from = time.Date(2024, 3, 11, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), s.Next(from))

	// Monday after the slot: the following Monday.
	from = time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC), s.Next(from))
}

func TestNext_AlwaysInTheFuture(t *testing.T) {
	for _, interval := range []scheduler.Interval{scheduler.Hourly, scheduler.Daily, scheduler.Weekly} {
		s, err := scheduler.New(interval, "00:00", noop)
		require.NoError(t, err)

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 50; i++ {
			next := s.Next(from)
			assert.True(t, next.After(from), "interval %s: %v not after %v", interval, next, from)
			from = next
		}
	}
}
