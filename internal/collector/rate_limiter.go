package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// defaultRemaining is the GitHub API default hourly quota.
	defaultRemaining = 5000
	// lowWatermark is the remaining-request count below which we park
	// until the reported reset time instead of burning the last calls.
	lowWatermark = 10
	// minDelay spaces out consecutive requests.
	minDelay = 100 * time.Millisecond
)

// RateLimiter paces primary-rate-limit consumption using the quota
// headers returned by the GitHub API.
type RateLimiter interface {
	Wait(ctx context.Context) error
	UpdateLimit(remaining int, resetTime time.Time)
}

type githubRateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	lastCall  time.Time
}

// NewRateLimiter creates a new rate limiter primed with the default quota
func NewRateLimiter() RateLimiter {
	return &githubRateLimiter{
		remaining: defaultRemaining,
		resetTime: time.Now().Add(time.Hour),
	}
}

// Wait blocks until it is safe to make another API call
func (r *githubRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.remaining <= lowWatermark {
		wait := time.Until(r.resetTime)
		if wait > 0 {
			slog.Warn("rate limit low, waiting for reset",
				"remaining", r.remaining,
				"wait", wait.Round(time.Second))
			if err := r.sleep(ctx, wait); err != nil {
				return err
			}
		}
		r.remaining = defaultRemaining
		r.resetTime = time.Now().Add(time.Hour)
	}

	if elapsed := time.Since(r.lastCall); elapsed < minDelay {
		if err := r.sleep(ctx, minDelay-elapsed); err != nil {
			return err
		}
	}

	r.lastCall = time.Now()
	return nil
}

// sleep releases the lock while waiting so concurrent callers can
// observe quota updates, then reacquires it.
func (r *githubRateLimiter) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Unlock()
	defer r.mu.Lock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// UpdateLimit records the quota reported by an API response
func (r *githubRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.resetTime = resetTime
}
