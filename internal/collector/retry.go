package collector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/go-github/v55/github"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// withRetry applies the uniform retry policy to one remote call:
// bounded attempts with exponential backoff, retrying only transport
// errors and server-side (5xx) failures. Client-side (4xx) responses
// are terminal so an outage is not amplified.
func withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := initialBackoff

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !isRetryable(err) || attempt == maxAttempts {
			return err
		}

		slog.Warn("retrying remote call",
			"op", op,
			"attempt", attempt,
			"backoff", backoff,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		if ghErr.Response == nil {
			return false
		}
		return ghErr.Response.StatusCode >= 500
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		// Quota exhaustion is handled by the rate limiter, not retried.
		return false
	}

	// Anything else is a transport-level failure.
	return true
}
