package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

type retryingStorage struct {
	inner Storage
}

// WithRetry wraps a Storage so every read and write gets the uniform
// retry policy: bounded attempts with exponential backoff. Adapters
// classify their own failures, so anything except a canceled context
// is worth another attempt.
func WithRetry(inner Storage) Storage {
	return &retryingStorage{inner: inner}
}

func (r *retryingStorage) SaveContributorStats(ctx context.Context, stats *domain.ContributorStats) error {
	return withRetry(ctx, "save contributor stats", func() error {
		return r.inner.SaveContributorStats(ctx, stats)
	})
}

func (r *retryingStorage) GetOrgContributors(ctx context.Context, org string) ([]*domain.ContributorStats, error) {
	var result []*domain.ContributorStats
	err := withRetry(ctx, "get org contributors", func() error {
		var err error
		result, err = r.inner.GetOrgContributors(ctx, org)
		return err
	})
	return result, err
}

func (r *retryingStorage) GetRepoContributors(ctx context.Context, org, repo string) ([]*domain.ContributorStats, error) {
	var result []*domain.ContributorStats
	err := withRetry(ctx, "get repo contributors", func() error {
		var err error
		result, err = r.inner.GetRepoContributors(ctx, org, repo)
		return err
	})
	return result, err
}

func (r *retryingStorage) SaveRepoStats(ctx context.Context, stats *domain.RepoStats) error {
	return withRetry(ctx, "save repo stats", func() error {
		return r.inner.SaveRepoStats(ctx, stats)
	})
}

func (r *retryingStorage) GetOrgRepos(ctx context.Context, org string) ([]*domain.RepoStats, error) {
	var result []*domain.RepoStats
	err := withRetry(ctx, "get org repos", func() error {
		var err error
		result, err = r.inner.GetOrgRepos(ctx, org)
		return err
	})
	return result, err
}

func (r *retryingStorage) Close() error {
	return r.inner.Close()
}

func withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := initialBackoff

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !isRetryable(err) || attempt == maxAttempts {
			return err
		}

		slog.Warn("retrying store call",
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
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
