package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
)

// flakyStore fails the first failures calls of every operation.
type flakyStore struct {
	failures int
	calls    int
}

func (f *flakyStore) attempt() error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient store failure")
	}
	return nil
}

func (f *flakyStore) SaveContributorStats(ctx context.Context, stats *domain.ContributorStats) error {
	return f.attempt()
}

func (f *flakyStore) GetOrgContributors(ctx context.Context, org string) ([]*domain.ContributorStats, error) {
	return []*domain.ContributorStats{{Org: org}}, f.attempt()
}

func (f *flakyStore) GetRepoContributors(ctx context.Context, org, repo string) ([]*domain.ContributorStats, error) {
	return nil, f.attempt()
}

func (f *flakyStore) SaveRepoStats(ctx context.Context, stats *domain.RepoStats) error {
	return f.attempt()
}

func (f *flakyStore) GetOrgRepos(ctx context.Context, org string) ([]*domain.RepoStats, error) {
	return nil, f.attempt()
}

func (f *flakyStore) Close() error { return nil }

func TestWithRetry_RecoversFromTransientFailure(t *testing.T) {
	inner := &flakyStore{failures: 1}
	store := WithRetry(inner)

	err := store.SaveContributorStats(context.Background(), &domain.ContributorStats{})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestWithRetry_GivesUpEventually(t *testing.T) {
	inner := &flakyStore{failures: 100}
	store := WithRetry(inner)

	err := store.SaveRepoStats(context.Background(), &domain.RepoStats{})
	require.Error(t, err)
	assert.Equal(t, maxAttempts, inner.calls)
}

func TestWithRetry_DoesNotRetryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyStore{failures: 100}
	store := WithRetry(inner)

	_, err := store.GetOrgContributors(ctx, "acme")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
