package aggregator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kurihiro0119/github-contributor-stats/internal/aggregator"
	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
)

func stats(commits, prs, issues, reviews int) *domain.ContributorStats {
	return &domain.ContributorStats{
		CommitCount:  commits,
		PullRequests: domain.PullRequestCount{Total: prs},
		Issues:       domain.IssueCount{Total: issues},
		ReviewCount:  reviews,
	}
}

func TestScore(t *testing.T) {
	testCases := []struct {
		name     string
		stats    *domain.ContributorStats
		expected float64
	}{
		{
			name:     "no activity scores zero",
			stats:    stats(0, 0, 0, 0),
			expected: 0.0,
		},
		{
			name:     "commits at cap earn the full commit weight",
			stats:    stats(100, 0, 0, 0),
			expected: 0.4,
		},
		{
			name:     "commits above cap score the same as at cap",
			stats:    stats(200, 0, 0, 0),
			expected: 0.4,
		},
		{
			name:     "everything at cap scores one",
			stats:    stats(100, 50, 20, 30),
			expected: 1.0,
		},
		{
			name:     "everything above cap still scores one",
			stats:    stats(1000, 500, 200, 300),
			expected: 1.0,
		},
		{
			name:     "half of every cap scores one half",
			stats:    stats(50, 25, 10, 15),
			expected: 0.5,
		},
		{
			name:     "result is rounded to two decimals",
			stats:    stats(1, 0, 0, 0), // 0.004 rounds to 0.00
			expected: 0.0,
		},
		{
			name:     "reviews alone",
			stats:    stats(0, 0, 0, 15),
			expected: 0.08, // 0.5 * 0.15 = 0.075, rounds to 0.08
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, aggregator.Score(tc.stats), 1e-9)
		})
	}
}

func TestScore_IsPure(t *testing.T) {
	s := stats(42, 7, 3, 1)
	first := aggregator.Score(s)
	second := aggregator.Score(s)

	assert.Equal(t, first, second)
	// Input is not mutated.
	assert.Equal(t, 42, s.CommitCount)
	assert.Zero(t, s.ContributionScore)
}

func TestScore_MonotonicInEachCount(t *testing.T) {
	base := aggregator.Score(stats(10, 10, 10, 10))

	assert.GreaterOrEqual(t, aggregator.Score(stats(20, 10, 10, 10)), base)
	assert.GreaterOrEqual(t, aggregator.Score(stats(10, 20, 10, 10)), base)
	assert.GreaterOrEqual(t, aggregator.Score(stats(10, 10, 15, 10)), base)
	assert.GreaterOrEqual(t, aggregator.Score(stats(10, 10, 10, 20)), base)
}

func TestScore_Bounded(t *testing.T) {
	for _, s := range []*domain.ContributorStats{
		stats(0, 0, 0, 0),
		stats(1, 1, 1, 1),
		stats(99, 49, 19, 29),
		stats(1000000, 1000000, 1000000, 1000000),
	} {
		score := aggregator.Score(s)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestAggregateRepo(t *testing.T) {
	contributors := []*domain.ContributorStats{
		{
			CommitCount:  10,
			PullRequests: domain.PullRequestCount{Total: 3},
			Issues:       domain.IssueCount{Total: 2},
			ReviewCount:  5,
		},
		{
			CommitCount:  7,
			PullRequests: domain.PullRequestCount{Total: 1},
			Issues:       domain.IssueCount{Total: 0},
			ReviewCount:  2,
		},
	}

	agg := aggregator.AggregateRepo("acme", "widget", contributors)

	assert.Equal(t, "acme", agg.Org)
	assert.Equal(t, "widget", agg.Repo)
	assert.Equal(t, 2, agg.Contributors)
	assert.Equal(t, 17, agg.CommitCount)
	assert.Equal(t, 4, agg.PRCount)
	assert.Equal(t, 2, agg.IssueCount)
	assert.Equal(t, 7, agg.ReviewCount)
}

func TestAggregateRepo_Empty(t *testing.T) {
	agg := aggregator.AggregateRepo("acme", "empty", nil)

	assert.Equal(t, 0, agg.Contributors)
	assert.Equal(t, 0, agg.CommitCount)
}
