// Package aggregator derives metrics from raw contribution counts.
package aggregator

import (
	"math"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
)

// Contribution score weights. They sum to 1.0 so the score is bounded
// to [0, 1] by construction.
const (
	commitWeight = 0.4
	prWeight     = 0.3
	issueWeight  = 0.15
	reviewWeight = 0.15
)

// Per-activity caps. Counts at or above the cap contribute the full
// weight, so heavy activity in one dimension cannot dominate.
const (
	commitCap = 100
	prCap     = 50
	issueCap  = 20
	reviewCap = 30
)

// Score computes the normalized contribution score for one contributor
// record. It is a pure function of the counts: deterministic, no I/O,
// rounded to two decimal places.
func Score(stats *domain.ContributorStats) float64 {
	score := subScore(stats.CommitCount, commitCap, commitWeight) +
		subScore(stats.PullRequests.Total, prCap, prWeight) +
		subScore(stats.Issues.Total, issueCap, issueWeight) +
		subScore(stats.ReviewCount, reviewCap, reviewWeight)

	return math.Round(score*100) / 100
}

func subScore(count, limit int, weight float64) float64 {
	return math.Min(float64(count)/float64(limit), 1.0) * weight
}

// AggregateRepo folds the contributor records collected for one
// repository into a repository-level aggregate.
func AggregateRepo(org, repo string, contributors []*domain.ContributorStats) *domain.RepoStats {
	agg := &domain.RepoStats{
		Org:          org,
		Repo:         repo,
		Contributors: len(contributors),
	}

	for _, c := range contributors {
		agg.CommitCount += c.CommitCount
		agg.PRCount += c.PullRequests.Total
		agg.IssueCount += c.Issues.Total
		agg.ReviewCount += c.ReviewCount
	}

	return agg
}
