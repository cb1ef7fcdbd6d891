// Package metrics orchestrates one collection pass: it walks
// organization -> repositories -> contributors, scores each
// contributor and drives persistence, isolating failures so one bad
// unit never aborts its siblings.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kurihiro0119/github-contributor-stats/internal/aggregator"
	"github.com/kurihiro0119/github-contributor-stats/internal/collector"
	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage"
)

const (
	// repoWorkers bounds the per-repository fan-out so one pass does
	// not swamp the remote rate limit.
	repoWorkers = 5

	// DefaultTopLimit is the default size of the top-contributor list
	DefaultTopLimit = 10
)

// Collector runs collection passes over organizations
type Collector struct {
	gh    collector.Collector
	store storage.Storage
}

// NewCollector creates a new metrics collector
func NewCollector(gh collector.Collector, store storage.Storage) *Collector {
	return &Collector{
		gh:    gh,
		store: store,
	}
}

// ProcessOrganization collects and persists stats for every
// contributor of every repository in the organization. Repository and
// contributor failures are logged and counted on the returned summary;
// only a failed repository listing surfaces as an error, because
// nothing can be collected without one.
func (c *Collector) ProcessOrganization(ctx context.Context, org string) (*domain.PassSummary, error) {
	summary := &domain.PassSummary{
		RunID:     uuid.New().String(),
		Org:       org,
		StartedAt: time.Now(),
	}
	defer func() { summary.FinishedAt = time.Now() }()

	repos, err := c.gh.ListOrganizationRepos(ctx, org)
	if err != nil {
		return summary, fmt.Errorf("failed to process organization %s: %w", org, err)
	}
	summary.ReposFound = len(repos)
	slog.Info("found repositories", "run_id", summary.RunID, "org", org, "count", len(repos))

	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(repoWorkers)

	for _, repo := range repos {
		eg.Go(func() error {
			c.processRepository(ctx, summary, &mu, repo)
			// Repository failures are isolated, never fail the group.
			return nil
		})
	}
	// Workers always return nil; Wait is just the join point.
	_ = eg.Wait()

	slog.Info("organization pass finished",
		"run_id", summary.RunID,
		"org", org,
		"repos_failed", summary.ReposFailed,
		"contributors_processed", summary.ContributorsProcessed,
		"contributors_failed", summary.ContributorsFailed,
		"duration", summary.Duration().Round(time.Millisecond))

	return summary, nil
}

func (c *Collector) processRepository(ctx context.Context, summary *domain.PassSummary, mu *sync.Mutex, repo *domain.Repository) {
	contributors, err := c.gh.ListRepoContributors(ctx, repo.Org, repo.Name)
	if err != nil {
		slog.Error("skipping repository", "org", repo.Org, "repo", repo.Name, "error", err)
		mu.Lock()
		summary.ReposFailed++
		mu.Unlock()
		return
	}
	slog.Info("found contributors", "repo", repo.FullName, "count", len(contributors))

	collected := make([]*domain.ContributorStats, 0, len(contributors))
	for _, contributor := range contributors {
		if ctx.Err() != nil {
			return
		}

		stats := c.gh.GetContributorActivity(ctx, repo.Org, repo.Name, contributor.Login)
		stats.ContributionScore = aggregator.Score(stats)

		if err := c.store.SaveContributorStats(ctx, stats); err != nil {
			slog.Error("failed to save contributor stats",
				"org", repo.Org, "repo", repo.Name, "login", contributor.Login, "error", err)
			mu.Lock()
			summary.ContributorsFailed++
			summary.SavesFailed++
			mu.Unlock()
			continue
		}

		collected = append(collected, stats)
		mu.Lock()
		summary.ContributorsProcessed++
		mu.Unlock()
	}

	repoStats := aggregator.AggregateRepo(repo.Org, repo.Name, collected)
	if err := c.store.SaveRepoStats(ctx, repoStats); err != nil {
		slog.Error("failed to save repository stats",
			"org", repo.Org, "repo", repo.Name, "error", err)
		mu.Lock()
		summary.SavesFailed++
		mu.Unlock()
	}
}

// GetTopContributors returns the highest-scoring contributor records
// of an organization in descending score order. It is a pure read: a
// store failure degrades to an empty result so reporting paths never
// abort a caller.
func (c *Collector) GetTopContributors(ctx context.Context, org string, limit int) []*domain.ContributorStats {
	records, err := c.store.GetOrgContributors(ctx, org)
	if err != nil {
		slog.Error("failed to read contributors, returning empty result", "org", org, "error", err)
		return []*domain.ContributorStats{}
	}
	return topByScore(records, limit)
}

// GetTopRepoContributors is GetTopContributors restricted to a single
// repository.
func (c *Collector) GetTopRepoContributors(ctx context.Context, org, repo string, limit int) []*domain.ContributorStats {
	records, err := c.store.GetRepoContributors(ctx, org, repo)
	if err != nil {
		slog.Error("failed to read contributors, returning empty result",
			"org", org, "repo", repo, "error", err)
		return []*domain.ContributorStats{}
	}
	return topByScore(records, limit)
}

func topByScore(records []*domain.ContributorStats, limit int) []*domain.ContributorStats {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ContributionScore > records[j].ContributionScore
	})

	if len(records) > limit {
		records = records[:limit]
	}
	return records
}
