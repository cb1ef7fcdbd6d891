package collector

import (
	"context"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
)

// Collector defines the interface for fetching contribution data from
// the remote source-control API.
type Collector interface {
	// ListOrganizationRepos retrieves all repositories of an
	// organization. A failure here aborts the organization's pass, so
	// it is the only call that surfaces an error for a whole unit.
	ListOrganizationRepos(ctx context.Context, org string) ([]*domain.Repository, error)

	// ListRepoContributors retrieves all contributors of a repository.
	ListRepoContributors(ctx context.Context, org, repo string) ([]*domain.Contributor, error)

	// GetContributorActivity collects commit, pull request, issue and
	// review statistics for one contributor. The four fetches run
	// concurrently and each degrades to a partial result on failure;
	// the returned record is always usable and carries Partial when
	// any fetch was truncated. Score and timestamp are not set.
	GetContributorActivity(ctx context.Context, org, repo, login string) *domain.ContributorStats
}
