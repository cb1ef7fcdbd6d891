package storage

import (
	"context"
	"strings"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
)

// Storage is the abstract interface for the persistence layer. Writes
// are field-merge upserts: fields already present in the stored
// document but absent from the new one are preserved, and the
// collected-at timestamp is assigned by the store at write time.
type Storage interface {
	// Contributor stat records, keyed by (org, repo, login)
	SaveContributorStats(ctx context.Context, stats *domain.ContributorStats) error
	GetOrgContributors(ctx context.Context, org string) ([]*domain.ContributorStats, error)
	GetRepoContributors(ctx context.Context, org, repo string) ([]*domain.ContributorStats, error)

	// Repository aggregates, keyed by (org, repo)
	SaveRepoStats(ctx context.Context, stats *domain.RepoStats) error
	GetOrgRepos(ctx context.Context, org string) ([]*domain.RepoStats, error)

	// Connection management
	Close() error
}

// DocID builds a stable document identity from key parts. Colon is
// safe as a separator: GitHub organization, repository and login names
// cannot contain it.
func DocID(parts ...string) string {
	return strings.Join(parts, ":")
}
