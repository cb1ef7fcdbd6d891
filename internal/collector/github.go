package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
	apperrors "github.com/kurihiro0119/github-contributor-stats/internal/errors"
)

// requestTimeout bounds every HTTP request so a stuck remote call is
// treated as a request failure instead of blocking a pass.
const requestTimeout = 60 * time.Second

// githubCollector implements Collector using the GitHub REST API
type githubCollector struct {
	client      *github.Client
	rateLimiter RateLimiter
	recentCount int
}

// NewGitHubCollector creates a new GitHub collector. The transport
// stack is built once and shared by all fetches:
//  1. go-github-ratelimit (sleeps on secondary rate limits)
//  2. oauth2 static token transport
//  3. go-github REST client
func NewGitHubCollector(token string, recentCount int) (Collector, error) {
	waiter, err := github_ratelimit.NewRateLimitWaiter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   waiter,
			Source: ts,
		},
		Timeout: requestTimeout,
	}

	return &githubCollector{
		client:      github.NewClient(httpClient),
		rateLimiter: NewRateLimiter(),
		recentCount: recentCount,
	}, nil
}

// NewGitHubCollectorWithClient creates a collector backed by a custom
// go-github client. Intended for tests with an httptest server.
func NewGitHubCollectorWithClient(client *github.Client, recentCount int) Collector {
	return &githubCollector{
		client:      client,
		rateLimiter: NewRateLimiter(),
		recentCount: recentCount,
	}
}

// ListOrganizationRepos retrieves all repositories for an organization.
// Unlike the activity fetches this propagates failures: the caller
// cannot make progress without a repository list.
func (c *githubCollector) ListOrganizationRepos(ctx context.Context, org string) ([]*domain.Repository, error) {
	var allRepos []*domain.Repository
	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		var repos []*github.Repository
		var resp *github.Response
		err := withRetry(ctx, "list org repositories", func() error {
			var err error
			repos, resp, err = c.client.Repositories.ListByOrg(ctx, org, opts)
			return err
		})
		if err != nil {
			return nil, apperrors.NewRemoteUnavailable(
				fmt.Sprintf("failed to list repositories for %s", org), err)
		}

		c.updateRateLimitFromResponse(resp)

		for _, repo := range repos {
			allRepos = append(allRepos, &domain.Repository{
				Org:       org,
				Name:      repo.GetName(),
				FullName:  repo.GetFullName(),
				IsPrivate: repo.GetPrivate(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

// ListRepoContributors retrieves all contributors for a repository.
// Anonymous contributors (no login) are skipped since no activity can
// be attributed to them.
func (c *githubCollector) ListRepoContributors(ctx context.Context, org, repo string) ([]*domain.Contributor, error) {
	var allContributors []*domain.Contributor
	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		var contributors []*github.Contributor
		var resp *github.Response
		err := withRetry(ctx, "list repo contributors", func() error {
			var err error
			contributors, resp, err = c.client.Repositories.ListContributors(ctx, org, repo, opts)
			return err
		})
		if err != nil {
			// An empty repository reports 204/409 instead of an empty page.
			if resp != nil && (resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusConflict) {
				return allContributors, nil
			}
			return nil, apperrors.NewRemoteUnavailable(
				fmt.Sprintf("failed to list contributors for %s/%s", org, repo), err)
		}

		c.updateRateLimitFromResponse(resp)

		for _, contributor := range contributors {
			if contributor.GetLogin() == "" {
				continue
			}
			allContributors = append(allContributors, &domain.Contributor{
				Login:         contributor.GetLogin(),
				Contributions: contributor.GetContributions(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allContributors, nil
}

// GetContributorActivity collects commit, pull request, issue and
// review statistics for one contributor. The four fetches have no data
// dependency and run concurrently. Each one degrades to whatever it
// accumulated on failure; Partial marks records with truncated counts.
func (c *githubCollector) GetContributorActivity(ctx context.Context, org, repo, login string) *domain.ContributorStats {
	stats := &domain.ContributorStats{
		Org:   org,
		Repo:  repo,
		Login: login,
	}

	var (
		wg                                            sync.WaitGroup
		commitItems, prItems, issueItems, reviewItems []domain.ActivityItem
		commitOK, prOK, issueOK, reviewOK             bool
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		commitItems, commitOK = c.fetchCommits(ctx, stats)
	}()
	go func() {
		defer wg.Done()
		prItems, prOK = c.fetchPullRequests(ctx, stats)
	}()
	go func() {
		defer wg.Done()
		issueItems, issueOK = c.fetchIssues(ctx, stats)
	}()
	go func() {
		defer wg.Done()
		reviewItems, reviewOK = c.fetchReviews(ctx, stats)
	}()
	wg.Wait()

	stats.Partial = !(commitOK && prOK && issueOK && reviewOK)
	stats.RecentActivity = mergeRecent(commitItems, prItems, issueItems, reviewItems)

	return stats
}

// fetchCommits counts the contributor's commits and keeps the most
// recent ones. The returned flag is false when pagination was cut
// short, meaning the counts are a lower bound.
func (c *githubCollector) fetchCommits(ctx context.Context, stats *domain.ContributorStats) ([]domain.ActivityItem, bool) {
	var items []domain.ActivityItem
	opts := &github.CommitsListOptions{
		Author:      stats.Login,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return items, false
		}

		var commits []*github.RepositoryCommit
		var resp *github.Response
		err := withRetry(ctx, "list commits", func() error {
			var err error
			commits, resp, err = c.client.Repositories.ListCommits(ctx, stats.Org, stats.Repo, opts)
			return err
		})
		if err != nil {
			// Empty repositories report 409 instead of an empty page.
			if resp != nil && resp.StatusCode == http.StatusConflict {
				return items, true
			}
			slog.Warn("commit fetch degraded to partial result",
				"org", stats.Org, "repo", stats.Repo, "login", stats.Login, "error", err)
			return items, false
		}

		c.updateRateLimitFromResponse(resp)

		for _, commit := range commits {
			stats.CommitCount++
			if commit.Stats != nil {
				stats.Additions += commit.Stats.GetAdditions()
				stats.Deletions += commit.Stats.GetDeletions()
			}
			if len(items) < c.recentCount {
				items = append(items, domain.ActivityItem{
					Kind:      domain.ActivityKindCommit,
					ID:        commit.GetSHA(),
					Title:     firstLine(commit.GetCommit().GetMessage()),
					URL:       commit.GetHTMLURL(),
					Timestamp: commit.GetCommit().GetAuthor().GetDate().Time,
				})
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return items, true
}

// fetchPullRequests counts the contributor's pull requests with an
// open/closed/merged breakdown. The list endpoint cannot filter by
// author, so all pull requests are paged through and filtered here.
func (c *githubCollector) fetchPullRequests(ctx context.Context, stats *domain.ContributorStats) ([]domain.ActivityItem, bool) {
	var items []domain.ActivityItem
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return items, false
		}

		var prs []*github.PullRequest
		var resp *github.Response
		err := withRetry(ctx, "list pull requests", func() error {
			var err error
			prs, resp, err = c.client.PullRequests.List(ctx, stats.Org, stats.Repo, opts)
			return err
		})
		if err != nil {
			slog.Warn("pull request fetch degraded to partial result",
				"org", stats.Org, "repo", stats.Repo, "login", stats.Login, "error", err)
			return items, false
		}

		c.updateRateLimitFromResponse(resp)

		for _, pr := range prs {
			if pr.GetUser().GetLogin() != stats.Login {
				continue
			}

			stats.PullRequests.Total++
			state := pr.GetState()
			switch {
			case pr.MergedAt != nil:
				stats.PullRequests.Merged++
				state = "merged"
			case state == "closed":
				stats.PullRequests.Closed++
			default:
				stats.PullRequests.Open++
			}

			if len(items) < c.recentCount {
				items = append(items, domain.ActivityItem{
					Kind:      domain.ActivityKindPullRequest,
					ID:        fmt.Sprintf("%d", pr.GetNumber()),
					Title:     pr.GetTitle(),
					URL:       pr.GetHTMLURL(),
					State:     state,
					Timestamp: pr.GetCreatedAt().Time,
				})
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return items, true
}

// fetchIssues counts issues created by the contributor. The issues
// endpoint also returns pull requests; those are excluded so PRs are
// not double counted.
func (c *githubCollector) fetchIssues(ctx context.Context, stats *domain.ContributorStats) ([]domain.ActivityItem, bool) {
	var items []domain.ActivityItem
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Creator:     stats.Login,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return items, false
		}

		var issues []*github.Issue
		var resp *github.Response
		err := withRetry(ctx, "list issues", func() error {
			var err error
			issues, resp, err = c.client.Issues.ListByRepo(ctx, stats.Org, stats.Repo, opts)
			return err
		})
		if err != nil {
			slog.Warn("issue fetch degraded to partial result",
				"org", stats.Org, "repo", stats.Repo, "login", stats.Login, "error", err)
			return items, false
		}

		c.updateRateLimitFromResponse(resp)

		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}

			stats.Issues.Total++
			if issue.GetState() == "open" {
				stats.Issues.Open++
			} else {
				stats.Issues.Closed++
			}

			if len(items) < c.recentCount {
				items = append(items, domain.ActivityItem{
					Kind:      domain.ActivityKindIssue,
					ID:        fmt.Sprintf("%d", issue.GetNumber()),
					Title:     issue.GetTitle(),
					URL:       issue.GetHTMLURL(),
					State:     issue.GetState(),
					Timestamp: issue.GetCreatedAt().Time,
				})
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return items, true
}

// fetchReviews counts reviews authored by the contributor. There is no
// reviews-by-user endpoint, so every pull request of the repository is
// enumerated and its reviews inspected. The count is exact: the scan
// never short-circuits, only the recent list is truncated.
func (c *githubCollector) fetchReviews(ctx context.Context, stats *domain.ContributorStats) ([]domain.ActivityItem, bool) {
	var items []domain.ActivityItem
	ok := true
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return items, false
		}

		var prs []*github.PullRequest
		var resp *github.Response
		err := withRetry(ctx, "list pull requests for reviews", func() error {
			var err error
			prs, resp, err = c.client.PullRequests.List(ctx, stats.Org, stats.Repo, opts)
			return err
		})
		if err != nil {
			slog.Warn("review fetch degraded to partial result",
				"org", stats.Org, "repo", stats.Repo, "login", stats.Login, "error", err)
			return items, false
		}

		c.updateRateLimitFromResponse(resp)

		for _, pr := range prs {
			if !c.collectPRReviews(ctx, stats, pr, &items) {
				ok = false
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return items, ok
}

// collectPRReviews scans one pull request's reviews for entries by the
// contributor. A failure degrades only this pull request's sequence.
func (c *githubCollector) collectPRReviews(ctx context.Context, stats *domain.ContributorStats, pr *github.PullRequest, items *[]domain.ActivityItem) bool {
	opts := &github.ListOptions{PerPage: 100}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return false
		}

		var reviews []*github.PullRequestReview
		var resp *github.Response
		err := withRetry(ctx, "list pull request reviews", func() error {
			var err error
			reviews, resp, err = c.client.PullRequests.ListReviews(ctx, stats.Org, stats.Repo, pr.GetNumber(), opts)
			return err
		})
		if err != nil {
			slog.Warn("review listing failed for pull request",
				"org", stats.Org, "repo", stats.Repo, "pr", pr.GetNumber(), "error", err)
			return false
		}

		c.updateRateLimitFromResponse(resp)

		for _, review := range reviews {
			if review.GetUser().GetLogin() != stats.Login {
				continue
			}
			stats.ReviewCount++
			if len(*items) < c.recentCount {
				*items = append(*items, domain.ActivityItem{
					Kind:      domain.ActivityKindReview,
					ID:        fmt.Sprintf("%d", review.GetID()),
					Title:     pr.GetTitle(),
					URL:       review.GetHTMLURL(),
					State:     review.GetState(),
					Timestamp: review.GetSubmittedAt().Time,
				})
			}
		}

		if resp.NextPage == 0 {
			return true
		}
		opts.Page = resp.NextPage
	}
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (c *githubCollector) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Remaining >= 0 {
		c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

// mergeRecent combines per-kind recent items into one list, most
// recent first. Each kind is already bounded by the configured count.
func mergeRecent(lists ...[]domain.ActivityItem) []domain.ActivityItem {
	var merged []domain.ActivityItem
	for _, list := range lists {
		merged = append(merged, list...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	return merged
}

func firstLine(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return message[:i]
	}
	return message
}
