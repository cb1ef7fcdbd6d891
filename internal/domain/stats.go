package domain

import "time"

// ActivityKind represents the kind of contributor activity
type ActivityKind string

const (
	ActivityKindCommit      ActivityKind = "commit"
	ActivityKindPullRequest ActivityKind = "pull_request"
	ActivityKindIssue       ActivityKind = "issue"
	ActivityKindReview      ActivityKind = "review"
)

// ActivityItem is one recent activity entry (commit, PR, issue or review)
type ActivityItem struct {
	Kind      ActivityKind
	ID        string
	Title     string
	URL       string
	State     string
	Timestamp time.Time
}

// PullRequestCount breaks pull request totals down by state
type PullRequestCount struct {
	Total  int
	Open   int
	Closed int
	Merged int
}

// IssueCount breaks issue totals down by state
type IssueCount struct {
	Total  int
	Open   int
	Closed int
}

// ContributorStats holds collected statistics for one contributor in
// one repository. The (Org, Repo, Login) triple identifies the record.
type ContributorStats struct {
	Org   string
	Repo  string
	Login string

	CommitCount int
	Additions   int
	Deletions   int

	PullRequests PullRequestCount
	Issues       IssueCount
	ReviewCount  int

	// RecentActivity holds up to the configured number of most recent
	// items per activity kind, most recent first.
	RecentActivity []ActivityItem

	ContributionScore float64

	// Partial is set when at least one activity fetch returned a
	// truncated result, so zero counts cannot be trusted.
	Partial bool

	CollectedAt time.Time
}

// RepoStats holds aggregated statistics for one repository
type RepoStats struct {
	Org          string
	Repo         string
	Contributors int
	CommitCount  int
	PRCount      int
	IssueCount   int
	ReviewCount  int
	CollectedAt  time.Time
}
