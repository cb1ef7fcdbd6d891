package domain

import "time"

// PassSummary records what happened during one collection pass over an
// organization. Failures are counted at the level where they were
// isolated, matching the orchestrator's error handling.
type PassSummary struct {
	RunID string
	Org   string

	ReposFound  int
	ReposFailed int

	ContributorsProcessed int
	ContributorsFailed    int
	SavesFailed           int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall-clock duration of the pass
func (s *PassSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
