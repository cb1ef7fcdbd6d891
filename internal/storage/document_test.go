package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
)

// The SQL adapters round-trip documents through a JSON column, which
// turns every number into float64 and every timestamp into a string.
// The decoder has to absorb that representation.
func TestDecodeContributor_AfterJSONRoundTrip(t *testing.T) {
	collected := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	stats := &domain.ContributorStats{
		Org:         "acme",
		Repo:        "widget",
		Login:       "alice",
		CommitCount: 42,
		PullRequests: domain.PullRequestCount{
			Total: 5, Open: 1, Closed: 4, Merged: 3,
		},
		Issues:      domain.IssueCount{Total: 2, Closed: 2},
		ReviewCount: 7,
		RecentActivity: []domain.ActivityItem{
			{
				Kind:      domain.ActivityKindCommit,
				ID:        "abc123",
				Title:     "fix pagination",
				URL:       "https://example.com/commit/abc123",
				Timestamp: collected.Add(-time.Hour),
			},
		},
		ContributionScore: 0.57,
		Partial:           true,
	}

	doc := ContributorDoc(stats)
	doc["collected_at"] = collected

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	got := DecodeContributor(decoded)
	assert.Equal(t, "alice", got.Login)
	assert.Equal(t, 42, got.CommitCount)
	assert.Equal(t, 5, got.PullRequests.Total)
	assert.Equal(t, 3, got.PullRequests.Merged)
	assert.Equal(t, 7, got.ReviewCount)
	assert.InDelta(t, 0.57, got.ContributionScore, 1e-9)
	assert.True(t, got.Partial)
	assert.True(t, collected.Equal(got.CollectedAt))

	require.Len(t, got.RecentActivity, 1)
	assert.Equal(t, domain.ActivityKindCommit, got.RecentActivity[0].Kind)
	assert.Equal(t, "abc123", got.RecentActivity[0].ID)
	assert.True(t, collected.Add(-time.Hour).Equal(got.RecentActivity[0].Timestamp))
}

func TestDocID(t *testing.T) {
	assert.Equal(t, "acme:widget:alice", DocID("acme", "widget", "alice"))
	assert.Equal(t, "acme:widget", DocID("acme", "widget"))
}
