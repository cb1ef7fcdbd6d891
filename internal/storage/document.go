package storage

import (
	"time"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
)

// Document field names shared by every adapter. Firestore stores these
// maps natively; the SQL adapters serialize them to a JSON column.
// Keeping one codec guarantees the same persisted shape everywhere.

// ContributorDoc converts a contributor record into its document form.
// The collected_at field is deliberately absent: the adapter assigns
// it at write time.
func ContributorDoc(s *domain.ContributorStats) map[string]interface{} {
	recent := make([]interface{}, 0, len(s.RecentActivity))
	for _, item := range s.RecentActivity {
		recent = append(recent, map[string]interface{}{
			"kind":      string(item.Kind),
			"id":        item.ID,
			"title":     item.Title,
			"url":       item.URL,
			"state":     item.State,
			"timestamp": item.Timestamp,
		})
	}

	return map[string]interface{}{
		"org_name":  s.Org,
		"repo_name": s.Repo,
		"login":     s.Login,

		"commit_count": s.CommitCount,
		"additions":    s.Additions,
		"deletions":    s.Deletions,

		"pr_count": map[string]interface{}{
			"total":  s.PullRequests.Total,
			"open":   s.PullRequests.Open,
			"closed": s.PullRequests.Closed,
			"merged": s.PullRequests.Merged,
		},
		"issue_count": map[string]interface{}{
			"total":  s.Issues.Total,
			"open":   s.Issues.Open,
			"closed": s.Issues.Closed,
		},
		"review_count": s.ReviewCount,

		"recent_activity":    recent,
		"contribution_score": s.ContributionScore,
		"partial":            s.Partial,
	}
}

// DecodeContributor converts a document back into a contributor record
func DecodeContributor(doc map[string]interface{}) *domain.ContributorStats {
	s := &domain.ContributorStats{
		Org:   asString(doc["org_name"]),
		Repo:  asString(doc["repo_name"]),
		Login: asString(doc["login"]),

		CommitCount: asInt(doc["commit_count"]),
		Additions:   asInt(doc["additions"]),
		Deletions:   asInt(doc["deletions"]),
		ReviewCount: asInt(doc["review_count"]),

		ContributionScore: asFloat(doc["contribution_score"]),
		Partial:           asBool(doc["partial"]),
		CollectedAt:       asTime(doc["collected_at"]),
	}

	if pr, ok := doc["pr_count"].(map[string]interface{}); ok {
		s.PullRequests = domain.PullRequestCount{
			Total:  asInt(pr["total"]),
			Open:   asInt(pr["open"]),
			Closed: asInt(pr["closed"]),
			Merged: asInt(pr["merged"]),
		}
	}
	if issues, ok := doc["issue_count"].(map[string]interface{}); ok {
		s.Issues = domain.IssueCount{
			Total:  asInt(issues["total"]),
			Open:   asInt(issues["open"]),
			Closed: asInt(issues["closed"]),
		}
	}

	if recent, ok := doc["recent_activity"].([]interface{}); ok {
		for _, raw := range recent {
			item, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			s.RecentActivity = append(s.RecentActivity, domain.ActivityItem{
				Kind:      domain.ActivityKind(asString(item["kind"])),
				ID:        asString(item["id"]),
				Title:     asString(item["title"]),
				URL:       asString(item["url"]),
				State:     asString(item["state"]),
				Timestamp: asTime(item["timestamp"]),
			})
		}
	}

	return s
}

// RepoDoc converts a repository aggregate into its document form
func RepoDoc(s *domain.RepoStats) map[string]interface{} {
	return map[string]interface{}{
		"org_name":          s.Org,
		"repo_name":         s.Repo,
		"contributor_count": s.Contributors,
		"commit_count":      s.CommitCount,
		"pr_count":          s.PRCount,
		"issue_count":       s.IssueCount,
		"review_count":      s.ReviewCount,
	}
}

// DecodeRepo converts a document back into a repository aggregate
func DecodeRepo(doc map[string]interface{}) *domain.RepoStats {
	return &domain.RepoStats{
		Org:          asString(doc["org_name"]),
		Repo:         asString(doc["repo_name"]),
		Contributors: asInt(doc["contributor_count"]),
		CommitCount:  asInt(doc["commit_count"]),
		PRCount:      asInt(doc["pr_count"]),
		IssueCount:   asInt(doc["issue_count"]),
		ReviewCount:  asInt(doc["review_count"]),
		CollectedAt:  asTime(doc["collected_at"]),
	}
}

// The loose as* conversions below absorb the numeric and timestamp
// representations of the different backends: Firestore decodes numbers
// as int64/float64 and timestamps as time.Time, while the JSON columns
// of the SQL adapters yield float64 and RFC 3339 strings.

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func asTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}
		}
		return parsed
	default:
		return time.Time{}
	}
}
