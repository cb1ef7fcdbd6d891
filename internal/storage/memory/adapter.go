// Package memory implements the Storage interface in process memory.
// It mirrors the document semantics of the Firestore adapter (field
// merge, store-assigned timestamps) and backs the orchestrator tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage"
)

type memoryStorage struct {
	mu           sync.Mutex
	contributors map[string]map[string]interface{}
	repos        map[string]map[string]interface{}
	now          func() time.Time
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() storage.Storage {
	return &memoryStorage{
		contributors: make(map[string]map[string]interface{}),
		repos:        make(map[string]map[string]interface{}),
		now:          time.Now,
	}
}

func (m *memoryStorage) SaveContributorStats(ctx context.Context, stats *domain.ContributorStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := storage.DocID(stats.Org, stats.Repo, stats.Login)
	merge(m.contributors, id, storage.ContributorDoc(stats), m.now())
	return nil
}

func (m *memoryStorage) GetOrgContributors(ctx context.Context, org string) ([]*domain.ContributorStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []*domain.ContributorStats{}
	for _, doc := range m.contributors {
		if doc["org_name"] == org {
			result = append(result, storage.DecodeContributor(doc))
		}
	}
	return result, nil
}

func (m *memoryStorage) GetRepoContributors(ctx context.Context, org, repo string) ([]*domain.ContributorStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []*domain.ContributorStats{}
	for _, doc := range m.contributors {
		if doc["org_name"] == org && doc["repo_name"] == repo {
			result = append(result, storage.DecodeContributor(doc))
		}
	}
	return result, nil
}

func (m *memoryStorage) SaveRepoStats(ctx context.Context, stats *domain.RepoStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := storage.DocID(stats.Org, stats.Repo)
	merge(m.repos, id, storage.RepoDoc(stats), m.now())
	return nil
}

func (m *memoryStorage) GetOrgRepos(ctx context.Context, org string) ([]*domain.RepoStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []*domain.RepoStats{}
	for _, doc := range m.repos {
		if doc["org_name"] == org {
			result = append(result, storage.DecodeRepo(doc))
		}
	}
	return result, nil
}

func (m *memoryStorage) Close() error {
	return nil
}

// merge applies upsert-with-field-merge semantics: fields present in
// the new document overwrite, all others are preserved.
func merge(docs map[string]map[string]interface{}, id string, doc map[string]interface{}, now time.Time) {
	existing, ok := docs[id]
	if !ok {
		existing = make(map[string]interface{})
		docs[id] = existing
	}
	for k, v := range doc {
		existing[k] = v
	}
	existing["collected_at"] = now
}
