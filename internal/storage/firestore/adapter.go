// Package firestore implements the Storage interface on Cloud
// Firestore, the production document store.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
	apperrors "github.com/kurihiro0119/github-contributor-stats/internal/errors"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage"
)

const (
	collectionContributors = "github_contributors"
	collectionRepositories = "github_repositories"
)

type firestoreStorage struct {
	client *firestore.Client
}

// NewFirestoreStorage creates a Firestore-backed storage using a
// service account credentials blob.
func NewFirestoreStorage(ctx context.Context, projectID string, credentialsJSON []byte) (storage.Storage, error) {
	client, err := firestore.NewClient(ctx, projectID, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(
			fmt.Sprintf("failed to create Firestore client for project %s", projectID), err)
	}

	return &firestoreStorage{client: client}, nil
}

// SaveContributorStats upserts one contributor record. MergeAll keeps
// document fields that are not part of the new write, and the
// timestamp is assigned by the server.
func (f *firestoreStorage) SaveContributorStats(ctx context.Context, stats *domain.ContributorStats) error {
	doc := storage.ContributorDoc(stats)
	doc["collected_at"] = firestore.ServerTimestamp

	docRef := f.client.Collection(collectionContributors).
		Doc(storage.DocID(stats.Org, stats.Repo, stats.Login))

	if _, err := docRef.Set(ctx, doc, firestore.MergeAll); err != nil {
		return apperrors.NewStoreUnavailable(
			fmt.Sprintf("failed to save stats for %s in %s/%s", stats.Login, stats.Org, stats.Repo), err)
	}
	return nil
}

func (f *firestoreStorage) GetOrgContributors(ctx context.Context, org string) ([]*domain.ContributorStats, error) {
	query := f.client.Collection(collectionContributors).Where("org_name", "==", org)
	return f.queryContributors(ctx, query, org)
}

func (f *firestoreStorage) GetRepoContributors(ctx context.Context, org, repo string) ([]*domain.ContributorStats, error) {
	query := f.client.Collection(collectionContributors).
		Where("org_name", "==", org).
		Where("repo_name", "==", repo)
	return f.queryContributors(ctx, query, org)
}

func (f *firestoreStorage) queryContributors(ctx context.Context, query firestore.Query, org string) ([]*domain.ContributorStats, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	contributors := []*domain.ContributorStats{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(
				fmt.Sprintf("failed to read contributors for %s", org), err)
		}
		contributors = append(contributors, storage.DecodeContributor(snap.Data()))
	}

	return contributors, nil
}

// SaveRepoStats upserts one repository aggregate with the same merge
// semantics as contributor records.
func (f *firestoreStorage) SaveRepoStats(ctx context.Context, stats *domain.RepoStats) error {
	doc := storage.RepoDoc(stats)
	doc["collected_at"] = firestore.ServerTimestamp

	docRef := f.client.Collection(collectionRepositories).
		Doc(storage.DocID(stats.Org, stats.Repo))

	if _, err := docRef.Set(ctx, doc, firestore.MergeAll); err != nil {
		return apperrors.NewStoreUnavailable(
			fmt.Sprintf("failed to save stats for %s/%s", stats.Org, stats.Repo), err)
	}
	return nil
}

func (f *firestoreStorage) GetOrgRepos(ctx context.Context, org string) ([]*domain.RepoStats, error) {
	iter := f.client.Collection(collectionRepositories).
		Where("org_name", "==", org).
		Documents(ctx)
	defer iter.Stop()

	repos := []*domain.RepoStats{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(
				fmt.Sprintf("failed to read repositories for %s", org), err)
		}
		repos = append(repos, storage.DecodeRepo(snap.Data()))
	}

	return repos, nil
}

func (f *firestoreStorage) Close() error {
	return f.client.Close()
}
