// Package sqlite implements the Storage interface on SQLite for local
// development. Documents are stored as a JSON column and merged in a
// read-modify-write transaction so the field-merge contract matches
// the Firestore adapter.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
	apperrors "github.com/kurihiro0119/github-contributor-stats/internal/errors"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS contributor_stats (
	org_name  TEXT NOT NULL,
	repo_name TEXT NOT NULL,
	login     TEXT NOT NULL,
	doc       TEXT NOT NULL,
	PRIMARY KEY (org_name, repo_name, login)
);

CREATE TABLE IF NOT EXISTS repo_stats (
	org_name  TEXT NOT NULL,
	repo_name TEXT NOT NULL,
	doc       TEXT NOT NULL,
	PRIMARY KEY (org_name, repo_name)
);
`

type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a SQLite-backed storage at the given path
func NewSQLiteStorage(path string) (storage.Storage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("failed to open SQLite database", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.NewStoreUnavailable("failed to create SQLite schema", err)
	}

	return &sqliteStorage{db: db}, nil
}

func (s *sqliteStorage) SaveContributorStats(ctx context.Context, stats *domain.ContributorStats) error {
	err := s.mergeDoc(ctx,
		`SELECT doc FROM contributor_stats WHERE org_name = ? AND repo_name = ? AND login = ?`,
		`INSERT INTO contributor_stats (org_name, repo_name, login, doc) VALUES (?, ?, ?, ?)
		 ON CONFLICT (org_name, repo_name, login) DO UPDATE SET doc = excluded.doc`,
		[]interface{}{stats.Org, stats.Repo, stats.Login},
		storage.ContributorDoc(stats))
	if err != nil {
		return apperrors.NewStoreUnavailable(
			fmt.Sprintf("failed to save stats for %s in %s/%s", stats.Login, stats.Org, stats.Repo), err)
	}
	return nil
}

func (s *sqliteStorage) GetOrgContributors(ctx context.Context, org string) ([]*domain.ContributorStats, error) {
	return s.queryContributors(ctx,
		`SELECT doc FROM contributor_stats WHERE org_name = ?`, org)
}

func (s *sqliteStorage) GetRepoContributors(ctx context.Context, org, repo string) ([]*domain.ContributorStats, error) {
	return s.queryContributors(ctx,
		`SELECT doc FROM contributor_stats WHERE org_name = ? AND repo_name = ?`, org, repo)
}

func (s *sqliteStorage) SaveRepoStats(ctx context.Context, stats *domain.RepoStats) error {
	err := s.mergeDoc(ctx,
		`SELECT doc FROM repo_stats WHERE org_name = ? AND repo_name = ?`,
		`INSERT INTO repo_stats (org_name, repo_name, doc) VALUES (?, ?, ?)
		 ON CONFLICT (org_name, repo_name) DO UPDATE SET doc = excluded.doc`,
		[]interface{}{stats.Org, stats.Repo},
		storage.RepoDoc(stats))
	if err != nil {
		return apperrors.NewStoreUnavailable(
			fmt.Sprintf("failed to save stats for %s/%s", stats.Org, stats.Repo), err)
	}
	return nil
}

func (s *sqliteStorage) GetOrgRepos(ctx context.Context, org string) ([]*domain.RepoStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM repo_stats WHERE org_name = ?`, org)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(
			fmt.Sprintf("failed to read repositories for %s", org), err)
	}
	defer rows.Close()

	repos := []*domain.RepoStats{}
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable("failed to decode repository document", err)
		}
		repos = append(repos, storage.DecodeRepo(doc))
	}
	return repos, rows.Err()
}

func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

// mergeDoc performs the field-merge upsert: read the current document
// inside a transaction, overlay the new fields, stamp collected_at and
// write the merged document back.
func (s *sqliteStorage) mergeDoc(ctx context.Context, selectQuery, upsertQuery string, key []interface{}, doc map[string]interface{}) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing := map[string]interface{}{}
	var raw string
	err = tx.QueryRowContext(ctx, selectQuery, key...).Scan(&raw)
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return err
		}
	case errors.Is(err, sql.ErrNoRows):
		// First write for this identity.
	default:
		return err
	}

	for k, v := range doc {
		existing[k] = v
	}
	existing["collected_at"] = time.Now().UTC()

	encoded, err := json.Marshal(existing)
	if err != nil {
		return err
	}

	args := append(append([]interface{}{}, key...), string(encoded))
	if _, err := tx.ExecContext(ctx, upsertQuery, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStorage) queryContributors(ctx context.Context, query string, args ...interface{}) ([]*domain.ContributorStats, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("failed to read contributor documents", err)
	}
	defer rows.Close()

	contributors := []*domain.ContributorStats{}
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable("failed to decode contributor document", err)
		}
		contributors = append(contributors, storage.DecodeContributor(doc))
	}
	return contributors, rows.Err()
}

func scanDoc(rows *sql.Rows) (map[string]interface{}, error) {
	var raw string
	if err := rows.Scan(&raw); err != nil {
		return nil, err
	}
	doc := map[string]interface{}{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
