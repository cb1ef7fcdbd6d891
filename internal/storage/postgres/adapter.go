// Package postgres implements the Storage interface on PostgreSQL.
// Documents live in a JSONB column and are merged in a
// read-modify-write transaction, mirroring the SQLite adapter.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
	apperrors "github.com/kurihiro0119/github-contributor-stats/internal/errors"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS contributor_stats (
	org_name  TEXT NOT NULL,
	repo_name TEXT NOT NULL,
	login     TEXT NOT NULL,
	doc       JSONB NOT NULL,
	PRIMARY KEY (org_name, repo_name, login)
);

CREATE TABLE IF NOT EXISTS repo_stats (
	org_name  TEXT NOT NULL,
	repo_name TEXT NOT NULL,
	doc       JSONB NOT NULL,
	PRIMARY KEY (org_name, repo_name)
);
`

type postgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a PostgreSQL-backed storage from a DSN
func NewPostgresStorage(url string) (storage.Storage, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("failed to open PostgreSQL connection", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.NewStoreUnavailable("failed to connect to PostgreSQL", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.NewStoreUnavailable("failed to create PostgreSQL schema", err)
	}

	return &postgresStorage{db: db}, nil
}

func (p *postgresStorage) SaveContributorStats(ctx context.Context, stats *domain.ContributorStats) error {
	err := p.mergeDoc(ctx,
		`SELECT doc FROM contributor_stats WHERE org_name = $1 AND repo_name = $2 AND login = $3`,
		`INSERT INTO contributor_stats (org_name, repo_name, login, doc) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (org_name, repo_name, login) DO UPDATE SET doc = excluded.doc`,
		[]interface{}{stats.Org, stats.Repo, stats.Login},
		storage.ContributorDoc(stats))
	if err != nil {
		return apperrors.NewStoreUnavailable(
			fmt.Sprintf("failed to save stats for %s in %s/%s", stats.Login, stats.Org, stats.Repo), err)
	}
	return nil
}

func (p *postgresStorage) GetOrgContributors(ctx context.Context, org string) ([]*domain.ContributorStats, error) {
	return p.queryContributors(ctx,
		`SELECT doc FROM contributor_stats WHERE org_name = $1`, org)
}

func (p *postgresStorage) GetRepoContributors(ctx context.Context, org, repo string) ([]*domain.ContributorStats, error) {
	return p.queryContributors(ctx,
		`SELECT doc FROM contributor_stats WHERE org_name = $1 AND repo_name = $2`, org, repo)
}

func (p *postgresStorage) SaveRepoStats(ctx context.Context, stats *domain.RepoStats) error {
	err := p.mergeDoc(ctx,
		`SELECT doc FROM repo_stats WHERE org_name = $1 AND repo_name = $2`,
		`INSERT INTO repo_stats (org_name, repo_name, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (org_name, repo_name) DO UPDATE SET doc = excluded.doc`,
		[]interface{}{stats.Org, stats.Repo},
		storage.RepoDoc(stats))
	if err != nil {
		return apperrors.NewStoreUnavailable(
			fmt.Sprintf("failed to save stats for %s/%s", stats.Org, stats.Repo), err)
	}
	return nil
}

func (p *postgresStorage) GetOrgRepos(ctx context.Context, org string) ([]*domain.RepoStats, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM repo_stats WHERE org_name = $1`, org)
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

func (p *postgresStorage) Close() error {
	return p.db.Close()
}

func (p *postgresStorage) mergeDoc(ctx context.Context, selectQuery, upsertQuery string, key []interface{}, doc map[string]interface{}) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing := map[string]interface{}{}
	var raw []byte
	err = tx.QueryRowContext(ctx, selectQuery, key...).Scan(&raw)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &existing); err != nil {
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

	args := append(append([]interface{}{}, key...), encoded)
	if _, err := tx.ExecContext(ctx, upsertQuery, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *postgresStorage) queryContributors(ctx context.Context, query string, args ...interface{}) ([]*domain.ContributorStats, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
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
	var raw []byte
	if err := rows.Scan(&raw); err != nil {
		return nil, err
	}
	doc := map[string]interface{}{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
