package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kurihiro0119/github-contributor-stats/internal/collector"
	"github.com/kurihiro0119/github-contributor-stats/internal/config"
	"github.com/kurihiro0119/github-contributor-stats/internal/metrics"
	"github.com/kurihiro0119/github-contributor-stats/internal/scheduler"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage/firestore"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage/postgres"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage/sqlite"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	sched, err := scheduler.New(
		scheduler.Interval(cfg.CollectionInterval),
		cfg.CollectionTime,
		func(ctx context.Context) { runPass(ctx, cfg) },
	)
	if err != nil {
		slog.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)
}

// runPass executes one full collection pass. Clients are created per
// pass and released on every exit path, so a long-running scheduler
// never accumulates stale connections.
func runPass(ctx context.Context, cfg *config.Config) {
	store, err := newStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize storage, skipping pass", "error", err)
		return
	}
	defer store.Close()

	gh, err := collector.NewGitHubCollector(cfg.GitHubToken, cfg.RecentActivityCount)
	if err != nil {
		slog.Error("failed to initialize GitHub client, skipping pass", "error", err)
		return
	}

	coll := metrics.NewCollector(gh, store)

	for _, org := range cfg.Orgs {
		if ctx.Err() != nil {
			return
		}

		if _, err := coll.ProcessOrganization(ctx, org); err != nil {
			slog.Error("organization pass failed", "org", org, "error", err)
			continue
		}

		for _, c := range coll.GetTopContributors(ctx, org, metrics.DefaultTopLimit) {
			slog.Info("top contributor",
				"org", org, "repo", c.Repo, "login", c.Login, "score", c.ContributionScore)
		}
	}
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	var store storage.Storage
	var err error

	switch cfg.StorageBackend {
	case config.BackendSQLite:
		store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
	case config.BackendPostgres:
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		store, err = firestore.NewFirestoreStorage(ctx, cfg.GCPProjectID, cfg.GoogleCredentialsJSON)
	}
	if err != nil {
		return nil, err
	}

	return storage.WithRetry(store), nil
}
