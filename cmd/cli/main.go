package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/github-contributor-stats/internal/collector"
	"github.com/kurihiro0119/github-contributor-stats/internal/config"
	"github.com/kurihiro0119/github-contributor-stats/internal/domain"
	"github.com/kurihiro0119/github-contributor-stats/internal/metrics"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage/firestore"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage/postgres"
	"github.com/kurihiro0119/github-contributor-stats/internal/storage/sqlite"
)

var (
	verbose  bool
	topLimit int
	topRepo  string
)

var rootCmd = &cobra.Command{
	Use:   "contributor-stats",
	Short: "GitHub contributor statistics collector",
	Long: `Collects contribution activity (commits, pull requests, issues,
reviews) for every contributor of the configured GitHub organizations,
computes a per-contributor score and persists the results.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var collectCmd = &cobra.Command{
	Use:   "collect [org...]",
	Short: "Run one collection pass",
	Long: `Run one full collection pass over the given organizations (or the
GITHUB_ORGS list when none are given) and print a summary per
organization. Organizations are processed concurrently; a failure for
one organization is logged and does not stop the others.`,
	Args: cobra.ArbitraryArgs,
	RunE: runCollect,
}

var topCmd = &cobra.Command{
	Use:   "top [org]",
	Short: "Show top contributors",
	Long:  `Display the highest-scoring contributors persisted for an organization.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTop,
}

var reposCmd = &cobra.Command{
	Use:   "repos [org]",
	Short: "Show repository aggregates",
	Long:  `Display the persisted repository-level aggregates for an organization.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRepos,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	topCmd.Flags().IntVar(&topLimit, "limit", metrics.DefaultTopLimit, "number of contributors to show")
	topCmd.Flags().StringVar(&topRepo, "repo", "", "restrict to a single repository")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(reposCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads and validates the environment before anything
// touches the network.
func loadConfig(orgs []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if len(orgs) > 0 {
		cfg.Orgs = orgs
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
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

func newMetricsCollector(ctx context.Context, cfg *config.Config) (*metrics.Collector, storage.Storage, error) {
	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	gh, err := collector.NewGitHubCollector(cfg.GitHubToken, cfg.RecentActivityCount)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to initialize GitHub client: %w", err)
	}

	return metrics.NewCollector(gh, store), store, nil
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	coll, store, err := newMetricsCollector(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	type orgResult struct {
		summary *domain.PassSummary
		top     []*domain.ContributorStats
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]orgResult)
		failed  int
	)

	for _, org := range cfg.Orgs {
		wg.Add(1)
		go func(org string) {
			defer wg.Done()

			summary, err := coll.ProcessOrganization(ctx, org)
			if err != nil {
				slog.Error("organization pass failed", "org", org, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			top := coll.GetTopContributors(ctx, org, metrics.DefaultTopLimit)
			mu.Lock()
			results[org] = orgResult{summary: summary, top: top}
			mu.Unlock()
		}(org)
	}
	wg.Wait()

	for _, org := range cfg.Orgs {
		result, ok := results[org]
		if !ok {
			continue
		}
		printSummary(result.summary)
		printContributors(fmt.Sprintf("Top contributors: %s", org), result.top)
	}

	if failed > 0 {
		return fmt.Errorf("collection failed for %d of %d organizations", failed, len(cfg.Orgs))
	}
	return nil
}

func runTop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	coll, store, err := newMetricsCollector(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	org := args[0]
	var top []*domain.ContributorStats
	title := fmt.Sprintf("Top contributors: %s", org)
	if topRepo != "" {
		top = coll.GetTopRepoContributors(ctx, org, topRepo, topLimit)
		title = fmt.Sprintf("Top contributors: %s/%s", org, topRepo)
	} else {
		top = coll.GetTopContributors(ctx, org, topLimit)
	}

	printContributors(title, top)
	return nil
}

func runRepos(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := newStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	org := args[0]
	repos, err := store.GetOrgRepos(ctx, org)
	if err != nil {
		return fmt.Errorf("failed to read repositories for %s: %w", org, err)
	}

	fmt.Printf("\nRepository aggregates: %s\n\n", org)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Repository", "Contributors", "Commits", "PRs", "Issues", "Reviews"})
	for _, r := range repos {
		table.Append([]string{
			r.Repo,
			fmt.Sprintf("%d", r.Contributors),
			fmt.Sprintf("%d", r.CommitCount),
			fmt.Sprintf("%d", r.PRCount),
			fmt.Sprintf("%d", r.IssueCount),
			fmt.Sprintf("%d", r.ReviewCount),
		})
	}
	table.Render()

	return nil
}

func printSummary(summary *domain.PassSummary) {
	fmt.Printf("\nCollection pass: %s (run %s)\n\n", summary.Org, summary.RunID)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Repositories found", fmt.Sprintf("%d", summary.ReposFound)})
	table.Append([]string{"Repositories failed", fmt.Sprintf("%d", summary.ReposFailed)})
	table.Append([]string{"Contributors processed", fmt.Sprintf("%d", summary.ContributorsProcessed)})
	table.Append([]string{"Contributors failed", fmt.Sprintf("%d", summary.ContributorsFailed)})
	table.Append([]string{"Writes failed", fmt.Sprintf("%d", summary.SavesFailed)})
	table.Append([]string{"Duration", summary.Duration().Round(time.Millisecond).String()})
	table.Render()
}

func printContributors(title string, contributors []*domain.ContributorStats) {
	fmt.Printf("\n%s\n\n", title)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Login", "Repository", "Score", "Commits", "PRs", "Issues", "Reviews"})
	for _, c := range contributors {
		table.Append([]string{
			c.Login,
			c.Repo,
			fmt.Sprintf("%.2f", c.ContributionScore),
			fmt.Sprintf("%d", c.CommitCount),
			fmt.Sprintf("%d", c.PullRequests.Total),
			fmt.Sprintf("%d", c.Issues.Total),
			fmt.Sprintf("%d", c.ReviewCount),
		})
	}
	table.Render()
}
