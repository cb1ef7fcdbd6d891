package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/kurihiro0119/github-contributor-stats/internal/errors"
)

const (
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken string
	Orgs        []string

	// Storage
	StorageBackend        string // "firestore", "sqlite" or "postgres"
	GoogleCredentialsJSON []byte
	GCPProjectID          string
	SQLitePath            string
	PostgresURL           string

	// Collection
	CollectionInterval  string // "hourly", "daily" or "weekly"
	CollectionTime      string // "HH:MM"
	RecentActivityCount int
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		GitHubToken:        os.Getenv("GITHUB_TOKEN"),
		Orgs:               splitOrgs(os.Getenv("GITHUB_ORGS")),
		StorageBackend:     getEnv("STORAGE_BACKEND", BackendFirestore),
		SQLitePath:         getEnv("SQLITE_PATH", "./contributor-stats.db"),
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		CollectionInterval: getEnv("COLLECTION_INTERVAL", "daily"),
		CollectionTime:     getEnv("COLLECTION_TIME", "00:00"),
	}

	count := getEnv("RECENT_ACTIVITY_COUNT", "5")
	n, err := strconv.Atoi(count)
	if err != nil {
		return nil, apperrors.NewConfigError("RECENT_ACTIVITY_COUNT", "must be an integer")
	}
	cfg.RecentActivityCount = n

	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"); creds != "" {
		var sa struct {
			ProjectID string `json:"project_id"`
		}
		if err := json.Unmarshal([]byte(creds), &sa); err != nil {
			return nil, apperrors.NewConfigError("GOOGLE_APPLICATION_CREDENTIALS_JSON", "is not valid JSON")
		}
		cfg.GoogleCredentialsJSON = []byte(creds)
		cfg.GCPProjectID = sa.ProjectID
	}

	return cfg, nil
}

// Validate validates the configuration. It is called before any network
// activity so a bad environment fails the process immediately.
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return apperrors.NewConfigError("GITHUB_TOKEN", "GitHub token is required")
	}
	if len(c.Orgs) == 0 {
		return apperrors.NewConfigError("GITHUB_ORGS", "comma-separated organization list is required")
	}

	switch c.StorageBackend {
	case BackendFirestore:
		if len(c.GoogleCredentialsJSON) == 0 {
			return apperrors.NewConfigError("GOOGLE_APPLICATION_CREDENTIALS_JSON", "service account credentials are required when STORAGE_BACKEND is 'firestore'")
		}
		if c.GCPProjectID == "" {
			return apperrors.NewConfigError("GOOGLE_APPLICATION_CREDENTIALS_JSON", "credentials are missing 'project_id'")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return apperrors.NewConfigError("SQLITE_PATH", "path is required when STORAGE_BACKEND is 'sqlite'")
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			return apperrors.NewConfigError("POSTGRES_URL", "PostgreSQL URL is required when STORAGE_BACKEND is 'postgres'")
		}
	default:
		return apperrors.NewConfigError("STORAGE_BACKEND", "must be 'firestore', 'sqlite' or 'postgres'")
	}

	switch c.CollectionInterval {
	case "hourly", "daily", "weekly":
	default:
		return apperrors.NewConfigError("COLLECTION_INTERVAL", "must be 'hourly', 'daily' or 'weekly'")
	}

	if _, err := time.Parse("15:04", c.CollectionTime); err != nil {
		return apperrors.NewConfigError("COLLECTION_TIME", "must be in HH:MM format")
	}

	if c.RecentActivityCount <= 0 {
		return apperrors.NewConfigError("RECENT_ACTIVITY_COUNT", "must be a positive integer")
	}

	return nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitOrgs(raw string) []string {
	var orgs []string
	for _, org := range strings.Split(raw, ",") {
		if org = strings.TrimSpace(org); org != "" {
			orgs = append(orgs, org)
		}
	}
	return orgs
}
