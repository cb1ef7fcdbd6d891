package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-contributor-stats/internal/config"
	apperrors "github.com/kurihiro0119/github-contributor-stats/internal/errors"
)

const fakeCreds = `{"type":"service_account","project_id":"test-project"}`

func setValidEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITHUB_ORGS", "acme")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", fakeCreds)
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("COLLECTION_INTERVAL", "")
	t.Setenv("COLLECTION_TIME", "")
	t.Setenv("RECENT_ACTIVITY_COUNT", "")
}

func TestLoad_Defaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.BackendFirestore, cfg.StorageBackend)
	assert.Equal(t, "daily", cfg.CollectionInterval)
	assert.Equal(t, "00:00", cfg.CollectionTime)
	assert.Equal(t, 5, cfg.RecentActivityCount)
	assert.Equal(t, "test-project", cfg.GCPProjectID)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OrgList(t *testing.T) {
	setValidEnv(t)
	t.Setenv("GITHUB_ORGS", "acme, globex ,, initech")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"acme", "globex", "initech"}, cfg.Orgs)
}

func TestLoad_BadRecentActivityCount(t *testing.T) {
	setValidEnv(t)
	t.Setenv("RECENT_ACTIVITY_COUNT", "five")

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
}

func TestLoad_BadCredentialsJSON(t *testing.T) {
	setValidEnv(t)
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "not json")

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name  string
		mod   func(t *testing.T)
		field string
	}{
		{
			name:  "missing token",
			mod:   func(t *testing.T) { t.Setenv("GITHUB_TOKEN", "") },
			field: "GITHUB_TOKEN",
		},
		{
			name:  "missing orgs",
			mod:   func(t *testing.T) { t.Setenv("GITHUB_ORGS", "") },
			field: "GITHUB_ORGS",
		},
		{
			name:  "firestore without credentials",
			mod:   func(t *testing.T) { t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "") },
			field: "GOOGLE_APPLICATION_CREDENTIALS_JSON",
		},
		{
			name: "credentials without project id",
			mod: func(t *testing.T) {
				t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", `{"type":"service_account"}`)
			},
			field: "GOOGLE_APPLICATION_CREDENTIALS_JSON",
		},
		{
			name:  "postgres without url",
			mod:   func(t *testing.T) { t.Setenv("STORAGE_BACKEND", "postgres") },
			field: "POSTGRES_URL",
		},
		{
			name:  "unknown backend",
			mod:   func(t *testing.T) { t.Setenv("STORAGE_BACKEND", "dynamodb") },
			field: "STORAGE_BACKEND",
		},
		{
			name:  "unknown interval",
			mod:   func(t *testing.T) { t.Setenv("COLLECTION_INTERVAL", "fortnightly") },
			field: "COLLECTION_INTERVAL",
		},
		{
			name:  "bad collection time",
			mod:   func(t *testing.T) { t.Setenv("COLLECTION_TIME", "25:99") },
			field: "COLLECTION_TIME",
		},
		{
			name:  "zero recent activity count",
			mod:   func(t *testing.T) { t.Setenv("RECENT_ACTIVITY_COUNT", "0") },
			field: "RECENT_ACTIVITY_COUNT",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setValidEnv(t)
			tc.mod(t)

			cfg, err := config.Load()
			require.NoError(t, err)

			err = cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsConfigError(err))
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestValidate_SQLiteBackend(t *testing.T) {
	setValidEnv(t)
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	// SQLite needs no Google credentials, and the path has a default.
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "./contributor-stats.db", cfg.SQLitePath)
}
