package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(dataDirEnv, "")
	t.Setenv(logLevelEnv, "")
	t.Setenv(baseURLEnv, "")

	cfg := Load()

	assert.Equal(t, "https://clinicaltrials.gov/api/v2/studies", cfg.API.BaseURL)
	assert.Equal(t, 1000, cfg.API.PageSize)
	assert.Equal(t, 50, cfg.API.MaxPages)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout.Std())
	assert.Equal(t, 100*time.Millisecond, cfg.API.PageDelay.Std())

	assert.Equal(t, 5000, cfg.Ingestion.MaxStudiesPerRun)
	assert.Equal(t, 3, cfg.Ingestion.RetryAttempts)
	assert.True(t, cfg.Ingestion.FilterHasResultsOnly)
	assert.True(t, cfg.Ingestion.FilterCompletedOnly)
	assert.Equal(t, "BEHAVIORAL", cfg.Ingestion.InterventionType)
	assert.True(t, cfg.Ingestion.ContinueOnError)

	assert.Equal(t, "json", cfg.Database.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
api:
  baseUrl: https://registry.internal/api/v2/studies
  pageSize: 250
  pageDelay: 500ms
ingestion:
  maxStudiesPerRun: 1000
  retryDelay: 2s
  filterHasResultsOnly: false
  filterCompletedOnly: true
  continueOnError: true
  conditions:
    - Diabetes
    - Obesity
database:
  backend: postgres
  dsn: postgres://ingest:secret@db/trials
metrics:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(dataDirEnv, "")
	t.Setenv(logLevelEnv, "")
	t.Setenv(baseURLEnv, "")

	cfg := Load()

	assert.Equal(t, "https://registry.internal/api/v2/studies", cfg.API.BaseURL)
	assert.Equal(t, 250, cfg.API.PageSize)
	assert.Equal(t, 500*time.Millisecond, cfg.API.PageDelay.Std())
	// Unset file values keep the defaults.
	assert.Equal(t, 50, cfg.API.MaxPages)

	assert.Equal(t, 1000, cfg.Ingestion.MaxStudiesPerRun)
	assert.Equal(t, 2*time.Second, cfg.Ingestion.RetryDelay.Std())
	assert.False(t, cfg.Ingestion.FilterHasResultsOnly)
	assert.Equal(t, []string{"Diabetes", "Obesity"}, cfg.Ingestion.Conditions)

	assert.Equal(t, "postgres", cfg.Database.Backend)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadPartialFileKeepsBooleanDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
database:
  dsn: postgres://ingest:secret@db/trials
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(dataDirEnv, "")
	t.Setenv(logLevelEnv, "")
	t.Setenv(baseURLEnv, "")

	cfg := Load()

	assert.Equal(t, "postgres://ingest:secret@db/trials", cfg.Database.DSN)
	// A file that never mentions the booleans must not flip them off.
	assert.True(t, cfg.Ingestion.FilterHasResultsOnly)
	assert.True(t, cfg.Ingestion.FilterCompletedOnly)
	assert.True(t, cfg.Ingestion.ContinueOnError)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.API.ComprehensiveFields)
}

func TestLoadFileCanDisableFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
ingestion:
  filterHasResultsOnly: false
  continueOnError: false
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(dataDirEnv, "")
	t.Setenv(logLevelEnv, "")
	t.Setenv(baseURLEnv, "")

	cfg := Load()

	assert.False(t, cfg.Ingestion.FilterHasResultsOnly)
	assert.False(t, cfg.Ingestion.ContinueOnError)
	// Untouched boolean keeps its default.
	assert.True(t, cfg.Ingestion.FilterCompletedOnly)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "postgres://override@db/trials")
	t.Setenv(dataDirEnv, "/var/lib/trials")
	t.Setenv(logLevelEnv, "debug")
	t.Setenv(baseURLEnv, "https://mirror.example.org/api/v2/studies")

	cfg := Load()

	assert.Equal(t, "postgres://override@db/trials", cfg.Database.DSN)
	assert.Equal(t, "/var/lib/trials", cfg.Database.DataDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "https://mirror.example.org/api/v2/studies", cfg.API.BaseURL)
}

func TestDurationUnmarshal(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`1m30s`), &d))
	assert.Equal(t, 90*time.Second, d.Std())

	// Bare numbers are seconds.
	require.NoError(t, yaml.Unmarshal([]byte(`2`), &d))
	assert.Equal(t, 2*time.Second, d.Std())

	require.NoError(t, yaml.Unmarshal([]byte(`0.5`), &d))
	assert.Equal(t, 500*time.Millisecond, d.Std())

	assert.Error(t, yaml.Unmarshal([]byte(`soon`), &d))
}
