package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "TRIAL_INGESTOR_CONFIG"
	databaseDSNEnv = "DATABASE_DSN"
	dataDirEnv     = "DATA_DIR"
	logLevelEnv    = "LOG_LEVEL"
	baseURLEnv     = "REGISTRY_BASE_URL"
)

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration time.Duration

// UnmarshalYAML accepts Go duration strings and bare numbers of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, perr := time.ParseDuration(raw)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := value.Decode(&seconds); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds high-level settings required across the application.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Database  DatabaseConfig  `yaml:"database"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig describes how to reach the registry search API.
type APIConfig struct {
	BaseURL   string   `yaml:"baseUrl"`
	UserAgent string   `yaml:"userAgent"`
	Timeout   Duration `yaml:"timeout"`
	PageSize  int      `yaml:"pageSize"`
	MaxPages  int      `yaml:"maxPages"`
	PageDelay Duration `yaml:"pageDelay"`
	// ComprehensiveFields requests the full projection instead of the
	// core one; needs a proxy that accepts long URLs.
	ComprehensiveFields bool `yaml:"comprehensiveFields"`
}

// IngestionConfig controls a single ingestion run.
//
// FilterCompletedOnly admits ACTIVE_NOT_RECRUITING and ENROLLING_BY_INVITATION
// in addition to COMPLETED; the looser-than-the-name allow-list is load-bearing
// for downstream consumers and is preserved pending product clarification.
type IngestionConfig struct {
	MaxStudiesPerRun     int      `yaml:"maxStudiesPerRun"`
	BatchSize            int      `yaml:"batchSize"`
	RetryAttempts        int      `yaml:"retryAttempts"`
	RetryDelay           Duration `yaml:"retryDelay"`
	FilterHasResultsOnly bool     `yaml:"filterHasResultsOnly"`
	FilterCompletedOnly  bool     `yaml:"filterCompletedOnly"`
	InterventionType     string   `yaml:"interventionType"`
	Conditions           []string `yaml:"conditions"`
	ContinueOnError      bool     `yaml:"continueOnError"`
}

// DatabaseConfig selects and configures the study store backend.
type DatabaseConfig struct {
	Backend string `yaml:"backend"` // json or postgres
	DataDir string `yaml:"dataDir"` // json backend
	DSN     string `yaml:"dsn"`     // postgres backend
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig tunes the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg fileConfig
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// fileConfig mirrors Config for YAML decoding. Booleans are pointers so an
// omitted key is distinguishable from an explicit false and cannot clobber a
// true default.
type fileConfig struct {
	API struct {
		BaseURL             string   `yaml:"baseUrl"`
		UserAgent           string   `yaml:"userAgent"`
		Timeout             Duration `yaml:"timeout"`
		PageSize            int      `yaml:"pageSize"`
		MaxPages            int      `yaml:"maxPages"`
		PageDelay           Duration `yaml:"pageDelay"`
		ComprehensiveFields *bool    `yaml:"comprehensiveFields"`
	} `yaml:"api"`
	Ingestion struct {
		MaxStudiesPerRun     int      `yaml:"maxStudiesPerRun"`
		BatchSize            int      `yaml:"batchSize"`
		RetryAttempts        int      `yaml:"retryAttempts"`
		RetryDelay           Duration `yaml:"retryDelay"`
		FilterHasResultsOnly *bool    `yaml:"filterHasResultsOnly"`
		FilterCompletedOnly  *bool    `yaml:"filterCompletedOnly"`
		InterventionType     string   `yaml:"interventionType"`
		Conditions           []string `yaml:"conditions"`
		ContinueOnError      *bool    `yaml:"continueOnError"`
	} `yaml:"ingestion"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  struct {
		Enabled *bool  `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(dataDirEnv); v != "" {
		c.Database.DataDir = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(baseURLEnv); v != "" {
		c.API.BaseURL = v
	}
}

func mergeConfig(base Config, override fileConfig) Config {
	if override.API.BaseURL != "" {
		base.API.BaseURL = override.API.BaseURL
	}
	if override.API.UserAgent != "" {
		base.API.UserAgent = override.API.UserAgent
	}
	if override.API.Timeout != 0 {
		base.API.Timeout = override.API.Timeout
	}
	if override.API.PageSize != 0 {
		base.API.PageSize = override.API.PageSize
	}
	if override.API.MaxPages != 0 {
		base.API.MaxPages = override.API.MaxPages
	}
	if override.API.PageDelay != 0 {
		base.API.PageDelay = override.API.PageDelay
	}
	if override.API.ComprehensiveFields != nil {
		base.API.ComprehensiveFields = *override.API.ComprehensiveFields
	}

	if override.Ingestion.MaxStudiesPerRun != 0 {
		base.Ingestion.MaxStudiesPerRun = override.Ingestion.MaxStudiesPerRun
	}
	if override.Ingestion.BatchSize != 0 {
		base.Ingestion.BatchSize = override.Ingestion.BatchSize
	}
	if override.Ingestion.RetryAttempts != 0 {
		base.Ingestion.RetryAttempts = override.Ingestion.RetryAttempts
	}
	if override.Ingestion.RetryDelay != 0 {
		base.Ingestion.RetryDelay = override.Ingestion.RetryDelay
	}
	if override.Ingestion.InterventionType != "" {
		base.Ingestion.InterventionType = override.Ingestion.InterventionType
	}
	if len(override.Ingestion.Conditions) > 0 {
		base.Ingestion.Conditions = override.Ingestion.Conditions
	}
	if override.Ingestion.FilterHasResultsOnly != nil {
		base.Ingestion.FilterHasResultsOnly = *override.Ingestion.FilterHasResultsOnly
	}
	if override.Ingestion.FilterCompletedOnly != nil {
		base.Ingestion.FilterCompletedOnly = *override.Ingestion.FilterCompletedOnly
	}
	if override.Ingestion.ContinueOnError != nil {
		base.Ingestion.ContinueOnError = *override.Ingestion.ContinueOnError
	}

	if override.Database.Backend != "" {
		base.Database.Backend = override.Database.Backend
	}
	if override.Database.DataDir != "" {
		base.Database.DataDir = override.Database.DataDir
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}
	if override.Metrics.Enabled != nil {
		base.Metrics.Enabled = *override.Metrics.Enabled
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:   "https://clinicaltrials.gov/api/v2/studies",
			UserAgent: "trialingestor/1.0",
			Timeout:   Duration(30 * time.Second),
			PageSize:  1000,
			MaxPages:  50,
			PageDelay: Duration(100 * time.Millisecond),
		},
		Ingestion: IngestionConfig{
			MaxStudiesPerRun:     5000,
			BatchSize:            100,
			RetryAttempts:        3,
			RetryDelay:           Duration(time.Second),
			FilterHasResultsOnly: true,
			FilterCompletedOnly:  true,
			InterventionType:     "BEHAVIORAL",
			ContinueOnError:      true,
		},
		Database: DatabaseConfig{
			Backend: "json",
			DataDir: "data",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
