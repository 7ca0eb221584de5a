// Package config loads the YAML configuration that drives an evacuation
// run: AWS region, excluded buckets, glacier restore tuning, worker
// counts, and local storage paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top level configuration document.
type Config struct {
	Version         string         `yaml:"version"`
	Region          string         `yaml:"region"`
	BasePath        string         `yaml:"base_path"`
	DBPath          string         `yaml:"db_path"`
	ExcludedBuckets []string       `yaml:"excluded_buckets,omitempty"`
	Glacier         GlacierConfig  `yaml:"glacier,omitempty"`
	Download        DownloadConfig `yaml:"download,omitempty"`
	Verify          VerifyConfig   `yaml:"verify,omitempty"`
	Policy          PolicyConfig   `yaml:"policy,omitempty"`
	Metrics         MetricsConfig  `yaml:"metrics,omitempty"`
	Preflight       PreflightConfig `yaml:"preflight,omitempty"`
	Audit           AuditConfig    `yaml:"audit,omitempty"`
}

// PreflightConfig controls the best-effort IAM simulation run before a
// bucket's delete confirmation prompt.
type PreflightConfig struct {
	Enabled      bool   `yaml:"enabled"`
	PrincipalArn string `yaml:"principal_arn,omitempty"`
}

// AuditConfig controls the best-effort CloudTrail lookup run before a
// bucket's delete confirmation prompt.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// GlacierConfig tunes the restore request and polling behavior.
type GlacierConfig struct {
	RestoreDays  int           `yaml:"restore_days"`
	RestoreTier  string        `yaml:"restore_tier"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DownloadConfig tunes the concurrent downloader.
type DownloadConfig struct {
	Workers   int   `yaml:"workers"`
	ChunkSize int64 `yaml:"chunk_size_bytes"`
}

// VerifyConfig tunes verification behavior.
type VerifyConfig struct {
	MaxErrorDisplay int `yaml:"max_error_display"`
}

// PolicyConfig holds the bucket-name patterns that the embedded OPA
// policy (internal/policy) protects from deletion. RegoPath is parsed
// but not read; the policy source is always the embedded one.
type PolicyConfig struct {
	RegoPath                string   `yaml:"rego_path,omitempty"`
	ProtectedBucketPatterns []string `yaml:"protected_bucket_patterns,omitempty"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads and validates configuration from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator-supplied
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate ensures the fields required to run a migration are present.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.BasePath == "" {
		return fmt.Errorf("base_path is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Download.Workers <= 0 {
		return fmt.Errorf("download.workers must be positive")
	}
	return nil
}

// LoadFromPath loads configuration from path, or from the standard search
// locations when path is empty, falling back to defaults if none exist.
func LoadFromPath(path string) (*Config, error) {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return Default(), nil
		}
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	return Load(path)
}

// Default returns sensible defaults matching the original migration
// tool's hardcoded constants.
func Default() *Config {
	return &Config{
		Version:  "1.0",
		Region:   "us-east-1",
		BasePath: "/mnt/evacuation",
		DBPath:   "migration_state.db",
		Glacier: GlacierConfig{
			RestoreDays:  90,
			RestoreTier:  "Standard",
			PollInterval: 5 * time.Minute,
		},
		Download: DownloadConfig{
			Workers:   16,
			ChunkSize: 8 * 1024 * 1024,
		},
		Verify: VerifyConfig{
			MaxErrorDisplay: 10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

func findConfigFile() string {
	locations := []string{
		"s3evacuate.yaml",
		".s3evacuate.yaml",
		"~/.s3evacuate/config.yaml",
		"/etc/s3evacuate/config.yaml",
	}
	for _, loc := range locations {
		if len(loc) >= 2 && loc[:2] == "~/" {
			home, _ := os.UserHomeDir()
			loc = filepath.Join(home, loc[2:])
		}
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}
