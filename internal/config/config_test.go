package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
version: "1.0"
region: us-east-1
base_path: /mnt/evacuation
db_path: migration_state.db
excluded_buckets:
  - logs-archive
glacier:
  restore_days: 10
  restore_tier: Bulk
  poll_interval: 1m
download:
  workers: 8
  chunk_size_bytes: 4194304
verify:
  max_error_display: 5
metrics:
  enabled: false
  addr: ":9191"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, []string{"logs-archive"}, cfg.ExcludedBuckets)
	assert.Equal(t, 10, cfg.Glacier.RestoreDays)
	assert.Equal(t, "Bulk", cfg.Glacier.RestoreTier)
	assert.Equal(t, time.Minute, cfg.Glacier.PollInterval)
	assert.Equal(t, 8, cfg.Download.Workers)
	assert.Equal(t, int64(4194304), cfg.Download.ChunkSize)
	assert.Equal(t, 5, cfg.Verify.MaxErrorDisplay)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_AppliesDefaultsForOmittedFields(t *testing.T) {
	content := `
region: us-west-2
base_path: /data/evac
db_path: state.db
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Download.Workers)
	assert.Equal(t, 90, cfg.Glacier.RestoreDays)
	assert.Equal(t, 10, cfg.Verify.MaxErrorDisplay)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	content := "region: [unterminated"
	path := writeTempConfig(t, content)
	_, err := Load(path)
	require.Error(t, err)
}

func TestConfig_Validate_MissingRegion(t *testing.T) {
	cfg := Default()
	cfg.Region = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region")
}

func TestConfig_Validate_MissingBasePath(t *testing.T) {
	cfg := Default()
	cfg.BasePath = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_path")
}

func TestConfig_Validate_NonPositiveWorkers(t *testing.T) {
	cfg := Default()
	cfg.Download.Workers = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestConfig_Validate_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestLoadFromPath_EmptyFallsBackToDefault(t *testing.T) {
	cfg, err := LoadFromPath("")
	require.NoError(t, err)
	assert.Equal(t, Default().Region, cfg.Region)
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)
	return path
}
