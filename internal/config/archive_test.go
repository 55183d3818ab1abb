package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultArchiveConfig(t *testing.T) {
	cfg := DefaultArchiveConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.MaxRuns)
	assert.Equal(t, 180*24*time.Hour, cfg.RetainPeriod)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadArchiveConfig_Defaults(t *testing.T) {
	clearArchiveEnvVars(t)

	cfg := LoadArchiveConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.MaxRuns)
}

func TestLoadArchiveConfig_EnvironmentOverrides(t *testing.T) {
	clearArchiveEnvVars(t)

	os.Setenv("DRUGREPO_DATA_DIR", "/tmp/test-drugrepo")
	os.Setenv("DRUGREPO_ARCHIVE_MAX_RUNS", "500")
	os.Setenv("DRUGREPO_ARCHIVE_RETAIN", "720h")
	os.Setenv("DRUGREPO_LOG_LEVEL", "debug")

	defer clearArchiveEnvVars(t)

	cfg := LoadArchiveConfig()

	assert.Equal(t, "/tmp/test-drugrepo", cfg.DataDir)
	assert.Equal(t, 500, cfg.MaxRuns)
	assert.Equal(t, 720*time.Hour, cfg.RetainPeriod)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestArchiveConfig_ArchiveDBPath(t *testing.T) {
	cfg := &ArchiveConfig{DataDir: "/home/user/.drug-repurposing-engine"}

	assert.Equal(t, "/home/user/.drug-repurposing-engine/archive.db", cfg.ArchiveDBPath())
}

func TestArchiveConfig_ExportDir(t *testing.T) {
	cfg := &ArchiveConfig{DataDir: "/home/user/.drug-repurposing-engine"}

	assert.Equal(t, "/home/user/.drug-repurposing-engine/exports", cfg.ExportDir())
}

func TestArchiveConfig_EnsureDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &ArchiveConfig{DataDir: filepath.Join(tmpDir, "engine")}

	err = cfg.EnsureDataDir()
	require.NoError(t, err)

	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearArchiveEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"DRUGREPO_DATA_DIR",
		"DRUGREPO_ARCHIVE_MAX_RUNS",
		"DRUGREPO_ARCHIVE_RETAIN",
		"DRUGREPO_LOG_LEVEL",
		"DRUGREPO_LOG_FORMAT",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
