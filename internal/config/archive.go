// Package config provides configuration management for the scoring engine.
// This file contains the lightweight configuration for the local archive.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ArchiveConfig configures the local scored-run archive. It requires no
// external services and uses sensible defaults.
type ArchiveConfig struct {
	// Data storage
	DataDir string // Base directory for data files

	// Retention settings
	MaxRuns      int           // Maximum archived runs before pruning
	RetainPeriod time.Duration // How long archived runs are kept

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultArchiveConfig returns a configuration with sensible defaults.
func DefaultArchiveConfig() *ArchiveConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".drug-repurposing-engine")

	return &ArchiveConfig{
		DataDir:      dataDir,
		MaxRuns:      1000,
		RetainPeriod: 180 * 24 * time.Hour,
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

// LoadArchiveConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadArchiveConfig() *ArchiveConfig {
	cfg := DefaultArchiveConfig()

	if v := os.Getenv("DRUGREPO_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("DRUGREPO_ARCHIVE_MAX_RUNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRuns = n
		}
	}
	if v := os.Getenv("DRUGREPO_ARCHIVE_RETAIN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RetainPeriod = d
		}
	}

	if v := os.Getenv("DRUGREPO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DRUGREPO_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// ArchiveDBPath returns the path to the archive SQLite database.
func (c *ArchiveConfig) ArchiveDBPath() string {
	return filepath.Join(c.DataDir, "archive.db")
}

// ExportDir returns the directory for JSON exports.
func (c *ArchiveConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *ArchiveConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
