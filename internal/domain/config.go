package domain

import (
	"time"
)

// Configuration Models

// Config represents the main application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Lookup   LookupConfig   `mapstructure:"lookup"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Scoring  ScoringWeights `mapstructure:"scoring"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	BatchWorkers int           `mapstructure:"batch_workers"`
}

// DatabaseConfig represents database connection configuration.
// An empty host disables persistence; the engine then runs scoring-only.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// LookupConfig represents instrument lookup store configuration.
// An empty RegistryURL disables the external fetch tier; lookups then
// resolve from the static table and caches only.
type LookupConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	MemoryCacheSize int           `mapstructure:"memory_cache_size"`
	RegistryURL     string        `mapstructure:"registry_url"`
	RegistryAPIKey  string        `mapstructure:"registry_api_key"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	FetchRateLimit  float64       `mapstructure:"fetch_rate_limit"`
	FetchBurst      int           `mapstructure:"fetch_burst"`
}

// CacheConfig represents the distributed cache tier configuration.
// An empty RedisURL disables the Redis tier; the in-memory tier always runs.
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
