package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/drug-repurposing-engine/internal/domain"
)

// Manager loads and validates application configuration using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from file, environment, and defaults
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/drug-repurposing-engine/")

	viper.SetEnvPrefix("DRUGREPO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars suffice
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.batch_workers", 8)

	// Database defaults. An empty host disables persistence entirely.
	viper.SetDefault("database.host", "")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "drug_repurposing")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_conns", 25)
	viper.SetDefault("database.min_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.migrations_path", "migrations")

	// Instrument lookup defaults. An empty registry_url disables the
	// external fetch tier.
	viper.SetDefault("lookup.ttl", "2160h") // 90 days
	viper.SetDefault("lookup.memory_cache_size", 1024)
	viper.SetDefault("lookup.registry_url", "")
	viper.SetDefault("lookup.registry_api_key", "")
	viper.SetDefault("lookup.fetch_timeout", "30s")
	viper.SetDefault("lookup.fetch_rate_limit", 5)
	viper.SetDefault("lookup.fetch_burst", 5)

	// Cache defaults. An empty redis_url disables the Redis tier.
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")

	// Scoring weight defaults (dimension and sub-factor levels)
	defaults := domain.DefaultScoringWeights()
	viper.SetDefault("scoring.dimensions.clinical", defaults.Dimensions.Clinical)
	viper.SetDefault("scoring.dimensions.evidence", defaults.Dimensions.Evidence)
	viper.SetDefault("scoring.dimensions.market", defaults.Dimensions.Market)
	viper.SetDefault("scoring.clinical.response_magnitude", defaults.Clinical.ResponseMagnitude)
	viper.SetDefault("scoring.clinical.endpoint_quality", defaults.Clinical.EndpointQuality)
	viper.SetDefault("scoring.clinical.organ_breadth", defaults.Clinical.OrganBreadth)
	viper.SetDefault("scoring.clinical.safety", defaults.Clinical.Safety)
	viper.SetDefault("scoring.evidence.sample_size", defaults.Evidence.SampleSize)
	viper.SetDefault("scoring.evidence.venue", defaults.Evidence.Venue)
	viper.SetDefault("scoring.evidence.durability", defaults.Evidence.Durability)
	viper.SetDefault("scoring.evidence.completeness", defaults.Evidence.Completeness)
	viper.SetDefault("scoring.market.competitor_scarcity", defaults.Market.CompetitorScarcity)
	viper.SetDefault("scoring.market.market_size", defaults.Market.MarketSize)
	viper.SetDefault("scoring.market.unmet_need", defaults.Market.UnmetNeed)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetLookupConfig returns instrument lookup configuration
func (m *Manager) GetLookupConfig() *domain.LookupConfig {
	return &m.config.Lookup
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Persistence is optional; when a host is set the rest must be complete
	if config.Database.Host != "" {
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	if config.Lookup.TTL < 0 {
		return fmt.Errorf("lookup TTL must not be negative")
	}
	if config.Lookup.FetchRateLimit < 0 {
		return fmt.Errorf("lookup fetch rate limit must not be negative")
	}

	if err := config.Scoring.Validate(); err != nil {
		return fmt.Errorf("invalid scoring weights: %w", err)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
