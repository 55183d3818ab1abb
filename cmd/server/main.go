package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/api"
	"github.com/drug-repurposing-engine/internal/config"
	"github.com/drug-repurposing-engine/internal/consensus"
	"github.com/drug-repurposing-engine/internal/database"
	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/lookup"
	"github.com/drug-repurposing-engine/internal/repository"
	"github.com/drug-repurposing-engine/internal/scoring"
	"github.com/drug-repurposing-engine/internal/service"
	"github.com/drug-repurposing-engine/internal/tournament"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional persistence layer
	var opportunities *repository.OpportunityRepository
	var consensusRepo *repository.ConsensusRepository
	if cfg.Database.Host != "" {
		dbConfig := database.FromDomainConfig(cfg.Database)

		runner, err := database.NewMigrationRunner(dbConfig.URL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		runner.Close()

		db, err := database.NewConnection(ctx, dbConfig, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		opportunities = repository.NewOpportunityRepository(db.Pool, logger)
		consensusRepo = repository.NewConsensusRepository(db.Pool, logger)
	} else {
		logger.Info("No database host configured, persistence disabled")
	}

	// Instrument lookup store: in-memory cache, optional Redis tier, and
	// the external registry behind breaker and rate-limit protection.
	var cache lookup.Cache
	memory := lookup.NewMemoryCache(cfg.Lookup.MemoryCacheSize, cfg.Lookup.TTL)
	cache = memory
	if cfg.Cache.RedisURL != "" {
		redisCache, err := lookup.NewRedisCache(cfg.Cache, cfg.Lookup.TTL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisCache.Close()
		cache = lookup.NewTieredCache(memory, redisCache)
	}

	var fetcher lookup.Fetcher
	if cfg.Lookup.RegistryURL != "" {
		registry := lookup.NewRegistryClient(cfg.Lookup, logger)
		fetcher = lookup.NewResilientFetcher(registry, cfg.Lookup, logger)
	} else {
		logger.Info("No instrument registry configured, fetch tier disabled")
		fetcher = lookup.FetcherFunc(func(ctx context.Context, disease string) (map[string]float64, error) {
			return map[string]float64{}, nil
		})
	}
	store := lookup.NewStore(cache, fetcher, logger)

	// Scoring pipeline
	svc := service.NewScoringService(
		scoring.NewScorer(cfg.Scoring, logger),
		store,
		consensus.NewBuilder(logger),
		tournament.NewRanker(logger),
		cfg.Server.BatchWorkers,
		logger,
	)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting drug repurposing engine")

	// Create server
	server := api.NewServer(cfg, svc, opportunities, consensusRepo, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	}

	return logger
}
