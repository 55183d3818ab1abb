// Package main provides the lightweight analyst CLI for the drug
// repurposing engine. This version requires no external services - scoring
// runs locally and results are archived in SQLite.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/archive"
	"github.com/drug-repurposing-engine/internal/config"
	"github.com/drug-repurposing-engine/internal/consensus"
	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/lookup"
	"github.com/drug-repurposing-engine/internal/scoring"
	"github.com/drug-repurposing-engine/internal/service"
	"github.com/drug-repurposing-engine/internal/tournament"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	cfg := config.LoadArchiveConfig()
	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	var cmdErr error
	switch os.Args[1] {
	case "score":
		cmdErr = runScore(cfg, logger, os.Args[2:])
	case "rank":
		cmdErr = runRank(cfg, logger, os.Args[2:])
	case "archive":
		cmdErr = runArchive(cfg, os.Args[2:])
	case "help", "--help", "-h":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}

	if cmdErr != nil {
		log.Fatalf("Error: %v", cmdErr)
	}
}

func showHelp() {
	fmt.Println(`
Drug Repurposing Engine CLI

Usage:
  repurpose <command> [arguments]

Commands:
  score <records.json>        Score evidence records and archive the results
  rank <records.json>         Score records and rank mechanisms
  archive list [limit]        List archived scores, newest first
  archive export <file>       Export the archive to a JSON file
  archive import <file>       Import scores from a JSON export
  archive status              Show archive location and size

Environment:
  DRUGREPO_DATA_DIR           Data directory (default ~/.drug-repurposing-engine)
  DRUGREPO_LOG_LEVEL          Log level (default warn)`)
}

// newLocalService builds a scoring pipeline with no external collaborators:
// static-table and cache resolution only, no registry fetches.
func newLocalService(logger *logrus.Logger) *service.ScoringService {
	cache := lookup.NewMemoryCache(1024, 90*24*time.Hour)
	fetcher := lookup.FetcherFunc(func(ctx context.Context, disease string) (map[string]float64, error) {
		return map[string]float64{}, nil
	})
	store := lookup.NewStore(cache, fetcher, logger)

	return service.NewScoringService(
		scoring.NewScorer(domain.DefaultScoringWeights(), logger),
		store,
		consensus.NewBuilder(logger),
		tournament.NewRanker(logger),
		0,
		logger,
	)
}

func loadRecords(path string) ([]domain.EvidenceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	var records []domain.EvidenceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records file: %w", err)
	}
	return records, nil
}

func runScore(cfg *config.ArchiveConfig, logger *logrus.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: repurpose score <records.json>")
	}

	records, err := loadRecords(args[0])
	if err != nil {
		return err
	}

	svc := newLocalService(logger)
	ctx := context.Background()

	scores, err := svc.ScoreBatch(ctx, records)
	if err != nil {
		return err
	}

	store, err := archive.NewSQLiteStore(cfg.ArchiveDBPath())
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer store.Close()

	for _, score := range scores {
		entry := &archive.ArchivedScore{
			Disease:        score.Disease,
			Drug:           score.Drug,
			MechanismClass: score.MechanismClass,
			SourceID:       score.SourceID,
			Clinical:       score.Clinical,
			Evidence:       score.Evidence,
			Market:         score.Market,
			Overall:        score.Overall,
			Breakdown:      score.Breakdown,
			PositiveSignal: score.PositiveSignal,
		}
		if err := store.Save(ctx, entry); err != nil {
			return fmt.Errorf("failed to archive %s/%s: %w", score.Disease, score.Drug, err)
		}
	}

	pruned, err := store.Prune(ctx, cfg.MaxRuns, cfg.RetainPeriod)
	if err != nil {
		logger.WithError(err).Warn("Failed to prune archive")
	} else if pruned > 0 {
		logger.WithField("removed", pruned).Info("Pruned old archive entries")
	}

	fmt.Printf("Scored %d records\n\n", len(scores))
	fmt.Printf("%-24s %-32s %8s %8s %8s %8s\n", "DRUG", "DISEASE", "CLINICAL", "EVIDENCE", "MARKET", "OVERALL")
	for _, score := range scores {
		fmt.Printf("%-24s %-32s %8.1f %8.1f %8.1f %8.1f\n",
			truncate(score.Drug, 24), truncate(score.Disease, 32),
			score.Clinical, score.Evidence, score.Market, score.Overall)
	}
	return nil
}

func runRank(cfg *config.ArchiveConfig, logger *logrus.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: repurpose rank <records.json>")
	}

	records, err := loadRecords(args[0])
	if err != nil {
		return err
	}

	svc := newLocalService(logger)

	_, aggregates, err := svc.ScoreAndRank(context.Background(), records)
	if err != nil {
		return err
	}

	fmt.Printf("Ranked %d mechanisms\n\n", len(aggregates))
	fmt.Printf("%4s %-36s %8s %9s %8s  %s\n", "RANK", "MECHANISM", "PAPERS", "PATIENTS", "SCORE", "TIER")
	for _, agg := range aggregates {
		fmt.Printf("%4d %-36s %8d %9d %8.2f  %s\n",
			agg.Rank, truncate(agg.Mechanism, 36),
			agg.PaperCount, agg.TotalPatients, agg.CompositeScore, agg.Tier)
	}
	return nil
}

func runArchive(cfg *config.ArchiveConfig, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: repurpose archive <list|export|import|status>")
	}

	store, err := archive.NewSQLiteStore(cfg.ArchiveDBPath())
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	switch args[0] {
	case "list":
		limit := 20
		if len(args) > 1 {
			if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
				limit = n
			}
		}
		entries, err := store.List(ctx, limit, 0)
		if err != nil {
			return err
		}
		fmt.Printf("%-24s %-32s %8s  %s\n", "DRUG", "DISEASE", "OVERALL", "ARCHIVED")
		for _, e := range entries {
			fmt.Printf("%-24s %-32s %8.1f  %s\n",
				truncate(e.Drug, 24), truncate(e.Disease, 32),
				e.Overall, e.CreatedAt.Format("2006-01-02"))
		}
		return nil

	case "export":
		if len(args) < 2 {
			return fmt.Errorf("usage: repurpose archive export <file>")
		}
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		if err := store.ExportJSON(ctx, f); err != nil {
			return err
		}
		fmt.Printf("Exported archive to %s\n", args[1])
		return nil

	case "import":
		if len(args) < 2 {
			return fmt.Errorf("usage: repurpose archive import <file>")
		}
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		imported, skipped, err := store.ImportJSON(ctx, f)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d scores, skipped %d existing\n", imported, skipped)
		return nil

	case "status":
		count, err := store.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Archive:  %s\n", cfg.ArchiveDBPath())
		fmt.Printf("Entries:  %d\n", count)
		return nil

	default:
		return fmt.Errorf("unknown archive command: %s", args[0])
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
