package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/consensus"
	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/lookup"
	"github.com/drug-repurposing-engine/internal/scoring"
	"github.com/drug-repurposing-engine/internal/tournament"
)

const defaultBatchWorkers = 8

// ScoringService orchestrates one record's path through the engine:
// instrument lookup, composite scoring, and downstream aggregation.
type ScoringService struct {
	scorer       *scoring.Scorer
	store        *lookup.Store
	builder      *consensus.Builder
	ranker       *tournament.Ranker
	log          *logrus.Logger
	batchWorkers int
}

// NewScoringService creates the orchestration service
func NewScoringService(
	scorer *scoring.Scorer,
	store *lookup.Store,
	builder *consensus.Builder,
	ranker *tournament.Ranker,
	batchWorkers int,
	logger *logrus.Logger,
) *ScoringService {
	if batchWorkers <= 0 {
		batchWorkers = defaultBatchWorkers
	}
	return &ScoringService{
		scorer:       scorer,
		store:        store,
		builder:      builder,
		ranker:       ranker,
		log:          logger,
		batchWorkers: batchWorkers,
	}
}

// ScoreRecord resolves the record's instrument mapping and computes its
// composite score. Upstream extraction guarantees document structure; only
// the numeric ranges the engine consumes are checked here.
func (s *ScoringService) ScoreRecord(ctx context.Context, record domain.EvidenceRecord) (domain.OpportunityScore, error) {
	if record.Disease == "" {
		return domain.OpportunityScore{}, domain.NewValidationError("disease", "disease name is required", record.Disease)
	}

	labels := make([]string, 0, len(record.Endpoints))
	for _, ep := range record.Endpoints {
		labels = append(labels, ep.Name)
	}

	instruments, resolution := s.store.Lookup(ctx, record.Disease, labels)
	result := s.scorer.Score(record, instruments)

	s.log.WithFields(logrus.Fields{
		"source_id":  record.SourceID,
		"drug":       record.Drug,
		"disease":    record.Disease,
		"resolution": resolution,
		"overall":    result.Overall,
	}).Info("Scored evidence record")

	return result, nil
}

// ScoreBatch scores many independent records over a bounded worker pool.
// Output order matches input order; records carry no ordering dependency
// between each other.
func (s *ScoringService) ScoreBatch(ctx context.Context, records []domain.EvidenceRecord) ([]domain.OpportunityScore, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("score batch called with no records: %w", domain.ErrEmptyInput)
	}

	results := make([]domain.OpportunityScore, len(records))
	errs := make([]error, len(records))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := s.batchWorkers
	if workers > len(records) {
		workers = len(records)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = s.ScoreRecord(ctx, records[i])
			}
		}()
	}

	for i := range records {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, fmt.Errorf("batch scoring canceled: %w", ctx.Err())
		}
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("scoring record %d (%s): %w", i, records[i].SourceID, err)
		}
	}

	s.log.WithField("records", len(records)).Info("Scored record batch")
	return results, nil
}

// BuildConsensus aggregates source estimates into a weighted consensus
func (s *ScoringService) BuildConsensus(estimates []domain.SourceEstimate) (domain.ConsensusEstimate, error) {
	return s.builder.Build(estimates)
}

// RankMechanisms runs the scored records through the mechanism tournament
func (s *ScoringService) RankMechanisms(ctx context.Context, scores []domain.OpportunityScore) ([]domain.MechanismAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ranking canceled: %w", err)
	}
	return s.ranker.Rank(scores)
}

// ScoreAndRank is the full pipeline: batch scoring followed by the
// mechanism tournament over the fresh scores.
func (s *ScoringService) ScoreAndRank(ctx context.Context, records []domain.EvidenceRecord) ([]domain.OpportunityScore, []domain.MechanismAggregate, error) {
	scores, err := s.ScoreBatch(ctx, records)
	if err != nil {
		return nil, nil, err
	}
	aggregates, err := s.RankMechanisms(ctx, scores)
	if err != nil {
		return nil, nil, err
	}
	return scores, aggregates, nil
}
