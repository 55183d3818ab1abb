package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/domain"
)

// StoredConsensus is a persisted consensus estimate row. Estimates are
// append-only: a recomputed consensus is a new row, never an update.
type StoredConsensus struct {
	ID        uuid.UUID                `json:"id"`
	Disease   string                   `json:"disease"`
	Metric    string                   `json:"metric"`
	Estimate  domain.ConsensusEstimate `json:"estimate"`
	CreatedAt time.Time                `json:"created_at"`
}

// ConsensusRepository handles consensus estimate persistence
type ConsensusRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewConsensusRepository creates a new consensus repository
func NewConsensusRepository(db *pgxpool.Pool, logger *logrus.Logger) *ConsensusRepository {
	return &ConsensusRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a consensus estimate for a disease metric
func (r *ConsensusRepository) Create(ctx context.Context, disease, metric string, estimate domain.ConsensusEstimate) (uuid.UUID, error) {
	sourcesJSON, err := json.Marshal(estimate.Sources)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling sources: %w", err)
	}

	id := uuid.New()
	query := `
		INSERT INTO consensus_estimates (
			id, disease, metric, value, range_low, range_high,
			coefficient_of_variation, confidence, source_count, sources
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.db.Exec(ctx, query,
		id,
		disease,
		metric,
		estimate.Value,
		estimate.RangeLow,
		estimate.RangeHigh,
		estimate.CV,
		string(estimate.Confidence),
		estimate.SourceCount,
		sourcesJSON,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"disease": disease,
			"metric":  metric,
			"error":   err,
		}).Error("Failed to create consensus estimate")
		return uuid.Nil, fmt.Errorf("creating consensus estimate: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"consensus_id": id,
		"disease":      disease,
		"metric":       metric,
		"confidence":   estimate.Confidence,
	}).Info("Consensus estimate created successfully")

	return id, nil
}

// GetLatest retrieves the most recent consensus estimate for a disease metric
func (r *ConsensusRepository) GetLatest(ctx context.Context, disease, metric string) (*StoredConsensus, error) {
	query := `
		SELECT id, disease, metric, value, range_low, range_high,
			   coefficient_of_variation, confidence, source_count, sources, created_at
		FROM consensus_estimates
		WHERE disease = $1 AND metric = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var stored StoredConsensus
	var confidence string
	var sourcesJSON []byte

	err := r.db.QueryRow(ctx, query, disease, metric).Scan(
		&stored.ID,
		&stored.Disease,
		&stored.Metric,
		&stored.Estimate.Value,
		&stored.Estimate.RangeLow,
		&stored.Estimate.RangeHigh,
		&stored.Estimate.CV,
		&confidence,
		&stored.Estimate.SourceCount,
		&sourcesJSON,
		&stored.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("consensus estimate not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"disease": disease,
			"metric":  metric,
			"error":   err,
		}).Error("Failed to get consensus estimate")
		return nil, fmt.Errorf("getting consensus estimate: %w", err)
	}

	stored.Estimate.Confidence = domain.ConfidenceLabel(confidence)
	if err := json.Unmarshal(sourcesJSON, &stored.Estimate.Sources); err != nil {
		return nil, fmt.Errorf("unmarshaling sources: %w", err)
	}

	return &stored, nil
}

// History retrieves past consensus estimates for a disease metric, newest
// first
func (r *ConsensusRepository) History(ctx context.Context, disease, metric string, limit int) ([]*StoredConsensus, error) {
	query := `
		SELECT id, disease, metric, value, range_low, range_high,
			   coefficient_of_variation, confidence, source_count, sources, created_at
		FROM consensus_estimates
		WHERE disease = $1 AND metric = $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, disease, metric, limit)
	if err != nil {
		return nil, fmt.Errorf("getting consensus history: %w", err)
	}
	defer rows.Close()

	var results []*StoredConsensus
	for rows.Next() {
		var stored StoredConsensus
		var confidence string
		var sourcesJSON []byte

		err := rows.Scan(
			&stored.ID,
			&stored.Disease,
			&stored.Metric,
			&stored.Estimate.Value,
			&stored.Estimate.RangeLow,
			&stored.Estimate.RangeHigh,
			&stored.Estimate.CV,
			&confidence,
			&stored.Estimate.SourceCount,
			&sourcesJSON,
			&stored.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning consensus row: %w", err)
		}

		stored.Estimate.Confidence = domain.ConfidenceLabel(confidence)
		if err := json.Unmarshal(sourcesJSON, &stored.Estimate.Sources); err != nil {
			return nil, fmt.Errorf("unmarshaling sources: %w", err)
		}
		results = append(results, &stored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating consensus rows: %w", err)
	}

	return results, nil
}
