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

// StoredOpportunity is a persisted opportunity score row
type StoredOpportunity struct {
	ID        uuid.UUID               `json:"id"`
	Score     domain.OpportunityScore `json:"score"`
	CreatedAt time.Time               `json:"created_at"`
}

// OpportunityRepository handles opportunity score persistence
type OpportunityRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewOpportunityRepository creates a new opportunity repository
func NewOpportunityRepository(db *pgxpool.Pool, logger *logrus.Logger) *OpportunityRepository {
	return &OpportunityRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a scored opportunity and returns its row ID
func (r *OpportunityRepository) Create(ctx context.Context, score domain.OpportunityScore) (uuid.UUID, error) {
	breakdownJSON, err := json.Marshal(score.Breakdown)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling breakdown: %w", err)
	}

	id := uuid.New()
	query := `
		INSERT INTO opportunity_scores (
			id, source_id, drug, disease, mechanism_class, pathway,
			clinical_score, evidence_score, market_score, overall_score,
			breakdown, positive_signal, sample_size, evidence_year
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err = r.db.Exec(ctx, query,
		id,
		score.SourceID,
		score.Drug,
		score.Disease,
		score.MechanismClass,
		score.Pathway,
		score.Clinical,
		score.Evidence,
		score.Market,
		score.Overall,
		breakdownJSON,
		score.PositiveSignal,
		score.SampleSize,
		score.Year,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"source_id": score.SourceID,
			"drug":      score.Drug,
			"disease":   score.Disease,
			"error":     err,
		}).Error("Failed to create opportunity score")
		return uuid.Nil, fmt.Errorf("creating opportunity score: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"opportunity_id": id,
		"source_id":      score.SourceID,
		"overall":        score.Overall,
	}).Info("Opportunity score created successfully")

	return id, nil
}

const opportunityColumns = `
	id, source_id, drug, disease, mechanism_class, pathway,
	clinical_score, evidence_score, market_score, overall_score,
	breakdown, positive_signal, sample_size, evidence_year, created_at`

func scanOpportunity(row pgx.Row) (*StoredOpportunity, error) {
	var stored StoredOpportunity
	var breakdownJSON []byte

	err := row.Scan(
		&stored.ID,
		&stored.Score.SourceID,
		&stored.Score.Drug,
		&stored.Score.Disease,
		&stored.Score.MechanismClass,
		&stored.Score.Pathway,
		&stored.Score.Clinical,
		&stored.Score.Evidence,
		&stored.Score.Market,
		&stored.Score.Overall,
		&breakdownJSON,
		&stored.Score.PositiveSignal,
		&stored.Score.SampleSize,
		&stored.Score.Year,
		&stored.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(breakdownJSON, &stored.Score.Breakdown); err != nil {
		return nil, fmt.Errorf("unmarshaling breakdown: %w", err)
	}
	return &stored, nil
}

// GetByID retrieves a stored opportunity score by its row ID
func (r *OpportunityRepository) GetByID(ctx context.Context, id uuid.UUID) (*StoredOpportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunity_scores WHERE id = $1`

	stored, err := scanOpportunity(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("opportunity score not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"opportunity_id": id,
			"error":          err,
		}).Error("Failed to get opportunity score by ID")
		return nil, fmt.Errorf("getting opportunity score by ID: %w", err)
	}

	return stored, nil
}

// GetByMechanism retrieves stored scores for one mechanism class, newest
// first, with pagination
func (r *OpportunityRepository) GetByMechanism(ctx context.Context, mechanism string, limit, offset int) ([]*StoredOpportunity, error) {
	query := `SELECT ` + opportunityColumns + `
		FROM opportunity_scores
		WHERE mechanism_class = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, mechanism, limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"mechanism": mechanism,
			"error":     err,
		}).Error("Failed to get opportunity scores by mechanism")
		return nil, fmt.Errorf("getting opportunity scores by mechanism: %w", err)
	}
	defer rows.Close()

	var results []*StoredOpportunity
	for rows.Next() {
		stored, err := scanOpportunity(rows)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"mechanism": mechanism,
				"error":     err,
			}).Error("Failed to scan opportunity score row")
			return nil, fmt.Errorf("scanning opportunity score row: %w", err)
		}
		results = append(results, stored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating opportunity score rows: %w", err)
	}

	return results, nil
}

// GetTopByDisease retrieves the highest-scoring opportunities for a disease
func (r *OpportunityRepository) GetTopByDisease(ctx context.Context, disease string, limit int) ([]*StoredOpportunity, error) {
	query := `SELECT ` + opportunityColumns + `
		FROM opportunity_scores
		WHERE disease = $1
		ORDER BY overall_score DESC, created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, disease, limit)
	if err != nil {
		return nil, fmt.Errorf("getting top opportunity scores: %w", err)
	}
	defer rows.Close()

	var results []*StoredOpportunity
	for rows.Next() {
		stored, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning opportunity score row: %w", err)
		}
		results = append(results, stored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating opportunity score rows: %w", err)
	}

	return results, nil
}

// Delete removes a stored opportunity score
func (r *OpportunityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM opportunity_scores WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"opportunity_id": id,
			"error":          err,
		}).Error("Failed to delete opportunity score")
		return fmt.Errorf("deleting opportunity score: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("opportunity score not found: %w", domain.ErrNotFound)
	}

	r.log.WithField("opportunity_id", id).Info("Opportunity score deleted successfully")
	return nil
}
