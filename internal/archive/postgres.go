package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/drug-repurposing-engine/internal/lookup"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL archive store.
// It expects the database and schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL archive store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save stores or updates an archived score, keyed by disease+drug.
func (s *PostgresStore) Save(ctx context.Context, score *ArchivedScore) error {
	now := time.Now()
	score.Disease = lookup.NormalizeDisease(score.Disease)

	breakdownJSON, err := encodeBreakdown(score.Breakdown)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO archived_scores (
			disease, drug, mechanism_class, source_id,
			clinical_score, evidence_score, market_score, overall_score,
			breakdown, positive_signal, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (disease, drug) DO UPDATE SET
			mechanism_class = EXCLUDED.mechanism_class,
			source_id = EXCLUDED.source_id,
			clinical_score = EXCLUDED.clinical_score,
			evidence_score = EXCLUDED.evidence_score,
			market_score = EXCLUDED.market_score,
			overall_score = EXCLUDED.overall_score,
			breakdown = EXCLUDED.breakdown,
			positive_signal = EXCLUDED.positive_signal,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		score.Disease,
		score.Drug,
		score.MechanismClass,
		score.SourceID,
		score.Clinical,
		score.Evidence,
		score.Market,
		score.Overall,
		breakdownJSON,
		score.PositiveSignal,
		score.Notes,
		now,
		now,
	).Scan(&score.ID, &score.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save archived score: %w", err)
	}

	score.UpdatedAt = now
	return nil
}

// Get retrieves the archived score for a disease+drug pair.
func (s *PostgresStore) Get(ctx context.Context, disease, drug string) (*ArchivedScore, error) {
	query := `
		SELECT id, disease, drug, mechanism_class, source_id,
			clinical_score, evidence_score, market_score, overall_score,
			breakdown, positive_signal, notes, created_at, updated_at
		FROM archived_scores
		WHERE disease = $1 AND drug = $2
		LIMIT 1
	`

	score, err := scanArchived(s.db.QueryRowContext(ctx, query, lookup.NormalizeDisease(disease), drug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get archived score: %w", err)
	}
	return score, nil
}

// List returns archived scores with pagination, newest first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*ArchivedScore, error) {
	query := `
		SELECT id, disease, drug, mechanism_class, source_id,
			clinical_score, evidence_score, market_score, overall_score,
			breakdown, positive_signal, notes, created_at, updated_at
		FROM archived_scores
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived scores: %w", err)
	}
	defer rows.Close()

	var result []*ArchivedScore
	for rows.Next() {
		score, err := scanArchived(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, score)
	}
	return result, rows.Err()
}

// Count returns the total number of archived scores.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archived_scores").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count archived scores: %w", err)
	}
	return count, nil
}

// Delete removes an archived score by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM archived_scores WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete archived score: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("archived score %d not found", id)
	}
	return nil
}

// Prune enforces the archive retention policy: only the newest maxRuns
// entries survive, and nothing older than the retain window does.
func (s *PostgresStore) Prune(ctx context.Context, maxRuns int, retain time.Duration) (int64, error) {
	var removed int64

	if maxRuns > 0 {
		result, err := s.db.ExecContext(ctx, `
			DELETE FROM archived_scores WHERE id NOT IN (
				SELECT id FROM archived_scores
				ORDER BY created_at DESC, id DESC
				LIMIT $1
			)`, maxRuns)
		if err != nil {
			return removed, fmt.Errorf("failed to prune excess entries: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("failed to check affected rows: %w", err)
		}
		removed += n
	}

	if retain > 0 {
		cutoff := time.Now().Add(-retain)
		result, err := s.db.ExecContext(ctx,
			"DELETE FROM archived_scores WHERE updated_at < $1", cutoff)
		if err != nil {
			return removed, fmt.Errorf("failed to prune expired entries: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("failed to check affected rows: %w", err)
		}
		removed += n
	}

	return removed, nil
}

// ExportJSON exports all archived scores to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list scores: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Scores:     all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports archived scores from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, score := range export.Scores {
		existing, err := s.Get(ctx, score.Disease, score.Drug)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, score); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
