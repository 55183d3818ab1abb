package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/drug-repurposing-engine/internal/lookup"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite archive store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanArchived scans a row into an ArchivedScore struct.
func scanArchived(s scanner) (*ArchivedScore, error) {
	score := &ArchivedScore{}
	var breakdownJSON string

	err := s.Scan(
		&score.ID, &score.Disease, &score.Drug, &score.MechanismClass, &score.SourceID,
		&score.Clinical, &score.Evidence, &score.Market, &score.Overall,
		&breakdownJSON, &score.PositiveSignal, &score.Notes,
		&score.CreatedAt, &score.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if breakdownJSON != "" {
		if err := json.Unmarshal([]byte(breakdownJSON), &score.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to decode breakdown: %w", err)
		}
	}
	return score, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS archived_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		disease TEXT NOT NULL,
		drug TEXT NOT NULL,
		mechanism_class TEXT DEFAULT '',
		source_id TEXT DEFAULT '',
		clinical_score REAL NOT NULL,
		evidence_score REAL NOT NULL,
		market_score REAL NOT NULL,
		overall_score REAL NOT NULL,
		breakdown TEXT DEFAULT '',
		positive_signal INTEGER NOT NULL DEFAULT 0,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(disease, drug)
	);

	CREATE INDEX IF NOT EXISTS idx_archived_disease ON archived_scores(disease);
	CREATE INDEX IF NOT EXISTS idx_archived_mechanism ON archived_scores(mechanism_class);
	CREATE INDEX IF NOT EXISTS idx_archived_created_at ON archived_scores(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

func encodeBreakdown(breakdown map[string]float64) (string, error) {
	if len(breakdown) == 0 {
		return "", nil
	}
	data, err := json.Marshal(breakdown)
	if err != nil {
		return "", fmt.Errorf("failed to encode breakdown: %w", err)
	}
	return string(data), nil
}

// Save stores or updates an archived score, keyed by disease+drug.
func (s *SQLiteStore) Save(ctx context.Context, score *ArchivedScore) error {
	now := time.Now()
	score.Disease = lookup.NormalizeDisease(score.Disease)

	breakdownJSON, err := encodeBreakdown(score.Breakdown)
	if err != nil {
		return err
	}

	// Check if exists
	var existingID int64
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM archived_scores WHERE disease = ? AND drug = ?",
		score.Disease, score.Drug,
	).Scan(&existingID)

	if err == nil {
		// Update existing
		score.ID = existingID
		score.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE archived_scores SET
				mechanism_class = ?,
				source_id = ?,
				clinical_score = ?,
				evidence_score = ?,
				market_score = ?,
				overall_score = ?,
				breakdown = ?,
				positive_signal = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
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
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	// Insert new
	score.CreatedAt = now
	score.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO archived_scores (
			disease, drug, mechanism_class, source_id,
			clinical_score, evidence_score, market_score, overall_score,
			breakdown, positive_signal, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
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
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	score.ID = id

	return nil
}

// Get retrieves the archived score for a disease+drug pair.
func (s *SQLiteStore) Get(ctx context.Context, disease, drug string) (*ArchivedScore, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, disease, drug, mechanism_class, source_id,
			clinical_score, evidence_score, market_score, overall_score,
			breakdown, positive_signal, notes, created_at, updated_at
		FROM archived_scores
		WHERE disease = ? AND drug = ?
		LIMIT 1
	`, lookup.NormalizeDisease(disease), drug)

	score, err := scanArchived(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return score, nil
}

// List returns archived scores with pagination, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*ArchivedScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, disease, drug, mechanism_class, source_id,
			clinical_score, evidence_score, market_score, overall_score,
			breakdown, positive_signal, notes, created_at, updated_at
		FROM archived_scores
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archived_scores").Scan(&count)
	return count, err
}

// Delete removes an archived score by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM archived_scores WHERE id = ?", id)
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
func (s *SQLiteStore) Prune(ctx context.Context, maxRuns int, retain time.Duration) (int64, error) {
	var removed int64

	if maxRuns > 0 {
		result, err := s.db.ExecContext(ctx, `
			DELETE FROM archived_scores WHERE id NOT IN (
				SELECT id FROM archived_scores
				ORDER BY created_at DESC, id DESC
				LIMIT ?
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
			"DELETE FROM archived_scores WHERE updated_at < ?", cutoff)
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

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all archived scores to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
