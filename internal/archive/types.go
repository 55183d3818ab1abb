// Package archive provides local storage of scored repurposing
// opportunities, keyed by disease and drug, with JSON export/import for
// sharing runs between analysts.
package archive

import (
	"context"
	"io"
	"time"
)

// ArchivedScore is one archived scoring result for a drug-disease pair.
type ArchivedScore struct {
	ID             int64              `json:"id,omitempty"`
	Disease        string             `json:"disease"` // normalized
	Drug           string             `json:"drug"`
	MechanismClass string             `json:"mechanism_class,omitempty"`
	SourceID       string             `json:"source_id,omitempty"`
	Clinical       float64            `json:"clinical"`
	Evidence       float64            `json:"evidence"`
	Market         float64            `json:"market"`
	Overall        float64            `json:"overall"`
	Breakdown      map[string]float64 `json:"breakdown,omitempty"`
	PositiveSignal bool               `json:"positive_signal"`
	Notes          string             `json:"notes,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Store defines the interface for archive storage operations.
type Store interface {
	// Save stores or updates an archived score.
	// If a score for the same disease+drug exists, it will be updated.
	Save(ctx context.Context, score *ArchivedScore) error

	// Get retrieves the archived score for a disease+drug pair.
	// Returns nil when no entry exists.
	Get(ctx context.Context, disease, drug string) (*ArchivedScore, error)

	// List returns archived scores with pagination, newest first.
	List(ctx context.Context, limit, offset int) ([]*ArchivedScore, error)

	// Count returns the total number of archived scores.
	Count(ctx context.Context) (int64, error)

	// Delete removes an archived score by ID.
	Delete(ctx context.Context, id int64) error

	// Prune removes entries beyond the newest maxRuns and entries last
	// updated before the retention window. A non-positive maxRuns or
	// retain disables the respective limit. Returns the number of
	// entries removed.
	Prune(ctx context.Context, maxRuns int, retain time.Duration) (int64, error)

	// ExportJSON exports all archived scores to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports archived scores from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Count      int              `json:"count"`
	Scores     []*ArchivedScore `json:"scores"`
}
