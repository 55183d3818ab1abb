package domain

// ConfidenceLabel represents the confidence in a consensus estimate
type ConfidenceLabel string

const (
	CONFIDENCE_HIGH         ConfidenceLabel = "High"
	CONFIDENCE_MODERATE     ConfidenceLabel = "Moderate"
	CONFIDENCE_LOW_MODERATE ConfidenceLabel = "Low-Moderate"
	CONFIDENCE_LOW          ConfidenceLabel = "Low"
	CONFIDENCE_VERY_LOW     ConfidenceLabel = "Very Low"
)

// SourceEstimate is one source's numeric estimate of an epidemiological
// quantity (prevalence, failure rate) together with its weighting inputs.
type SourceEstimate struct {
	SourceID       string     `json:"source_id,omitempty"`
	Value          float64    `json:"value"`
	Tier           SourceTier `json:"tier"`
	Year           int        `json:"year"`
	PopulationSize int64      `json:"population_size,omitempty"`
}

// ConsensusEstimate is the reconciled value over a set of source estimates.
// It is recomputed whole whenever the underlying set changes; a new value
// replaces the old one rather than being mutated in place.
type ConsensusEstimate struct {
	Value       float64          `json:"value"`
	RangeLow    float64          `json:"range_low"`
	RangeHigh   float64          `json:"range_high"`
	CV          float64          `json:"coefficient_of_variation"`
	Confidence  ConfidenceLabel  `json:"confidence"`
	SourceCount int              `json:"source_count"`
	Sources     []SourceEstimate `json:"sources,omitempty"`
}
