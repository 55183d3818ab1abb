package domain

import (
	"fmt"
	"math"
)

// OpportunityScore is one EvidenceRecord's composite score. The Breakdown map
// retains every sub-factor value that fed a dimension, keyed by sub-factor
// name, so exports can address each value independently.
type OpportunityScore struct {
	SourceID       string             `json:"source_id"`
	Drug           string             `json:"drug"`
	Disease        string             `json:"disease"`
	MechanismClass string             `json:"mechanism_class,omitempty"`
	Pathway        string             `json:"pathway,omitempty"`
	Clinical       float64            `json:"clinical"`
	Evidence       float64            `json:"evidence"`
	Market         float64            `json:"market"`
	Overall        float64            `json:"overall"`
	Breakdown      map[string]float64 `json:"breakdown"`

	// Rollup inputs carried forward for mechanism aggregation.
	PositiveSignal   bool     `json:"positive_signal"`
	ResponderPercent *float64 `json:"responder_percent,omitempty"`
	SampleSize       int      `json:"sample_size"`
	Year             int      `json:"year"`
}

// DimensionWeights defines the relative importance of the three scoring
// dimensions. Weights must sum to 1.0.
type DimensionWeights struct {
	Clinical float64 `json:"clinical" mapstructure:"clinical"`
	Evidence float64 `json:"evidence" mapstructure:"evidence"`
	Market   float64 `json:"market" mapstructure:"market"`
}

// ClinicalWeights defines the sub-factor weights of the clinical dimension
type ClinicalWeights struct {
	ResponseMagnitude float64 `json:"response_magnitude" mapstructure:"response_magnitude"`
	EndpointQuality   float64 `json:"endpoint_quality" mapstructure:"endpoint_quality"`
	OrganBreadth      float64 `json:"organ_breadth" mapstructure:"organ_breadth"`
	Safety            float64 `json:"safety" mapstructure:"safety"`
}

// EvidenceWeights defines the sub-factor weights of the evidence-quality dimension
type EvidenceWeights struct {
	SampleSize   float64 `json:"sample_size" mapstructure:"sample_size"`
	Venue        float64 `json:"venue" mapstructure:"venue"`
	Durability   float64 `json:"durability" mapstructure:"durability"`
	Completeness float64 `json:"completeness" mapstructure:"completeness"`
}

// MarketWeights defines the sub-factor weights of the market dimension
type MarketWeights struct {
	CompetitorScarcity float64 `json:"competitor_scarcity" mapstructure:"competitor_scarcity"`
	MarketSize         float64 `json:"market_size" mapstructure:"market_size"`
	UnmetNeed          float64 `json:"unmet_need" mapstructure:"unmet_need"`
}

// ScoringWeights is the full weight configuration of the composite scorer
type ScoringWeights struct {
	Dimensions DimensionWeights `json:"dimensions" mapstructure:"dimensions"`
	Clinical   ClinicalWeights  `json:"clinical" mapstructure:"clinical"`
	Evidence   EvidenceWeights  `json:"evidence" mapstructure:"evidence"`
	Market     MarketWeights    `json:"market" mapstructure:"market"`
}

// DefaultScoringWeights returns the standard weight distribution
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Dimensions: DimensionWeights{Clinical: 0.50, Evidence: 0.25, Market: 0.25},
		Clinical: ClinicalWeights{
			ResponseMagnitude: 0.50,
			EndpointQuality:   0.20,
			OrganBreadth:      0.20,
			Safety:            0.10,
		},
		Evidence: EvidenceWeights{
			SampleSize:   0.40,
			Venue:        0.20,
			Durability:   0.20,
			Completeness: 0.20,
		},
		Market: MarketWeights{
			CompetitorScarcity: 0.40,
			MarketSize:         0.40,
			UnmetNeed:          0.20,
		},
	}
}

const weightTolerance = 0.001

// Validate checks that every weight level sums to 1.0
func (w ScoringWeights) Validate() error {
	levels := map[string]float64{
		"dimensions": w.Dimensions.Clinical + w.Dimensions.Evidence + w.Dimensions.Market,
		"clinical":   w.Clinical.ResponseMagnitude + w.Clinical.EndpointQuality + w.Clinical.OrganBreadth + w.Clinical.Safety,
		"evidence":   w.Evidence.SampleSize + w.Evidence.Venue + w.Evidence.Durability + w.Evidence.Completeness,
		"market":     w.Market.CompetitorScarcity + w.Market.MarketSize + w.Market.UnmetNeed,
	}
	for level, sum := range levels {
		if math.Abs(sum-1.0) > weightTolerance {
			return fmt.Errorf("%s weights sum to %.4f, must sum to 1.0", level, sum)
		}
	}
	return nil
}
