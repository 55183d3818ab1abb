package consensus

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/domain"
)

// Builder combines per-source epidemiological estimates into a single
// consensus value with a derived confidence label
type Builder struct {
	log *logrus.Logger
}

// NewBuilder creates a new consensus builder
func NewBuilder(logger *logrus.Logger) *Builder {
	return &Builder{log: logger}
}

// Weighting multipliers for source estimates
const (
	recencyCutoffYear = 2020
	recencyMultiplier = 1.5
	scaleCutoffPop    = 10_000_000
	scaleMultiplier   = 1.3
)

// estimateWeight computes the combined quality, recency and scale weight of
// one source estimate
func estimateWeight(e domain.SourceEstimate) float64 {
	var quality float64
	switch e.Tier {
	case domain.TIER_1:
		quality = 3
	case domain.TIER_2:
		quality = 2
	default:
		quality = 1
	}

	weight := quality
	if e.Year >= recencyCutoffYear {
		weight *= recencyMultiplier
	}
	if e.PopulationSize > scaleCutoffPop {
		weight *= scaleMultiplier
	}
	return weight
}

// Build computes the weighted consensus over a set of source estimates.
// The consensus value is the weighted median, not the weighted mean, so a
// single very-large-weight outlier cannot drag the value the way a mean
// would. Passing an empty set is a caller bug and fails fast.
func (b *Builder) Build(estimates []domain.SourceEstimate) (domain.ConsensusEstimate, error) {
	if len(estimates) == 0 {
		return domain.ConsensusEstimate{}, fmt.Errorf("build consensus: %w", domain.ErrEmptyInput)
	}

	if len(estimates) == 1 {
		only := estimates[0]
		confidence := domain.CONFIDENCE_VERY_LOW
		if only.Tier == domain.TIER_1 {
			confidence = domain.CONFIDENCE_LOW
		}
		return domain.ConsensusEstimate{
			Value:       only.Value,
			RangeLow:    only.Value,
			RangeHigh:   only.Value,
			CV:          0,
			Confidence:  confidence,
			SourceCount: 1,
			Sources:     append([]domain.SourceEstimate(nil), estimates...),
		}, nil
	}

	value := weightedMedian(estimates)
	cv := coefficientOfVariation(estimates)
	low, high := valueRange(estimates)
	confidence := deriveConfidence(estimates, cv)

	result := domain.ConsensusEstimate{
		Value:       value,
		RangeLow:    low,
		RangeHigh:   high,
		CV:          cv,
		Confidence:  confidence,
		SourceCount: len(estimates),
		Sources:     append([]domain.SourceEstimate(nil), estimates...),
	}

	b.log.WithFields(logrus.Fields{
		"sources":    len(estimates),
		"consensus":  value,
		"cv":         cv,
		"confidence": confidence,
	}).Debug("Built consensus estimate")

	return result, nil
}

// weightedMedian treats each estimate's weight as a repetition count and
// returns the value at which the cumulative weight crosses half the total
func weightedMedian(estimates []domain.SourceEstimate) float64 {
	type weighted struct {
		value  float64
		weight float64
	}

	items := make([]weighted, len(estimates))
	var total float64
	for i, e := range estimates {
		w := estimateWeight(e)
		items[i] = weighted{value: e.Value, weight: w}
		total += w
	}

	sort.Slice(items, func(i, j int) bool { return items[i].value < items[j].value })

	half := total / 2
	var cumulative float64
	for _, item := range items {
		cumulative += item.weight
		if cumulative >= half {
			return item.value
		}
	}
	return items[len(items)-1].value
}

// coefficientOfVariation is computed over the raw, unweighted values using
// the sample standard deviation, to surface genuine source disagreement
func coefficientOfVariation(estimates []domain.SourceEstimate) float64 {
	n := float64(len(estimates))
	var sum float64
	for _, e := range estimates {
		sum += e.Value
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}

	var ss float64
	for _, e := range estimates {
		d := e.Value - mean
		ss += d * d
	}
	stddev := math.Sqrt(ss / (n - 1))
	return stddev / mean
}

func valueRange(estimates []domain.SourceEstimate) (low, high float64) {
	low, high = estimates[0].Value, estimates[0].Value
	for _, e := range estimates[1:] {
		if e.Value < low {
			low = e.Value
		}
		if e.Value > high {
			high = e.Value
		}
	}
	return low, high
}

// deriveConfidence applies the auditable confidence rule ladder
func deriveConfidence(estimates []domain.SourceEstimate, cv float64) domain.ConfidenceLabel {
	highTier := 0
	for _, e := range estimates {
		if e.Tier == domain.TIER_1 || e.Tier == domain.TIER_2 {
			highTier++
		}
	}

	switch {
	case cv < 0.3 && highTier >= 3:
		return domain.CONFIDENCE_HIGH
	case len(estimates) >= 3 && cv < 1.0:
		return domain.CONFIDENCE_LOW_MODERATE
	case len(estimates) >= 2:
		return domain.CONFIDENCE_LOW
	default:
		return domain.CONFIDENCE_VERY_LOW
	}
}
