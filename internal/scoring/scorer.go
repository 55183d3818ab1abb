package scoring

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/domain"
)

// Breakdown keys. Every sub-factor that feeds a dimension is retained on the
// output under these names so exports can address each value independently.
const (
	KeyResponseMagnitude  = "response_magnitude"
	KeyEndpointQuality    = "endpoint_quality"
	KeyOrganBreadth       = "organ_breadth"
	KeySafety             = "safety"
	KeySampleSize         = "sample_size"
	KeyPublicationVenue   = "publication_venue"
	KeyDurability         = "durability"
	KeyCompleteness       = "completeness"
	KeyCompetitorScarcity = "competitor_scarcity"
	KeyMarketSize         = "market_size"
	KeyUnmetNeed          = "unmet_need"
)

// neutralScore is the documented default for absent optional inputs,
// applied consistently across all sub-factors
const neutralScore = 5.0

// Scorer computes the hierarchical weighted composite score for one
// evidence record. It is pure: instrument mappings come from the lookup
// store via the caller, and nothing here touches shared state.
type Scorer struct {
	weights domain.ScoringWeights
	log     *logrus.Logger
}

// NewScorer creates a scorer with the given weight configuration.
// Weights must already be validated.
func NewScorer(weights domain.ScoringWeights, logger *logrus.Logger) *Scorer {
	return &Scorer{weights: weights, log: logger}
}

// Score computes the three dimension scores and the overall composite for
// one evidence record. Every sub-factor is clamped to [1,10] before
// combination, and the full breakdown is retained on the output.
func (s *Scorer) Score(record domain.EvidenceRecord, instruments map[string]float64) domain.OpportunityScore {
	breakdown := make(map[string]float64, 11)

	clinical := s.scoreClinical(record, instruments, breakdown)
	evidence := s.scoreEvidence(record, breakdown)
	market := s.scoreMarket(record, breakdown)

	w := s.weights.Dimensions
	overall := round1(w.Clinical*clinical + w.Evidence*evidence + w.Market*market)

	result := domain.OpportunityScore{
		SourceID:         record.SourceID,
		Drug:             record.Drug,
		Disease:          record.Disease,
		MechanismClass:   record.MechanismClass,
		Pathway:          record.Pathway,
		Clinical:         clinical,
		Evidence:         evidence,
		Market:           market,
		Overall:          overall,
		Breakdown:        breakdown,
		PositiveSignal:   hasPositiveSignal(record),
		ResponderPercent: bestResponderPercent(record),
		SampleSize:       record.SampleSize,
		Year:             record.Publication.Year,
	}

	s.log.WithFields(logrus.Fields{
		"source_id": record.SourceID,
		"disease":   record.Disease,
		"clinical":  clinical,
		"evidence":  evidence,
		"market":    market,
		"overall":   overall,
	}).Debug("Scored evidence record")

	return result
}

// scoreClinical combines the four clinical sub-factors
func (s *Scorer) scoreClinical(record domain.EvidenceRecord, instruments map[string]float64, breakdown map[string]float64) float64 {
	response := clamp(responseMagnitude(record))
	quality := clamp(endpointQuality(record, instruments))
	breadth := clamp(organBreadth(record))
	safety := clamp(safetyScore(record))

	breakdown[KeyResponseMagnitude] = response
	breakdown[KeyEndpointQuality] = quality
	breakdown[KeyOrganBreadth] = breadth
	breakdown[KeySafety] = safety

	w := s.weights.Clinical
	return w.ResponseMagnitude*response + w.EndpointQuality*quality + w.OrganBreadth*breadth + w.Safety*safety
}

// scoreEvidence combines the four evidence-quality sub-factors
func (s *Scorer) scoreEvidence(record domain.EvidenceRecord, breakdown map[string]float64) float64 {
	sample := clamp(sampleSizeScore(record.SampleSize))
	venue := clamp(venueScore(record.Publication.VenueType))
	durability := clamp(durabilityScore(record))
	completeness := clamp(completenessScore(record))

	breakdown[KeySampleSize] = sample
	breakdown[KeyPublicationVenue] = venue
	breakdown[KeyDurability] = durability
	breakdown[KeyCompleteness] = completeness

	w := s.weights.Evidence
	return w.SampleSize*sample + w.Venue*venue + w.Durability*durability + w.Completeness*completeness
}

// scoreMarket combines the three market sub-factors
func (s *Scorer) scoreMarket(record domain.EvidenceRecord, breakdown map[string]float64) float64 {
	scarcity := clamp(competitorScarcity(record.Market))
	size := clamp(marketSizeScore(record.Market))
	unmet := clamp(unmetNeedScore(record.Market))

	breakdown[KeyCompetitorScarcity] = scarcity
	breakdown[KeyMarketSize] = size
	breakdown[KeyUnmetNeed] = unmet

	w := s.weights.Market
	return w.CompetitorScarcity*scarcity + w.MarketSize*size + w.UnmetNeed*unmet
}

// clamp bounds a sub-factor to the [1,10] scoring range
func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return neutralScore
	}
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
