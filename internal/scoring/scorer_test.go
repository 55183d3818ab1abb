package scoring

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-repurposing-engine/internal/domain"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	weights := domain.DefaultScoringWeights()
	require.NoError(t, weights.Validate())
	return NewScorer(weights, testLogger())
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func int64Ptr(v int64) *int64     { return &v }

// strongRecord is a high-quality evidence record: 85% responders on a
// significant primary endpoint measured with a regulatory-grade instrument,
// a second positive endpoint in another organ system, a clean safety
// profile, long follow-up, and a wide-open market.
func strongRecord() domain.EvidenceRecord {
	return domain.EvidenceRecord{
		SourceID:       "PMID-38012345",
		Drug:           "ambroxol",
		Disease:        "gaucher disease type 3",
		MechanismClass: "pharmacological chaperone",
		Pathway:        "GBA1",
		SampleSize:     60,
		Endpoints: []domain.EfficacyEndpoint{
			{
				Name:             "6-minute walk distance",
				Timepoint:        "52 weeks",
				ResponderPercent: floatPtr(85),
				Significant:      true,
				PValue:           floatPtr(0.001),
				PercentChange:    floatPtr(32),
				Category:         domain.ENDPOINT_PRIMARY,
			},
			{
				Name:          "hemoglobin level",
				Timepoint:     "52 weeks",
				Significant:   true,
				PValue:        floatPtr(0.01),
				PercentChange: floatPtr(25),
				Category:      domain.ENDPOINT_SECONDARY,
			},
		},
		Publication: domain.PublicationMeta{
			VenueType: domain.VENUE_PEER_REVIEWED,
			Year:      2023,
			FollowUp:  "52 weeks",
		},
		Market: &domain.MarketContext{
			ApprovedCompetitors: intPtr(0),
			PatientPopulation:   int64Ptr(250_000),
			UnmetNeed:           floatPtr(9),
		},
	}
}

func TestScorer_StrongRecord(t *testing.T) {
	scorer := newTestScorer(t)

	result := scorer.Score(strongRecord(), nil)

	// clinical: response 10, endpoint quality (12.5 clamped, 5.5)/2 -> but
	// per-endpoint values are averaged before the sub-factor clamp:
	// (10+1+1+0.5 + 4+1+0.5)/2 = 9.0; breadth 2 organs -> 6; safety 10
	assert.InDelta(t, 9.0, result.Clinical, 0.01)
	assert.InDelta(t, 9.1, result.Evidence, 0.01)
	assert.InDelta(t, 9.0, result.Market, 0.01)
	assert.InDelta(t, 9.0, result.Overall, 0.01)

	assert.Equal(t, 10.0, result.Breakdown[KeyResponseMagnitude])
	assert.InDelta(t, 9.0, result.Breakdown[KeyEndpointQuality], 0.01)
	assert.Equal(t, 6.0, result.Breakdown[KeyOrganBreadth])
	assert.Equal(t, 10.0, result.Breakdown[KeySafety])
	assert.Equal(t, 8.0, result.Breakdown[KeySampleSize])
	assert.Equal(t, 10.0, result.Breakdown[KeyPublicationVenue])
	assert.InDelta(t, 9.5, result.Breakdown[KeyDurability], 0.01)
	assert.Equal(t, 10.0, result.Breakdown[KeyCompleteness])
	assert.Equal(t, 10.0, result.Breakdown[KeyCompetitorScarcity])
	assert.Equal(t, 8.0, result.Breakdown[KeyMarketSize])
	assert.Equal(t, 9.0, result.Breakdown[KeyUnmetNeed])

	assert.True(t, result.PositiveSignal)
	require.NotNil(t, result.ResponderPercent)
	assert.Equal(t, 85.0, *result.ResponderPercent)
	assert.Equal(t, 60, result.SampleSize)
	assert.Equal(t, 2023, result.Year)
}

func TestScorer_RepeatedScoringIsStable(t *testing.T) {
	scorer := newTestScorer(t)
	instruments := map[string]float64{"6-minute walk distance": 9.5}

	first := scorer.Score(strongRecord(), instruments)
	second := scorer.Score(strongRecord(), instruments)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Breakdown, second.Breakdown)
}

func TestScorer_SparseRecordScoresNeutral(t *testing.T) {
	scorer := newTestScorer(t)

	result := scorer.Score(domain.EvidenceRecord{
		SourceID: "PMID-1",
		Drug:     "drug",
		Disease:  "disease",
	}, nil)

	// response 5, quality 5, breadth 3, safety 10
	assert.InDelta(t, 5.1, result.Clinical, 0.01)
	// sample neutral 5, venue 5, durability 5, completeness clamps to 1
	assert.InDelta(t, 4.2, result.Evidence, 0.01)
	assert.InDelta(t, 5.0, result.Market, 0.01)
	assert.InDelta(t, 4.9, result.Overall, 0.01)
	assert.False(t, result.PositiveSignal)
	assert.Nil(t, result.ResponderPercent)
}

func TestScorer_AdversarialInputsStayClamped(t *testing.T) {
	scorer := newTestScorer(t)

	record := domain.EvidenceRecord{
		SourceID:   "PMID-2",
		Drug:       "drug",
		Disease:    "disease",
		SampleSize: 10,
		Endpoints: []domain.EfficacyEndpoint{
			{
				Name:             "6mwt",
				ResponderPercent: floatPtr(250), // reads as 100%
				Significant:      true,
				PValue:           floatPtr(0.0001),
				Category:         domain.ENDPOINT_PRIMARY,
			},
		},
		Market: &domain.MarketContext{
			UnmetNeed: floatPtr(42), // above scale
		},
	}

	result := scorer.Score(record, nil)

	require.NotNil(t, result.ResponderPercent)
	assert.Equal(t, 100.0, *result.ResponderPercent)
	assert.Equal(t, 10.0, result.Breakdown[KeyUnmetNeed])
	for key, value := range result.Breakdown {
		assert.GreaterOrEqual(t, value, 1.0, "breakdown %q below range", key)
		assert.LessOrEqual(t, value, 10.0, "breakdown %q above range", key)
	}
	assert.GreaterOrEqual(t, result.Overall, 1.0)
	assert.LessOrEqual(t, result.Overall, 10.0)

	negative := record
	negative.Market = &domain.MarketContext{UnmetNeed: floatPtr(-5)}
	result = scorer.Score(negative, nil)
	assert.Equal(t, 1.0, result.Breakdown[KeyUnmetNeed])
}

func TestResponseMagnitudeBuckets(t *testing.T) {
	tests := []struct {
		name     string
		percent  *float64
		expected float64
	}{
		{"above 80", floatPtr(85), 10},
		{"60 to 80", floatPtr(70), 8},
		{"40 to 60", floatPtr(50), 6},
		{"20 to 40", floatPtr(30), 4},
		{"below 20", floatPtr(10), 2},
		{"missing", nil, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := domain.EvidenceRecord{SampleSize: 100}
			if tt.percent != nil {
				record.Endpoints = []domain.EfficacyEndpoint{
					{Name: "endpoint", ResponderPercent: tt.percent},
				}
			}
			assert.Equal(t, tt.expected, responseMagnitude(record))
		})
	}
}

func TestResponseMagnitude_DerivedFromCount(t *testing.T) {
	record := domain.EvidenceRecord{
		SampleSize: 60,
		Endpoints: []domain.EfficacyEndpoint{
			{Name: "endpoint", ResponderCount: intPtr(30)},
		},
	}
	// 30/60 = 50% -> bucket 6
	assert.Equal(t, 6.0, responseMagnitude(record))
}

func TestEndpointQuality(t *testing.T) {
	t.Run("resolved instrument mapping takes precedence", func(t *testing.T) {
		record := domain.EvidenceRecord{
			Endpoints: []domain.EfficacyEndpoint{
				{Name: "Fatigue Severity Scale total", Category: domain.ENDPOINT_SECONDARY},
			},
		}
		instruments := map[string]float64{"fatigue severity scale": 7.0}
		assert.Equal(t, 7.0, endpointQuality(record, instruments))
	})

	t.Run("static tier fallback", func(t *testing.T) {
		record := domain.EvidenceRecord{
			Endpoints: []domain.EfficacyEndpoint{
				{Name: "FEV1 percent predicted", Category: domain.ENDPOINT_SECONDARY},
			},
		}
		assert.Equal(t, 10.0, endpointQuality(record, nil))
	})

	t.Run("ad-hoc default for unrecognized instrument", func(t *testing.T) {
		record := domain.EvidenceRecord{
			Endpoints: []domain.EfficacyEndpoint{
				{Name: "bespoke caregiver checklist", Category: domain.ENDPOINT_SECONDARY},
			},
		}
		assert.Equal(t, adHocInstrumentScore, endpointQuality(record, nil))
	})

	t.Run("exploratory endpoints are discounted", func(t *testing.T) {
		record := domain.EvidenceRecord{
			Endpoints: []domain.EfficacyEndpoint{
				{Name: "bespoke caregiver checklist", Category: domain.ENDPOINT_EXPLORATORY},
			},
		}
		assert.Equal(t, adHocInstrumentScore-exploratoryPenalty, endpointQuality(record, nil))
	})

	t.Run("no endpoints scores neutral", func(t *testing.T) {
		assert.Equal(t, neutralScore, endpointQuality(domain.EvidenceRecord{}, nil))
	})
}

func TestOrganBreadth(t *testing.T) {
	positive := func(name string) domain.EfficacyEndpoint {
		return domain.EfficacyEndpoint{Name: name, Significant: true}
	}

	t.Run("five organ systems", func(t *testing.T) {
		record := domain.EvidenceRecord{
			SampleSize: 50,
			Endpoints: []domain.EfficacyEndpoint{
				positive("eGFR slope"),
				positive("hemoglobin level"),
				positive("liver volume"),
				positive("FEV1"),
				positive("seizure frequency"),
			},
		}
		assert.Equal(t, 10.0, organBreadth(record))
	})

	t.Run("negative endpoints do not count", func(t *testing.T) {
		record := domain.EvidenceRecord{
			SampleSize: 50,
			Endpoints: []domain.EfficacyEndpoint{
				{Name: "eGFR slope", Significant: false},
			},
		}
		assert.Equal(t, 3.0, organBreadth(record))
	})

	t.Run("same organ counted once", func(t *testing.T) {
		record := domain.EvidenceRecord{
			SampleSize: 50,
			Endpoints: []domain.EfficacyEndpoint{
				positive("eGFR slope"),
				positive("serum creatinine"),
			},
		}
		assert.Equal(t, 4.0, organBreadth(record))
	})
}

func TestSafetyScore(t *testing.T) {
	t.Run("clean record scores ten", func(t *testing.T) {
		assert.Equal(t, 10.0, safetyScore(domain.EvidenceRecord{SampleSize: 100}))
	})

	t.Run("penalties scale with event rate", func(t *testing.T) {
		record := domain.EvidenceRecord{
			SampleSize: 100,
			SafetyEvents: []domain.SafetyEvent{
				// critical at 30% rate: 3.0 x 3.0 = 9, capped at 2x base = 6
				{Name: "transaminase elevation", Count: 30, Serious: true},
				// minor at 10% rate: 1.0 x 1.0 = 1
				{Name: "nausea", Count: 10},
				// tolerability at 2% rate: 0.5 x 0.25 (floor) = 0.125
				{Name: "headache", Count: 2},
			},
		}
		assert.InDelta(t, 10-6-1-0.125, safetyScore(record), 0.001)
	})

	t.Run("unclassified events carry no penalty", func(t *testing.T) {
		record := domain.EvidenceRecord{
			SampleSize: 100,
			SafetyEvents: []domain.SafetyEvent{
				{Name: "protocol deviation", Count: 5},
			},
		}
		assert.Equal(t, 10.0, safetyScore(record))
	})

	t.Run("severe profile clamps at floor", func(t *testing.T) {
		record := domain.EvidenceRecord{
			SampleSize: 10,
			SafetyEvents: []domain.SafetyEvent{
				{Name: "hepatotoxicity", Count: 10, Serious: true},
				{Name: "qt prolongation", Count: 10, Serious: true},
				{Name: "acute kidney injury", Count: 10, Serious: true},
			},
		}
		scorer := newTestScorer(t)
		result := scorer.Score(record, nil)
		assert.Equal(t, 1.0, result.Breakdown[KeySafety])
	})
}

func TestSampleSizeBuckets(t *testing.T) {
	tests := []struct {
		n        int
		expected float64
	}{
		{500, 10}, {120, 9}, {60, 8}, {25, 6}, {12, 5}, {7, 4}, {2, 3}, {0, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, sampleSizeScore(tt.n), "n=%d", tt.n)
	}
}

func TestDurabilityScore(t *testing.T) {
	record := func(followUp string) domain.EvidenceRecord {
		return domain.EvidenceRecord{Publication: domain.PublicationMeta{FollowUp: followUp}}
	}

	assert.Equal(t, 9.0, durabilityScore(record("2 years")))
	assert.Equal(t, 9.0, durabilityScore(record("52-week extension")))
	assert.Equal(t, 6.5, durabilityScore(record("6 months")))
	assert.Equal(t, 4.0, durabilityScore(record("8 weeks")))
	assert.Equal(t, 5.0, durabilityScore(record("")))

	// per-endpoint timepoints add a capped bonus
	multi := record("2 years")
	multi.Endpoints = []domain.EfficacyEndpoint{
		{Name: "a", Timepoint: "26 weeks"},
		{Name: "b", Timepoint: "52 weeks"},
		{Name: "c", Timepoint: "104 weeks"},
		{Name: "d", Timepoint: "156 weeks"},
	}
	assert.Equal(t, 10.0, durabilityScore(multi))
}

func TestMarketSubFactors(t *testing.T) {
	t.Run("competitor scarcity", func(t *testing.T) {
		assert.Equal(t, neutralScore, competitorScarcity(nil))
		assert.Equal(t, 10.0, competitorScarcity(&domain.MarketContext{ApprovedCompetitors: intPtr(0)}))
		assert.Equal(t, 8.0, competitorScarcity(&domain.MarketContext{ApprovedCompetitors: intPtr(1)}))
		assert.Equal(t, 6.0, competitorScarcity(&domain.MarketContext{ApprovedCompetitors: intPtr(2)}))
		assert.Equal(t, 4.0, competitorScarcity(&domain.MarketContext{ApprovedCompetitors: intPtr(4)}))
		assert.Equal(t, 2.0, competitorScarcity(&domain.MarketContext{ApprovedCompetitors: intPtr(8)}))
	})

	t.Run("market size", func(t *testing.T) {
		assert.Equal(t, neutralScore, marketSizeScore(nil))
		assert.Equal(t, 10.0, marketSizeScore(&domain.MarketContext{PatientPopulation: int64Ptr(2_000_000)}))
		assert.Equal(t, 8.0, marketSizeScore(&domain.MarketContext{PatientPopulation: int64Ptr(250_000)}))
		assert.Equal(t, 6.0, marketSizeScore(&domain.MarketContext{PatientPopulation: int64Ptr(60_000)}))
		assert.Equal(t, 4.0, marketSizeScore(&domain.MarketContext{PatientPopulation: int64Ptr(15_000)}))
		assert.Equal(t, 2.0, marketSizeScore(&domain.MarketContext{PatientPopulation: int64Ptr(3_000)}))
	})
}

func TestScorer_CustomWeightsShiftDimensions(t *testing.T) {
	weights := domain.DefaultScoringWeights()
	weights.Dimensions = domain.DimensionWeights{Clinical: 1.0, Evidence: 0, Market: 0}
	require.NoError(t, weights.Validate())

	scorer := NewScorer(weights, testLogger())
	result := scorer.Score(strongRecord(), nil)
	assert.InDelta(t, result.Clinical, result.Overall, 0.05)
}
