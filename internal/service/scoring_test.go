package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-repurposing-engine/internal/consensus"
	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/lookup"
	"github.com/drug-repurposing-engine/internal/scoring"
	"github.com/drug-repurposing-engine/internal/tournament"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func floatPtr(v float64) *float64 { return &v }

func newTestService(t *testing.T, fetcher lookup.Fetcher) *ScoringService {
	t.Helper()
	log := testLogger()
	weights := domain.DefaultScoringWeights()
	require.NoError(t, weights.Validate())

	if fetcher == nil {
		fetcher = lookup.FetcherFunc(func(ctx context.Context, disease string) (map[string]float64, error) {
			return nil, nil
		})
	}
	store := lookup.NewStore(lookup.NewMemoryCache(16, time.Minute), fetcher, log)

	return NewScoringService(
		scoring.NewScorer(weights, log),
		store,
		consensus.NewBuilder(log),
		tournament.NewRanker(log),
		4,
		log,
	)
}

func testRecord(sourceID, drug, mechanism string, responder float64) domain.EvidenceRecord {
	return domain.EvidenceRecord{
		SourceID:       sourceID,
		Drug:           drug,
		Disease:        "gaucher disease",
		MechanismClass: mechanism,
		SampleSize:     40,
		Endpoints: []domain.EfficacyEndpoint{
			{
				Name:             "6-minute walk distance",
				ResponderPercent: floatPtr(responder),
				Significant:      true,
				Category:         domain.ENDPOINT_PRIMARY,
			},
		},
		Publication: domain.PublicationMeta{
			VenueType: domain.VENUE_PEER_REVIEWED,
			Year:      2022,
		},
	}
}

func TestScoreRecord_RequiresDisease(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.ScoreRecord(context.Background(), domain.EvidenceRecord{SourceID: "x"})
	require.Error(t, err)

	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "disease", validationErr.Field)
}

func TestScoreRecord_UsesFetchedInstruments(t *testing.T) {
	fetcher := lookup.FetcherFunc(func(ctx context.Context, disease string) (map[string]float64, error) {
		return map[string]float64{"gaucher severity scoring tool": 9.0}, nil
	})
	svc := newTestService(t, fetcher)

	record := domain.EvidenceRecord{
		SourceID:   "PMID-1",
		Drug:       "ambroxol",
		Disease:    "Gaucher Disease",
		SampleSize: 30,
		Endpoints: []domain.EfficacyEndpoint{
			{
				Name:             "Gaucher Severity Scoring Tool",
				ResponderPercent: floatPtr(70),
				Significant:      true,
				Category:         domain.ENDPOINT_PRIMARY,
			},
		},
	}

	result, err := svc.ScoreRecord(context.Background(), record)
	require.NoError(t, err)

	// fetched base 9 + primary 1 + significant 1, clamped to 10
	assert.Equal(t, 10.0, result.Breakdown[scoring.KeyEndpointQuality])
	assert.True(t, result.PositiveSignal)
}

func TestScoreRecord_FetchFailureFallsBackToAdHoc(t *testing.T) {
	fetcher := lookup.FetcherFunc(func(ctx context.Context, disease string) (map[string]float64, error) {
		return nil, fmt.Errorf("collaborator unavailable")
	})
	svc := newTestService(t, fetcher)

	record := domain.EvidenceRecord{
		SourceID:   "PMID-2",
		Drug:       "drug",
		Disease:    "some disease",
		SampleSize: 30,
		Endpoints: []domain.EfficacyEndpoint{
			{Name: "bespoke outcome checklist", Category: domain.ENDPOINT_SECONDARY},
		},
	}

	result, err := svc.ScoreRecord(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, 4.0, result.Breakdown[scoring.KeyEndpointQuality])
}

func TestScoreBatch_EmptyFailsFast(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.ScoreBatch(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestScoreBatch_PreservesOrder(t *testing.T) {
	var fetches atomic.Int32
	fetcher := lookup.FetcherFunc(func(ctx context.Context, disease string) (map[string]float64, error) {
		fetches.Add(1)
		return nil, nil
	})
	svc := newTestService(t, fetcher)

	var records []domain.EvidenceRecord
	for i := 0; i < 50; i++ {
		records = append(records, testRecord(fmt.Sprintf("PMID-%03d", i), "drug", "chaperone", 75))
	}

	results, err := svc.ScoreBatch(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, results, 50)

	for i, result := range results {
		assert.Equal(t, fmt.Sprintf("PMID-%03d", i), result.SourceID)
	}

	// all records share one disease key: the dedup guarantee bounds
	// fetches well below the record count even under worker concurrency
	assert.LessOrEqual(t, fetches.Load(), int32(4))
}

func TestScoreBatch_ValidationErrorSurfaces(t *testing.T) {
	svc := newTestService(t, nil)

	records := []domain.EvidenceRecord{
		testRecord("PMID-1", "drug", "chaperone", 75),
		{SourceID: "PMID-2"}, // missing disease
	}

	_, err := svc.ScoreBatch(context.Background(), records)
	require.Error(t, err)
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestScoreAndRank_EndToEnd(t *testing.T) {
	svc := newTestService(t, nil)

	records := []domain.EvidenceRecord{
		testRecord("PMID-1", "ambroxol", "chaperone", 85),
		testRecord("PMID-2", "isofagomine", "chaperone", 80),
		testRecord("PMID-3", "ibuprofen", "anti-inflammatory", 10),
	}

	scores, aggregates, err := svc.ScoreAndRank(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	require.Len(t, aggregates, 2)

	assert.Equal(t, "chaperone", aggregates[0].Mechanism)
	assert.Equal(t, 1, aggregates[0].Rank)
	assert.Greater(t, aggregates[0].CompositeScore, aggregates[1].CompositeScore)
}

func TestBuildConsensus_Delegates(t *testing.T) {
	svc := newTestService(t, nil)

	estimate, err := svc.BuildConsensus([]domain.SourceEstimate{
		{SourceID: "a", Value: 100, Tier: domain.TIER_1, Year: 2022},
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, estimate.Value)
	assert.Equal(t, domain.CONFIDENCE_LOW, estimate.Confidence)

	_, err = svc.BuildConsensus(nil)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}
