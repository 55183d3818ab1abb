package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-repurposing-engine/internal/consensus"
	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/lookup"
	"github.com/drug-repurposing-engine/internal/scoring"
	"github.com/drug-repurposing-engine/internal/service"
	"github.com/drug-repurposing-engine/internal/tournament"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cache := lookup.NewMemoryCache(16, time.Hour)
	fetcher := lookup.FetcherFunc(func(ctx context.Context, disease string) (map[string]float64, error) {
		return map[string]float64{}, nil
	})
	store := lookup.NewStore(cache, fetcher, logger)

	svc := service.NewScoringService(
		scoring.NewScorer(domain.DefaultScoringWeights(), logger),
		store,
		consensus.NewBuilder(logger),
		tournament.NewRanker(logger),
		2,
		logger,
	)

	cfg := &domain.Config{
		Logging: domain.LoggingConfig{Level: "error"},
	}

	return NewServer(cfg, svc, nil, nil, logger)
}

func testRecord(sourceID, drug, mechanism string) domain.EvidenceRecord {
	responders := 70.0
	change := 25.0
	return domain.EvidenceRecord{
		SourceID:       sourceID,
		Drug:           drug,
		Disease:        "gaucher disease type 3",
		MechanismClass: mechanism,
		Pathway:        "GBA1",
		SampleSize:     40,
		Endpoints: []domain.EfficacyEndpoint{
			{
				Name:             "6-minute walk distance",
				Category:         domain.ENDPOINT_PRIMARY,
				Significant:      true,
				ResponderPercent: &responders,
				PercentChange:    &change,
			},
		},
		Publication: domain.PublicationMeta{
			VenueType: domain.VENUE_PEER_REVIEWED,
			Year:      2023,
		},
	}
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
	assert.Contains(t, rec.Body.String(), `"persistence":false`)
}

func TestScoreEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/score", testRecord("PMID:1", "ambroxol", "pharmacological chaperone"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp scoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ambroxol", resp.Score.Drug)
	assert.GreaterOrEqual(t, resp.Score.Overall, 1.0)
	assert.LessOrEqual(t, resp.Score.Overall, 10.0)
	assert.Nil(t, resp.StoredID, "No stored ID without persistence")
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestScoreEndpoint_MissingDisease(t *testing.T) {
	s := newTestServer(t)

	record := testRecord("PMID:2", "ambroxol", "pharmacological chaperone")
	record.Disease = ""

	rec := doJSON(t, s, http.MethodPost, "/api/v1/score", record)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrValidation)
}

func TestScoreEndpoint_MalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrInvalidInput)
}

func TestScoreBatchEndpoint(t *testing.T) {
	s := newTestServer(t)

	batch := []domain.EvidenceRecord{
		testRecord("PMID:1", "ambroxol", "pharmacological chaperone"),
		testRecord("PMID:2", "miglustat", "substrate reduction"),
	}

	rec := doJSON(t, s, http.MethodPost, "/api/v1/score/batch", batch)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count  int                       `json:"count"`
		Scores []domain.OpportunityScore `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Scores, 2)
	assert.Equal(t, "PMID:1", resp.Scores[0].SourceID)
	assert.Equal(t, "PMID:2", resp.Scores[1].SourceID)
}

func TestScoreBatchEndpoint_Empty(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/score/batch", []domain.EvidenceRecord{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrEmptySet)
}

func TestConsensusEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := consensusRequest{
		Disease: "gaucher disease",
		Metric:  "prevalence",
		Estimates: []domain.SourceEstimate{
			{SourceID: "orphanet", Value: 1.2, Tier: domain.TIER_1, Year: 2022},
			{SourceID: "registry", Value: 1.5, Tier: domain.TIER_2, Year: 2019},
			{SourceID: "review", Value: 0.9, Tier: domain.TIER_3, Year: 2015},
		},
	}

	rec := doJSON(t, s, http.MethodPost, "/api/v1/consensus", req)

	require.Equal(t, http.StatusOK, rec.Code)

	var estimate domain.ConsensusEstimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &estimate))
	assert.Equal(t, 3, estimate.SourceCount)
	assert.GreaterOrEqual(t, estimate.Value, 0.9)
	assert.LessOrEqual(t, estimate.Value, 1.5)
}

func TestConsensusEndpoint_Empty(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/consensus", consensusRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrEmptySet)
}

func TestRankEndpoint(t *testing.T) {
	s := newTestServer(t)

	responders := 70.0
	req := rankRequest{
		Scores: []domain.OpportunityScore{
			{
				SourceID:         "PMID:1",
				Drug:             "ambroxol",
				Disease:          "gaucher disease type 3",
				MechanismClass:   "pharmacological chaperone",
				Overall:          8.0,
				PositiveSignal:   true,
				ResponderPercent: &responders,
				SampleSize:       40,
				Year:             2023,
			},
			{
				SourceID:         "PMID:2",
				Drug:             "ambroxol",
				Disease:          "gaucher disease type 3",
				MechanismClass:   "pharmacological chaperone",
				Overall:          7.5,
				PositiveSignal:   true,
				ResponderPercent: &responders,
				SampleSize:       25,
				Year:             2021,
			},
		},
	}

	rec := doJSON(t, s, http.MethodPost, "/api/v1/rank", req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count      int                         `json:"count"`
		Mechanisms []domain.MechanismAggregate `json:"mechanisms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "pharmacological chaperone", resp.Mechanisms[0].Mechanism)
	assert.Len(t, resp.Mechanisms[0].Rounds, 4)
	assert.Equal(t, 1, resp.Mechanisms[0].Rank)
}

func TestRankEndpoint_Empty(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/rank", rankRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrEmptySet)
}

func TestGetOpportunity_PersistenceDisabled(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/opportunities/6a7a53a0-0000-0000-0000-000000000000", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "persistence is disabled")
}

func TestGetRankings_PersistenceDisabled(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/rankings/pharmacological%20chaperone", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRankStream(t *testing.T) {
	s := newTestServer(t)

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/rank/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	batch := []domain.EvidenceRecord{
		testRecord("PMID:1", "ambroxol", "pharmacological chaperone"),
		testRecord("PMID:2", "ambroxol", "pharmacological chaperone"),
		testRecord("PMID:3", "ibuprofen", "anti-inflammatory"),
	}
	require.NoError(t, conn.WriteJSON(batch))

	var roundFrames int
	var final *streamMessage
	for {
		var msg streamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		require.NotEqual(t, "error", msg.Type, "unexpected error frame: %s", msg.Error)

		if msg.Type == "rounds" {
			roundFrames++
			assert.NotEmpty(t, msg.Mechanism)
			assert.Len(t, msg.Rounds, 4)
			continue
		}

		require.Equal(t, "ranking", msg.Type)
		final = &msg
		break
	}

	assert.Equal(t, 2, roundFrames, "One rounds frame per mechanism")
	require.NotNil(t, final)
	require.Len(t, final.Mechanisms, 2)
	assert.Equal(t, 1, final.Mechanisms[0].Rank)
}

func TestRankStream_InvalidPayload(t *testing.T) {
	s := newTestServer(t)

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/rank/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.NotEmpty(t, msg.Error)
}
