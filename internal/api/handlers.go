package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// consensusRequest carries the source estimates for one disease metric.
type consensusRequest struct {
	Disease   string                  `json:"disease"`
	Metric    string                  `json:"metric"`
	Estimates []domain.SourceEstimate `json:"estimates"`
}

// rankRequest carries previously computed scores into the tournament.
type rankRequest struct {
	Scores []domain.OpportunityScore `json:"scores"`
}

// scoreResponse wraps a single scored record with its storage ID when
// persistence is enabled.
type scoreResponse struct {
	Score    domain.OpportunityScore `json:"score"`
	StoredID *uuid.UUID              `json:"stored_id,omitempty"`
}

// handleScore scores a single evidence record.
func (s *Server) handleScore(c *gin.Context) {
	var record domain.EvidenceRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		s.errorResponse(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid evidence record", err.Error())
		return
	}

	score, err := s.service.ScoreRecord(c.Request.Context(), record)
	if err != nil {
		var valErr *domain.ValidationError
		if errors.As(err, &valErr) {
			s.errorResponse(c, http.StatusBadRequest, domain.ErrValidation, valErr.Message, valErr.Field)
			return
		}
		s.errorResponse(c, http.StatusInternalServerError, domain.ErrScoring, "failed to score record", err.Error())
		return
	}

	resp := scoreResponse{Score: score}
	if s.opportunities != nil {
		id, err := s.opportunities.Create(c.Request.Context(), score)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"source_id": record.SourceID,
				"drug":      record.Drug,
			}).Warn("Failed to persist opportunity score")
		} else {
			resp.StoredID = &id
		}
	}

	c.JSON(http.StatusOK, resp)
}

// handleScoreBatch scores a set of independent evidence records.
func (s *Server) handleScoreBatch(c *gin.Context) {
	var records []domain.EvidenceRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		s.errorResponse(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid evidence record batch", err.Error())
		return
	}

	scores, err := s.service.ScoreBatch(c.Request.Context(), records)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyInput):
			s.errorResponse(c, http.StatusBadRequest, domain.ErrEmptySet, "at least one evidence record is required", "")
		default:
			var valErr *domain.ValidationError
			if errors.As(err, &valErr) {
				s.errorResponse(c, http.StatusBadRequest, domain.ErrValidation, err.Error(), valErr.Field)
				return
			}
			s.errorResponse(c, http.StatusInternalServerError, domain.ErrScoring, "failed to score batch", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(scores),
		"scores": scores,
	})
}

// handleConsensus builds a weighted consensus estimate from source values.
func (s *Server) handleConsensus(c *gin.Context) {
	var req consensusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid consensus request", err.Error())
		return
	}

	estimate, err := s.service.BuildConsensus(req.Estimates)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyInput) {
			s.errorResponse(c, http.StatusBadRequest, domain.ErrEmptySet, "at least one source estimate is required", "")
			return
		}
		s.errorResponse(c, http.StatusInternalServerError, domain.ErrInternalServer, "failed to build consensus", err.Error())
		return
	}

	if s.consensusRepo != nil && req.Disease != "" && req.Metric != "" {
		if _, err := s.consensusRepo.Create(c.Request.Context(), req.Disease, req.Metric, estimate); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"disease": req.Disease,
				"metric":  req.Metric,
			}).Warn("Failed to persist consensus estimate")
		}
	}

	c.JSON(http.StatusOK, estimate)
}

// handleRank runs the mechanism tournament over submitted scores.
func (s *Server) handleRank(c *gin.Context) {
	var req rankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid ranking request", err.Error())
		return
	}

	aggregates, err := s.service.RankMechanisms(c.Request.Context(), req.Scores)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyInput) {
			s.errorResponse(c, http.StatusBadRequest, domain.ErrEmptySet, "at least one opportunity score is required", "")
			return
		}
		s.errorResponse(c, http.StatusInternalServerError, domain.ErrInternalServer, "failed to rank mechanisms", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":      len(aggregates),
		"mechanisms": aggregates,
	})
}

// handleGetOpportunity retrieves a persisted opportunity score by ID.
func (s *Server) handleGetOpportunity(c *gin.Context) {
	if s.opportunities == nil {
		s.errorResponse(c, http.StatusServiceUnavailable, domain.ErrDatabaseError, "persistence is disabled", "")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid opportunity ID", c.Param("id"))
		return
	}

	stored, err := s.opportunities.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.errorResponse(c, http.StatusNotFound, domain.ErrInvalidInput, "opportunity not found", id.String())
			return
		}
		s.errorResponse(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to load opportunity", err.Error())
		return
	}

	c.JSON(http.StatusOK, stored)
}

// handleGetRankings retrieves persisted scores for a mechanism class.
func (s *Server) handleGetRankings(c *gin.Context) {
	if s.opportunities == nil {
		s.errorResponse(c, http.StatusServiceUnavailable, domain.ErrDatabaseError, "persistence is disabled", "")
		return
	}

	limit := queryInt(c, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := queryInt(c, "offset", 0)

	stored, err := s.opportunities.GetByMechanism(c.Request.Context(), c.Param("mechanism"), limit, offset)
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to load rankings", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mechanism":     c.Param("mechanism"),
		"count":         len(stored),
		"opportunities": stored,
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
