package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/drug-repurposing-engine/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens at the reverse proxy.
		return true
	},
}

// streamMessage is one frame of the ranking stream. The client first receives
// a "rounds" frame per mechanism as it clears (or fails) the tournament
// gates, then a single "ranking" frame with the ordered aggregates.
type streamMessage struct {
	Type       string                      `json:"type"`
	Mechanism  string                      `json:"mechanism,omitempty"`
	Tier       domain.ConfidenceTier       `json:"tier,omitempty"`
	Rounds     []domain.RoundResult        `json:"rounds,omitempty"`
	Mechanisms []domain.MechanismAggregate `json:"mechanisms,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

// handleRankStream upgrades to a websocket, reads one batch of evidence
// records, and streams tournament progress back to the client.
func (s *Server) handleRankStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("Failed to upgrade ranking stream connection")
		return
	}
	defer conn.Close()

	var records []domain.EvidenceRecord
	if err := conn.ReadJSON(&records); err != nil {
		s.writeStreamError(conn, "invalid evidence record batch: "+err.Error())
		return
	}

	_, aggregates, err := s.service.ScoreAndRank(c.Request.Context(), records)
	if err != nil {
		s.writeStreamError(conn, err.Error())
		return
	}

	for _, agg := range aggregates {
		msg := streamMessage{
			Type:      "rounds",
			Mechanism: agg.Mechanism,
			Tier:      agg.Tier,
			Rounds:    agg.Rounds,
		}
		if err := conn.WriteJSON(msg); err != nil {
			s.log.WithError(err).Warn("Ranking stream client went away")
			return
		}
	}

	final := streamMessage{
		Type:       "ranking",
		Mechanisms: aggregates,
	}
	if err := conn.WriteJSON(final); err != nil {
		s.log.WithError(err).Warn("Failed to write final ranking frame")
	}
}

func (s *Server) writeStreamError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(streamMessage{Type: "error", Error: message}); err != nil {
		s.log.WithError(err).Warn("Failed to write stream error frame")
	}
}
