package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/middleware"
	"github.com/drug-repurposing-engine/internal/repository"
	"github.com/drug-repurposing-engine/internal/service"
)

// Server represents the HTTP server
type Server struct {
	cfg           *domain.Config
	service       *service.ScoringService
	opportunities *repository.OpportunityRepository
	consensusRepo *repository.ConsensusRepository
	log           *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. The repositories may be nil
// when persistence is disabled; the scoring endpoints still work, only the
// retrieval endpoints report the store as unavailable.
func NewServer(
	cfg *domain.Config,
	svc *service.ScoringService,
	opportunities *repository.OpportunityRepository,
	consensusRepo *repository.ConsensusRepository,
	logger *logrus.Logger,
) *Server {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(corsMiddleware())

	server := &Server{
		cfg:           cfg,
		service:       svc,
		opportunities: opportunities,
		consensusRepo: consensusRepo,
		log:           logger,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router exposes the underlying gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server and blocks until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.cfg.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	timeout := s.cfg.Server.WriteTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.RequestTimeout(timeout))
	{
		v1.POST("/score", s.handleScore)
		v1.POST("/score/batch", s.handleScoreBatch)
		v1.POST("/consensus", s.handleConsensus)
		v1.POST("/rank", s.handleRank)
		v1.GET("/opportunities/:id", s.handleGetOpportunity)
		v1.GET("/rankings/:mechanism", s.handleGetRankings)
	}

	// The websocket stream is long-lived, so it stays outside the
	// request timeout.
	s.router.GET("/api/v1/rank/stream", s.handleRankStream)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now(),
		"persistence": s.opportunities != nil,
	})
}

// errorResponse writes a standardized error body with the request's
// correlation ID attached.
func (s *Server) errorResponse(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, domain.NewEngineError(code, message, details, c.GetString("correlation_id")))
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
