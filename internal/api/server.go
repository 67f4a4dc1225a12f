package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"style-shopper/internal/monitoring"
	"style-shopper/internal/pipeline"
	"style-shopper/internal/types"
)

// Server holds the dependencies for the HTTP server
type Server struct {
	config     *types.Config
	logger     types.Logger
	metrics    *monitoring.Metrics
	pipeline   *pipeline.Pipeline
	router     http.Handler
	httpServer *http.Server
}

// NewServer creates a server over p. metrics may be nil.
func NewServer(config *types.Config, logger types.Logger, metrics *monitoring.Metrics, p *pipeline.Pipeline) *Server {
	s := &Server{
		config:   config,
		logger:   logger,
		metrics:  metrics,
		pipeline: p,
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port until Shutdown
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// Matching a full listing is a long request
		WriteTimeout: requestTimeout + 10*time.Second,
	}

	s.logger.Infof("Starting API server on port %s", s.config.ServerPort)
	s.logger.Info("Available endpoints:")
	s.logger.Info("  GET  /api/health           - Health check")
	s.logger.Info("  GET  /api/products         - Latest scraped products")
	s.logger.Info("  GET  /api/recommendations  - Latest recommendations")
	s.logger.Info("  GET  /api/profile          - Current style profile")
	s.logger.Info("  POST /api/analyze-style    - Build a style profile from uploaded images")
	s.logger.Info("  POST /api/find-matches     - Score products against the style profile")
	s.logger.Info("  GET  /feed                 - HTML feed of recommendations")
	s.logger.Info("  GET  /metrics              - Prometheus metrics")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
