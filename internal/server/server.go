package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yosoku-ai/yosoku/internal/dataset"
	"github.com/yosoku-ai/yosoku/internal/service/analysis"
	"github.com/yosoku-ai/yosoku/internal/storage"
)

// Server is the yosoku HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a
// Server. DB is optional (nil = no archive).
type ServerConfig struct {
	AnalysisSvc *analysis.Service
	Store       *dataset.Store
	DB          *storage.DB
	Logger      *slog.Logger

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MinDataPoints       int
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		AnalysisSvc: cfg.AnalysisSvc,
		Store:       cfg.Store,
		DB:          cfg.DB,
		Logger:      cfg.Logger,
		Version:     cfg.Version,
		MinPoints:   cfg.MinDataPoints,
		MaxBody:     cfg.MaxRequestBodyBytes,
	})

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/analyses", h.HandleCreateAnalysis)
	mux.HandleFunc("GET /v1/analyses/{analysis_id}", h.HandleGetAnalysis)

	// Catalog endpoints.
	mux.HandleFunc("GET /v1/entities", h.HandleEntities)
	mux.HandleFunc("GET /v1/modules", h.HandleModules)
	mux.HandleFunc("GET /v1/risk-categories", h.HandleRiskCategories)

	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
