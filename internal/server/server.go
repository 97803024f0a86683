// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server provides the HTTP API for the affiliation pipeline.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/acquire"
	"github.com/pdiddy/affiliation-engine/internal/httputil"
	"github.com/pdiddy/affiliation-engine/internal/retry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// RequestTimeout returns the deadline for one pipeline run: the worst-case
// download plus the full retry budget of extraction and resolution, with a
// minute of slack. It is zero, meaning no deadline, when inference attempts
// have no timeout of their own.
func RequestTimeout(cfg types.PipelineConfig) time.Duration {
	policy := retry.Policy{Attempts: cfg.AI.Attempts, Timeout: cfg.AI.CallTimeout}
	ai := policy.Budget()
	if ai == 0 {
		return 0
	}
	fetch := httputil.Budget(cfg.Fetch.Timeout, 0) + cfg.Fetch.DownloadInterval
	return fetch + 2*ai + time.Minute
}

// Processor runs the pipeline. *pipeline.Orchestrator implements it.
type Processor interface {
	Process(ctx context.Context, raw string) (*types.ValidatedPaper, error)
	ProcessText(ctx context.Context, raw, text string) (*types.ValidatedPaper, error)
}

// CacheLister lists cached documents. *acquire.Manifest implements it.
type CacheLister interface {
	List(ctx context.Context) ([]acquire.CacheEntry, error)
}

// Server is the HTTP server for the pipeline API.
type Server struct {
	processor Processor
	cache     CacheLister
	timeout   time.Duration
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. cache may be nil,
// in which case the cache listing is not available. timeout bounds each
// request; zero disables the deadline.
func NewServer(processor Processor, cache CacheLister, timeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{processor: processor, cache: cache, timeout: timeout, logger: logger}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	r.Post("/v1/papers/{id}", s.handleProcess)
	r.Get("/v1/cache", s.handleCache)
	r.Get("/healthz", s.handleHealth)
	return r
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
