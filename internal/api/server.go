// Package api serves the engine, the bond class registry and the auction
// price feed over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"debond-math/internal/engine"
	"debond-math/internal/snapshot"
	"debond-math/internal/storage"
	"debond-math/internal/verification"
)

// Options for creating Server.
type Options struct {
	Engine      *engine.Engine
	Classes     storage.BondClassStore
	Snapshots   storage.RateSnapshotStore
	Evaluations storage.EvaluationStore // optional; /v1/evaluations answers 503 without it
	Scheduler   *snapshot.Scheduler     // optional; reported on /health

	Metrics http.Handler
	Clock   func() time.Time
	Logger  zerolog.Logger

	RequestTimeout time.Duration
	RateLimit      float64 // requests per second per client
	RateBurst      int

	FeedMinInterval     time.Duration
	FeedDefaultInterval time.Duration
}

// Server routes HTTP requests to the engine and the stores.
type Server struct {
	router *mux.Router

	engine      *engine.Engine
	classes     storage.BondClassStore
	snapshots   storage.RateSnapshotStore
	evaluations storage.EvaluationStore
	verifier    *verification.Verifier
	scheduler   *snapshot.Scheduler

	clock   func() time.Time
	logger  zerolog.Logger
	limiter *clientLimiter

	requestTimeout      time.Duration
	feedMinInterval     time.Duration
	feedDefaultInterval time.Duration
}

// New creates a new Server with all routes registered.
func New(opts Options) *Server {
	s := &Server{
		router:              mux.NewRouter(),
		engine:              opts.Engine,
		classes:             opts.Classes,
		snapshots:           opts.Snapshots,
		evaluations:         opts.Evaluations,
		scheduler:           opts.Scheduler,
		clock:               opts.Clock,
		logger:              opts.Logger,
		requestTimeout:      opts.RequestTimeout,
		feedMinInterval:     opts.FeedMinInterval,
		feedDefaultInterval: opts.FeedDefaultInterval,
	}
	if s.evaluations != nil {
		s.verifier = verification.New(verification.Options{Journal: s.evaluations, Logger: s.logger})
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.requestTimeout <= 0 {
		s.requestTimeout = 10 * time.Second
	}
	if s.feedMinInterval <= 0 {
		s.feedMinInterval = time.Second
	}
	if s.feedDefaultInterval < s.feedMinInterval {
		s.feedDefaultInterval = s.feedMinInterval
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = newClientLimiter(rate.Limit(opts.RateLimit), burst, s.clock)
	}

	s.setupRoutes(opts.Metrics)
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(metrics http.Handler) {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if metrics != nil {
		s.router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	// The feed outlives any request timeout.
	s.router.Handle("/ws/auction", s.rateLimitMiddleware(http.HandlerFunc(s.handleAuctionFeed))).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Use(s.rateLimitMiddleware)
	v1.Use(s.timeoutMiddleware)
	v1.Use(jsonContentTypeMiddleware)

	v1.HandleFunc("/operations", s.handleOperations).Methods(http.MethodGet)
	v1.HandleFunc("/eval/{op}", s.handleEvaluate).Methods(http.MethodPost)
	v1.HandleFunc("/classes", s.handleListClasses).Methods(http.MethodGet)
	v1.HandleFunc("/classes/{id}", s.handleGetClass).Methods(http.MethodGet)
	v1.HandleFunc("/classes/{id}", s.handlePutClass).Methods(http.MethodPut)
	v1.HandleFunc("/classes/{id}/snapshots", s.handleClassSnapshots).Methods(http.MethodGet)
	v1.HandleFunc("/evaluations", s.handleListEvaluations).Methods(http.MethodGet)
	v1.HandleFunc("/evaluations/verify", s.handleVerifyRange).Methods(http.MethodGet)
	v1.HandleFunc("/evaluations/{id}", s.handleGetEvaluation).Methods(http.MethodGet)
	v1.HandleFunc("/evaluations/{id}/verify", s.handleVerifyEvaluation).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(handleNotFound)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}
