// Package server exposes the engine over HTTP.
//
// Routes are served by a chi router. Every response is JSON; failures use
// the envelope {"error": {"code", "message", "field"}} with the status
// derived from the error code. Calls that compute something (analyze,
// transform, validate, decompose, batch, report) are recorded in the
// history store, failures included.
package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Cloudhabil/phi-engine/pkg/engine"
	"github.com/Cloudhabil/phi-engine/pkg/history"
)

// Options configure a Server. Engine is required.
type Options struct {
	Engine  *engine.Engine
	History history.Store
	Logger  *slog.Logger
	// SlowRequest is the latency above which requests log at WARN.
	SlowRequest time.Duration
	// Gatherer serves /metrics when non-nil.
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// Server handles HTTP requests for one engine.
type Server struct {
	engine      *engine.Engine
	history     history.Store
	logger      *slog.Logger
	slow        time.Duration
	gatherer    prometheus.Gatherer
	metricsPath string
	upgrader    websocket.Upgrader
}

// New creates a server. A nil History records into memory.
func New(opts Options) *Server {
	s := &Server{
		engine:      opts.Engine,
		history:     opts.History,
		logger:      opts.Logger,
		slow:        opts.SlowRequest,
		gatherer:    opts.Gatherer,
		metricsPath: opts.MetricsPath,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	if s.engine == nil {
		s.engine = engine.Default()
	}
	if s.history == nil {
		s.history = history.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.slow <= 0 {
		s.slow = 100 * time.Millisecond
	}
	if s.metricsPath == "" {
		s.metricsPath = "/metrics"
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Get("/adapters", s.handleAdapters)
	r.Post("/transform", s.handleTransform)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/batch", s.handleBatch)
	r.Post("/report", s.handleReport)
	r.Post("/validate", s.handleValidate)
	r.Post("/decompose", s.handleDecompose)
	r.Post("/hierarchy", s.handleHierarchy)
	r.Get("/check", s.handleCheck)
	r.Get("/constants", s.handleConstants)
	r.Get("/constants/{name}", s.handleConstant)
	r.Get("/ladder", s.handleLadder)
	r.Get("/history", s.handleHistory)
	r.Get("/history/{id}", s.handleHistoryEntry)
	r.Get("/ws/transform", s.handleTransformStream)
	if s.gatherer != nil {
		r.Handle(s.metricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, notFound("no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorEnvelope{Error: errorBody{
			Code:    "METHOD_NOT_ALLOWED",
			Message: r.Method + " is not allowed on " + r.URL.Path,
		}})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
