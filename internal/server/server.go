// Package server implements the HTTP server that exposes the query
// orchestrator, the deterministic tools and the query log as a JSON API.
// The server is started by the `kassist serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/kassist-go/internal/logging"
	"github.com/54b3r/kassist-go/internal/store"
)

const (
	// maxBodyBytes caps request bodies on every JSON endpoint.
	maxBodyBytes = 64 << 10
	// defaultHistoryLimit is used when GET /api/history has no limit.
	defaultHistoryLimit = 20
	// maxHistoryLimit caps the limit query parameter.
	maxHistoryLimit = 500
)

// New constructs a Server from the provided orchestrator and config.
func New(proc processor, cfg *Config) (*Server, error) {
	if proc == nil {
		return nil, fmt.Errorf("server: processor must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 90 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.QueryTimeout + 30*time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		processor: proc,
		tools:     cfg.Tools,
		history:   cfg.History,
		cfg:       cfg,
		log:       log,
		pingers:   cfg.Pingers,
		index:     cfg.Index,
		metrics:   newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stop

	if cfg.APIKey == "" {
		log.Warn("server: API key not configured, authentication is disabled")
	}

	// protected wraps a handler with auth and then the per-IP rate limit.
	protected := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(cfg.APIKey, rl.middleware(h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/query", protected(s.handleQuery))
	mux.Handle("POST /api/tools/{name}", protected(s.handleTool))
	mux.Handle("GET /api/history", authMiddleware(cfg.APIKey, http.HandlerFunc(s.handleHistory)))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, s.metrics.instrument(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the fully wrapped root handler. Used by tests and by
// callers that manage their own listener.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.log.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleQuery handles POST /api/query. The orchestrator never fails, so
// every well-formed request gets a 200 with the answer, path and context.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, http.StatusBadRequest, "query is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	res := s.processor.Process(ctx, req.Query)
	s.metrics.observeQuery(string(res.Path), time.Since(start))

	writeJSON(w, r, http.StatusOK, res)
}

// handleTool handles POST /api/tools/{name}. The body is passed verbatim as
// the tool's JSON arguments.
func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if s.tools == nil {
		writeError(w, r, http.StatusNotFound, "tools are not enabled")
		return
	}
	t, ok := s.tools.Get(name)
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("unknown tool %q", name))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := t.InvokableRun(r.Context(), string(body))
	if err != nil {
		s.metrics.toolInvocationsTotal.WithLabelValues(name, "invalid").Inc()
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.metrics.toolInvocationsTotal.WithLabelValues(name, "ok").Inc()
	writeJSON(w, r, http.StatusOK, toolResponse{Tool: name, Result: out})
}

// handleHistory handles GET /api/history?limit=n.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, r, http.StatusNotFound, "query history is disabled")
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	recs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("history read failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "could not read query history")
		return
	}
	writeJSON(w, r, http.StatusOK, historyEntries(recs))
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func historyEntries(recs []store.QueryRecord) []historyEntry {
	out := make([]historyEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, historyEntry{
			Query:        rec.Query,
			Route:        rec.Route,
			Path:         rec.Path,
			Answer:       rec.Answer,
			ContextCount: rec.ContextCount,
			DurationMS:   rec.Duration.Milliseconds(),
			CreatedAt:    rec.CreatedAt,
		})
	}
	return out
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// writeJSON encodes v with the given status. Encode failures are logged only;
// the status line has already been sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("response encode error", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}
