package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/kassist-go/internal/agent"
	"github.com/54b3r/kassist-go/internal/store"
	"github.com/54b3r/kassist-go/internal/tools"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Must exceed QueryTimeout.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// QueryTimeout bounds a single POST /api/query. Defaults to 90s.
	QueryTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	Pingers []Pinger
	// Index, when set, is reported by GET /api/ready and must be ready for
	// the server to be ready.
	Index IndexState
	// Tools is the registry served by POST /api/tools/{name}. Optional.
	Tools *tools.Registry
	// History backs GET /api/history. Optional; the route returns 404 when nil.
	History store.QueryLog
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer is served on GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// processor answers a query. *agent.Orchestrator satisfies it; tests inject
// a fake.
type processor interface {
	Process(ctx context.Context, query string) agent.Result
}

// Server is the HTTP server that exposes the orchestrator.
type Server struct {
	// processor answers POST /api/query.
	processor processor
	// tools serves POST /api/tools/{name}; nil disables the route.
	tools *tools.Registry
	// history serves GET /api/history; nil disables the route.
	history store.QueryLog
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// index is reported by GET /api/ready; nil omits it.
	index IndexState
	// metrics holds the Prometheus collectors owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Query is the user's natural language question.
	Query string `json:"query"`
}

// toolResponse is the JSON response for POST /api/tools/{name}.
type toolResponse struct {
	// Tool is the name of the tool that ran.
	Tool string `json:"tool"`
	// Result is the tool output, or its user-safe failure message.
	Result string `json:"result"`
}

// historyEntry is one element of the GET /api/history response.
type historyEntry struct {
	Query        string    `json:"query"`
	Route        string    `json:"route"`
	Path         string    `json:"path"`
	Answer       string    `json:"answer"`
	ContextCount int       `json:"context_count"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// errorResponse is the JSON body for every 4xx/5xx produced by a handler.
type errorResponse struct {
	Error string `json:"error"`
}
