package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions HTTP metrics by the matched route pattern rather
// than the raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// queryRequestsTotal counts answered /api/query requests by the path that
	// produced the answer (Calculator, Dictionary, RAG, RAGError).
	queryRequestsTotal *prometheus.CounterVec

	// queryDurationSeconds records the orchestrator latency per answer path.
	queryDurationSeconds *prometheus.HistogramVec

	// toolInvocationsTotal counts /api/tools/{name} calls by tool and outcome.
	toolInvocationsTotal *prometheus.CounterVec

	// httpRequestsTotal counts all HTTP requests handled by the mux.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg. promauto.With(reg)
// registers into the provided registry rather than the global default.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		queryRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kassist",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of answered /api/query requests, partitioned by answer path.",
		}, []string{"path"}),

		queryDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kassist",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Orchestrator latency of /api/query requests, partitioned by answer path.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"path"}),

		toolInvocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kassist",
			Subsystem: "tools",
			Name:      "invocations_total",
			Help:      "Total number of direct tool invocations, partitioned by tool and outcome.",
		}, []string{"tool", "outcome"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kassist",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kassist",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// observeQuery records one answered query.
func (m *serverMetrics) observeQuery(path string, d time.Duration) {
	m.queryRequestsTotal.WithLabelValues(path).Inc()
	m.queryDurationSeconds.WithLabelValues(path).Observe(d.Seconds())
}

// instrument records request count and latency for every request that
// reaches mux. The handler label is the ServeMux pattern, read after the mux
// has matched the request.
func (m *serverMetrics) instrument(mux http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		mux.ServeHTTP(rw, r)

		handler := r.Pattern
		if handler == "" {
			handler = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, handler, strconv.Itoa(rw.status)).Inc()
		m.httpDurationSeconds.WithLabelValues(r.Method, handler).Observe(time.Since(start).Seconds())
	})
}
