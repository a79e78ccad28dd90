package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/54b3r/kassist-go/internal/logging"
)

// probeTimeout bounds each dependency probe. Probes run concurrently, so it
// also bounds the whole readiness check.
const probeTimeout = 5 * time.Second

// Pinger is a dependency that can report its own reachability.
// Implementations must be safe to call from multiple goroutines.
type Pinger interface {
	// Ping returns nil when the dependency is usable.
	Ping(ctx context.Context) error

	// Name is the label used in the readiness body ("qdrant", "dictionary").
	Name() string
}

// IndexState exposes the vector index to the readiness check.
// *rag.Index satisfies it.
type IndexState interface {
	Ready() bool
	Dimension() int
}

type readyCheck struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// indexStatus is the "index" object of the readiness body.
type indexStatus struct {
	Ready     bool `json:"ready"`
	Dimension int  `json:"dimension"`
}

// readyResponse is the body of GET /api/ready.
type readyResponse struct {
	Ready  bool         `json:"ready"`
	Index  *indexStatus `json:"index,omitempty"`
	Checks []readyCheck `json:"checks"`
}

// handleReady reports whether the server can answer knowledge-base queries.
// It is ready when the index (if configured) holds entries and every probe
// succeeds; otherwise it answers 503 with the same body shape.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	resp := readyResponse{Ready: true, Checks: make([]readyCheck, len(s.pingers))}
	if s.index != nil {
		resp.Index = &indexStatus{Ready: s.index.Ready(), Dimension: s.index.Dimension()}
		resp.Ready = resp.Index.Ready
	}

	var g errgroup.Group
	for i, p := range s.pingers {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
			defer cancel()
			check := readyCheck{Name: p.Name(), OK: true}
			if err := p.Ping(ctx); err != nil {
				check.OK, check.Error = false, err.Error()
				log.Warn("readiness probe failed", slog.String("dependency", p.Name()), slog.Any("error", err))
			}
			resp.Checks[i] = check
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range resp.Checks {
		resp.Ready = resp.Ready && c.OK
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, resp)
}
