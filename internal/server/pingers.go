package server

import (
	"context"
	"fmt"
	"net/http"
)

// pingFunc is any dependency exposing a context-aware Ping, such as
// *rag.QdrantStore (gRPC health check).
type pingFunc interface {
	Ping(ctx context.Context) error
}

// namedPinger adapts a pingFunc to the Pinger interface.
type namedPinger struct {
	name string
	dep  pingFunc
}

// NewPinger labels dep for readiness responses.
func NewPinger(name string, dep pingFunc) Pinger {
	return &namedPinger{name: name, dep: dep}
}

func (p *namedPinger) Name() string { return p.name }

func (p *namedPinger) Ping(ctx context.Context) error { return p.dep.Ping(ctx) }

// HTTPPinger probes an HTTP dependency such as the dictionary service or an
// Ollama daemon. Any response below 500 counts as reachable: the probe checks
// the network path, not a specific resource.
type HTTPPinger struct {
	// name identifies the dependency in readiness responses.
	name string
	// url is requested with GET.
	url string
	// client performs the probe.
	client *http.Client
}

// NewHTTPPinger constructs an HTTPPinger for url.
func NewHTTPPinger(name, url string) *HTTPPinger {
	return &HTTPPinger{name: name, url: url, client: &http.Client{}}
}

// Name returns the dependency label used in readiness responses.
func (p *HTTPPinger) Name() string { return p.name }

// Ping issues a GET against the configured URL.
func (p *HTTPPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
