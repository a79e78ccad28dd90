// Package dictionary looks up term definitions from the Free Dictionary API
// (https://dictionaryapi.dev). The client is a thin net/http wrapper; the
// orchestrator owns timeouts via the request context.
package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the English entries endpoint; terms are appended as a
// path segment.
const DefaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en"

// DefaultTimeout bounds a single lookup when the caller's context has no
// deadline of its own.
const DefaultTimeout = 10 * time.Second

var (
	// ErrLookupNotFound is returned when the service has no usable definition.
	ErrLookupNotFound = errors.New("dictionary: definition not found")
	// ErrLookupService is returned for transport failures and non-2xx statuses
	// other than 404.
	ErrLookupService = errors.New("dictionary: lookup service failed")
)

// ServiceError reports a non-2xx, non-404 response. It matches
// ErrLookupService under errors.Is.
type ServiceError struct {
	Status int
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("dictionary: lookup service returned HTTP %d", e.Status)
}

// Is lets errors.Is(err, ErrLookupService) match a *ServiceError.
func (e *ServiceError) Is(target error) bool {
	return target == ErrLookupService
}

// Config configures the lookup client.
type Config struct {
	// BaseURL overrides DefaultBaseURL (tests point it at httptest).
	BaseURL string
	// Timeout is the HTTP client timeout. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Client fetches definitions over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for cfg.
func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{baseURL: base, http: &http.Client{Timeout: timeout}}
}

// entry mirrors the subset of the API response the client reads.
type entry struct {
	Word     string `json:"word"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// Define returns the first definition of the first meaning of the first
// entry for term.
func (c *Client) Define(ctx context.Context, term string) (string, error) {
	if strings.TrimSpace(term) == "" {
		return "", fmt.Errorf("dictionary: empty term: %w", ErrLookupNotFound)
	}
	endpoint := c.baseURL + "/" + url.PathEscape(term)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("dictionary: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("dictionary: request %q: %w: %w", term, ErrLookupService, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("dictionary: %q: %w", term, ErrLookupNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("dictionary: %q: %w", term, &ServiceError{Status: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("dictionary: read response: %w: %w", ErrLookupService, err)
	}
	var entries []entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", fmt.Errorf("dictionary: decode response: %w: %w", ErrLookupService, err)
	}
	if len(entries) == 0 || len(entries[0].Meanings) == 0 ||
		len(entries[0].Meanings[0].Definitions) == 0 ||
		entries[0].Meanings[0].Definitions[0].Definition == "" {
		return "", fmt.Errorf("dictionary: %q: %w", term, ErrLookupNotFound)
	}
	return entries[0].Meanings[0].Definitions[0].Definition, nil
}
