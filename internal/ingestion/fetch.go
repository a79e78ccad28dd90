package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gabriel-vasile/mimetype"

	"github.com/54b3r/kassist-go/internal/chunking"
)

const (
	// defaultFetchTimeout bounds each page fetch.
	defaultFetchTimeout = 30 * time.Second
	// maxPageBytes caps how much of a page is read.
	maxPageBytes = 8 << 20
	// userAgent is sent with every fetch.
	userAgent = "kassist-go/1.0 (document ingestion)"
)

// Fetcher downloads web pages and converts HTML to Markdown text so page
// chrome does not end up in the index.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher returns a Fetcher with the given per-request timeout. Zero
// means 30s.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch retrieves rawURL and returns it as a Document whose Source is the URL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (chunking.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return chunking.Document{}, fmt.Errorf("ingestion: creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html, text/plain")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return chunking.Document{}, fmt.Errorf("ingestion: http get %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return chunking.Document{}, fmt.Errorf("ingestion: unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return chunking.Document{}, fmt.Errorf("ingestion: reading body of %s: %w", rawURL, err)
	}

	text, err := pageText(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return chunking.Document{}, fmt.Errorf("ingestion: %s: %w", rawURL, err)
	}
	if strings.TrimSpace(text) == "" {
		return chunking.Document{}, fmt.Errorf("ingestion: %s has no text content", rawURL)
	}
	return chunking.Document{
		Source:   rawURL,
		Text:     text,
		Metadata: InferMetadata(rawURL).asMap(rawURL),
	}, nil
}

// pageText converts an HTML body to Markdown and passes plain text through.
// The declared Content-Type wins; otherwise the body is sniffed.
func pageText(body []byte, contentType string) (string, error) {
	isHTML := strings.Contains(strings.ToLower(contentType), "text/html")
	if contentType == "" {
		isHTML = mimetype.Detect(body).Is("text/html")
	}
	if !isHTML {
		if !isText(mimetype.Detect(body)) {
			return "", fmt.Errorf("unsupported content type %q", contentType)
		}
		return string(body), nil
	}
	md, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("converting HTML: %w", err)
	}
	return md, nil
}
