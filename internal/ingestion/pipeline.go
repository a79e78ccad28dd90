// Package ingestion implements the document ingestion pipeline.
// It loads local text files and fetched web pages, chunks the content, and
// builds the vector index from the chunks. This pipeline is invoked by the
// `kassist ingest` CLI command and by `ask`/`serve` when the index is empty.
package ingestion

import (
	"context"
	"fmt"

	"github.com/54b3r/kassist-go/internal/chunking"
)

// Builder replaces the index contents with chunks. *rag.Index satisfies it.
type Builder interface {
	Build(ctx context.Context, chunks []chunking.Chunk) error
}

// Sources selects what to ingest. Dir and URLs may both be set.
type Sources struct {
	// Dir is the local directory to load documents from.
	Dir string

	// Glob selects files under Dir. Defaults to DefaultGlob.
	Glob string

	// URLs are web pages to fetch.
	URLs []string
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to chunking.DefaultSize if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	// Defaults to chunking.DefaultOverlap when ChunkSize is also zero.
	ChunkOverlap int

	// Fetcher downloads URL sources. Defaults to NewFetcher(0).
	Fetcher *Fetcher
}

// Report summarises a completed ingestion run.
type Report struct {
	Documents int
	Chunks    int
}

// Pipeline orchestrates the load → chunk → build flow.
type Pipeline struct {
	// builder embeds and stores the chunks.
	builder Builder

	// splitter cuts documents into overlapping chunks.
	splitter *chunking.Splitter

	// fetcher retrieves web pages.
	fetcher *Fetcher
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(builder Builder, cfg *Config) (*Pipeline, error) {
	if builder == nil {
		return nil, fmt.Errorf("ingestion: builder must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	size, overlap := cfg.ChunkSize, cfg.ChunkOverlap
	if size == 0 {
		size = chunking.DefaultSize
		if overlap == 0 {
			overlap = chunking.DefaultOverlap
		}
	}
	splitter, err := chunking.NewSplitter(size, overlap)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher(0)
	}
	return &Pipeline{builder: builder, splitter: splitter, fetcher: fetcher}, nil
}

// Ingest loads every source, chunks the documents, and rebuilds the index.
// Any load, fetch or build failure aborts the run and leaves the existing
// index untouched. Progress is reported via the optional progress callback.
func (p *Pipeline) Ingest(ctx context.Context, src Sources, progress func(msg string)) (Report, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if src.Dir == "" && len(src.URLs) == 0 {
		return Report{}, fmt.Errorf("ingestion: no sources given")
	}

	var docs []chunking.Document
	if src.Dir != "" {
		progress(fmt.Sprintf("loading %s (%s)", src.Dir, globOrDefault(src.Glob)))
		loaded, err := LoadDir(ctx, src.Dir, src.Glob, func(path, reason string) {
			progress(fmt.Sprintf("skipping %s: %s", path, reason))
		})
		if err != nil {
			return Report{}, err
		}
		progress(fmt.Sprintf("loaded %d documents from %s", len(loaded), src.Dir))
		docs = append(docs, loaded...)
	}
	for _, u := range src.URLs {
		progress(fmt.Sprintf("fetching %s", u))
		doc, err := p.fetcher.Fetch(ctx, u)
		if err != nil {
			return Report{}, fmt.Errorf("ingestion: fetch failed for %s: %w", u, err)
		}
		docs = append(docs, doc)
	}

	chunks := p.splitter.Split(docs)
	progress(fmt.Sprintf("chunked %d documents into %d chunks", len(docs), len(chunks)))

	if err := p.builder.Build(ctx, chunks); err != nil {
		return Report{}, fmt.Errorf("ingestion: build index: %w", err)
	}
	progress(fmt.Sprintf("indexed %d chunks", len(chunks)))
	return Report{Documents: len(docs), Chunks: len(chunks)}, nil
}

func globOrDefault(g string) string {
	if g == "" {
		return DefaultGlob
	}
	return g
}
