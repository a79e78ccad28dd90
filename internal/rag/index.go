package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/54b3r/kassist-go/internal/chunking"
)

const (
	// DefaultBatchSize is the number of chunks sent per Embed call.
	DefaultBatchSize = 32

	// DefaultWorkers is the number of Embed calls in flight during Build.
	DefaultWorkers = 4
)

// IndexConfig configures an Index.
type IndexConfig struct {
	// Model is the embedding model identifier recorded with the index and
	// checked on Open.
	Model string

	// Dimensions, when non-zero, is the required vector length. Zero accepts
	// whatever length the embedder returns, as long as it is consistent.
	Dimensions int

	// BatchSize is the number of chunks per Embed call (default 32).
	BatchSize int

	// Workers bounds concurrent Embed calls during Build (default 4).
	Workers int

	// EmbedRate, when positive, caps Embed calls per second during Build.
	EmbedRate float64
}

// Index is the vector index over document chunks. Build populates it once;
// afterwards it is read-only and Query may be called from any goroutine.
type Index struct {
	embedder Embedder
	store    VectorStore
	cfg      *IndexConfig
	limiter  *rate.Limiter

	// buildMu makes Build exclusive.
	buildMu sync.Mutex

	ready atomic.Bool
	dim   atomic.Int64
}

// NewIndex constructs an Index over store using embedder.
func NewIndex(embedder Embedder, store VectorStore, cfg *IndexConfig) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if cfg == nil {
		cfg = &IndexConfig{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Dimensions < 0 {
		return nil, fmt.Errorf("rag: dimensions must not be negative")
	}

	idx := &Index{embedder: embedder, store: store, cfg: cfg}
	if cfg.EmbedRate > 0 {
		idx.limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRate), 1)
	}
	return idx, nil
}

// Open attaches to an index previously written by Build. It returns
// ErrEmptyIndex when the store holds nothing, and ErrIndexIncompatible when
// the stored model or dimension differs from the configuration.
func (x *Index) Open(ctx context.Context) error {
	st, err := x.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("rag: open index: %w", err)
	}
	if st.Count == 0 {
		return ErrEmptyIndex
	}
	if x.cfg.Model != "" && st.Model != x.cfg.Model {
		return fmt.Errorf("%w: index built with model %q, configured model is %q",
			ErrIndexIncompatible, st.Model, x.cfg.Model)
	}
	if x.cfg.Dimensions > 0 && st.Dimension != x.cfg.Dimensions {
		return fmt.Errorf("%w: index dimension %d, configured dimension %d",
			ErrIndexIncompatible, st.Dimension, x.cfg.Dimensions)
	}

	x.dim.Store(int64(st.Dimension))
	x.ready.Store(true)
	return nil
}

// Build embeds chunks and replaces the store's contents with them, in chunk
// order. Embedding runs in batches on a bounded worker pool. The new table is
// staged in the store and swapped in by Flush, so a failure at any step
// leaves the previous contents serving queries.
func (x *Index) Build(ctx context.Context, chunks []chunking.Chunk) error {
	x.buildMu.Lock()
	defer x.buildMu.Unlock()

	if len(chunks) == 0 {
		return fmt.Errorf("rag: build: no chunks: %w", ErrEmptyIndex)
	}

	vectors, err := x.embedAll(ctx, chunks)
	if err != nil {
		return err
	}

	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: embedder returned zero-length vectors", ErrIndexIncompatible)
	}
	if x.cfg.Dimensions > 0 && dim != x.cfg.Dimensions {
		return fmt.Errorf("%w: embedder returned dimension %d, configured dimension %d",
			ErrIndexIncompatible, dim, x.cfg.Dimensions)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: chunk %d has dimension %d, expected %d",
				ErrIndexIncompatible, i, len(v), dim)
		}
	}

	if err := x.store.Reset(ctx, Info{Model: x.cfg.Model, Dimension: dim}); err != nil {
		return x.abort(ctx, fmt.Errorf("rag: build: reset store: %w", err))
	}

	for start := 0; start < len(chunks); start += x.cfg.BatchSize {
		end := min(start+x.cfg.BatchSize, len(chunks))
		entries := make([]Entry, 0, end-start)
		for i := start; i < end; i++ {
			c := chunks[i]
			entries = append(entries, Entry{
				Seq:      i,
				ID:       c.ID,
				Source:   c.Source,
				Text:     c.Text,
				Metadata: c.Metadata,
				Vector:   vectors[i],
			})
		}
		if err := x.store.Upsert(ctx, entries); err != nil {
			return x.abort(ctx, fmt.Errorf("rag: build: upsert: %w", err))
		}
	}

	if err := x.store.Flush(ctx); err != nil {
		return x.abort(ctx, fmt.Errorf("rag: build: flush: %w", err))
	}

	x.dim.Store(int64(dim))
	x.ready.Store(true)
	return nil
}

// abort drops the staged table after a failed build and returns err.
func (x *Index) abort(ctx context.Context, err error) error {
	if derr := x.store.Discard(context.WithoutCancel(ctx)); derr != nil {
		return errors.Join(err, fmt.Errorf("rag: build: discard staged table: %w", derr))
	}
	return err
}

// embedAll embeds chunk texts batch by batch, returning vectors parallel to chunks.
func (x *Index) embedAll(ctx context.Context, chunks []chunking.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.cfg.Workers)
	for start := 0; start < len(chunks); start += x.cfg.BatchSize {
		end := min(start+x.cfg.BatchSize, len(chunks))
		g.Go(func() error {
			if x.limiter != nil {
				if err := x.limiter.Wait(gctx); err != nil {
					return fmt.Errorf("rag: build: embed rate limit: %w", err)
				}
			}
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Text)
			}
			out, err := x.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("rag: build: embed chunks %d-%d: %w", start, end-1, err)
			}
			if len(out) != len(texts) {
				return fmt.Errorf("rag: build: embedder returned %d vectors for %d chunks", len(out), len(texts))
			}
			copy(vectors[start:end], out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Ready reports whether the index has been built or opened with entries.
func (x *Index) Ready() bool { return x.ready.Load() }

// Dimension returns the vector length of the built or opened index.
func (x *Index) Dimension() int { return int(x.dim.Load()) }

// Query returns up to k hits for text ordered by decreasing similarity, ties
// by insertion order.
func (x *Index) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if !x.ready.Load() {
		return nil, ErrEmptyIndex
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	vecs, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}
	if dim := x.Dimension(); len(vecs[0]) != dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d",
			ErrIndexIncompatible, len(vecs[0]), dim)
	}

	hits, err := x.store.Search(ctx, vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}
	if len(hits) == 0 {
		return nil, ErrEmptyIndex
	}
	return hits, nil
}
