package rag

import (
	"context"
	"errors"
	"fmt"
)

// DefaultTopK is the number of passages retrieved when the caller passes 0.
const DefaultTopK = 3

// Retriever turns a question into context passages using an Index.
type Retriever struct {
	// index answers nearest-neighbour queries.
	index *Index

	// defaultTopK is the number of results to return when the caller passes 0.
	defaultTopK int

	// minScore, when set, drops hits scoring below it.
	minScore *float32
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithMinScore drops hits whose similarity is below floor.
func WithMinScore(floor float32) RetrieverOption {
	return func(r *Retriever) { r.minScore = &floor }
}

// NewRetriever constructs a Retriever over index. defaultTopK sets the
// fallback result count when Retrieve is called with topK=0.
func NewRetriever(index *Index, defaultTopK int, opts ...RetrieverOption) (*Retriever, error) {
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	r := &Retriever{index: index, defaultTopK: defaultTopK}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve returns the text of the top-k passages for query, most similar
// first. An empty index, or no hit clearing the similarity floor, yields an
// empty non-nil slice.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	hits, err := r.RetrieveHits(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	passages := make([]string, 0, len(hits))
	for _, h := range hits {
		passages = append(passages, h.Text)
	}
	return passages, nil
}

// RetrieveHits is Retrieve without the projection to text.
func (r *Retriever) RetrieveHits(ctx context.Context, query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}
	hits, err := r.index.Query(ctx, query, topK)
	if errors.Is(err, ErrEmptyIndex) {
		return []Hit{}, nil
	}
	if err != nil {
		return nil, err
	}
	if r.minScore == nil {
		return hits, nil
	}
	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= *r.minScore {
			kept = append(kept, h)
		}
	}
	return kept, nil
}
