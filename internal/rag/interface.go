// Package rag implements the retrieval half of the knowledge assistant: the
// vector index built from document chunks, the vector store backends behind
// it (in-process exact search persisted to SQLite, or Qdrant), and the
// retriever that turns a question into context passages.
// Callers depend on the interfaces here so the orchestrator never sees a
// specific backend.
package rag

import (
	"context"
	"errors"
)

var (
	// ErrEmptyIndex is returned when querying an index that was never built
	// or holds no entries.
	ErrEmptyIndex = errors.New("rag: index is empty")

	// ErrIndexIncompatible is returned when a persisted index was built with a
	// different embedding model or dimension, or when a query vector's
	// dimension does not match the index.
	ErrIndexIncompatible = errors.New("rag: index incompatible with embedding configuration")
)

// Entry is one stored chunk and its embedding.
type Entry struct {
	// Seq is the insertion order of the entry; ties in similarity are broken
	// by ascending Seq.
	Seq int

	// ID is the chunk identifier (a UUID string).
	ID string

	// Source is the origin file path or URL of the chunk's document.
	Source string

	// Text is the chunk content.
	Text string

	// Metadata holds chunk_index, offsets and document metadata.
	Metadata map[string]string

	// Vector is the chunk embedding.
	Vector []float32
}

// Hit is a search result.
type Hit struct {
	Entry

	// Score is the similarity to the query; higher is closer.
	Score float32
}

// Info identifies the embedding space an index was built in.
type Info struct {
	// Model is the embedding model identifier.
	Model string

	// Dimension is the vector length.
	Dimension int
}

// Stats describes the current contents of a VectorStore.
type Stats struct {
	Info

	// Count is the number of stored entries.
	Count int
}

// VectorStore is the storage and nearest-neighbour backend for an Index.
// A rebuild is staged: Reset and Upsert fill a replacement table while
// Search and Stats keep serving the current one, and Flush swaps the
// replacement in only once it is durable. Implementations must be safe for
// concurrent Search calls.
type VectorStore interface {
	// Reset starts staging an empty replacement table for vectors of info,
	// dropping any earlier staged table.
	Reset(ctx context.Context, info Info) error

	// Upsert adds a batch of entries to the staged table. Entries carry
	// their own Seq.
	Upsert(ctx context.Context, entries []Entry) error

	// Flush makes the staged table durable and then makes it the current
	// one. On error the current table is unchanged.
	Flush(ctx context.Context) error

	// Discard drops the staged table, leaving the current one in place.
	Discard(ctx context.Context) error

	// Search returns up to topK entries of the current table ordered by
	// decreasing similarity, ties by ascending Seq.
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)

	// Stats reports the current model, dimension and entry count. An empty
	// store reports Count 0.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
