package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/54b3r/kassist-go/internal/chunking"
	"github.com/54b3r/kassist-go/internal/store"
)

func chunksOf(texts ...string) []chunking.Chunk {
	out := make([]chunking.Chunk, len(texts))
	for i, t := range texts {
		out[i] = chunking.Chunk{
			ID:       chunking.ChunkID("test.txt", i),
			Source:   "test.txt",
			Index:    i,
			Text:     t,
			Metadata: map[string]string{"chunk_index": string(rune('0' + i))},
		}
	}
	return out
}

func newTestIndex(t *testing.T, emb Embedder, persister IndexPersister, cfg *IndexConfig) *Index {
	t.Helper()
	ls, err := NewLocalStore(context.Background(), persister, DistanceCosine)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	idx, err := NewIndex(emb, ls, cfg)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func TestIndex_QueryBeforeBuild(t *testing.T) {
	t.Parallel()
	idx := newTestIndex(t, newWordEmbedder("refund"), nil, nil)
	_, err := idx.Query(context.Background(), "refund", 3)
	if !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("want ErrEmptyIndex, got %v", err)
	}
	if idx.Ready() || idx.Dimension() != 0 {
		t.Errorf("unbuilt index reports ready=%v dimension=%d", idx.Ready(), idx.Dimension())
	}
}

func TestIndex_BuildNoChunks(t *testing.T) {
	t.Parallel()
	idx := newTestIndex(t, newWordEmbedder("refund"), nil, nil)
	if err := idx.Build(context.Background(), nil); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("want ErrEmptyIndex, got %v", err)
	}
}

func TestIndex_QueryRanking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	emb := newWordEmbedder("refund", "shipping", "warranty")
	idx := newTestIndex(t, emb, nil, &IndexConfig{Model: "words", BatchSize: 1, Workers: 4})

	chunks := chunksOf(
		"Shipping takes five days.",
		"Refund requests are accepted within 30 days. Refund is issued to the card.",
		"Warranty covers defects.",
		"A refund needs a receipt.",
	)
	if err := idx.Build(ctx, chunks); err != nil {
		t.Fatalf("Build: %v", err)
	}

	hits, err := idx.Query(ctx, "how do I get a refund?", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("want 2 hits, got %d", len(hits))
	}
	for _, h := range hits {
		if h.Seq != 1 && h.Seq != 3 {
			t.Errorf("unexpected hit seq %d (%q)", h.Seq, h.Text)
		}
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("hits not ordered by score: %v then %v", hits[0].Score, hits[1].Score)
	}
	if hits[0].Metadata["chunk_index"] == "" {
		t.Error("hit metadata not carried through")
	}
}

func TestIndex_TiesBrokenByInsertionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := newTestIndex(t, newWordEmbedder("refund"), nil, &IndexConfig{BatchSize: 2, Workers: 3})

	chunks := chunksOf("refund policy", "refund policy", "refund policy", "refund policy", "refund policy")
	if err := idx.Build(ctx, chunks); err != nil {
		t.Fatalf("Build: %v", err)
	}
	hits, err := idx.Query(ctx, "refund", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for i, h := range hits {
		if h.Seq != i {
			t.Errorf("hit %d has seq %d, want %d", i, h.Seq, i)
		}
	}
}

func TestIndex_QueryKLargerThanIndex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := newTestIndex(t, newWordEmbedder("refund"), nil, nil)
	if err := idx.Build(ctx, chunksOf("refund", "other")); err != nil {
		t.Fatalf("Build: %v", err)
	}
	hits, err := idx.Query(ctx, "refund", 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("want 2 hits, got %d", len(hits))
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	idx := newTestIndex(t, newWordEmbedder("a", "b"), nil, &IndexConfig{Dimensions: 8})
	if err := idx.Build(ctx, chunksOf("a b")); !errors.Is(err, ErrIndexIncompatible) {
		t.Errorf("Build with wrong dimension: want ErrIndexIncompatible, got %v", err)
	}

	emb := newWordEmbedder("a", "b")
	idx = newTestIndex(t, emb, nil, nil)
	if err := idx.Build(ctx, chunksOf("a b")); err != nil {
		t.Fatalf("Build: %v", err)
	}
	emb.dimOverride = 5
	if _, err := idx.Query(ctx, "a", 1); !errors.Is(err, ErrIndexIncompatible) {
		t.Errorf("Query with wrong dimension: want ErrIndexIncompatible, got %v", err)
	}
}

func TestIndex_EmbedFailureKeepsPreviousContents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	emb := newWordEmbedder("refund")
	idx := newTestIndex(t, emb, nil, &IndexConfig{BatchSize: 1})
	if err := idx.Build(ctx, chunksOf("refund one")); err != nil {
		t.Fatalf("Build: %v", err)
	}

	emb.failOn = "poison"
	err := idx.Build(ctx, chunksOf("refund two", "poison"))
	if !errors.Is(err, errEmbedFailed) {
		t.Fatalf("want embed failure, got %v", err)
	}

	emb.failOn = ""
	hits, err := idx.Query(ctx, "refund", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "refund one" {
		t.Errorf("want original single entry, got %+v", hits)
	}
}

// flakyPersister keeps the last saved index in memory and fails SaveIndex
// while err is set.
type flakyPersister struct {
	err     error
	meta    store.IndexMeta
	records []store.IndexRecord
}

func (p *flakyPersister) SaveIndex(_ context.Context, meta store.IndexMeta, records []store.IndexRecord) error {
	if p.err != nil {
		return p.err
	}
	p.meta, p.records = meta, records
	return nil
}

func (p *flakyPersister) LoadIndex(context.Context) (store.IndexMeta, []store.IndexRecord, error) {
	if p.records == nil {
		return store.IndexMeta{}, nil, store.ErrNoIndex
	}
	return p.meta, p.records, nil
}

func TestIndex_PersistFailureKeepsPreviousContents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	persister := &flakyPersister{}
	idx := newTestIndex(t, newWordEmbedder("refund", "shipping"), persister, &IndexConfig{Model: "words"})
	if err := idx.Build(ctx, chunksOf("Refund policy: 30 days.")); err != nil {
		t.Fatalf("Build: %v", err)
	}

	errDiskFull := errors.New("disk full")
	persister.err = errDiskFull
	err := idx.Build(ctx, chunksOf("Shipping is free.", "Shipping takes a week."))
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("want persist failure, got %v", err)
	}
	if !idx.Ready() {
		t.Fatal("index must stay ready after a failed rebuild")
	}

	hits, err := idx.Query(ctx, "refund", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "Refund policy: 30 days." {
		t.Errorf("want previous single entry, got %+v", hits)
	}
	if len(persister.records) != 1 || persister.records[0].Content != "Refund policy: 30 days." {
		t.Errorf("persisted copy changed: %+v", persister.records)
	}

	// The next successful build replaces the contents.
	persister.err = nil
	if err := idx.Build(ctx, chunksOf("Shipping is free.", "Shipping takes a week.")); err != nil {
		t.Fatalf("Build after recovery: %v", err)
	}
	hits, err = idx.Query(ctx, "shipping", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 2 || len(persister.records) != 2 {
		t.Errorf("want 2 entries after rebuild, got %d hits, %d persisted", len(hits), len(persister.records))
	}
}

func TestIndex_PersistRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	emb := newWordEmbedder("refund", "shipping", "warranty")
	cfg := &IndexConfig{Model: "words"}
	built := newTestIndex(t, emb, db, cfg)
	chunks := chunksOf("Shipping is free.", "Refunds within 30 days.", "Warranty is one year.", "Refund to card.")
	if err := built.Build(ctx, chunks); err != nil {
		t.Fatalf("Build: %v", err)
	}

	reopened := newTestIndex(t, emb, db, &IndexConfig{Model: "words"})
	if err := reopened.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, q := range []string{"refund", "shipping cost", "warranty length"} {
		want, err := built.Query(ctx, q, 3)
		if err != nil {
			t.Fatalf("built.Query(%q): %v", q, err)
		}
		got, err := reopened.Query(ctx, q, 3)
		if err != nil {
			t.Fatalf("reopened.Query(%q): %v", q, err)
		}
		if len(got) != len(want) {
			t.Fatalf("query %q: got %d hits, want %d", q, len(got), len(want))
		}
		for i := range want {
			if got[i].ID != want[i].ID || got[i].Score != want[i].Score {
				t.Errorf("query %q hit %d: got %s/%v, want %s/%v", q, i, got[i].ID, got[i].Score, want[i].ID, want[i].Score)
			}
		}
	}
}

func TestIndex_OpenIncompatibleModel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	emb := newWordEmbedder("refund")
	built := newTestIndex(t, emb, db, &IndexConfig{Model: "model-a"})
	if err := built.Build(ctx, chunksOf("refund")); err != nil {
		t.Fatalf("Build: %v", err)
	}

	other := newTestIndex(t, emb, db, &IndexConfig{Model: "model-b"})
	if err := other.Open(ctx); !errors.Is(err, ErrIndexIncompatible) {
		t.Errorf("want ErrIndexIncompatible for model change, got %v", err)
	}

	wrongDim := newTestIndex(t, emb, db, &IndexConfig{Model: "model-a", Dimensions: 99})
	if err := wrongDim.Open(ctx); !errors.Is(err, ErrIndexIncompatible) {
		t.Errorf("want ErrIndexIncompatible for dimension change, got %v", err)
	}
}

func TestIndex_OpenEmpty(t *testing.T) {
	t.Parallel()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	idx := newTestIndex(t, newWordEmbedder("x"), db, nil)
	if err := idx.Open(context.Background()); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("want ErrEmptyIndex, got %v", err)
	}
}

func TestRetriever(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	emb := newWordEmbedder("refund", "shipping")

	empty := newTestIndex(t, emb, nil, nil)
	r, err := NewRetriever(empty, 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	got, err := r.Retrieve(ctx, "refund", 3)
	if err != nil {
		t.Fatalf("Retrieve on empty index: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", got)
	}

	idx := newTestIndex(t, emb, nil, nil)
	if err := idx.Build(ctx, chunksOf("refund policy", "shipping policy", "refund refund")); err != nil {
		t.Fatalf("Build: %v", err)
	}
	r, _ = NewRetriever(idx, 2)
	got, err = r.Retrieve(ctx, "refund", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want default top-k of 2, got %d", len(got))
	}

	strict, _ := NewRetriever(idx, 3, WithMinScore(1.5))
	got, err = strict.Retrieve(ctx, "refund", 3)
	if err != nil {
		t.Fatalf("Retrieve with floor: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("want no passages above an impossible floor, got %v", got)
	}
}

func TestNewIndex_NilDeps(t *testing.T) {
	t.Parallel()
	if _, err := NewIndex(nil, &LocalStore{}, nil); err == nil {
		t.Error("want error for nil embedder")
	}
	if _, err := NewIndex(newWordEmbedder(), nil, nil); err == nil {
		t.Error("want error for nil store")
	}
}
