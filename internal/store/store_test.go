package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestQueryLog_AppendAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	recs := []QueryRecord{
		{Query: "calculate 2+2", Route: "Calculator", Path: "Calculator", Answer: "4", Duration: 3 * time.Millisecond},
		{Query: "what is the refund window?", Route: "RAG", Path: "RAG", Answer: "30 days", ContextCount: 3},
	}
	for _, r := range recs {
		if err := s.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 records, got %d", len(got))
	}
	if got[0].Query != "calculate 2+2" || got[0].Answer != "4" || got[0].Duration != 3*time.Millisecond {
		t.Errorf("record[0] = %+v", got[0])
	}
	if got[1].Path != "RAG" || got[1].ContextCount != 3 {
		t.Errorf("record[1] = %+v", got[1])
	}
}

func TestQueryLog_RecentLimitRespected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for i := range 6 {
		rec := QueryRecord{Query: "q", Route: "RAG", Path: "RAG", Answer: string(rune('a' + i))}
		if err := s.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Recent(ctx, 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("want 4 records, got %d", len(got))
	}
	// Oldest-first within the newest four: c, d, e, f.
	if got[0].Answer != "c" || got[3].Answer != "f" {
		t.Errorf("want answers c..f, got %q..%q", got[0].Answer, got[3].Answer)
	}
}

func TestQueryLog_RecentZero(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	got, err := s.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", got)
	}
}

func TestIndex_LoadWithoutSave(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	_, _, err := s.LoadIndex(context.Background())
	if !errors.Is(err, ErrNoIndex) {
		t.Errorf("want ErrNoIndex, got %v", err)
	}
}

func TestIndex_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	meta := IndexMeta{Model: "nomic-embed-text", Dimension: 3, Distance: "cosine"}
	records := []IndexRecord{
		{Seq: 0, ChunkID: "id-0", Source: "a.txt", Content: "alpha", Metadata: map[string]string{"chunk_index": "0"}, Vector: []float32{1, 0, -0.5}},
		{Seq: 1, ChunkID: "id-1", Source: "a.txt", Content: "beta", Metadata: map[string]string{"chunk_index": "1"}, Vector: []float32{0.25, 2, 3}},
	}
	if err := s.SaveIndex(ctx, meta, records); err != nil {
		t.Fatalf("save: %v", err)
	}

	gotMeta, got, err := s.LoadIndex(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotMeta.Model != meta.Model || gotMeta.Dimension != 3 || gotMeta.Distance != "cosine" {
		t.Errorf("meta = %+v", gotMeta)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 records, got %d", len(got))
	}
	for i := range records {
		if got[i].ChunkID != records[i].ChunkID || got[i].Content != records[i].Content {
			t.Errorf("record %d = %+v", i, got[i])
		}
		if got[i].Metadata["chunk_index"] != records[i].Metadata["chunk_index"] {
			t.Errorf("record %d metadata = %v", i, got[i].Metadata)
		}
		for j, v := range records[i].Vector {
			if got[i].Vector[j] != v {
				t.Errorf("record %d vector[%d] = %v, want %v", i, j, got[i].Vector[j], v)
			}
		}
	}
}

func TestIndex_SaveReplaces(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	first := []IndexRecord{{Seq: 0, ChunkID: "old", Vector: []float32{1}}, {Seq: 1, ChunkID: "old2", Vector: []float32{2}}}
	if err := s.SaveIndex(ctx, IndexMeta{Model: "m1", Dimension: 1, Distance: "cosine"}, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	second := []IndexRecord{{Seq: 0, ChunkID: "new", Vector: []float32{1, 2}}}
	if err := s.SaveIndex(ctx, IndexMeta{Model: "m2", Dimension: 2, Distance: "l2"}, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	meta, got, err := s.LoadIndex(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.Model != "m2" || len(got) != 1 || got[0].ChunkID != "new" {
		t.Errorf("want only the second index, got meta=%+v records=%+v", meta, got)
	}
}

func TestOpen_CreatesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "kassist.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
