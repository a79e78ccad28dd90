package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/54b3r/kassist-go/internal/store"
)

// IndexPersister saves and restores a LocalStore's contents.
// *store.SQLiteStore satisfies it.
type IndexPersister interface {
	SaveIndex(ctx context.Context, meta store.IndexMeta, records []store.IndexRecord) error
	LoadIndex(ctx context.Context) (store.IndexMeta, []store.IndexRecord, error)
}

// LocalStore is an exact nearest-neighbour VectorStore held in memory. It
// scores every entry on each Search, which is fast enough for corpora of a
// few hundred thousand chunks. Contents are made durable through an optional
// IndexPersister on Flush.
type LocalStore struct {
	mu        sync.RWMutex
	distance  Distance
	persister IndexPersister
	info      Info
	entries   []Entry

	// staged is the replacement table between Reset and Flush; nil when no
	// rebuild is in progress.
	staged *stagedTable
}

type stagedTable struct {
	info    Info
	entries []Entry
}

// NewLocalStore returns a LocalStore using distance, restoring any index
// previously saved through persister. A nil persister keeps the store
// memory-only.
func NewLocalStore(ctx context.Context, persister IndexPersister, distance Distance) (*LocalStore, error) {
	if distance == "" {
		distance = DistanceCosine
	}
	s := &LocalStore{distance: distance, persister: persister}
	if persister == nil {
		return s, nil
	}

	meta, records, err := persister.LoadIndex(ctx)
	if errors.Is(err, store.ErrNoIndex) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rag: load local index: %w", err)
	}

	s.info = Info{Model: meta.Model, Dimension: meta.Dimension}
	s.entries = make([]Entry, 0, len(records))
	for _, r := range records {
		s.entries = append(s.entries, Entry{
			Seq:      r.Seq,
			ID:       r.ChunkID,
			Source:   r.Source,
			Text:     r.Content,
			Metadata: r.Metadata,
			Vector:   r.Vector,
		})
	}
	return s, nil
}

// Reset starts a replacement table. The current entries keep serving
// searches until Flush.
func (s *LocalStore) Reset(_ context.Context, info Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = &stagedTable{info: info}
	return nil
}

// Upsert appends entries to the staged table, keeping it ordered by Seq.
func (s *LocalStore) Upsert(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged == nil {
		return fmt.Errorf("rag: upsert without reset")
	}
	dim := s.staged.info.Dimension
	for _, e := range entries {
		if dim > 0 && len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %d has dimension %d, store expects %d",
				ErrIndexIncompatible, e.Seq, len(e.Vector), dim)
		}
	}
	st := s.staged
	st.entries = append(st.entries, entries...)
	sort.SliceStable(st.entries, func(i, j int) bool { return st.entries[i].Seq < st.entries[j].Seq })
	return nil
}

// Flush persists the staged table, if there is a persister, and then
// swaps it in. A failed save leaves both the current and the staged table
// untouched.
func (s *LocalStore) Flush(ctx context.Context) error {
	s.mu.RLock()
	st := s.staged
	s.mu.RUnlock()
	if st == nil {
		return nil
	}

	if s.persister != nil {
		meta := store.IndexMeta{
			Model:     st.info.Model,
			Dimension: st.info.Dimension,
			Distance:  string(s.distance),
		}
		records := make([]store.IndexRecord, 0, len(st.entries))
		for _, e := range st.entries {
			records = append(records, store.IndexRecord{
				Seq:      e.Seq,
				ChunkID:  e.ID,
				Source:   e.Source,
				Content:  e.Text,
				Metadata: e.Metadata,
				Vector:   e.Vector,
			})
		}
		if err := s.persister.SaveIndex(ctx, meta, records); err != nil {
			return fmt.Errorf("rag: persist local index: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged == st {
		s.info, s.entries, s.staged = st.info, st.entries, nil
	}
	return nil
}

// Discard drops the staged table.
func (s *LocalStore) Discard(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = nil
	return nil
}

// Search scores every entry against vector and returns the best topK.
func (s *LocalStore) Search(_ context.Context, vector []float32, topK int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 || topK <= 0 {
		return []Hit{}, nil
	}
	if len(vector) != s.info.Dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d",
			ErrIndexIncompatible, len(vector), s.info.Dimension)
	}

	hits := make([]Hit, len(s.entries))
	for i, e := range s.entries {
		hits[i] = Hit{Entry: e, Score: s.distance.Similarity(vector, e.Vector)}
	}
	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Stats reports the current model, dimension and entry count.
func (s *LocalStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Info: s.info, Count: len(s.entries)}, nil
}

// Close is a no-op; the persister is owned by the caller.
func (s *LocalStore) Close() error { return nil }

// sortHits orders by decreasing score, then ascending Seq.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Seq < hits[j].Seq
	})
}
