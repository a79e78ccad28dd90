package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// Payload keys written on every point.
const (
	payloadSeq      = "seq"
	payloadChunkID  = "chunk_id"
	payloadSource   = "source"
	payloadContent  = "content"
	payloadModel    = "model"
	payloadMetadata = "metadata"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use (default: kassist).
	Collection string

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Distance is the collection metric (default: cosine).
	Distance Distance
}

// QdrantStore implements VectorStore on Qdrant. The configured collection
// name is an alias: each build fills a new generation collection named
// "<collection>_<unix nanos>" and Flush repoints the alias at it in one
// atomic alias update. The embedding model identifier travels in each
// point's payload; the dimension is read back from the collection's vector
// config.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig

	// mu guards staged and stagedModel.
	mu sync.Mutex

	// staged is the generation collection being built, or "".
	staged string

	// stagedModel is written into point payloads of the staged generation.
	stagedModel string
}

// NewQdrantStore connects to Qdrant. The collection is created on Reset, so
// an empty deployment reports Count 0 until an index is built.
func NewQdrantStore(cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg == nil {
		cfg = &QdrantConfig{}
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "kassist"
	}
	if cfg.Distance == "" {
		cfg.Distance = DistanceCosine
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}
	return &QdrantStore{client: client, cfg: cfg}, nil
}

// Reset creates a fresh generation collection for vectors of
// info.Dimension, dropping any generation left staged by an earlier build.
func (s *QdrantStore) Reset(ctx context.Context, info Info) error {
	if err := s.Discard(ctx); err != nil {
		return err
	}

	distance := qdrant.Distance_Cosine
	if s.cfg.Distance == DistanceL2 {
		distance = qdrant.Distance_Euclid
	}
	name := fmt.Sprintf("%s_%d", s.cfg.Collection, time.Now().UnixNano())
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(info.Dimension),
			Distance: distance,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", name, err)
	}

	s.mu.Lock()
	s.staged, s.stagedModel = name, info.Model
	s.mu.Unlock()
	return nil
}

// Upsert writes entries into the staged generation as points keyed by their
// chunk UUID.
func (s *QdrantStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	collection, model := s.staged, s.stagedModel
	s.mu.Unlock()
	if collection == "" {
		return fmt.Errorf("qdrant: upsert without reset")
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, e := range entries {
		meta := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			meta[k] = v
		}
		payload := map[string]any{
			payloadSeq:      int64(e.Seq),
			payloadChunkID:  e.ID,
			payloadSource:   e.Source,
			payloadContent:  e.Text,
			payloadModel:    model,
			payloadMetadata: meta,
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(e.ID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %d points failed: %w", len(points), err)
	}
	return nil
}

// Flush points the collection alias at the staged generation and drops the
// generation it replaced. Upserts are issued with wait=true, so the staged
// points are already durable.
func (s *QdrantStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	staged := s.staged
	s.mu.Unlock()
	if staged == "" {
		return nil
	}

	previous, isAlias, err := s.live(ctx)
	if err != nil {
		return err
	}

	var actions []*qdrant.AliasOperations
	switch {
	case isAlias:
		actions = append(actions, qdrant.NewAliasDelete(s.cfg.Collection))
	case previous != "":
		// A plain collection holds the alias name; it has to go before the
		// alias can be created.
		if err := s.client.DeleteCollection(ctx, previous); err != nil {
			return fmt.Errorf("qdrant: failed to drop collection %q: %w", previous, err)
		}
		previous = ""
	}
	actions = append(actions, qdrant.NewAliasCreate(s.cfg.Collection, staged))
	if err := s.client.UpdateAliases(ctx, actions); err != nil {
		return fmt.Errorf("qdrant: switch alias %q to %q: %w", s.cfg.Collection, staged, err)
	}

	s.mu.Lock()
	s.staged, s.stagedModel = "", ""
	s.mu.Unlock()

	if previous != "" && previous != staged {
		_ = s.client.DeleteCollection(context.WithoutCancel(ctx), previous)
	}
	return nil
}

// Discard drops the staged generation, if any.
func (s *QdrantStore) Discard(ctx context.Context) error {
	s.mu.Lock()
	staged := s.staged
	s.staged, s.stagedModel = "", ""
	s.mu.Unlock()
	if staged == "" {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, staged); err != nil {
		return fmt.Errorf("qdrant: failed to drop staged collection %q: %w", staged, err)
	}
	return nil
}

// live resolves the collection currently serving queries. isAlias is false
// when the configured name is a plain collection or does not exist.
func (s *QdrantStore) live(ctx context.Context) (name string, isAlias bool, err error) {
	aliases, err := s.client.ListAliases(ctx)
	if err != nil {
		return "", false, fmt.Errorf("qdrant: list aliases: %w", err)
	}
	for _, a := range aliases {
		if a.GetAliasName() == s.cfg.Collection {
			return a.GetCollectionName(), true, nil
		}
	}
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return "", false, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		return "", false, nil
	}
	return s.cfg.Collection, false, nil
}

// Search queries the collection and returns hits ordered by decreasing
// similarity, ties by Seq. Euclidean distances are mapped to 1/(1+d).
func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return []Hit{}, nil
	}
	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		score := r.GetScore()
		if s.cfg.Distance == DistanceL2 {
			score = 1 / (1 + score)
		}
		hits = append(hits, Hit{Entry: entryFromPayload(r.GetPayload()), Score: score})
	}
	sortHits(hits)
	return hits, nil
}

// Stats reads the live collection's vector size, point count and the model
// recorded on an arbitrary point. A missing collection reports Count 0.
func (s *QdrantStore) Stats(ctx context.Context) (Stats, error) {
	collection, _, err := s.live(ctx)
	if err != nil {
		return Stats{}, err
	}
	if collection == "" {
		return Stats{}, nil
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return Stats{}, fmt.Errorf("qdrant: collection info: %w", err)
	}
	dim := int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())

	exact := true
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return Stats{}, fmt.Errorf("qdrant: count: %w", err)
	}

	st := Stats{Info: Info{Dimension: dim}, Count: int(count)}
	if count == 0 {
		return st, nil
	}

	var one uint32 = 1
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Limit:          &one,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return Stats{}, fmt.Errorf("qdrant: scroll: %w", err)
	}
	if len(points) > 0 {
		st.Model = points[0].GetPayload()[payloadModel].GetStringValue()
	}
	return st, nil
}

// Ping checks that the Qdrant server is reachable.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func entryFromPayload(p map[string]*qdrant.Value) Entry {
	e := Entry{
		Seq:      int(p[payloadSeq].GetIntegerValue()),
		ID:       p[payloadChunkID].GetStringValue(),
		Source:   p[payloadSource].GetStringValue(),
		Text:     p[payloadContent].GetStringValue(),
		Metadata: make(map[string]string),
	}
	for k, v := range p[payloadMetadata].GetStructValue().GetFields() {
		e.Metadata[k] = v.GetStringValue()
	}
	return e
}
