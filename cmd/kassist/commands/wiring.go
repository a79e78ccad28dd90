package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/54b3r/kassist-go/internal/agent"
	"github.com/54b3r/kassist-go/internal/config"
	"github.com/54b3r/kassist-go/internal/dictionary"
	"github.com/54b3r/kassist-go/internal/embedder"
	"github.com/54b3r/kassist-go/internal/ingestion"
	"github.com/54b3r/kassist-go/internal/provider"
	"github.com/54b3r/kassist-go/internal/rag"
	"github.com/54b3r/kassist-go/internal/store"
	"github.com/54b3r/kassist-go/internal/tools"
)

// knowledgeBase is the vector index plus the backend it was opened on.
type knowledgeBase struct {
	index *rag.Index
	// qdrant is set when the backend is Qdrant, for the readiness probe.
	qdrant *rag.QdrantStore
	// close releases the vector store and its database.
	close func()
}

// openKnowledgeBase constructs the embedder and vector store selected by cfg
// and wraps them in an Index. The index is not opened or built.
func openKnowledgeBase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*knowledgeBase, error) {
	ec := cfg.EmbedderConfig()
	if err := embedder.Validate(ec, log); err != nil {
		return nil, err
	}
	emb, err := embedder.New(ctx, ec)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	kb := &knowledgeBase{close: func() {}}
	var vs rag.VectorStore
	switch cfg.Index.Backend {
	case config.BackendQdrant:
		qc := cfg.QdrantStoreConfig()
		qs, err := rag.NewQdrantStore(&qc)
		if err != nil {
			return nil, err
		}
		vs, kb.qdrant = qs, qs
		kb.close = func() { _ = qs.Close() }
		log.Info("vector store: qdrant",
			slog.String("host", qc.Host), slog.Int("port", qc.Port), slog.String("collection", qc.Collection))
	default:
		path := cfg.Index.Path
		if path == "" {
			if path, err = store.DefaultDBPath("index.db"); err != nil {
				return nil, err
			}
		}
		db, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		ls, err := rag.NewLocalStore(ctx, db, cfg.Distance())
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		vs = ls
		kb.close = func() { _ = db.Close() }
		log.Info("vector store: local", slog.String("path", path), slog.String("distance", string(cfg.Distance())))
	}

	idx, err := rag.NewIndex(emb, vs, cfg.IndexBuildConfig())
	if err != nil {
		kb.close()
		return nil, err
	}
	kb.index = idx
	return kb, nil
}

// ingest runs the ingestion pipeline into kb.
func ingest(ctx context.Context, cfg *config.Config, kb *knowledgeBase, src ingestion.Sources, log *slog.Logger) (ingestion.Report, error) {
	p, err := ingestion.NewPipeline(kb.index, &ingestion.Config{
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
	})
	if err != nil {
		return ingestion.Report{}, err
	}
	return p.Ingest(ctx, src, func(msg string) { log.Info(msg) })
}

// prepareIndex opens the persisted index. An empty index is built from
// docsDir when one is given; otherwise the assistant starts without a
// knowledge base and RAG questions report an error. An incompatible index
// is always fatal.
func prepareIndex(ctx context.Context, cfg *config.Config, kb *knowledgeBase, docsDir, glob string, log *slog.Logger) error {
	err := kb.index.Open(ctx)
	switch {
	case err == nil:
		log.Info("index opened", slog.Int("dimension", kb.index.Dimension()))
		return nil
	case errors.Is(err, rag.ErrIndexIncompatible):
		return fmt.Errorf("%w (re-run `kassist ingest` with the current embedding model)", err)
	case !errors.Is(err, rag.ErrEmptyIndex):
		return err
	}

	if docsDir == "" {
		log.Warn("index is empty; knowledge-base questions will fail until `kassist ingest` is run")
		return nil
	}
	log.Info("index is empty, building", slog.String("docs", docsDir))
	rep, err := ingest(ctx, cfg, kb, ingestion.Sources{Dir: docsDir, Glob: glob}, log)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	log.Info("index built", slog.Int("documents", rep.Documents), slog.Int("chunks", rep.Chunks))
	return nil
}

// openHistory opens the query log. Failure disables history with a warning
// rather than aborting: the log is an audit aid, not a dependency.
func openHistory(cfg *config.Config, log *slog.Logger) (store.QueryLog, func()) {
	noop := func() {}
	if !cfg.History.Enabled() {
		log.Info("history: disabled")
		return nil, noop
	}
	path := cfg.History.DBPath
	if path == "" {
		var err error
		if path, err = store.DefaultDBPath("history.db"); err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, noop
		}
	}
	db, err := store.Open(path)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil, noop
	}
	log.Info("history: store opened", slog.String("path", path))
	return db, func() { _ = db.Close() }
}

// assistant bundles what ask and serve need.
type assistant struct {
	orchestrator *agent.Orchestrator
	tools        *tools.Registry
}

// buildAssistant wires the generation model, the tools and the retriever
// into an Orchestrator.
func buildAssistant(ctx context.Context, cfg *config.Config, idx *rag.Index, history store.QueryLog, log *slog.Logger) (*assistant, error) {
	pc := cfg.ProviderConfig()
	chatModel, err := provider.New(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	gen, err := provider.NewGenerator(chatModel)
	if err != nil {
		return nil, err
	}
	log.Info("provider initialised", slog.String("provider", string(pc.Backend)), slog.String("model", pc.Model))

	var opts []rag.RetrieverOption
	if cfg.Index.MinScore != nil {
		opts = append(opts, rag.WithMinScore(*cfg.Index.MinScore))
	}
	retriever, err := rag.NewRetriever(idx, cfg.Index.TopK, opts...)
	if err != nil {
		return nil, err
	}

	calculator := &tools.Calculator{}
	dict, err := tools.NewDictionary(dictionary.New(cfg.DictionaryConfig()))
	if err != nil {
		return nil, err
	}
	registry, err := tools.NewRegistry(calculator, dict)
	if err != nil {
		return nil, err
	}

	orch, err := agent.New(&agent.Config{
		Calculator:        calculator,
		Dictionary:        dict,
		Retriever:         retriever,
		Generator:         gen,
		TopK:              cfg.Index.TopK,
		LookupTimeout:     cfg.Dictionary.Timeout,
		GenerateTimeout:   cfg.Model.Timeout,
		AllowEmptyContext: cfg.Index.AllowEmptyContext,
		MaxContextTokens:  cfg.Index.MaxContextTokens,
		QueryLog:          history,
	})
	if err != nil {
		return nil, err
	}
	return &assistant{orchestrator: orch, tools: registry}, nil
}
