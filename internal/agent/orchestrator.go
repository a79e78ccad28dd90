// Package agent routes a natural-language query to the Calculator, the
// Dictionary, or the retrieval-augmented generation path, and turns every
// failure into a user-safe answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kassist-go/internal/budget"
	"github.com/54b3r/kassist-go/internal/logging"
	"github.com/54b3r/kassist-go/internal/rag"
	"github.com/54b3r/kassist-go/internal/store"
	"github.com/54b3r/kassist-go/internal/tools"
)

const (
	// DefaultLookupTimeout bounds a single dictionary lookup.
	DefaultLookupTimeout = 10 * time.Second
	// DefaultGenerateTimeout bounds a single generation call.
	DefaultGenerateTimeout = 60 * time.Second

	// promptTemplate is filled with the newline-joined context and the query.
	promptTemplate = "Answer based on context:\n%s\n\nQuestion: %s"

	// ragErrorMessage is the answer for every RAG-path failure.
	ragErrorMessage = "I encountered an issue trying to answer your question with my knowledge base."
)

var (
	// ErrGenerationService wraps any failure of the generation model.
	ErrGenerationService = errors.New("agent: generation service failed")
	// ErrRetrievalEmpty is reported when retrieval yields no context and
	// empty-context generation is disabled.
	ErrRetrievalEmpty = errors.New("agent: retrieval returned no context")
)

// Path records which branch produced an answer.
type Path string

const (
	PathCalculator Path = "Calculator"
	PathDictionary Path = "Dictionary"
	PathRAG        Path = "RAG"
	PathRAGError   Path = "RAGError"
)

// Result is the outcome of processing one query. Context is non-empty only
// on PathRAG and is exactly what was sent to the generator.
type Result struct {
	Answer  string   `json:"answer"`
	Path    Path     `json:"path"`
	Route   Route    `json:"route"`
	Context []string `json:"context"`
}

// Retriever returns the text of the top-k chunks for a query, best first.
// *rag.Retriever satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
}

// Generator produces an answer from a prompt in a single call.
// *provider.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds the dependencies required to construct an Orchestrator.
type Config struct {
	// Calculator evaluates arithmetic expressions.
	Calculator tools.Tool

	// Dictionary looks up term definitions.
	Dictionary tools.Tool

	// Retriever supplies context for the RAG path.
	Retriever Retriever

	// Generator answers the RAG prompt.
	Generator Generator

	// TopK is the number of chunks retrieved per query. Defaults to
	// rag.DefaultTopK if zero.
	TopK int

	// LookupTimeout bounds each dictionary lookup. Defaults to
	// DefaultLookupTimeout if zero.
	LookupTimeout time.Duration

	// GenerateTimeout bounds each generation call. Defaults to
	// DefaultGenerateTimeout if zero.
	GenerateTimeout time.Duration

	// AllowEmptyContext lets the RAG path generate with no retrieved context
	// instead of failing with ErrRetrievalEmpty.
	AllowEmptyContext bool

	// MaxContextTokens is the estimated token budget for the RAG prompt.
	// Lowest-ranked chunks are dropped to fit. Zero disables trimming.
	MaxContextTokens int

	// QueryLog optionally records every processed query.
	QueryLog store.QueryLog
}

// Orchestrator classifies queries and dispatches them. It holds no
// per-query state and is safe for concurrent use once constructed.
type Orchestrator struct {
	calculator        tools.Tool
	dictionary        tools.Tool
	retriever         Retriever
	generator         Generator
	topK              int
	lookupTimeout     time.Duration
	generateTimeout   time.Duration
	allowEmptyContext bool
	maxContextTokens  int
	queryLog          store.QueryLog
}

// New constructs an Orchestrator from cfg.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("agent: config must not be nil")
	}
	if cfg.Calculator == nil {
		return nil, fmt.Errorf("agent: Calculator must not be nil")
	}
	if cfg.Dictionary == nil {
		return nil, fmt.Errorf("agent: Dictionary must not be nil")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("agent: Retriever must not be nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("agent: Generator must not be nil")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	lookup := cfg.LookupTimeout
	if lookup <= 0 {
		lookup = DefaultLookupTimeout
	}
	generate := cfg.GenerateTimeout
	if generate <= 0 {
		generate = DefaultGenerateTimeout
	}

	return &Orchestrator{
		calculator:        cfg.Calculator,
		dictionary:        cfg.Dictionary,
		retriever:         cfg.Retriever,
		generator:         cfg.Generator,
		topK:              topK,
		lookupTimeout:     lookup,
		generateTimeout:   generate,
		allowEmptyContext: cfg.AllowEmptyContext,
		maxContextTokens:  cfg.MaxContextTokens,
		queryLog:          cfg.QueryLog,
	}, nil
}

// Process answers query. It never returns an error and never panics: every
// failure becomes the answer of the path's error branch.
func (o *Orchestrator) Process(ctx context.Context, query string) Result {
	start := time.Now()
	route := Classify(query)
	log := logging.FromContext(ctx).With(slog.String("route", string(route)))

	res := o.dispatch(ctx, log, route, query)
	res.Route = route
	if res.Context == nil {
		res.Context = []string{}
	}

	log.Info("query processed",
		slog.String("path", string(res.Path)),
		slog.Int("context_count", len(res.Context)),
		slog.Duration("duration", time.Since(start)),
	)
	o.record(ctx, log, query, res, time.Since(start))
	return res
}

// dispatch runs the branch for route and converts a panic inside it into
// that branch's failure answer.
func (o *Orchestrator) dispatch(ctx context.Context, log *slog.Logger, route Route, query string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("recovered panic while processing query", slog.Any("panic", p))
			res = failureResult(route, query)
		}
	}()

	switch route {
	case RouteCalculator:
		return o.calculate(ctx, log, query)
	case RouteDictionary:
		return o.define(ctx, log, query)
	default:
		return o.answer(ctx, log, query)
	}
}

// calculate strips the keyword and evaluates what remains.
func (o *Orchestrator) calculate(ctx context.Context, log *slog.Logger, query string) Result {
	expr := stripKeyword(query, "calculate")
	if expr == "" {
		return Result{Answer: tools.EmptyExpressionMessage, Path: PathCalculator}
	}
	out, err := o.calculator.Run(ctx, expr)
	if err != nil {
		log.Warn("calculation failed", slog.String("expression", expr), slog.Any("error", err))
		return Result{Answer: tools.FailureMessage(tools.CalculatorName, expr, err), Path: PathCalculator}
	}
	return Result{Answer: out, Path: PathCalculator}
}

// define strips the keyword, normalises the term and looks it up under the
// lookup timeout.
func (o *Orchestrator) define(ctx context.Context, log *slog.Logger, query string) Result {
	term := tools.NormalizeTerm(stripKeyword(query, "define"))
	if term == "" {
		return Result{Answer: tools.EmptyTermMessage, Path: PathDictionary}
	}

	lctx, cancel := context.WithTimeout(ctx, o.lookupTimeout)
	defer cancel()
	out, err := o.dictionary.Run(lctx, term)
	if err != nil {
		log.Warn("definition lookup failed", slog.String("term", term), slog.Any("error", err))
		return Result{Answer: tools.FailureMessage(tools.DictionaryName, term, err), Path: PathDictionary}
	}
	return Result{Answer: out, Path: PathDictionary}
}

// answer retrieves context, fits it to the token budget and generates.
func (o *Orchestrator) answer(ctx context.Context, log *slog.Logger, query string) Result {
	passages, err := o.retriever.Retrieve(ctx, query, o.topK)
	if err != nil {
		log.Error("retrieval failed", slog.Any("error", err))
		return ragFailure()
	}

	fixed := []*schema.Message{schema.UserMessage(buildPrompt("", query))}
	before := len(passages)
	passages = budget.TrimContext(fixed, passages, o.maxContextTokens)
	if dropped := before - len(passages); dropped > 0 {
		log.Warn("budget: dropped retrieved chunks to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(passages)),
			slog.Int("max_tokens", o.maxContextTokens),
		)
	}

	if len(passages) == 0 && !o.allowEmptyContext {
		log.Warn("no context for RAG answer", slog.Any("error", ErrRetrievalEmpty))
		return ragFailure()
	}

	gctx, cancel := context.WithTimeout(ctx, o.generateTimeout)
	defer cancel()
	text, err := o.generator.Generate(gctx, buildPrompt(strings.Join(passages, "\n"), query))
	if err != nil {
		log.Error("generation failed", slog.Any("error", fmt.Errorf("%w: %w", ErrGenerationService, err)))
		return ragFailure()
	}
	return Result{Answer: text, Path: PathRAG, Context: passages}
}

// record appends the query to the log. Failures are logged and ignored.
func (o *Orchestrator) record(ctx context.Context, log *slog.Logger, query string, res Result, d time.Duration) {
	if o.queryLog == nil {
		return
	}
	err := o.queryLog.Append(ctx, store.QueryRecord{
		Query:        query,
		Route:        string(res.Route),
		Path:         string(res.Path),
		Answer:       res.Answer,
		ContextCount: len(res.Context),
		Duration:     d,
	})
	if err != nil {
		log.Warn("query log: failed to persist query", slog.Any("error", err))
	}
}

func buildPrompt(contextText, query string) string {
	return fmt.Sprintf(promptTemplate, contextText, query)
}

func ragFailure() Result {
	return Result{Answer: ragErrorMessage, Path: PathRAGError, Context: []string{}}
}

// failureResult is the answer used when a branch panics.
func failureResult(route Route, query string) Result {
	switch route {
	case RouteCalculator:
		return Result{
			Answer: tools.FailureMessage(tools.CalculatorName, "", errors.New("panic")),
			Path:   PathCalculator,
		}
	case RouteDictionary:
		term := tools.NormalizeTerm(stripKeyword(query, "define"))
		return Result{
			Answer: tools.FailureMessage(tools.DictionaryName, term, errors.New("panic")),
			Path:   PathDictionary,
		}
	default:
		return ragFailure()
	}
}
