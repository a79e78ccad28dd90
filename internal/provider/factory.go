package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// New constructs a chat model from an explicit Config. It validates the
// config first so callers get a clear error at startup rather than on the
// first request.
func New(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider: config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendOllama:
		return newOllama(ctx, cfg)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAzure:
		return newAzure(ctx, cfg)
	case BackendGemini:
		return newGemini(ctx, cfg)
	case BackendArk:
		return newArk(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q", cfg.Backend)
	}
}

// ErrEmptyCompletion is returned when the model answers with no content.
var ErrEmptyCompletion = errors.New("provider: model returned an empty completion")

// Generator adapts a chat model to single-prompt text generation: one user
// message in, the assistant's content out. It makes exactly one model call
// and never retries.
type Generator struct {
	model model.BaseChatModel
}

// NewGenerator wraps m.
func NewGenerator(m model.BaseChatModel) (*Generator, error) {
	if m == nil {
		return nil, fmt.Errorf("provider: model must not be nil")
	}
	return &Generator{model: m}, nil
}

// Generate sends prompt as a single user message and returns the reply text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := g.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("provider: generate: %w", err)
	}
	if msg == nil || msg.Content == "" {
		return "", ErrEmptyCompletion
	}
	return msg.Content, nil
}
