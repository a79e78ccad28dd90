// Package embedder constructs rag.Embedder implementations for the supported
// embedding backends: Ollama (local HTTP), OpenAI and Azure OpenAI (via
// go-openai), and Google Gemini (via the genai SDK).
package embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/54b3r/kassist-go/internal/rag"
)

// Provider names accepted in Config.Provider.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"
	defaultGeminiModel = "text-embedding-004"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
	// defaultGeminiDimensions is the output dimension of text-embedding-004.
	defaultGeminiDimensions = 768

	defaultTimeout = 60 * time.Second
)

// Config selects and configures an embedding backend.
type Config struct {
	// Provider is one of ollama, openai, azure, gemini (default: ollama).
	Provider string

	// Model is the embedding model; empty selects the provider default. For
	// Azure it is the deployment name.
	Model string

	// APIKey authenticates against openai, azure and gemini.
	APIKey string

	// Endpoint overrides the provider base URL (Ollama host, OpenAI-compatible
	// base URL, or the Azure resource endpoint).
	Endpoint string

	// APIVersion is the Azure OpenAI REST API version.
	APIVersion string

	// Dimensions requests a specific output size where the provider supports
	// it. Zero leaves the model default.
	Dimensions int

	// Timeout bounds each Embed call (default 60s).
	Timeout time.Duration
}

// ResolvedModel returns cfg.Model or the provider's default model. This is
// the identifier recorded with a built index.
func (c *Config) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.provider() {
	case ProviderOllama:
		return defaultOllamaModel
	case ProviderGemini:
		return defaultGeminiModel
	default:
		return defaultOpenAIModel
	}
}

// DefaultDimensions returns the expected vector size for the configured
// provider and model: Dimensions when set, otherwise the provider default.
func (c *Config) DefaultDimensions() int {
	if c.Dimensions > 0 {
		return c.Dimensions
	}
	switch c.provider() {
	case ProviderOllama:
		return defaultOllamaDimensions
	case ProviderGemini:
		return defaultGeminiDimensions
	default:
		return defaultOpenAIDimensions
	}
}

func (c *Config) provider() string {
	if c.Provider == "" {
		return ProviderOllama
	}
	return c.Provider
}

func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

// New constructs the rag.Embedder selected by cfg.Provider.
func New(ctx context.Context, cfg *Config) (rag.Embedder, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	switch cfg.provider() {
	case ProviderOllama:
		host := cfg.Endpoint
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:    host,
			Model:   cfg.ResolvedModel(),
			Timeout: cfg.timeout(),
		}), nil

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: openai requires an API key (embedding.api_key or OPENAI_API_KEY)")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Model:      cfg.ResolvedModel(),
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.timeout(),
		}), nil

	case ProviderAzure:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: azure requires an API key (embedding.api_key or AZURE_OPENAI_API_KEY)")
		}
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("embedder: azure requires an endpoint (embedding.endpoint or AZURE_OPENAI_ENDPOINT)")
		}
		apiVersion := cfg.APIVersion
		if apiVersion == "" {
			apiVersion = "2024-02-01"
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Model:      cfg.ResolvedModel(),
			Dimensions: cfg.Dimensions,
			Azure:      true,
			APIVersion: apiVersion,
			Timeout:    cfg.timeout(),
		}), nil

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: gemini requires an API key (embedding.api_key or GOOGLE_API_KEY)")
		}
		return NewGeminiEmbedder(ctx, &GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.ResolvedModel(),
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.timeout(),
		})

	default:
		return nil, fmt.Errorf("embedder: unknown provider %q, valid values: ollama, openai, azure, gemini", cfg.Provider)
	}
}
