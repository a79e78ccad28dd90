// Package config provides YAML-based configuration for kassist.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so twelve-factor deployments need no file.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. KASSIST_CONFIG environment variable
//  3. ~/.kassist/config.yaml
//  4. ./kassist.yaml
//
// The resolved *Config is passed explicitly to constructors; nothing else in
// the module reads configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/54b3r/kassist-go/internal/rag"
)

// Config is the top-level YAML configuration structure.
type Config struct {
	// Model configures the text-generation model.
	Model ModelConfig `yaml:"model"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Index configures the vector index, chunking and retrieval.
	Index IndexConfig `yaml:"index"`

	// Qdrant configures the Qdrant vector store connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Dictionary configures the definition lookup service.
	Dictionary DictionaryConfig `yaml:"dictionary"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// History configures the query log.
	History HistoryConfig `yaml:"history"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// ModelConfig holds text-generation model settings.
type ModelConfig struct {
	// Provider selects the backend: ollama, openai, azure, gemini, ark.
	Provider string `yaml:"provider"`
	// Name is the model name (or Azure deployment when Deployment is empty).
	Name string `yaml:"name"`
	// APIKey authenticates against hosted providers. Prefer env var MODEL_API_KEY.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the provider endpoint (required for Azure).
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each generation call.
	Timeout time.Duration `yaml:"timeout"`
	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature controls response randomness.
	Temperature float32 `yaml:"temperature"`
	// AzureDeployment is the Azure OpenAI deployment name.
	AzureDeployment string `yaml:"azure_deployment"`
	// AzureAPIVersion is the Azure OpenAI API version.
	AzureAPIVersion string `yaml:"azure_api_version"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (ollama, openai, azure, gemini).
	Provider string `yaml:"provider"`
	// Model is the embedding model name; empty selects the provider default.
	Model string `yaml:"model"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
	// APIVersion is the Azure OpenAI API version for embeddings.
	APIVersion string `yaml:"api_version"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// BatchSize is the number of chunks per embedding request.
	BatchSize int `yaml:"batch_size"`
	// Workers bounds concurrent embedding requests during a build.
	Workers int `yaml:"workers"`
	// RateLimit caps embedding requests per second during a build; zero is unlimited.
	RateLimit float64 `yaml:"rate_limit"`
	// Timeout bounds each embedding request.
	Timeout time.Duration `yaml:"timeout"`
}

// Vector store backends accepted by index.backend.
const (
	BackendLocal  = "local"
	BackendQdrant = "qdrant"
)

// IndexConfig holds vector index, chunking and retrieval settings.
type IndexConfig struct {
	// Backend selects the vector store: local or qdrant.
	Backend string `yaml:"backend"`
	// Path is the SQLite file backing the local index. Empty means ~/.kassist/index.db.
	Path string `yaml:"path"`
	// Distance is the similarity metric: cosine or l2.
	Distance string `yaml:"distance"`
	// TopK is the number of chunks retrieved per query.
	TopK int `yaml:"top_k"`
	// MinScore drops hits scoring below it. Unset means no floor.
	MinScore *float32 `yaml:"min_score"`
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the number of characters consecutive chunks share.
	ChunkOverlap int `yaml:"chunk_overlap"`
	// DocsDir is the default document directory for ingestion.
	DocsDir string `yaml:"docs_dir"`
	// Glob selects files under DocsDir.
	Glob string `yaml:"glob"`
	// AllowEmptyContext lets RAG generate when retrieval returns nothing.
	AllowEmptyContext bool `yaml:"allow_empty_context"`
	// MaxContextTokens is the estimated token budget for the RAG prompt.
	MaxContextTokens int `yaml:"max_context_tokens"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the Qdrant collection name.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// DictionaryConfig holds definition lookup settings.
type DictionaryConfig struct {
	// BaseURL is the entries endpoint; the term is appended as a path segment.
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each lookup.
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var KASSIST_API_KEY.
	APIKey string `yaml:"api_key"`
	// RateLimit is the sustained requests per second allowed per client IP.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the token bucket size per client IP.
	RateBurst int `yaml:"rate_burst"`
	// QueryTimeout bounds a single /api/query request.
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// HistoryConfig holds query log settings.
type HistoryConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// Enabled reports whether the query log should be opened.
func (h HistoryConfig) Enabled() bool {
	return h.DBPath != "disabled"
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// Defaults returns the configuration used when neither a file nor env vars
// set a value.
func Defaults() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "ollama",
			Name:        "llama3",
			Timeout:     60 * time.Second,
			Temperature: 0.2,
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Timeout:  60 * time.Second,
		},
		Index: IndexConfig{
			Backend:          BackendLocal,
			Distance:         "cosine",
			TopK:             3,
			ChunkSize:        1000,
			ChunkOverlap:     200,
			DocsDir:          "./data/sample_docs",
			Glob:             "**/*.txt",
			MaxContextTokens: 6000,
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "kassist",
		},
		Dictionary: DictionaryConfig{
			BaseURL: "https://api.dictionaryapi.dev/api/v2/entries/en",
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			RateLimit:    10,
			RateBurst:    20,
			QueryTimeout: 90 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// envBinding maps an env var onto a config field. Set env vars always
// replace the YAML value, including with zero values.
type envBinding struct {
	envKey string
	apply  func(c *Config, v string) error
}

var envBindings = []envBinding{
	{"MODEL_PROVIDER", str(func(c *Config) *string { return &c.Model.Provider })},
	{"MODEL_NAME", str(func(c *Config) *string { return &c.Model.Name })},
	{"MODEL_API_KEY", str(func(c *Config) *string { return &c.Model.APIKey })},
	{"MODEL_BASE_URL", str(func(c *Config) *string { return &c.Model.BaseURL })},
	{"MODEL_TIMEOUT", dur(func(c *Config) *time.Duration { return &c.Model.Timeout })},
	{"MODEL_MAX_TOKENS", integer(func(c *Config) *int { return &c.Model.MaxTokens })},
	{"MODEL_TEMPERATURE", float32Of(func(c *Config) *float32 { return &c.Model.Temperature })},
	{"AZURE_OPENAI_DEPLOYMENT", str(func(c *Config) *string { return &c.Model.AzureDeployment })},
	{"AZURE_OPENAI_API_VERSION", str(func(c *Config) *string { return &c.Model.AzureAPIVersion })},
	{"EMBEDDING_PROVIDER", str(func(c *Config) *string { return &c.Embedding.Provider })},
	{"EMBEDDING_MODEL", str(func(c *Config) *string { return &c.Embedding.Model })},
	{"EMBEDDING_API_KEY", str(func(c *Config) *string { return &c.Embedding.APIKey })},
	{"EMBEDDING_ENDPOINT", str(func(c *Config) *string { return &c.Embedding.Endpoint })},
	{"EMBEDDING_DIMENSIONS", integer(func(c *Config) *int { return &c.Embedding.Dimensions })},
	{"INDEX_BACKEND", str(func(c *Config) *string { return &c.Index.Backend })},
	{"INDEX_PATH", str(func(c *Config) *string { return &c.Index.Path })},
	{"INDEX_TOP_K", integer(func(c *Config) *int { return &c.Index.TopK })},
	{"INDEX_MIN_SCORE", func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return err
		}
		s := float32(f)
		c.Index.MinScore = &s
		return nil
	}},
	{"INDEX_DOCS_DIR", str(func(c *Config) *string { return &c.Index.DocsDir })},
	{"INDEX_ALLOW_EMPTY_CONTEXT", boolean(func(c *Config) *bool { return &c.Index.AllowEmptyContext })},
	{"QDRANT_HOST", str(func(c *Config) *string { return &c.Qdrant.Host })},
	{"QDRANT_PORT", integer(func(c *Config) *int { return &c.Qdrant.Port })},
	{"QDRANT_COLLECTION", str(func(c *Config) *string { return &c.Qdrant.Collection })},
	{"QDRANT_API_KEY", str(func(c *Config) *string { return &c.Qdrant.APIKey })},
	{"QDRANT_TLS", boolean(func(c *Config) *bool { return &c.Qdrant.TLS })},
	{"DICTIONARY_BASE_URL", str(func(c *Config) *string { return &c.Dictionary.BaseURL })},
	{"DICTIONARY_TIMEOUT", dur(func(c *Config) *time.Duration { return &c.Dictionary.Timeout })},
	{"KASSIST_HOST", str(func(c *Config) *string { return &c.Server.Host })},
	{"KASSIST_PORT", integer(func(c *Config) *int { return &c.Server.Port })},
	{"KASSIST_API_KEY", str(func(c *Config) *string { return &c.Server.APIKey })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Logging.Level })},
	{"LOG_FORMAT", str(func(c *Config) *string { return &c.Logging.Format })},
	{"KASSIST_HISTORY_DB", str(func(c *Config) *string { return &c.History.DBPath })},
	{"LANGFUSE_PUBLIC_KEY", str(func(c *Config) *string { return &c.Tracing.PublicKey })},
	{"LANGFUSE_SECRET_KEY", str(func(c *Config) *string { return &c.Tracing.SecretKey })},
	{"LANGFUSE_HOST", str(func(c *Config) *string { return &c.Tracing.Host })},
}

// Load resolves the configuration: defaults, then the first YAML file found,
// then env vars. It returns the path that was loaded, or an empty string if
// no file was found. The result is validated.
func Load(explicitPath string, log *slog.Logger) (*Config, string, error) {
	cfg := Defaults()

	path, err := resolveConfigPath(explicitPath)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		log.Debug("config: no YAML config file found, using defaults and env vars")
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	applied := 0
	for _, b := range envBindings {
		v, ok := os.LookupEnv(b.envKey)
		if !ok || v == "" {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return nil, "", fmt.Errorf("config: invalid %s=%q: %w", b.envKey, v, err)
		}
		applied++
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	log.Info("config: resolved configuration",
		slog.String("path", path),
		slog.Int("env_overrides", applied),
	)
	return cfg, path, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case BackendLocal, BackendQdrant:
	default:
		return fmt.Errorf("config: index.backend must be local or qdrant, got %q", c.Index.Backend)
	}
	if _, err := rag.ParseDistance(c.Index.Distance); err != nil {
		return fmt.Errorf("config: index.distance: %w", err)
	}
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("config: index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("config: index.chunk_overlap must be in [0, chunk_size), got %d (chunk_size %d)",
			c.Index.ChunkOverlap, c.Index.ChunkSize)
	}
	if c.Index.TopK <= 0 {
		return fmt.Errorf("config: index.top_k must be positive, got %d", c.Index.TopK)
	}
	if c.Index.MaxContextTokens < 0 {
		return fmt.Errorf("config: index.max_context_tokens must not be negative")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("config: embedding.dimensions must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("config: server.rate_limit and server.rate_burst must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("config: logging.format must be json or text, got %q", c.Logging.Format)
	}
	if c.Model.Timeout <= 0 || c.Dictionary.Timeout <= 0 {
		return fmt.Errorf("config: model.timeout and dictionary.timeout must be positive")
	}
	return nil
}

// resolveConfigPath returns the first config file path that exists. An
// explicit path that does not exist is an error.
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config: %w", err)
		}
		return explicit, nil
	}

	if envPath := os.Getenv("KASSIST_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".kassist", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	if _, err := os.Stat("kassist.yaml"); err == nil {
		return "kassist.yaml", nil
	}

	return "", nil
}

func str(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func integer(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func float32Of(field func(*Config) *float32) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return err
		}
		*field(c) = float32(f)
		return nil
	}
}

func boolean(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func dur(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}
