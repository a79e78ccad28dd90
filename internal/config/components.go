package config

import (
	"github.com/54b3r/kassist-go/internal/dictionary"
	"github.com/54b3r/kassist-go/internal/embedder"
	"github.com/54b3r/kassist-go/internal/provider"
	"github.com/54b3r/kassist-go/internal/rag"
	"github.com/54b3r/kassist-go/internal/tracing"
)

// ProviderConfig returns the generation model settings. For Azure the
// deployment falls back to the model name.
func (c *Config) ProviderConfig() *provider.Config {
	deployment := c.Model.AzureDeployment
	if deployment == "" && c.Model.Provider == string(provider.BackendAzure) {
		deployment = c.Model.Name
	}
	return &provider.Config{
		Backend:         provider.Backend(c.Model.Provider),
		Model:           c.Model.Name,
		BaseURL:         c.Model.BaseURL,
		APIKey:          c.Model.APIKey,
		AzureDeployment: deployment,
		AzureAPIVersion: c.Model.AzureAPIVersion,
		MaxTokens:       c.Model.MaxTokens,
		Temperature:     c.Model.Temperature,
	}
}

// EmbedderConfig returns the embedding provider settings.
func (c *Config) EmbedderConfig() *embedder.Config {
	return &embedder.Config{
		Provider:   c.Embedding.Provider,
		Model:      c.Embedding.Model,
		APIKey:     c.Embedding.APIKey,
		Endpoint:   c.Embedding.Endpoint,
		APIVersion: c.Embedding.APIVersion,
		Dimensions: c.Embedding.Dimensions,
		Timeout:    c.Embedding.Timeout,
	}
}

// Distance returns the parsed similarity metric. Validate has already
// rejected unknown values.
func (c *Config) Distance() rag.Distance {
	d, _ := rag.ParseDistance(c.Index.Distance)
	return d
}

// QdrantStoreConfig returns the Qdrant connection settings.
func (c *Config) QdrantStoreConfig() rag.QdrantConfig {
	return rag.QdrantConfig{
		Host:       c.Qdrant.Host,
		Port:       c.Qdrant.Port,
		Collection: c.Qdrant.Collection,
		APIKey:     c.Qdrant.APIKey,
		UseTLS:     c.Qdrant.TLS,
		Distance:   c.Distance(),
	}
}

// IndexBuildConfig returns the vector index build settings. The model name
// recorded with the index is the resolved embedding model.
func (c *Config) IndexBuildConfig() *rag.IndexConfig {
	ec := c.EmbedderConfig()
	prov := ec.Provider
	if prov == "" {
		prov = embedder.ProviderOllama
	}
	return &rag.IndexConfig{
		Model:      prov + "/" + ec.ResolvedModel(),
		Dimensions: c.Embedding.Dimensions,
		BatchSize:  c.Embedding.BatchSize,
		Workers:    c.Embedding.Workers,
		EmbedRate:  c.Embedding.RateLimit,
	}
}

// DictionaryConfig returns the lookup client settings.
func (c *Config) DictionaryConfig() dictionary.Config {
	return dictionary.Config{BaseURL: c.Dictionary.BaseURL, Timeout: c.Dictionary.Timeout}
}

// TracingConfig returns the Langfuse settings.
func (c *Config) TracingConfig() tracing.Config {
	return tracing.Config{
		Host:      c.Tracing.Host,
		PublicKey: c.Tracing.PublicKey,
		SecretKey: c.Tracing.SecretKey,
	}
}
