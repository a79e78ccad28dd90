// Package provider constructs the text-generation model used on the RAG path.
// Supported backends: Ollama, OpenAI, Azure OpenAI, Google Gemini, and
// Volcengine Ark. All are Eino chat models behind model.BaseChatModel.
package provider

import (
	"fmt"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendArk selects Volcengine Ark model runtime.
	BackendArk Backend = "ark"
)

// Config holds all provider-level configuration. It is built by the config
// package and passed explicitly; nothing here reads the environment.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	// Model is the model name or deployment ID to use (e.g. "gpt-4o", "llama3").
	Model string

	// BaseURL overrides the default API endpoint (required for Azure).
	BaseURL string

	// APIKey is the authentication credential for the selected provider.
	APIKey string

	// AzureDeployment is the Azure OpenAI deployment name (Azure only).
	AzureDeployment string

	// AzureAPIVersion is the Azure OpenAI REST API version (Azure only).
	AzureAPIVersion string

	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Validate checks that the fields the selected backend needs are present.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama:
		if c.Model == "" {
			return fmt.Errorf("provider: model.name is required for ollama backend")
		}
	case BackendOpenAI, BackendGemini, BackendArk:
		if c.APIKey == "" {
			return fmt.Errorf("provider: model.api_key is required for %s backend", c.Backend)
		}
		if c.Model == "" {
			return fmt.Errorf("provider: model.name is required for %s backend", c.Backend)
		}
	case BackendAzure:
		if c.APIKey == "" {
			return fmt.Errorf("provider: model.api_key is required for azure backend")
		}
		if c.BaseURL == "" {
			return fmt.Errorf("provider: model.base_url (Azure endpoint) is required for azure backend")
		}
		if c.AzureDeployment == "" {
			return fmt.Errorf("provider: model.azure_deployment is required for azure backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q, valid values: ollama, openai, azure, gemini, ark", c.Backend)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("provider: model.max_tokens must not be negative")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("provider: model.temperature must be between 0 and 2 (got %v)", c.Temperature)
	}
	return nil
}
