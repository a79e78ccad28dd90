package embedder

import (
	"fmt"
	"log/slog"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"gemini-",
	"phi-",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
	"solar",
	"vicuna",
	"falcon",
	"yi-",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	if strings.Contains(lower, "embed") {
		return false
	}
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// Validate is a pre-flight check run before the index is built or opened. It
// returns an error when the configuration cannot work, and logs a warning
// when the model name looks like a chat model.
func Validate(cfg *Config, log *slog.Logger) error {
	if cfg == nil {
		return fmt.Errorf("embedder: config must not be nil")
	}
	switch cfg.provider() {
	case ProviderOllama:
	case ProviderOpenAI, ProviderGemini:
		if cfg.APIKey == "" {
			return fmt.Errorf("embedder: %s requires an API key", cfg.provider())
		}
	case ProviderAzure:
		if cfg.APIKey == "" {
			return fmt.Errorf("embedder: azure requires an API key")
		}
		if cfg.Endpoint == "" {
			return fmt.Errorf("embedder: azure requires an endpoint")
		}
	default:
		return fmt.Errorf("embedder: unknown provider %q, valid values: ollama, openai, azure, gemini", cfg.Provider)
	}
	if cfg.Dimensions < 0 {
		return fmt.Errorf("embedder: dimensions must not be negative (got %d)", cfg.Dimensions)
	}

	if model := cfg.ResolvedModel(); looksLikeChatModel(model) {
		log.Warn("embedder: embedding model looks like a chat model, not an embedding model; "+
			"this will likely produce poor or broken embeddings",
			slog.String("model", model),
			slog.String("hint", "use a dedicated embedding model e.g. nomic-embed-text, text-embedding-3-small"),
		)
	}
	return nil
}
