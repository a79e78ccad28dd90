package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		// ── Ollama ────────────────────────────────────────────────────────────
		{
			name: "ollama/valid",
			cfg:  Config{Backend: BackendOllama, Model: "llama3"},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama},
			wantErr: "model.name",
		},

		// ── OpenAI ────────────────────────────────────────────────────────────
		{
			name: "openai/valid",
			cfg:  Config{Backend: BackendOpenAI, APIKey: "sk-test", Model: "gpt-4o"},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, Model: "gpt-4o"},
			wantErr: "model.api_key",
		},
		{
			name:    "openai/missing model",
			cfg:     Config{Backend: BackendOpenAI, APIKey: "sk-test"},
			wantErr: "model.name",
		},

		// ── Azure ─────────────────────────────────────────────────────────────
		{
			name: "azure/valid",
			cfg: Config{
				Backend:         BackendAzure,
				APIKey:          "key",
				BaseURL:         "https://my.openai.azure.com",
				AzureDeployment: "gpt-4o",
				AzureAPIVersion: "2024-02-01",
			},
		},
		{
			name:    "azure/missing endpoint",
			cfg:     Config{Backend: BackendAzure, APIKey: "key", AzureDeployment: "gpt-4o"},
			wantErr: "model.base_url",
		},
		{
			name:    "azure/missing deployment",
			cfg:     Config{Backend: BackendAzure, APIKey: "key", BaseURL: "https://my.openai.azure.com"},
			wantErr: "azure_deployment",
		},

		// ── Gemini / Ark ──────────────────────────────────────────────────────
		{
			name: "gemini/valid",
			cfg:  Config{Backend: BackendGemini, APIKey: "g-key", Model: "gemini-1.5-pro"},
		},
		{
			name:    "ark/missing api key",
			cfg:     Config{Backend: BackendArk, Model: "doubao-pro"},
			wantErr: "model.api_key",
		},

		// ── Shared ────────────────────────────────────────────────────────────
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "watsonx"},
			wantErr: "unknown backend",
		},
		{
			name:    "temperature out of range",
			cfg:     Config{Backend: BackendOllama, Model: "llama3", Temperature: 3},
			wantErr: "temperature",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("want error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

// fakeChatModel returns a canned reply or error and records the prompt.
type fakeChatModel struct {
	reply  string
	err    error
	prompt []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.prompt = in
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestGenerator(t *testing.T) {
	t.Parallel()
	m := &fakeChatModel{reply: "Refunds are issued within 30 days."}
	g, err := NewGenerator(m)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	got, err := g.Generate(context.Background(), "Answer based on context:\nctx\n\nQuestion: q")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != m.reply {
		t.Errorf("got %q, want %q", got, m.reply)
	}
	if len(m.prompt) != 1 || m.prompt[0].Role != schema.User {
		t.Errorf("want a single user message, got %+v", m.prompt)
	}
}

func TestGenerator_Errors(t *testing.T) {
	t.Parallel()
	boom := errors.New("503 service unavailable")
	g, _ := NewGenerator(&fakeChatModel{err: boom})
	if _, err := g.Generate(context.Background(), "p"); !errors.Is(err, boom) {
		t.Errorf("want wrapped model error, got %v", err)
	}

	g, _ = NewGenerator(&fakeChatModel{reply: ""})
	if _, err := g.Generate(context.Background(), "p"); !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("want ErrEmptyCompletion, got %v", err)
	}

	if _, err := NewGenerator(nil); err == nil {
		t.Error("want error for nil model")
	}
}

func TestNew_ValidatesFirst(t *testing.T) {
	t.Parallel()
	if _, err := New(context.Background(), &Config{Backend: BackendOpenAI}); err == nil {
		t.Error("want validation error")
	}
	if _, err := New(context.Background(), nil); err == nil {
		t.Error("want error for nil config")
	}
}
