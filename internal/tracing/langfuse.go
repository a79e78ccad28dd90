// Package tracing wires optional Langfuse tracing into Eino's global callback
// chain so every model call on the RAG path is recorded.
package tracing

import (
	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// DefaultHost is used when Config.Host is empty.
const DefaultHost = "http://localhost:3000"

// Config carries the Langfuse project credentials.
type Config struct {
	Host      string
	PublicKey string
	SecretKey string
}

// Enabled reports whether both keys are present.
func (c Config) Enabled() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// Setup initialises the Langfuse callback handler when cfg is enabled.
// It returns a flush function that must be called before process exit to
// ensure all traces are sent. If Langfuse is not configured, both return
// values are nil and tracing is silently disabled.
func Setup(cfg Config) (callbacks.Handler, func(), bool) {
	if !cfg.Enabled() {
		return nil, nil, false
	}
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
	})

	return handler, flusher, true
}

// Install registers the handler globally; a no-op when cfg is disabled.
// The returned flush function is always safe to call.
func Install(cfg Config) func() {
	handler, flush, ok := Setup(cfg)
	if !ok {
		return func() {}
	}
	callbacks.AppendGlobalHandlers(handler)
	return flush
}
