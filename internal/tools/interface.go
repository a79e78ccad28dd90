// Package tools defines the closed set of deterministic tools the
// orchestrator can route a query to: the arithmetic Calculator and the
// Dictionary lookup. Each tool satisfies both this package's Tool interface
// and Eino's tool.InvokableTool so it can also be invoked by name with JSON
// arguments over the HTTP API.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/components/tool"
)

// Tool is the uniform contract for deterministic tools. Run takes the
// already-extracted input (an expression, a term) and returns the result
// text, or an error the caller maps to a user-facing message with
// FailureMessage.
type Tool interface {
	// Name returns the unique tool name.
	Name() string

	// Description returns a human-readable description of what the tool does.
	// This text is sent to the LLM as part of the tool schema.
	Description() string

	// Run executes the tool against input.
	Run(ctx context.Context, input string) (string, error)
}

// Definer is the definition lookup service consumed by the Dictionary tool.
// *dictionary.Client satisfies it.
type Definer interface {
	Define(ctx context.Context, term string) (string, error)
}

// Invokable is a Tool that is also an Eino invokable tool.
type Invokable interface {
	Tool
	tool.InvokableTool
}

// Registry maps tool names to tools. It is built once at startup and is
// read-only afterwards.
type Registry struct {
	tools map[string]Invokable
}

// NewRegistry indexes ts by name and rejects duplicates.
func NewRegistry(ts ...Invokable) (*Registry, error) {
	r := &Registry{tools: make(map[string]Invokable, len(ts))}
	for _, t := range ts {
		if t == nil {
			return nil, fmt.Errorf("tools: tool must not be nil")
		}
		if _, dup := r.tools[t.Name()]; dup {
			return nil, fmt.Errorf("tools: duplicate tool name %q", t.Name())
		}
		r.tools[t.Name()] = t
	}
	return r, nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Invokable, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
