// Package budget provides token budget estimation and retrieved-context
// trimming for the RAG prompt. Because generation supports multiple LLM backends with different
// tokenizers, this package uses a conservative character-based heuristic:
// 1 token ≈ 4 characters (English prose and code). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English and code; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models (Llama 3 8B, GPT-3.5)
	// while leaving room for the output. Override via index.max_context_tokens.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimContext drops the lowest-ranked passages (the tail of passages) until
// the estimated token count of fixed plus the newline-joined passages fits
// within maxTokens. passages must be ordered best-first, as the retriever
// returns them. fixed holds the prompt scaffolding that is never trimmed
// (template text and the question).
//
// A non-positive maxTokens disables trimming. If even a single passage does
// not fit, an empty slice is returned; callers decide whether generating with
// no context is acceptable.
func TrimContext(fixed []*schema.Message, passages []string, maxTokens int) []string {
	if maxTokens <= 0 || len(passages) == 0 {
		return passages
	}

	fixedTokens := EstimateMessages(fixed)

	// Retrieval returns a handful of passages; a linear scan from the tail
	// is enough.
	for len(passages) > 0 {
		if fixedTokens+Estimate(strings.Join(passages, "\n")) <= maxTokens {
			break
		}
		passages = passages[:len(passages)-1]
	}
	return passages
}
