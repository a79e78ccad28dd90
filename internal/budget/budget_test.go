package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestEstimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestEstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"), // 4 overhead + 1 (role) + 2 (content) = 7
		schema.UserMessage("hello world"),
	}
	got := EstimateMessages(msgs)
	// Each message: 4 overhead + Estimate("user")=1 + Estimate("hello world")=2 = 7
	// Two messages: 14
	if got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func TestTrimContext_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.UserMessage("Answer based on context:\n\n\nQuestion: refunds?")}
	passages := []string{"Refunds within 30 days.", "Store credit after 30 days."}
	got := TrimContext(fixed, passages, DefaultMaxContextTokens)
	if len(got) != 2 {
		t.Errorf("want 2 passages, got %d", len(got))
	}
}

func TestTrimContext_DropsLowestRanked(t *testing.T) {
	t.Parallel()
	// "best" alone estimates to 1 token; "best\nworst" (10 chars) to 2.
	// With no fixed messages and a budget of 1 only the first passage fits.
	passages := []string{"best", "worst"}
	got := TrimContext(nil, passages, 1)
	if len(got) != 1 {
		t.Fatalf("want 1 passage after trim, got %d", len(got))
	}
	if got[0] != "best" {
		t.Errorf("want best passage retained, got %q", got[0])
	}
}

func TestTrimContext_DisabledBudget(t *testing.T) {
	t.Parallel()
	passages := []string{strings.Repeat("x", 4*7000)}
	if got := TrimContext(nil, passages, 0); len(got) != 1 {
		t.Errorf("want trimming disabled for zero budget, got %d passages", len(got))
	}
}

func TestTrimContext_AllDroppedWhenFixedExceedsBudget(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{
		schema.UserMessage(strings.Repeat("x", 4*7000)), // ~7000 tokens
	}
	got := TrimContext(fixed, []string{"a", "b"}, 6000)
	if len(got) != 0 {
		t.Errorf("want 0 passages, got %d", len(got))
	}
}
