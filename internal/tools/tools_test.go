package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/54b3r/kassist-go/internal/calc"
	"github.com/54b3r/kassist-go/internal/dictionary"
)

// stubDefiner returns a canned definition or error and records the term.
type stubDefiner struct {
	def  string
	err  error
	term string
}

func (s *stubDefiner) Define(_ context.Context, term string) (string, error) {
	s.term = term
	return s.def, s.err
}

func TestCalculator_Run(t *testing.T) {
	t.Parallel()
	c := NewCalculator()
	got, err := c.Run(context.Background(), "2 + 3 * 4")
	if err != nil || got != "14" {
		t.Errorf("Run = %q, %v; want 14", got, err)
	}
	if _, err := c.Run(context.Background(), "1/0"); !errors.Is(err, calc.ErrDivisionByZero) {
		t.Errorf("want ErrDivisionByZero, got %v", err)
	}
}

func TestCalculator_InvokableRun(t *testing.T) {
	t.Parallel()
	c := NewCalculator()
	tests := []struct {
		args string
		want string
	}{
		{`{"input":"20% of 100"}`, "20.0"},
		{`{"input":"(1 + 2) * 3"}`, "9"},
		{`{"input":"1/0"}`, "Error in calculation: division by zero."},
		{`{"input":"2 ** 3"}`, "Error in calculation: unsupported operator."},
		{`{"input":"2 +"}`, "Error in calculation: invalid arithmetic expression."},
	}
	for _, tc := range tests {
		got, err := c.InvokableRun(context.Background(), tc.args)
		if err != nil {
			t.Fatalf("InvokableRun(%s): %v", tc.args, err)
		}
		if got != tc.want {
			t.Errorf("InvokableRun(%s) = %q, want %q", tc.args, got, tc.want)
		}
	}
	if _, err := c.InvokableRun(context.Background(), `not json`); err == nil {
		t.Error("want error for malformed arguments")
	}
}

func TestDictionary_InvokableRun(t *testing.T) {
	t.Parallel()
	stub := &stubDefiner{def: "The diffusion of water."}
	d, err := NewDictionary(stub)
	if err != nil {
		t.Fatalf("NewDictionary: %v", err)
	}
	got, err := d.InvokableRun(context.Background(), `{"input":"  Osmosis? "}`)
	if err != nil {
		t.Fatalf("InvokableRun: %v", err)
	}
	if got != stub.def {
		t.Errorf("got %q", got)
	}
	if stub.term != "osmosis" {
		t.Errorf("term = %q, want normalised osmosis", stub.term)
	}

	got, _ = d.InvokableRun(context.Background(), `{"input":"?"}`)
	if got != EmptyTermMessage {
		t.Errorf("empty term: got %q", got)
	}
}

func TestFailureMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		tool  string
		input string
		err   error
		want  string
	}{
		{CalculatorName, "1/0", fmt.Errorf("wrap: %w", calc.ErrDivisionByZero), "Error in calculation: division by zero."},
		{CalculatorName, "x", calc.ErrInvalidExpression, "Error in calculation: invalid arithmetic expression."},
		{CalculatorName, "x", errors.New("panic: boom"), "Error in calculation: invalid arithmetic expression."},
		{DictionaryName, "xyzzy", fmt.Errorf("d: %w", dictionary.ErrLookupNotFound), "Could not find a definition for 'xyzzy'."},
		{DictionaryName, "xyzzy", fmt.Errorf("d: %w", &dictionary.ServiceError{Status: 500}), "Error fetching definition for 'xyzzy' (HTTP 500)."},
		{DictionaryName, "xyzzy", context.DeadlineExceeded, "An error occurred while trying to define 'xyzzy'."},
	}
	for _, tc := range tests {
		if got := FailureMessage(tc.tool, tc.input, tc.err); got != tc.want {
			t.Errorf("FailureMessage(%s, %v) = %q, want %q", tc.tool, tc.err, got, tc.want)
		}
	}
}

func TestNormalizeTerm(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"Osmosis":         "osmosis",
		" osmosis?! ":     "osmosis",
		"photosynthesis.": "photosynthesis",
		"...":             "",
		"ice cream":       "ice cream",
	}
	for in, want := range cases {
		if got := NormalizeTerm(in); got != want {
			t.Errorf("NormalizeTerm(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	d, _ := NewDictionary(&stubDefiner{})
	r, err := NewRegistry(NewCalculator(), d)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if names := r.Names(); len(names) != 2 || names[0] != CalculatorName || names[1] != DictionaryName {
		t.Errorf("Names = %v", names)
	}
	if _, ok := r.Get("shell"); ok {
		t.Error("unexpected tool")
	}
	if _, err := NewRegistry(NewCalculator(), NewCalculator()); err == nil {
		t.Error("want duplicate-name error")
	}
	info, err := NewCalculator().Info(context.Background())
	if err != nil || info.Name != CalculatorName {
		t.Errorf("Info = %+v, %v", info, err)
	}
}
