package calc

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		expr string
		want string
	}{
		{"integer precedence", "2 + 3 * 4", "14"},
		{"parentheses", "(2 + 3) * 4", "20"},
		{"division is float", "100/4", "25.0"},
		{"float literal", "1.5 * 2", "3.0"},
		{"float sum", "0.1 + 0.2", "0.30000000000000004"},
		{"unary minus", "-5 + 2", "-3"},
		{"double negation", "--5", "5"},
		{"product", "15*25", "375"},
		{"trailing dot literal", "5. + 1", "6.0"},
		{"leading dot literal", ".5 * 4", "2.0"},
		{"letters stripped", "what is 2 + 2", "4"},
		{"percentage", "20% of 100", "20.0"},
		{"percentage flexible whitespace", "15 %  OF 80", "12.0"},
		{"percentage fractional", "12.5% of 8", "1.0"},
		{"negative result", "3 - 10", "-7"},
		{"negated zero", "-0", "0"},
		{"zero times negative", "0*-1", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Evaluate(tc.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q) error: %v", tc.expr, err)
			}
			if got.String() != tc.want {
				t.Errorf("Evaluate(%q) = %s, want %s", tc.expr, got, tc.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		expr string
		want error
	}{
		{"empty", "", ErrInvalidExpression},
		{"only letters", "abc", ErrInvalidExpression},
		{"only spaces", "   ", ErrInvalidExpression},
		{"dangling operator", "2 +", ErrInvalidExpression},
		{"unbalanced", "(1 + 2", ErrInvalidExpression},
		{"empty parens", "()", ErrInvalidExpression},
		{"implicit multiplication", "2(3)", ErrInvalidExpression},
		{"adjacent numbers", "2 3", ErrInvalidExpression},
		{"malformed number", "1.2.3", ErrInvalidExpression},
		{"leading zeros", "007 + 1", ErrInvalidExpression},
		{"power", "2 ** 3", ErrUnsupportedOperator},
		{"floor division", "7 // 2", ErrUnsupportedOperator},
		{"unary plus", "+5", ErrUnsupportedOperator},
		{"division by zero", "10 / 0", ErrDivisionByZero},
		{"division by zero expression", "1 / (2 - 2)", ErrDivisionByZero},
		{"deep nesting", strings.Repeat("(", 500) + "1" + strings.Repeat(")", 500), ErrInvalidExpression},
		{"deep unary", strings.Repeat("-", 500) + "1", ErrInvalidExpression},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Evaluate(tc.expr)
			if !errors.Is(err, tc.want) {
				t.Errorf("Evaluate(%q) error = %v, want %v", tc.expr, err, tc.want)
			}
		})
	}
}

// Neither allow-list bypass attempts nor garbage input may panic.
func TestEvaluate_NeverPanics(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"__import__('os').system('ls')",
		"exec(1)",
		"lambda: 1",
		")(",
		"*/+-",
		"....",
		"1e308 * 1e308",
		strings.Repeat("9", 400),
		"\x00\xff",
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Evaluate(%q) panicked: %v", in, r)
				}
			}()
			_, _ = Evaluate(in)
		}()
	}
}

func TestNumber_String(t *testing.T) {
	t.Parallel()
	cases := []struct {
		n    Number
		want string
	}{
		{Number{Value: 14, Integral: true}, "14"},
		{Number{Value: math.Copysign(0, -1), Integral: true}, "0"},
		{Number{Value: 20}, "20.0"},
		{Number{Value: -0.5}, "-0.5"},
		{Number{Value: 1e20}, "1e+20"},
		{Number{Value: 0.00001}, "1e-05"},
		{Number{Value: 0}, "0.0"},
		{Number{Value: math.Inf(1)}, "inf"},
		{Number{Value: math.Inf(-1)}, "-inf"},
		{Number{Value: math.NaN()}, "nan"},
	}
	for _, tc := range cases {
		if got := tc.n.String(); got != tc.want {
			t.Errorf("Number%+v.String() = %q, want %q", tc.n, got, tc.want)
		}
	}
}
