// Package calc evaluates restricted arithmetic and percentage expressions.
// Input is parsed into a small expression tree and only the operators
// + - * / and unary minus are ever applied. Nothing in this package executes
// code supplied by the caller.
package calc

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidExpression is returned when the sanitised input is empty or
	// does not parse as a well-formed arithmetic expression.
	ErrInvalidExpression = errors.New("calc: invalid arithmetic expression")

	// ErrUnsupportedOperator is returned when the expression parses but uses
	// an operator outside the allow-list (for example ** or //).
	ErrUnsupportedOperator = errors.New("calc: unsupported operator")

	// ErrDivisionByZero is returned when a divisor evaluates to zero.
	ErrDivisionByZero = errors.New("calc: division by zero")
)

// allowedChars is the set of characters kept by sanitisation. Everything
// else (letters, punctuation, '%' outside the percentage grammar) is dropped.
const allowedChars = "0123456789.+-*/() "

// percentPattern matches "<p> % of <base>" against the whole input.
var percentPattern = regexp.MustCompile(`^(\d+\.?\d*)\s*%\s*of\s*(\d+\.?\d*)$`)

// Number is the result of an evaluation. Integral is true when every operand
// was an integer literal and no division took place, which controls how the
// value is rendered.
type Number struct {
	Value    float64
	Integral bool
}

// String renders n the way users expect to read a calculator result:
// integral results without a fraction ("14"), everything else with at least
// one fractional digit ("20.0", "0.30000000000000004").
func (n Number) String() string {
	v := n.Value
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if n.Integral {
		// Integer arithmetic has no negative zero.
		if v == 0 {
			v = 0
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// Evaluate computes the value of expr.
//
// A whole-input match of "<number> % of <number>" (case-insensitive, any
// whitespace) is computed directly as (p/100)*base. Any other input is
// sanitised down to digits, '.', '+', '-', '*', '/', parentheses and spaces,
// then parsed and evaluated against the operator allow-list.
func Evaluate(expr string) (Number, error) {
	if n, ok := evaluatePercent(expr); ok {
		return n, nil
	}

	sanitized := sanitize(expr)
	if strings.TrimSpace(sanitized) == "" {
		return Number{}, ErrInvalidExpression
	}

	tree, err := parse(sanitized)
	if err != nil {
		return Number{}, err
	}
	return eval(tree)
}

func evaluatePercent(expr string) (Number, bool) {
	m := percentPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(expr)))
	if m == nil {
		return Number{}, false
	}
	p, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Number{}, false
	}
	base, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Number{}, false
	}
	return Number{Value: (p / 100.0) * base}, true
}

func sanitize(expr string) string {
	var b strings.Builder
	b.Grow(len(expr))
	for _, r := range expr {
		if strings.ContainsRune(allowedChars, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// eval walks the tree and applies only allow-listed operators. The operator
// is checked before its operands are evaluated.
func eval(n node) (Number, error) {
	switch n := n.(type) {
	case numberNode:
		return n.value, nil

	case unaryNode:
		if n.op != opSub {
			return Number{}, ErrUnsupportedOperator
		}
		x, err := eval(n.operand)
		if err != nil {
			return Number{}, err
		}
		return Number{Value: -x.Value, Integral: x.Integral}, nil

	case binaryNode:
		switch n.op {
		case opAdd, opSub, opMul, opDiv:
		default:
			return Number{}, ErrUnsupportedOperator
		}
		l, err := eval(n.left)
		if err != nil {
			return Number{}, err
		}
		r, err := eval(n.right)
		if err != nil {
			return Number{}, err
		}
		integral := l.Integral && r.Integral
		switch n.op {
		case opAdd:
			return Number{Value: l.Value + r.Value, Integral: integral}, nil
		case opSub:
			return Number{Value: l.Value - r.Value, Integral: integral}, nil
		case opMul:
			return Number{Value: l.Value * r.Value, Integral: integral}, nil
		default:
			if r.Value == 0 {
				return Number{}, ErrDivisionByZero
			}
			return Number{Value: l.Value / r.Value}, nil
		}
	}
	return Number{}, ErrInvalidExpression
}
