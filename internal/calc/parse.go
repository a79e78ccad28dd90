package calc

import (
	"strconv"
	"strings"
)

// maxDepth bounds parser recursion for inputs such as "((((...))))".
const maxDepth = 200

type operator int

const (
	opAdd operator = iota + 1
	opSub
	opMul
	opDiv
	opPow      // "**", parsed so it can be rejected as unsupported
	opFloorDiv // "//", parsed so it can be rejected as unsupported
)

type node interface{ isNode() }

type numberNode struct{ value Number }

type unaryNode struct {
	op      operator
	operand node
}

type binaryNode struct {
	op          operator
	left, right node
}

func (numberNode) isNode() {}
func (unaryNode) isNode()  {}
func (binaryNode) isNode() {}

type tokenKind int

const (
	tokNumber tokenKind = iota + 1
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	op   operator
	num  Number
}

// tokenize splits a sanitised expression into tokens.
func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == '+':
			toks = append(toks, token{kind: tokOp, op: opAdd})
			i++
		case c == '-':
			toks = append(toks, token{kind: tokOp, op: opSub})
			i++
		case c == '*':
			if i+1 < len(s) && s[i+1] == '*' {
				toks = append(toks, token{kind: tokOp, op: opPow})
				i += 2
				continue
			}
			toks = append(toks, token{kind: tokOp, op: opMul})
			i++
		case c == '/':
			if i+1 < len(s) && s[i+1] == '/' {
				toks = append(toks, token{kind: tokOp, op: opFloorDiv})
				i += 2
				continue
			}
			toks = append(toks, token{kind: tokOp, op: opDiv})
			i++
		case c == '.' || (c >= '0' && c <= '9'):
			j := i
			for j < len(s) && (s[j] == '.' || (s[j] >= '0' && s[j] <= '9')) {
				j++
			}
			n, err := parseNumber(s[i:j])
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokNumber, num: n})
			i = j
		default:
			return nil, ErrInvalidExpression
		}
	}
	return toks, nil
}

// parseNumber accepts "12", "1.5", ".5" and "5." literals. Integer literals
// with leading zeros ("007") are rejected; "0" and "00" are allowed.
func parseNumber(lit string) (Number, error) {
	dots := strings.Count(lit, ".")
	if dots > 1 || lit == "." {
		return Number{}, ErrInvalidExpression
	}
	if dots == 0 {
		if len(lit) > 1 && lit[0] == '0' && strings.Trim(lit, "0") != "" {
			return Number{}, ErrInvalidExpression
		}
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return Number{}, ErrInvalidExpression
		}
		return Number{Value: v, Integral: true}, nil
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Number{}, ErrInvalidExpression
	}
	return Number{Value: v}, nil
}

// parser is a recursive-descent parser over:
//
//	expr   := term (("+" | "-") term)*
//	term   := factor (("*" | "/" | "//") factor)*
//	factor := ("+" | "-") factor | power
//	power  := atom ["**" factor]
//	atom   := number | "(" expr ")"
type parser struct {
	toks  []token
	pos   int
	depth int
}

func parse(s string) (node, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, ErrInvalidExpression
	}
	p := &parser{toks: toks}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		// Trailing tokens, e.g. "2 3" or "2(3)".
		return nil, ErrInvalidExpression
	}
	return n, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) peekOp(ops ...operator) (operator, bool) {
	t, ok := p.peek()
	if !ok || t.kind != tokOp {
		return 0, false
	}
	for _, op := range ops {
		if t.op == op {
			return op, true
		}
	}
	return 0, false
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return ErrInvalidExpression
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) expr() (node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.peekOp(opAdd, opSub)
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) term() (node, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.peekOp(opMul, opDiv, opFloorDiv)
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) factor() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if op, ok := p.peekOp(opAdd, opSub); ok {
		p.pos++
		operand, err := p.factor()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, operand: operand}, nil
	}
	return p.power()
}

func (p *parser) power() (node, error) {
	base, err := p.atom()
	if err != nil {
		return nil, err
	}
	if _, ok := p.peekOp(opPow); ok {
		p.pos++
		exp, err := p.factor()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: opPow, left: base, right: exp}, nil
	}
	return base, nil
}

func (p *parser) atom() (node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, ErrInvalidExpression
	}
	switch t.kind {
	case tokNumber:
		p.pos++
		return numberNode{value: t.num}, nil
	case tokLParen:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		p.pos++
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if t, ok := p.peek(); !ok || t.kind != tokRParen {
			return nil, ErrInvalidExpression
		}
		p.pos++
		return inner, nil
	}
	return nil, ErrInvalidExpression
}
