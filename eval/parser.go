package eval

import (
	"fmt"
	"strconv"
)

// The grammar is a strict whitelist: literals, variable references, the
// arithmetic/comparison/boolean operators, and calls to the functions in
// funcTable. Everything else fails at parse time, so capabilities cannot
// sneak in by omission.

type node interface{}

type numberLit struct {
	intVal  int64
	fltVal  float64
	isFloat bool
}

type stringLit struct{ val string }

type boolLit struct{ val bool }

type listLit struct{ elems []node }

type nameRef struct{ name string }

type unaryOp struct {
	op      tokenKind
	operand node
}

type binaryOp struct {
	op          tokenKind
	left, right node
}

// boolOp holds an and/or chain; evaluation short-circuits left to right.
type boolOp struct {
	op     tokenKind
	values []node
}

// compareOp holds a chained comparison: left ops[0] comparators[0] ops[1] ...
// with the short-circuit semantics a < b < c == (a < b) and (b < c).
type compareOp struct {
	left        node
	ops         []tokenKind
	comparators []node
}

type callExpr struct {
	fn   string
	args []node
}

type parser struct {
	toks []token
	pos  int
}

func parse(input string) (node, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected %s after expression", p.peek().kind)
	}
	return n, nil
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) next() token  { t := p.toks[p.pos]; p.pos++; return t }
func (p *parser) accept(k tokenKind) bool {
	if p.toks[p.pos].kind == k {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(k tokenKind) error {
	if !p.accept(k) {
		return fmt.Errorf("expected %s, found %s", k, p.peek().kind)
	}
	return nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokOr {
		return left, nil
	}
	values := []node{left}
	for p.accept(tokOr) {
		n, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		values = append(values, n)
	}
	return &boolOp{op: tokOr, values: values}, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokAnd {
		return left, nil
	}
	values := []node{left}
	for p.accept(tokAnd) {
		n, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		values = append(values, n)
	}
	return &boolOp{op: tokAnd, values: values}, nil
}

func (p *parser) parseNot() (node, error) {
	if p.accept(tokNot) {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryOp{op: tokNot, operand: operand}, nil
	}
	return p.parseComparison()
}

func isCompareOp(k tokenKind) bool {
	switch k {
	case tokLt, tokLte, tokGt, tokGte, tokEq, tokNeq:
		return true
	}
	return false
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	if !isCompareOp(p.peek().kind) {
		return left, nil
	}
	cmp := &compareOp{left: left}
	for isCompareOp(p.peek().kind) {
		op := p.next().kind
		right, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		cmp.ops = append(cmp.ops, op)
		cmp.comparators = append(cmp.comparators, right)
	}
	return cmp, nil
}

func (p *parser) parseAddSub() (node, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for {
		k := p.peek().kind
		if k != tokPlus && k != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = &binaryOp{op: k, left: left, right: right}
	}
}

func (p *parser) parseMulDiv() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		k := p.peek().kind
		if k != tokStar && k != tokSlash && k != tokDoubleSlash && k != tokPercent {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryOp{op: k, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	k := p.peek().kind
	if k == tokPlus || k == tokMinus {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryOp{op: k, operand: operand}, nil
	}
	return p.parsePower()
}

// parsePower handles ** with right associativity. The exponent re-enters
// parseUnary so 2 ** -1 parses.
func (p *parser) parsePower() (node, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if !p.accept(tokDoubleStar) {
		return base, nil
	}
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &binaryOp{op: tokDoubleStar, left: base, right: exp}, nil
}

func (p *parser) parseAtom() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return parseNumber(t.text)
	case tokString:
		p.next()
		return &stringLit{val: t.text}, nil
	case tokTrue:
		p.next()
		return &boolLit{val: true}, nil
	case tokFalse:
		p.next()
		return &boolLit{val: false}, nil
	case tokIdent:
		p.next()
		if p.peek().kind == tokLParen {
			return p.parseCall(t.text)
		}
		return &nameRef{name: t.text}, nil
	case tokLParen:
		return p.parseParenOrTuple()
	case tokLBracket:
		return p.parseList()
	}
	return nil, fmt.Errorf("unexpected %s", t.kind)
}

func parseNumber(text string) (node, error) {
	if iv, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &numberLit{intVal: iv}, nil
	}
	fv, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed number %q", text)
	}
	return &numberLit{fltVal: fv, isFloat: true}, nil
}

func (p *parser) parseCall(name string) (node, error) {
	if _, ok := funcTable[name]; !ok {
		return nil, fmt.Errorf("function %q is not allowed", name)
	}
	if err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	call := &callExpr{fn: name}
	if p.accept(tokRParen) {
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		if p.accept(tokComma) {
			continue
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return call, nil
	}
}

// parseParenOrTuple distinguishes a grouped expression from a tuple literal:
// a comma inside the parentheses makes it a tuple.
func (p *parser) parseParenOrTuple() (node, error) {
	if err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	if p.accept(tokRParen) {
		return &listLit{}, nil
	}
	first, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.accept(tokRParen) {
		return first, nil
	}
	elems := []node{first}
	for p.accept(tokComma) {
		if p.peek().kind == tokRParen {
			break
		}
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, n)
	}
	if err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	return &listLit{elems: elems}, nil
}

func (p *parser) parseList() (node, error) {
	if err := p.expect(tokLBracket); err != nil {
		return nil, err
	}
	lst := &listLit{}
	if p.accept(tokRBracket) {
		return lst, nil
	}
	for {
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		lst.elems = append(lst.elems, n)
		if p.accept(tokComma) {
			if p.peek().kind == tokRBracket {
				break
			}
			continue
		}
		break
	}
	if err := p.expect(tokRBracket); err != nil {
		return nil, err
	}
	return lst, nil
}
