// Package eval implements the sandboxed expression interpreter used by
// condition and value-bearing blocks. Sequences are assembled by
// non-programmers through a palette UI, so the evaluator must never execute
// arbitrary code: the grammar is an explicit whitelist of literals, variable
// references, arithmetic, comparisons (with chained semantics), boolean
// operators, and a fixed function table.
package eval

import (
	"fmt"
	"math"
)

// Error reports a parse or evaluation failure, always naming the offending
// expression text.
type Error struct {
	Expr string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid expression %q: %s", e.Expr, e.Msg)
}

// Resolver supplies variable values. Unresolved names are evaluation errors;
// the whitelist is only meaningful if stray identifiers like "os" are
// rejected rather than defaulted.
type Resolver interface {
	Resolve(name string) (any, bool)
}

// MapResolver adapts a plain map for tests and one-off evaluation.
type MapResolver map[string]any

func (m MapResolver) Resolve(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Evaluate parses and evaluates an expression against the given variables.
// Results are int64, float64, bool, string, or []any.
func Evaluate(expr string, vars Resolver) (any, error) {
	root, err := parse(expr)
	if err != nil {
		return nil, &Error{Expr: expr, Msg: err.Error()}
	}
	v, err := evalNode(root, vars)
	if err != nil {
		return nil, &Error{Expr: expr, Msg: err.Error()}
	}
	return v, nil
}

// EvaluateBool evaluates an expression and applies truthiness, for condition
// parameters.
func EvaluateBool(expr string, vars Resolver) (bool, error) {
	v, err := Evaluate(expr, vars)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func evalNode(n node, vars Resolver) (any, error) {
	switch t := n.(type) {
	case *numberLit:
		if t.isFloat {
			return t.fltVal, nil
		}
		return t.intVal, nil
	case *stringLit:
		return t.val, nil
	case *boolLit:
		return t.val, nil
	case *listLit:
		out := make([]any, len(t.elems))
		for i, e := range t.elems {
			v, err := evalNode(e, vars)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *nameRef:
		v, ok := vars.Resolve(t.name)
		if !ok {
			return nil, fmt.Errorf("undefined variable %q", t.name)
		}
		return normalize(v), nil
	case *unaryOp:
		return evalUnary(t, vars)
	case *binaryOp:
		return evalBinary(t, vars)
	case *boolOp:
		return evalBool(t, vars)
	case *compareOp:
		return evalCompare(t, vars)
	case *callExpr:
		return evalCall(t, vars)
	}
	return nil, fmt.Errorf("unsupported construct %T", n)
}

func evalUnary(u *unaryOp, vars Resolver) (any, error) {
	v, err := evalNode(u.operand, vars)
	if err != nil {
		return nil, err
	}
	switch u.op {
	case tokNot:
		return !truthy(v), nil
	case tokMinus:
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}
		return nil, fmt.Errorf("unary - requires a number, got %s", typeName(v))
	case tokPlus:
		switch v.(type) {
		case int64, float64:
			return v, nil
		}
		return nil, fmt.Errorf("unary + requires a number, got %s", typeName(v))
	}
	return nil, fmt.Errorf("unsupported unary operator %s", u.op)
}

func evalBool(b *boolOp, vars Resolver) (any, error) {
	for _, vn := range b.values {
		v, err := evalNode(vn, vars)
		if err != nil {
			return nil, err
		}
		if b.op == tokAnd && !truthy(v) {
			return false, nil
		}
		if b.op == tokOr && truthy(v) {
			return true, nil
		}
	}
	return b.op == tokAnd, nil
}

func evalCompare(c *compareOp, vars Resolver) (any, error) {
	left, err := evalNode(c.left, vars)
	if err != nil {
		return nil, err
	}
	for i, op := range c.ops {
		right, err := evalNode(c.comparators[i], vars)
		if err != nil {
			return nil, err
		}
		ok, err := compareValues(op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return false, nil
		}
		left = right
	}
	return true, nil
}

func evalBinary(b *binaryOp, vars Resolver) (any, error) {
	left, err := evalNode(b.left, vars)
	if err != nil {
		return nil, err
	}
	right, err := evalNode(b.right, vars)
	if err != nil {
		return nil, err
	}
	return applyBinary(b.op, left, right)
}

func applyBinary(op tokenKind, left, right any) (any, error) {
	switch op {
	case tokPlus:
		if ls, ok := left.(string); ok {
			rs, ok := right.(string)
			if !ok {
				return nil, fmt.Errorf("cannot add string and %s", typeName(right))
			}
			return ls + rs, nil
		}
		if ll, ok := left.([]any); ok {
			rl, ok := right.([]any)
			if !ok {
				return nil, fmt.Errorf("cannot add list and %s", typeName(right))
			}
			out := make([]any, 0, len(ll)+len(rl))
			out = append(out, ll...)
			out = append(out, rl...)
			return out, nil
		}
		return numericOp(op, left, right)
	case tokMinus, tokStar, tokSlash, tokDoubleSlash, tokPercent, tokDoubleStar:
		return numericOp(op, left, right)
	}
	return nil, fmt.Errorf("unsupported operator %s", op)
}

func numericOp(op tokenKind, left, right any) (any, error) {
	li, lInt := left.(int64)
	ri, rInt := right.(int64)
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("operator %s requires numbers, got %s and %s", op, typeName(left), typeName(right))
	}

	switch op {
	case tokPlus:
		if lInt && rInt {
			return li + ri, nil
		}
		return lf + rf, nil
	case tokMinus:
		if lInt && rInt {
			return li - ri, nil
		}
		return lf - rf, nil
	case tokStar:
		if lInt && rInt {
			return li * ri, nil
		}
		return lf * rf, nil
	case tokSlash:
		// True division always yields a float; the Math block, not the
		// evaluator, is the component with the infinity policy.
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return lf / rf, nil
	case tokDoubleSlash:
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		if lInt && rInt {
			return floorDivInt(li, ri), nil
		}
		return math.Floor(lf / rf), nil
	case tokPercent:
		if rf == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		if lInt && rInt {
			return floorModInt(li, ri), nil
		}
		m := math.Mod(lf, rf)
		if m != 0 && (m < 0) != (rf < 0) {
			m += rf
		}
		return m, nil
	case tokDoubleStar:
		if lInt && rInt && ri >= 0 {
			return intPow(li, ri), nil
		}
		return math.Pow(lf, rf), nil
	}
	return nil, fmt.Errorf("unsupported operator %s", op)
}

// floorDivInt and floorModInt round toward negative infinity, matching the
// grammar's floor-division semantics rather than Go's truncation.
func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorModInt(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func intPow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func compareValues(op tokenKind, left, right any) (bool, error) {
	if lf, lok := toFloat(left); lok {
		if rf, rok := toFloat(right); rok {
			switch op {
			case tokLt:
				return lf < rf, nil
			case tokLte:
				return lf <= rf, nil
			case tokGt:
				return lf > rf, nil
			case tokGte:
				return lf >= rf, nil
			case tokEq:
				return lf == rf, nil
			case tokNeq:
				return lf != rf, nil
			}
		}
	}
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			switch op {
			case tokLt:
				return ls < rs, nil
			case tokLte:
				return ls <= rs, nil
			case tokGt:
				return ls > rs, nil
			case tokGte:
				return ls >= rs, nil
			case tokEq:
				return ls == rs, nil
			case tokNeq:
				return ls != rs, nil
			}
		}
	}
	if op == tokEq || op == tokNeq {
		eq := looseEqual(left, right)
		if op == tokEq {
			return eq, nil
		}
		return !eq, nil
	}
	return false, fmt.Errorf("cannot compare %s and %s", typeName(left), typeName(right))
}

func looseEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	if al, ok := a.([]any); ok {
		bl, ok := b.([]any)
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !looseEqual(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// truthy follows the usual empty/zero conventions so conditions can test
// variables directly.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// normalize maps externally supplied variable values onto the evaluator's
// value set. Context variables may arrive as Go ints (YAML decoding) or
// float32s (instrument readings).
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64, float64, bool, string:
		return v
	case float32:
		return float64(n)
	case uint:
		return int64(n)
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = normalize(e)
		}
		return out
	case []float64:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = e
		}
		return out
	case []int:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = int64(e)
		}
		return out
	}
	return v
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "none"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case []any:
		return "list"
	}
	return fmt.Sprintf("%T", v)
}
