package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// funcTable is the complete set of callable functions. The parser rejects
// any call not present here, so adding a function is an explicit act.
// round() rounds half away from zero.
var funcTable = map[string]func(args []any) (any, error){
	"abs":   fnAbs,
	"min":   fnMin,
	"max":   fnMax,
	"round": fnRound,
	"int":   fnInt,
	"float": fnFloat,
	"str":   fnStr,
	"len":   fnLen,
}

func evalCall(c *callExpr, vars Resolver) (any, error) {
	fn, ok := funcTable[c.fn]
	if !ok {
		return nil, fmt.Errorf("function %q is not allowed", c.fn)
	}
	args := make([]any, len(c.args))
	for i, a := range c.args {
		v, err := evalNode(a, vars)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn(args)
}

func fnAbs(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("abs() takes one argument")
	}
	switch n := args[0].(type) {
	case int64:
		if n < 0 {
			return -n, nil
		}
		return n, nil
	case float64:
		return math.Abs(n), nil
	}
	return nil, fmt.Errorf("abs() requires a number, got %s", typeName(args[0]))
}

func fnMin(args []any) (any, error) { return pickExtreme("min", args, func(a, b float64) bool { return a < b }) }
func fnMax(args []any) (any, error) { return pickExtreme("max", args, func(a, b float64) bool { return a > b }) }

// pickExtreme accepts either variadic numbers or a single list.
func pickExtreme(name string, args []any, better func(a, b float64) bool) (any, error) {
	items := args
	if len(args) == 1 {
		if lst, ok := args[0].([]any); ok {
			items = lst
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s() of empty sequence", name)
	}
	best := items[0]
	bestF, ok := toFloat(best)
	if !ok {
		return nil, fmt.Errorf("%s() requires numbers, got %s", name, typeName(best))
	}
	for _, it := range items[1:] {
		f, ok := toFloat(it)
		if !ok {
			return nil, fmt.Errorf("%s() requires numbers, got %s", name, typeName(it))
		}
		if better(f, bestF) {
			best, bestF = it, f
		}
	}
	return best, nil
}

func fnRound(args []any) (any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("round() takes one or two arguments")
	}
	f, ok := toFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("round() requires a number, got %s", typeName(args[0]))
	}
	if len(args) == 2 {
		nd, ok := args[1].(int64)
		if !ok {
			return nil, fmt.Errorf("round() digits must be an int, got %s", typeName(args[1]))
		}
		scale := math.Pow(10, float64(nd))
		return math.Round(f*scale) / scale, nil
	}
	return int64(math.Round(f)), nil
}

func fnInt(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("int() takes one argument")
	}
	switch n := args[0].(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case bool:
		if n {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		iv, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("int() cannot convert %q", n)
		}
		return iv, nil
	}
	return nil, fmt.Errorf("int() cannot convert %s", typeName(args[0]))
}

func fnFloat(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("float() takes one argument")
	}
	if f, ok := toFloat(args[0]); ok {
		return f, nil
	}
	if s, ok := args[0].(string); ok {
		fv, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("float() cannot convert %q", s)
		}
		return fv, nil
	}
	return nil, fmt.Errorf("float() cannot convert %s", typeName(args[0]))
}

func fnStr(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("str() takes one argument")
	}
	return Format(args[0]), nil
}

func fnLen(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len() takes one argument")
	}
	switch v := args[0].(type) {
	case string:
		return int64(len([]rune(v))), nil
	case []any:
		return int64(len(v)), nil
	}
	return nil, fmt.Errorf("len() requires a string or list, got %s", typeName(args[0]))
}

// Format renders an evaluator value as a display string. Shared with result
// logging so values print the same everywhere.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return "none"
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = Format(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", v)
}
