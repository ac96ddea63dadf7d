package blocks

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"benchflow/eval"
	"benchflow/runtime"
)

// SetVariable evaluates an expression and binds the result to a context
// variable.
type SetVariable struct {
	runtime.BaseBlock
}

func NewSetVariable() runtime.Block {
	b := &SetVariable{BaseBlock: runtime.NewBaseBlock(runtime.KindSetVariable, "Set Variable")}
	b.AddParameter(runtime.Parameter{
		Name: "variable", Type: runtime.ParamString, Default: "result", Label: "Variable Name",
	})
	b.AddParameter(runtime.Parameter{
		Name: "expression", Type: runtime.ParamString, Default: "0", Label: "Expression",
	})
	return b
}

func (b *SetVariable) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	varName := b.String("variable")
	expression := b.String("expression")

	value, err := eval.Evaluate(expression, ctx)
	if err != nil {
		return nil, err
	}
	ctx.SetVariable(varName, value)
	ctx.Logger().Info(fmt.Sprintf("set %s = %v", varName, value))
	return runtime.Outcome{"status": "success", "variable": varName, "value": value}, nil
}

// Math performs one arithmetic operation on evaluated inputs and stores the
// result. Division by zero yields signed infinity rather than an error.
type Math struct {
	runtime.BaseBlock
}

func NewMath() runtime.Block {
	b := &Math{BaseBlock: runtime.NewBaseBlock(runtime.KindMath, "Math Operation")}
	b.AddParameter(runtime.Parameter{
		Name: "operation", Type: runtime.ParamChoice, Default: "add", Label: "Operation",
		Choices: []any{"add", "subtract", "multiply", "divide", "power", "sqrt", "abs", "round"},
	})
	b.AddParameter(runtime.Parameter{
		Name: "input1", Type: runtime.ParamString, Default: "a", Label: "Input 1 (variable or value)",
	})
	b.AddParameter(runtime.Parameter{
		Name: "input2", Type: runtime.ParamString, Default: "b", Label: "Input 2 (variable or value)",
	})
	b.AddParameter(runtime.Parameter{
		Name: "output", Type: runtime.ParamString, Default: "result", Label: "Output Variable",
	})
	return b
}

// unary operations ignore input2
func isUnaryOp(op string) bool {
	return op == "sqrt" || op == "abs" || op == "round"
}

func (b *Math) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	operation := b.String("operation")
	outputVar := b.String("output")

	val1, err := evalNumber(b.String("input1"), ctx)
	if err != nil {
		return nil, err
	}
	var val2 float64
	if !isUnaryOp(operation) {
		val2, err = evalNumber(b.String("input2"), ctx)
		if err != nil {
			return nil, err
		}
	}

	var result float64
	switch operation {
	case "add":
		result = val1 + val2
	case "subtract":
		result = val1 - val2
	case "multiply":
		result = val1 * val2
	case "divide":
		if val2 == 0 {
			result = math.Inf(1)
			if val1 < 0 {
				result = math.Inf(-1)
			}
		} else {
			result = val1 / val2
		}
	case "power":
		result = math.Pow(val1, val2)
	case "sqrt":
		result = math.Sqrt(val1)
	case "abs":
		result = math.Abs(val1)
	case "round":
		result = math.Round(val1)
	default:
		return nil, fmt.Errorf("unsupported math operation %q", operation)
	}

	ctx.SetVariable(outputVar, result)
	ctx.Logger().Info(fmt.Sprintf("math: %s(%g, %g) = %g", operation, val1, val2, result))
	return runtime.Outcome{
		"status":    "success",
		"operation": operation,
		"result":    result,
		"output":    outputVar,
	}, nil
}

func evalNumber(expr string, ctx *runtime.Context) (float64, error) {
	v, err := eval.Evaluate(expr, ctx)
	if err != nil {
		return 0, err
	}
	f, ok := asFloat(v)
	if !ok {
		return 0, fmt.Errorf("expression %q did not produce a number (got %v)", expr, v)
	}
	return f, nil
}

// DataTransform applies a list operation. For filter and map the expression
// is evaluated per element against a derived context where x is the element,
// so expression side effects never touch the run's variables.
type DataTransform struct {
	runtime.BaseBlock
}

func NewDataTransform() runtime.Block {
	b := &DataTransform{BaseBlock: runtime.NewBaseBlock(runtime.KindDataTransform, "Data Transform")}
	b.AddParameter(runtime.Parameter{
		Name: "input_variable", Type: runtime.ParamString, Default: "data", Label: "Input Variable",
	})
	b.AddParameter(runtime.Parameter{
		Name: "operation", Type: runtime.ParamChoice, Default: "filter", Label: "Operation",
		Choices: []any{"filter", "map", "slice", "sort", "reverse"},
	})
	b.AddParameter(runtime.Parameter{
		Name: "expression", Type: runtime.ParamString, Default: "x > 0", Label: "Expression/Condition",
	})
	b.AddParameter(runtime.Parameter{
		Name: "output_variable", Type: runtime.ParamString, Default: "filtered", Label: "Output Variable",
	})
	return b
}

func (b *DataTransform) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	inputVar := b.String("input_variable")
	operation := b.String("operation")
	expression := b.String("expression")
	outputVar := b.String("output_variable")

	data, ok := ctx.Variable(inputVar, nil).([]any)
	if !ok {
		return nil, fmt.Errorf("input %q must be a list", inputVar)
	}

	var result []any
	switch operation {
	case "filter":
		for _, item := range data {
			keep, err := eval.EvaluateBool(expression, ctx.Derived("x", item))
			if err != nil {
				return nil, err
			}
			if keep {
				result = append(result, item)
			}
		}
	case "map":
		for _, item := range data {
			v, err := eval.Evaluate(expression, ctx.Derived("x", item))
			if err != nil {
				return nil, err
			}
			result = append(result, v)
		}
	case "slice":
		var err error
		result, err = sliceRange(data, expression)
		if err != nil {
			return nil, err
		}
	case "sort":
		result = append([]any(nil), data...)
		sort.SliceStable(result, func(i, j int) bool {
			return sortLess(result[i], result[j])
		})
	case "reverse":
		result = make([]any, len(data))
		for i, item := range data {
			result[len(data)-1-i] = item
		}
	default:
		return nil, fmt.Errorf("unsupported transform operation %q", operation)
	}

	if result == nil {
		result = []any{}
	}
	ctx.SetVariable(outputVar, result)
	ctx.Logger().Info(fmt.Sprintf("transform: %s on %d items -> %d items", operation, len(data), len(result)))
	return runtime.Outcome{
		"status":      "success",
		"operation":   operation,
		"input_size":  len(data),
		"output_size": len(result),
		"output":      outputVar,
	}, nil
}

// sortLess orders two list elements: a pair of strings compares
// lexicographically, anything else compares numerically.
func sortLess(a, b any) bool {
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return sa < sb
	}
	fa, _ := asFloat(a)
	fb, _ := asFloat(b)
	return fa < fb
}

// sliceRange interprets "start:end" with either side optional. Indexes are
// clamped to the list bounds.
func sliceRange(data []any, spec string) ([]any, error) {
	parts := strings.SplitN(spec, ":", 2)
	start, end := 0, len(data)
	var err error
	if s := strings.TrimSpace(parts[0]); s != "" {
		if start, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("invalid slice start %q", s)
		}
	}
	if len(parts) > 1 {
		if s := strings.TrimSpace(parts[1]); s != "" {
			if end, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("invalid slice end %q", s)
			}
		}
	}
	if start < 0 {
		start += len(data)
	}
	if end < 0 {
		end += len(data)
	}
	start = clamp(start, 0, len(data))
	end = clamp(end, 0, len(data))
	if start >= end {
		return []any{}, nil
	}
	return append([]any(nil), data[start:end]...), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
