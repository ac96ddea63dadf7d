package blocks

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"benchflow/eval"
	"benchflow/runtime"
)

// Control-flow blocks are markers: their Execute reports parameters in the
// outcome and the executor drives the body, which spans the body_count
// blocks that follow the marker in the sequence.

func bodyCountParam() runtime.Parameter {
	return runtime.Parameter{
		Name: "body_count", Type: runtime.ParamInt, Default: 0,
		Label: "Body Blocks", Min: runtime.Bound(0),
		Description: "number of following blocks forming the body",
	}
}

// Loop repeats its body a fixed number of times, exposing the iteration
// counter as a variable.
type Loop struct {
	runtime.BaseBlock
}

func NewLoop() runtime.Block {
	b := &Loop{BaseBlock: runtime.NewBaseBlock(runtime.KindLoop, "Loop")}
	b.AddParameter(runtime.Parameter{
		Name: "iterations", Type: runtime.ParamInt, Default: 10, Label: "Iterations",
		Min: runtime.Bound(1), Max: runtime.Bound(10000),
	})
	b.AddParameter(runtime.Parameter{
		Name: "variable", Type: runtime.ParamString, Default: "i", Label: "Counter Variable",
	})
	b.AddParameter(bodyCountParam())
	return b
}

func (b *Loop) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	return runtime.Outcome{
		"status":     "loop_start",
		"iterations": b.Int("iterations"),
		"variable":   b.String("variable"),
	}, nil
}

// If evaluates a variable/operator/threshold condition; the executor routes
// around the body when the condition does not hold.
type If struct {
	runtime.BaseBlock
}

func NewIf() runtime.Block {
	b := &If{BaseBlock: runtime.NewBaseBlock(runtime.KindIf, "If Condition")}
	b.AddParameter(runtime.Parameter{
		Name: "variable", Type: runtime.ParamString, Default: "measurement", Label: "Variable",
	})
	b.AddParameter(runtime.Parameter{
		Name: "operator", Type: runtime.ParamChoice, Default: ">", Label: "Operator",
		Choices: []any{">", "<", ">=", "<=", "==", "!="},
	})
	b.AddParameter(runtime.Parameter{
		Name: "value", Type: runtime.ParamFloat, Default: 0.0, Label: "Value",
	})
	b.AddParameter(bodyCountParam())
	return b
}

func (b *If) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	varName := b.String("variable")
	op := b.String("operator")
	threshold := b.Float("value")

	value := ctx.Variable(varName, nil)
	if value == nil {
		return nil, fmt.Errorf("variable %q not found", varName)
	}
	met, err := compareThreshold(value, op, threshold)
	if err != nil {
		return nil, err
	}

	ctx.Logger().Info(fmt.Sprintf("condition: %s(%v) %s %g = %t", varName, value, op, threshold, met))
	return runtime.Outcome{
		"status":        "condition_evaluated",
		"condition_met": met,
		"variable":      varName,
		"value":         value,
	}, nil
}

// While marks a condition-driven loop; the executor re-evaluates the
// condition expression before each pass over the body.
type While struct {
	runtime.BaseBlock
}

func NewWhile() runtime.Block {
	b := &While{BaseBlock: runtime.NewBaseBlock(runtime.KindWhile, "While Loop")}
	b.AddParameter(runtime.Parameter{
		Name: "condition", Type: runtime.ParamString, Default: "i < 10", Label: "Condition Expression",
	})
	b.AddParameter(runtime.Parameter{
		Name: "max_iterations", Type: runtime.ParamInt, Default: 1000,
		Label: "Max Iterations (safety)", Min: runtime.Bound(1), Max: runtime.Bound(100000),
	})
	b.AddParameter(bodyCountParam())
	return b
}

func (b *While) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	return runtime.Outcome{
		"status":         "while_start",
		"condition":      b.String("condition"),
		"max_iterations": b.Int("max_iterations"),
	}, nil
}

// Try marks an error boundary around its body.
type Try struct {
	runtime.BaseBlock
}

func NewTry() runtime.Block {
	b := &Try{BaseBlock: runtime.NewBaseBlock(runtime.KindTry, "Try-Except")}
	b.AddParameter(runtime.Parameter{
		Name: "continue_on_error", Type: runtime.ParamBool, Default: true, Label: "Continue on Error",
	})
	b.AddParameter(runtime.Parameter{
		Name: "error_variable", Type: runtime.ParamString, Default: "error", Label: "Error Variable",
	})
	b.AddParameter(bodyCountParam())
	return b
}

func (b *Try) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	return runtime.Outcome{
		"status":            "try_block",
		"continue_on_error": b.Bool("continue_on_error"),
		"error_variable":    b.String("error_variable"),
	}, nil
}

// Parallel marks a fan-out region: the executor runs the body blocks
// concurrently on a bounded worker pool.
type Parallel struct {
	runtime.BaseBlock
}

func NewParallel() runtime.Block {
	b := &Parallel{BaseBlock: runtime.NewBaseBlock(runtime.KindParallel, "Parallel Execution")}
	b.AddParameter(runtime.Parameter{
		Name: "max_workers", Type: runtime.ParamInt, Default: 4, Label: "Max Parallel Workers",
		Min: runtime.Bound(1), Max: runtime.Bound(16),
	})
	b.AddParameter(runtime.Parameter{
		Name: "wait_all", Type: runtime.ParamBool, Default: true, Label: "Wait for All to Complete",
	})
	b.AddParameter(bodyCountParam())
	return b
}

func (b *Parallel) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	return runtime.Outcome{
		"status":      "parallel_start",
		"max_workers": b.Int("max_workers"),
		"wait_all":    b.Bool("wait_all"),
	}, nil
}

// WaitFor polls a condition expression until it holds or the timeout
// elapses. Timeout is an outcome, not a failure.
type WaitFor struct {
	runtime.BaseBlock
}

func NewWaitFor() runtime.Block {
	b := &WaitFor{BaseBlock: runtime.NewBaseBlock(runtime.KindWaitFor, "Wait For Condition")}
	b.AddParameter(runtime.Parameter{
		Name: "condition", Type: runtime.ParamString, Default: "voltage > 5.0", Label: "Condition",
	})
	b.AddParameter(runtime.Parameter{
		Name: "timeout", Type: runtime.ParamFloat, Default: 10.0,
		Label: "Timeout (seconds)", Min: runtime.Bound(0.1), Max: runtime.Bound(3600),
	})
	b.AddParameter(runtime.Parameter{
		Name: "check_interval", Type: runtime.ParamFloat, Default: 0.1,
		Label: "Check Interval (seconds)", Min: runtime.Bound(0.01), Max: runtime.Bound(10),
	})
	return b
}

func (b *WaitFor) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	condition := b.String("condition")
	timeout := b.Float("timeout")
	interval := b.Float("check_interval")

	start := time.Now()
	deadline := start.Add(time.Duration(timeout * float64(time.Second)))

	for time.Now().Before(deadline) {
		met, err := eval.EvaluateBool(condition, ctx)
		if err != nil {
			ctx.Logger().Warn("condition evaluation error", "condition", condition, "error", err)
		} else if met {
			elapsed := time.Since(start).Seconds()
			ctx.Logger().Info(fmt.Sprintf("condition met after %.2fs", elapsed))
			return runtime.Outcome{
				"status":        "success",
				"condition_met": true,
				"elapsed_time":  elapsed,
			}, nil
		}
		time.Sleep(time.Duration(interval * float64(time.Second)))
	}

	ctx.Logger().Warn(fmt.Sprintf("wait timeout after %gs", timeout))
	return runtime.Outcome{
		"status":        "timeout",
		"condition_met": false,
		"elapsed_time":  timeout,
	}, nil
}

// Sweep materializes a value series for a swept variable and stores it
// alongside a zeroed index, ready for a loop body to walk.
type Sweep struct {
	runtime.BaseBlock
}

func NewSweep() runtime.Block {
	b := &Sweep{BaseBlock: runtime.NewBaseBlock(runtime.KindSweep, "Parameter Sweep")}
	b.AddParameter(runtime.Parameter{
		Name: "variable", Type: runtime.ParamString, Default: "voltage", Label: "Variable Name",
	})
	b.AddParameter(runtime.Parameter{Name: "start", Type: runtime.ParamFloat, Default: 0.0, Label: "Start Value"})
	b.AddParameter(runtime.Parameter{Name: "stop", Type: runtime.ParamFloat, Default: 10.0, Label: "Stop Value"})
	b.AddParameter(runtime.Parameter{
		Name: "step", Type: runtime.ParamFloat, Default: 1.0, Label: "Step Size", Min: runtime.Bound(0.001),
	})
	b.AddParameter(runtime.Parameter{
		Name: "mode", Type: runtime.ParamChoice, Default: "linear", Label: "Sweep Mode",
		Choices: []any{"linear", "logarithmic", "list"},
	})
	b.AddParameter(runtime.Parameter{
		Name: "values_list", Type: runtime.ParamString, Default: "", Label: "Custom Values (comma-separated)",
	})
	return b
}

func (b *Sweep) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	variable := b.String("variable")
	start := b.Float("start")
	stop := b.Float("stop")
	step := b.Float("step")
	mode := b.String("mode")

	var values []any
	switch mode {
	case "linear":
		// Half-step slack keeps the stop value in despite float error.
		for v := start; v <= stop+step/2; v += step {
			values = append(values, v)
		}
	case "logarithmic":
		if start <= 0 || stop <= 0 {
			return nil, fmt.Errorf("logarithmic sweep requires positive start and stop")
		}
		points := int((stop-start)/step) + 1
		if points < 2 {
			values = append(values, start)
			break
		}
		lo, hi := math.Log10(start), math.Log10(stop)
		for i := 0; i < points; i++ {
			exp := lo + (hi-lo)*float64(i)/float64(points-1)
			values = append(values, math.Pow(10, exp))
		}
	case "list":
		for _, part := range strings.Split(b.String("values_list"), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid sweep value %q", part)
			}
			values = append(values, v)
		}
	default:
		values = append(values, start)
	}

	ctx.SetVariable(variable+"_sweep_values", values)
	ctx.SetVariable(variable+"_sweep_index", int64(0))
	ctx.Logger().Info(fmt.Sprintf("sweep setup: %s with %d values", variable, len(values)))

	return runtime.Outcome{
		"status":     "sweep_start",
		"variable":   variable,
		"num_values": len(values),
	}, nil
}
