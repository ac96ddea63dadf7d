// Package blocks provides the built-in block set: bench actions, variable
// and data manipulation, and the control-flow markers the executor
// interprets.
package blocks

import (
	"fmt"
	"time"

	"benchflow/runtime"
)

// Delay pauses the sequence for a fixed duration.
type Delay struct {
	runtime.BaseBlock
}

func NewDelay() runtime.Block {
	b := &Delay{BaseBlock: runtime.NewBaseBlock(runtime.KindDelay, "Delay")}
	b.AddParameter(runtime.Parameter{
		Name: "duration", Type: runtime.ParamFloat, Default: 1.0,
		Label: "Duration (seconds)", Min: runtime.Bound(0.001),
	})
	return b
}

func (b *Delay) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	duration := b.Float("duration")
	ctx.Logger().Info(fmt.Sprintf("delaying for %gs", duration))
	time.Sleep(time.Duration(duration * float64(time.Second)))
	return runtime.Outcome{"status": "success", "duration": duration}, nil
}

// SetVoltage programs an output voltage on a voltage-source instrument.
type SetVoltage struct {
	runtime.BaseBlock
}

func NewSetVoltage() runtime.Block {
	b := &SetVoltage{BaseBlock: runtime.NewBaseBlock(runtime.KindSetVoltage, "Set Voltage")}
	b.AddParameter(runtime.Parameter{Name: "instrument", Type: runtime.ParamInstrument, Label: "Power Supply"})
	b.AddParameter(runtime.Parameter{
		Name: "channel", Type: runtime.ParamInt, Default: 1, Label: "Channel", Min: runtime.Bound(1),
	})
	b.AddParameter(runtime.Parameter{
		Name: "voltage", Type: runtime.ParamFloat, Default: 5.0,
		Label: "Voltage (V)", Min: runtime.Bound(0),
	})
	return b
}

func (b *SetVoltage) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	name := b.String("instrument")
	channel := b.Int("channel")
	voltage := b.Float("voltage")

	handle, err := ctx.Instrument(name)
	if err != nil {
		return nil, err
	}
	src, ok := handle.(runtime.VoltageSource)
	if !ok {
		return nil, &runtime.CapabilityError{Instrument: name, Capability: "voltage source"}
	}
	if err := src.SetVoltage(channel, voltage); err != nil {
		return nil, err
	}
	ctx.Logger().Info(fmt.Sprintf("set %s CH%d to %gV", name, channel, voltage))
	return runtime.Outcome{"status": "success", "voltage": voltage}, nil
}

// SetCurrent programs a current limit on a current-source instrument.
type SetCurrent struct {
	runtime.BaseBlock
}

func NewSetCurrent() runtime.Block {
	b := &SetCurrent{BaseBlock: runtime.NewBaseBlock(runtime.KindSetCurrent, "Set Current")}
	b.AddParameter(runtime.Parameter{Name: "instrument", Type: runtime.ParamInstrument, Label: "Power Supply"})
	b.AddParameter(runtime.Parameter{
		Name: "channel", Type: runtime.ParamInt, Default: 1, Label: "Channel", Min: runtime.Bound(1),
	})
	b.AddParameter(runtime.Parameter{
		Name: "current", Type: runtime.ParamFloat, Default: 1.0,
		Label: "Current (A)", Min: runtime.Bound(0),
	})
	return b
}

func (b *SetCurrent) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	name := b.String("instrument")
	channel := b.Int("channel")
	current := b.Float("current")

	handle, err := ctx.Instrument(name)
	if err != nil {
		return nil, err
	}
	src, ok := handle.(runtime.CurrentSource)
	if !ok {
		return nil, &runtime.CapabilityError{Instrument: name, Capability: "current source"}
	}
	if err := src.SetCurrent(channel, current); err != nil {
		return nil, err
	}
	ctx.Logger().Info(fmt.Sprintf("set %s CH%d current to %gA", name, channel, current))
	return runtime.Outcome{"status": "success", "current": current}, nil
}

// OutputEnable switches an instrument output on or off.
type OutputEnable struct {
	runtime.BaseBlock
}

func NewOutputEnable() runtime.Block {
	b := &OutputEnable{BaseBlock: runtime.NewBaseBlock(runtime.KindOutputEnable, "Output Enable")}
	b.AddParameter(runtime.Parameter{Name: "instrument", Type: runtime.ParamInstrument, Label: "Instrument"})
	b.AddParameter(runtime.Parameter{
		Name: "channel", Type: runtime.ParamInt, Default: 1, Label: "Channel", Min: runtime.Bound(1),
	})
	b.AddParameter(runtime.Parameter{
		Name: "enable", Type: runtime.ParamBool, Default: true, Label: "Enable Output",
	})
	return b
}

func (b *OutputEnable) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	name := b.String("instrument")
	channel := b.Int("channel")
	enable := b.Bool("enable")

	handle, err := ctx.Instrument(name)
	if err != nil {
		return nil, err
	}
	sw, ok := handle.(runtime.OutputSwitch)
	if !ok {
		return nil, &runtime.CapabilityError{Instrument: name, Capability: "output switch"}
	}
	if err := sw.SetOutput(channel, enable); err != nil {
		return nil, err
	}
	state := "disabled"
	if enable {
		state = "enabled"
	}
	ctx.Logger().Info(fmt.Sprintf("output %s on %s CH%d", state, name, channel))
	return runtime.Outcome{"status": "success", "enabled": enable}, nil
}

// Measure takes a reading from a measuring instrument and stores it in a
// context variable.
type Measure struct {
	runtime.BaseBlock
}

func NewMeasure() runtime.Block {
	b := &Measure{BaseBlock: runtime.NewBaseBlock(runtime.KindMeasure, "Measure")}
	b.AddParameter(runtime.Parameter{Name: "instrument", Type: runtime.ParamInstrument, Label: "Instrument"})
	b.AddParameter(runtime.Parameter{
		Name: "variable", Type: runtime.ParamString, Default: "measurement", Label: "Store in Variable",
	})
	return b
}

func (b *Measure) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	name := b.String("instrument")
	varName := b.String("variable")

	handle, err := ctx.Instrument(name)
	if err != nil {
		return nil, err
	}
	m, ok := handle.(runtime.Measurer)
	if !ok {
		return nil, &runtime.CapabilityError{Instrument: name, Capability: "measure"}
	}
	value, err := m.Measure()
	if err != nil {
		return nil, err
	}

	ctx.SetVariable(varName, value)
	ctx.Logger().Info(fmt.Sprintf("measured %g on %s, stored in %s", value, name, varName))
	return runtime.Outcome{"status": "success", "value": value, "variable": varName}, nil
}

// LogData forwards one labelled variable value to the context's data sink.
type LogData struct {
	runtime.BaseBlock
}

func NewLogData() runtime.Block {
	b := &LogData{BaseBlock: runtime.NewBaseBlock(runtime.KindLogData, "Log Data")}
	b.AddParameter(runtime.Parameter{
		Name: "variable", Type: runtime.ParamString, Default: "measurement", Label: "Variable to Log",
	})
	b.AddParameter(runtime.Parameter{
		Name: "label", Type: runtime.ParamString, Default: "", Label: "Label (optional)",
	})
	return b
}

func (b *LogData) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	varName := b.String("variable")
	label := b.String("label")
	if label == "" {
		label = varName
	}

	value := ctx.Variable(varName, nil)
	if value == nil {
		return nil, fmt.Errorf("variable %q not found", varName)
	}

	if sink := ctx.Sink(); sink != nil {
		if err := sink.LogData(map[string]any{label: value}); err != nil {
			return nil, err
		}
	}
	ctx.Logger().Info(fmt.Sprintf("logged: %s = %v", label, value))
	return runtime.Outcome{"status": "success", "variable": varName, "value": value}, nil
}

// Comment is an inert documentation block.
type Comment struct {
	runtime.BaseBlock
}

func NewComment() runtime.Block {
	b := &Comment{BaseBlock: runtime.NewBaseBlock(runtime.KindComment, "Comment")}
	b.AddParameter(runtime.Parameter{
		Name: "text", Type: runtime.ParamString, Default: "", Label: "Comment Text",
	})
	return b
}

func (b *Comment) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	text := b.String("text")
	ctx.Logger().Info(fmt.Sprintf("comment: %s", text))
	return runtime.Outcome{"status": "success", "text": text}, nil
}

// Assert checks a variable against a threshold and fails the block if the
// comparison does not hold.
type Assert struct {
	runtime.BaseBlock
}

func NewAssert() runtime.Block {
	b := &Assert{BaseBlock: runtime.NewBaseBlock(runtime.KindAssert, "Assert")}
	b.AddParameter(runtime.Parameter{
		Name: "variable", Type: runtime.ParamString, Default: "measurement", Label: "Variable",
	})
	b.AddParameter(runtime.Parameter{
		Name: "operator", Type: runtime.ParamChoice, Default: ">", Label: "Operator",
		Choices: []any{">", "<", ">=", "<=", "==", "!="},
	})
	b.AddParameter(runtime.Parameter{
		Name: "value", Type: runtime.ParamFloat, Default: 0.0, Label: "Expected Value",
	})
	b.AddParameter(runtime.Parameter{
		Name: "message", Type: runtime.ParamString, Default: "Assertion failed", Label: "Error Message",
	})
	return b
}

func (b *Assert) Execute(ctx *runtime.Context) (runtime.Outcome, error) {
	varName := b.String("variable")
	op := b.String("operator")
	expected := b.Float("value")
	message := b.String("message")

	actual := ctx.Variable(varName, nil)
	if actual == nil {
		return nil, fmt.Errorf("variable %q not found", varName)
	}

	passed, err := compareThreshold(actual, op, expected)
	if err != nil {
		return nil, err
	}
	if !passed {
		msg := fmt.Sprintf("%s: %s(%v) %s %g", message, varName, actual, op, expected)
		ctx.Logger().Error(msg)
		return nil, fmt.Errorf("%s", msg)
	}

	ctx.Logger().Info(fmt.Sprintf("assertion passed: %s(%v) %s %g", varName, actual, op, expected))
	return runtime.Outcome{
		"status":   "success",
		"passed":   true,
		"variable": varName,
		"actual":   actual,
		"expected": expected,
	}, nil
}

// compareThreshold applies one of the six relational operators between a
// variable value and a numeric threshold.
func compareThreshold(actual any, op string, threshold float64) (bool, error) {
	v, ok := asFloat(actual)
	if !ok {
		return false, fmt.Errorf("value %v is not numeric", actual)
	}
	switch op {
	case ">":
		return v > threshold, nil
	case "<":
		return v < threshold, nil
	case ">=":
		return v >= threshold, nil
	case "<=":
		return v <= threshold, nil
	case "==":
		return v == threshold, nil
	case "!=":
		return v != threshold, nil
	}
	return false, fmt.Errorf("unsupported operator %q", op)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
