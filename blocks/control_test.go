package blocks

import (
	"testing"
	"time"

	"benchflow/runtime"
)

func TestIf_ConditionMet(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.SetVariable("reading", 7.5)

	b := NewIf()
	set(t, b, "variable", "reading")
	set(t, b, "operator", ">=")
	set(t, b, "value", 7.5)

	out, err := b.Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["condition_met"] != true {
		t.Errorf("outcome = %v, want condition_met true", out)
	}

	set(t, b, "operator", "<")
	out, err = b.Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["condition_met"] != false {
		t.Errorf("outcome = %v, want condition_met false", out)
	}
}

func TestIf_MissingVariable(t *testing.T) {
	ctx := runtime.NewContext()

	b := NewIf()
	set(t, b, "variable", "ghost")

	if _, err := b.Execute(ctx); err == nil {
		t.Error("expected error, got none")
	}
}

func TestWaitFor_ConditionAlreadyTrue(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.SetVariable("voltage", 6.0)

	b := NewWaitFor()
	set(t, b, "condition", "voltage > 5.0")
	set(t, b, "timeout", 1.0)
	set(t, b, "check_interval", 0.01)

	out, err := b.Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["status"] != "success" || out["condition_met"] != true {
		t.Errorf("outcome = %v, want immediate success", out)
	}
}

func TestWaitFor_ConditionBecomesTrue(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.SetVariable("voltage", 1.0)

	b := NewWaitFor()
	set(t, b, "condition", "voltage > 5.0")
	set(t, b, "timeout", 2.0)
	set(t, b, "check_interval", 0.02)

	delay := 100 * time.Millisecond
	go func() {
		time.Sleep(delay)
		ctx.SetVariable("voltage", 6.0)
	}()

	out, err := b.Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["status"] != "success" || out["condition_met"] != true {
		t.Fatalf("outcome = %v, want success after the variable flips", out)
	}
	elapsed, ok := out["elapsed_time"].(float64)
	if !ok {
		t.Fatalf("elapsed_time is %T, want float64", out["elapsed_time"])
	}
	if elapsed < delay.Seconds() {
		t.Errorf("elapsed_time = %v, want at least the %v flip delay", elapsed, delay)
	}
	if elapsed > 1.0 {
		t.Errorf("elapsed_time = %v, want well under the timeout", elapsed)
	}
}

func TestWaitFor_Timeout(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.SetVariable("voltage", 1.0)

	b := NewWaitFor()
	set(t, b, "condition", "voltage > 5.0")
	set(t, b, "timeout", 0.1)
	set(t, b, "check_interval", 0.01)

	start := time.Now()
	out, err := b.Execute(ctx)
	if err != nil {
		t.Fatalf("timeout must be an outcome, not an error: %v", err)
	}
	if out["status"] != "timeout" || out["condition_met"] != false {
		t.Errorf("outcome = %v, want timeout", out)
	}
	if out["elapsed_time"] != 0.1 {
		t.Errorf("elapsed_time = %v, want the timeout value", out["elapsed_time"])
	}
	if time.Since(start) > time.Second {
		t.Error("wait_for ran far past its timeout")
	}
}

func TestSweep_Linear(t *testing.T) {
	ctx := runtime.NewContext()

	b := NewSweep()
	set(t, b, "variable", "v")
	set(t, b, "start", 0.0)
	set(t, b, "stop", 5.0)
	set(t, b, "step", 1.0)
	set(t, b, "mode", "linear")

	out, err := b.Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values, ok := ctx.Variable("v_sweep_values", nil).([]any)
	if !ok {
		t.Fatalf("v_sweep_values is %T, want []any", ctx.Variable("v_sweep_values", nil))
	}
	if len(values) != 6 {
		t.Fatalf("values = %v, want 6 points including the stop value", values)
	}
	if values[0] != 0.0 || values[5] != 5.0 {
		t.Errorf("endpoints = %v .. %v, want 0 and 5", values[0], values[5])
	}
	if got := ctx.Variable("v_sweep_index", nil); got != int64(0) {
		t.Errorf("v_sweep_index = %v, want 0", got)
	}
	if out["num_values"] != 6 {
		t.Errorf("outcome num_values = %v, want 6", out["num_values"])
	}
}

func TestSweep_List(t *testing.T) {
	ctx := runtime.NewContext()

	b := NewSweep()
	set(t, b, "variable", "v")
	set(t, b, "mode", "list")
	set(t, b, "values_list", "1.5, 2.5, 10")

	if _, err := b.Execute(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values, _ := ctx.Variable("v_sweep_values", nil).([]any)
	if len(values) != 3 || values[0] != 1.5 || values[2] != 10.0 {
		t.Errorf("values = %v, want [1.5 2.5 10]", values)
	}
}

func TestSweep_ListRejectsGarbage(t *testing.T) {
	ctx := runtime.NewContext()

	b := NewSweep()
	set(t, b, "mode", "list")
	set(t, b, "values_list", "1.5, banana")

	if _, err := b.Execute(ctx); err == nil {
		t.Error("expected error, got none")
	}
}

func TestSweep_LogarithmicRequiresPositiveRange(t *testing.T) {
	ctx := runtime.NewContext()

	b := NewSweep()
	set(t, b, "mode", "logarithmic")
	set(t, b, "start", 0.0)
	set(t, b, "stop", 100.0)

	if _, err := b.Execute(ctx); err == nil {
		t.Error("expected error for non-positive start, got none")
	}
}

func TestSweep_Logarithmic(t *testing.T) {
	ctx := runtime.NewContext()

	b := NewSweep()
	set(t, b, "variable", "f")
	set(t, b, "mode", "logarithmic")
	set(t, b, "start", 1.0)
	set(t, b, "stop", 100.0)
	set(t, b, "step", 33.0)

	if _, err := b.Execute(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values, _ := ctx.Variable("f_sweep_values", nil).([]any)
	if len(values) != 4 {
		t.Fatalf("values = %v, want 4 points", values)
	}
	first, _ := values[0].(float64)
	last, _ := values[3].(float64)
	if first < 0.999 || first > 1.001 {
		t.Errorf("first = %v, want 1", first)
	}
	if last < 99.9 || last > 100.1 {
		t.Errorf("last = %v, want 100", last)
	}
	for i := 1; i < len(values); i++ {
		if values[i].(float64) <= values[i-1].(float64) {
			t.Errorf("values not increasing: %v", values)
			break
		}
	}
}

func TestControlMarkers_ReportParameters(t *testing.T) {
	ctx := runtime.NewContext()

	loop := NewLoop()
	set(t, loop, "iterations", 7)
	out, err := loop.Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["status"] != "loop_start" || out["iterations"] != 7 {
		t.Errorf("loop outcome = %v", out)
	}

	try := NewTry()
	out, err = try.Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["status"] != "try_block" || out["continue_on_error"] != true {
		t.Errorf("try outcome = %v", out)
	}

	par := NewParallel()
	out, err = par.Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["status"] != "parallel_start" || out["max_workers"] != 4 {
		t.Errorf("parallel outcome = %v", out)
	}
}
