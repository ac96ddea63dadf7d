package runtime

import (
	"errors"
	"strings"
	"testing"
)

func TestContext_Variables(t *testing.T) {
	ctx := NewContext()

	if got := ctx.Variable("missing", nil); got != nil {
		t.Errorf("Variable(missing) = %v, want nil", got)
	}
	if got := ctx.Variable("missing", 42); got != 42 {
		t.Errorf("Variable(missing, 42) = %v, want 42", got)
	}

	ctx.SetVariable("x", 3.3)
	if got := ctx.Variable("x", nil); got != 3.3 {
		t.Errorf("Variable(x) = %v, want 3.3", got)
	}

	snap := ctx.Snapshot()
	snap["x"] = 0.0
	if got := ctx.Variable("x", nil); got != 3.3 {
		t.Error("mutating a snapshot changed the context")
	}
}

func TestContext_Resolve(t *testing.T) {
	ctx := NewContext()
	ctx.SetVariable("reading", 5.0)

	v, ok := ctx.Resolve("reading")
	if !ok || v != 5.0 {
		t.Errorf("Resolve(reading) = %v, %v, want 5.0, true", v, ok)
	}
	if _, ok := ctx.Resolve("other"); ok {
		t.Error("Resolve(other) = true, want false")
	}
}

func TestContext_InstrumentNotFound(t *testing.T) {
	ctx := NewContext()

	_, err := ctx.Instrument("psu")
	if err == nil {
		t.Fatal("expected error, got none")
	}
	var nfe *InstrumentNotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("error type = %T, want *InstrumentNotFoundError", err)
	}
	if !strings.Contains(err.Error(), "no instruments registered") {
		t.Errorf("error = %v, want empty-registry wording", err)
	}

	ctx.RegisterInstrument("dmm", struct{}{})
	_, err = ctx.Instrument("psu")
	if err == nil || !strings.Contains(err.Error(), "available: dmm") {
		t.Errorf("error = %v, want listing of registered instruments", err)
	}
}

func TestContext_Reset(t *testing.T) {
	ctx := NewContext()
	ctx.SetVariable("x", 1)
	ctx.RegisterInstrument("psu", struct{}{})

	ctx.Reset()

	if got := ctx.Variable("x", nil); got != nil {
		t.Errorf("Variable(x) after reset = %v, want nil", got)
	}
	if _, err := ctx.Instrument("psu"); err != nil {
		t.Errorf("instruments should survive reset, got %v", err)
	}
}

func TestContext_Derived(t *testing.T) {
	ctx := NewContext()
	ctx.SetVariable("base", 10)
	ctx.RegisterInstrument("psu", struct{}{})

	child := ctx.Derived("x", 7)

	if got := child.Variable("x", nil); got != 7 {
		t.Errorf("child x = %v, want 7", got)
	}
	if got := child.Variable("base", nil); got != 10 {
		t.Errorf("child base = %v, want 10", got)
	}
	if _, err := child.Instrument("psu"); err != nil {
		t.Errorf("child should share instruments, got %v", err)
	}

	// Writes in the child never leak back.
	child.SetVariable("base", 99)
	if got := ctx.Variable("base", nil); got != 10 {
		t.Errorf("parent base = %v after child write, want 10", got)
	}
	if got := ctx.Variable("x", nil); got != nil {
		t.Errorf("parent x = %v, want nil", got)
	}
}

type captureSink struct {
	records []map[string]any
}

func (s *captureSink) LogData(data map[string]any) error {
	s.records = append(s.records, data)
	return nil
}

func TestContext_Sink(t *testing.T) {
	ctx := NewContext()
	if ctx.Sink() != nil {
		t.Error("fresh context has a sink")
	}

	sink := &captureSink{}
	ctx.SetSink(sink)
	if ctx.Sink() != Sink(sink) {
		t.Error("Sink() did not return the registered sink")
	}

	child := ctx.Derived("x", 1)
	if child.Sink() != Sink(sink) {
		t.Error("derived context should share the sink")
	}
}
