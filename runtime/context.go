package runtime

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Sink receives data points from log-data blocks. Implementations live
// outside the engine (buffered logger, remote dashboard client).
type Sink interface {
	LogData(data map[string]any) error
}

// Capability interfaces instruments may satisfy. Blocks assert the one they
// need and fail with a CapabilityError when the handle lacks it, so a DMM
// registered where a power supply was expected produces a readable error
// instead of a panic.
type VoltageSource interface {
	SetVoltage(channel int, volts float64) error
}

type CurrentSource interface {
	SetCurrent(channel int, amps float64) error
}

type OutputSwitch interface {
	SetOutput(channel int, on bool) error
}

type Measurer interface {
	Measure() (float64, error)
}

type Commander interface {
	Write(cmd string) error
	Query(cmd string) (string, error)
}

// Context is the per-run mutable state: a variable map, the instrument
// registry, and an optional data sink. Variables are guarded for the
// parallel fan-out case; instruments and sink are fixed before the run.
type Context struct {
	mu          sync.RWMutex
	variables   map[string]any
	instruments map[string]any
	sink        Sink
	start       time.Time
	log         *slog.Logger
}

func NewContext() *Context {
	return &Context{
		variables:   make(map[string]any),
		instruments: make(map[string]any),
		start:       time.Now(),
		log:         slog.Default(),
	}
}

func (c *Context) SetLogger(l *slog.Logger) {
	if l != nil {
		c.log = l
	}
}

func (c *Context) Logger() *slog.Logger { return c.log }

// RegisterInstrument adds a named instrument handle. Call before the run
// starts; the registry is not reset between runs.
func (c *Context) RegisterInstrument(name string, handle any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instruments[name] = handle
}

// Instrument returns the named handle, or an InstrumentNotFoundError that
// enumerates what is registered.
func (c *Context) Instrument(name string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.instruments[name]
	if !ok {
		return nil, &InstrumentNotFoundError{Name: name, Available: c.instrumentNamesLocked()}
	}
	return h, nil
}

func (c *Context) InstrumentNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instrumentNamesLocked()
}

func (c *Context) instrumentNamesLocked() []string {
	names := make([]string, 0, len(c.instruments))
	for n := range c.instruments {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c *Context) SetSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = s
}

func (c *Context) Sink() Sink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sink
}

func (c *Context) SetVariable(name string, value any) {
	c.mu.Lock()
	c.variables[name] = value
	c.mu.Unlock()
	c.log.Debug("variable set", "name", name, "value", value)
}

// Variable returns the named variable or the caller-supplied default. It
// never errors on a missing key: assert and if blocks use the nil default to
// distinguish "not yet set".
func (c *Context) Variable(name string, def any) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.variables[name]; ok {
		return v
	}
	return def
}

// Resolve implements eval.Resolver.
func (c *Context) Resolve(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[name]
	return v, ok
}

// Snapshot returns a copy of the variable map.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	return out
}

// Reset clears all variables and restarts the run clock. Called by the
// executor at the start of every run.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables = make(map[string]any)
	c.start = time.Now()
}

func (c *Context) Elapsed() time.Duration {
	return time.Since(c.start)
}

// Derived returns a fresh context holding a copy of the parent's variables
// plus one extra binding, sharing instruments and sink. Filter/map transforms
// evaluate each element against its own derived context so per-element
// mutations cannot leak across elements.
func (c *Context) Derived(name string, value any) *Context {
	c.mu.RLock()
	vars := make(map[string]any, len(c.variables)+1)
	for k, v := range c.variables {
		vars[k] = v
	}
	insts := c.instruments
	sink := c.sink
	c.mu.RUnlock()

	vars[name] = value
	return &Context{
		variables:   vars,
		instruments: insts,
		sink:        sink,
		start:       c.start,
		log:         c.log,
	}
}
