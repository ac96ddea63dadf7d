// Package runtime implements the sequence automation engine: the block
// contract and registry, the sequence container and its persistence, the
// per-run execution context, and the executor state machine.
package runtime

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Block kind tags. The set is closed: every persisted sequence references
// blocks by one of these tags, and the registry maps them to factories.
const (
	KindDelay         = "delay"
	KindSetVoltage    = "set_voltage"
	KindSetCurrent    = "set_current"
	KindOutputEnable  = "output_enable"
	KindMeasure       = "measure"
	KindLogData       = "log_data"
	KindComment       = "comment"
	KindAssert        = "assert"
	KindSetVariable   = "set_variable"
	KindMath          = "math"
	KindDataTransform = "data_transform"
	KindLoop          = "loop"
	KindIf            = "if"
	KindWhile         = "while"
	KindTry           = "try"
	KindParallel      = "parallel"
	KindWaitFor       = "wait_for"
	KindSweep         = "sweep"
)

// Parameter types.
const (
	ParamInt        = "int"
	ParamFloat      = "float"
	ParamString     = "string"
	ParamBool       = "bool"
	ParamChoice     = "choice"
	ParamInstrument = "instrument"
)

// Parameter declares one configurable input of a block.
type Parameter struct {
	Name        string
	Type        string
	Default     any
	Label       string
	Description string
	Choices     []any
	Min         *float64
	Max         *float64
}

// Outcome is the result map a block returns from Execute. Keys are
// block-specific; the executor inspects a few well-known ones
// (condition_met, status) when interpreting control markers.
type Outcome map[string]any

// Block is the capability contract every sequence element satisfies.
// Execute may mutate context variables, invoke instrument capabilities, and
// block the calling goroutine for a bounded duration.
type Block interface {
	Kind() string
	ID() string
	SetID(id string)
	Name() string
	Parameters() []Parameter
	Parameter(name string) any
	SetParameter(name string, value any) error
	Values() map[string]any
	Validate() []string
	Execute(ctx *Context) (Outcome, error)
}

// BaseBlock carries the parameter bookkeeping shared by all block kinds.
// Concrete blocks embed it and implement Execute.
type BaseBlock struct {
	kind  string
	id    string
	name  string
	order []string
	decls map[string]Parameter
	vals  map[string]any
}

func NewBaseBlock(kind, name string) BaseBlock {
	return BaseBlock{
		kind:  kind,
		name:  name,
		decls: make(map[string]Parameter),
		vals:  make(map[string]any),
	}
}

func (b *BaseBlock) Kind() string    { return b.kind }
func (b *BaseBlock) ID() string      { return b.id }
func (b *BaseBlock) SetID(id string) { b.id = id }
func (b *BaseBlock) Name() string    { return b.name }

// AddParameter declares a parameter and seeds its value with the default.
func (b *BaseBlock) AddParameter(p Parameter) {
	if p.Label == "" {
		p.Label = p.Name
	}
	b.decls[p.Name] = p
	b.order = append(b.order, p.Name)
	b.vals[p.Name] = p.Default
}

// Parameters returns declarations in declaration order.
func (b *BaseBlock) Parameters() []Parameter {
	out := make([]Parameter, 0, len(b.order))
	for _, n := range b.order {
		out = append(out, b.decls[n])
	}
	return out
}

func (b *BaseBlock) Parameter(name string) any { return b.vals[name] }

// SetParameter rejects undeclared names; parameters are only mutated before
// a run starts.
func (b *BaseBlock) SetParameter(name string, value any) error {
	if _, ok := b.decls[name]; !ok {
		return fmt.Errorf("unknown parameter %q for block kind %q", name, b.kind)
	}
	b.vals[name] = value
	return nil
}

// Values returns a copy of the current parameter values.
func (b *BaseBlock) Values() map[string]any {
	out := make(map[string]any, len(b.vals))
	for k, v := range b.vals {
		out[k] = v
	}
	return out
}

// Validate checks numeric parameters against their declared bounds and
// returns human-readable messages.
func (b *BaseBlock) Validate() []string {
	var errs []string
	for _, name := range b.order {
		p := b.decls[name]
		if p.Type != ParamInt && p.Type != ParamFloat {
			continue
		}
		v, ok := toFloat64(b.vals[name])
		if !ok {
			errs = append(errs, fmt.Sprintf("%s must be a number", p.Label))
			continue
		}
		if p.Min != nil && v < *p.Min {
			errs = append(errs, fmt.Sprintf("%s must be >= %s", p.Label, formatBound(*p.Min)))
		}
		if p.Max != nil && v > *p.Max {
			errs = append(errs, fmt.Sprintf("%s must be <= %s", p.Label, formatBound(*p.Max)))
		}
	}
	return errs
}

// Typed getters with the coercions deserialization forces on us: YAML
// produces int, JSON produces float64.

func (b *BaseBlock) Float(name string) float64 {
	v, _ := toFloat64(b.vals[name])
	return v
}

func (b *BaseBlock) Int(name string) int {
	v, _ := toFloat64(b.vals[name])
	return int(v)
}

func (b *BaseBlock) String(name string) string {
	if s, ok := b.vals[name].(string); ok {
		return s
	}
	if b.vals[name] == nil {
		return ""
	}
	return fmt.Sprintf("%v", b.vals[name])
}

func (b *BaseBlock) Bool(name string) bool {
	v, _ := b.vals[name].(bool)
	return v
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
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

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Bound is a convenience for declaring Min/Max values inline.
func Bound(v float64) *float64 { return &v }

// Factory produces a fresh, default-configured block instance.
type Factory func() Block

// Registry maps kind tags to factories, the dynamic-dispatch seam used by
// deserialization and the palette listing.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// New instantiates a block of the given kind with a fresh id.
func (r *Registry) New(kind string) (Block, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown block kind %q", kind)
	}
	b := f()
	if b.ID() == "" {
		b.SetID(uuid.NewString())
	}
	return b, nil
}

// Kinds returns the registered kind tags, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
