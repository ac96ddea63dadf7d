package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"benchflow/eval"
)

// State is the executor's lifecycle state. Idle is initial; the three
// terminal states are reached only from Running.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateStopped   State = "stopped"
)

// LogEntry records one block execution, success or failure.
type LogEntry struct {
	Elapsed time.Duration
	Block   string
	BlockID string
	Index   int
	Outcome Outcome
	Error   string
	Success bool
}

// Result summarizes a finished run. It is immutable once returned.
type Result struct {
	Success        bool
	State          State
	BlocksExecuted int
	Duration       time.Duration
	Errors         []string
	Variables      map[string]any
	Log            []LogEntry
}

// ProgressFunc is invoked synchronously after every block. Outcome is nil
// when the block failed.
type ProgressFunc func(b Block, index int, outcome Outcome, state State)

// CompletionFunc is invoked exactly once per run with the final Result.
type CompletionFunc func(Result)

// Internal flow-control sentinels for the cursor loop.
var (
	errStopRequested = errors.New("stop requested")
	errFailFast      = errors.New("stop on error")
)

// capturedError carries a body failure out of a try region.
type capturedError struct{ msg string }

func (e *capturedError) Error() string { return e.msg }

// controlState is the one synchronization discipline guarding everything the
// driving loop shares with out-of-band Pause/Resume/Stop calls. Only the
// transition operations below touch it.
type controlState struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state State
	pause bool
	stop  bool
}

func newControlState() *controlState {
	c := &controlState{state: StateIdle}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *controlState) current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *controlState) set(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *controlState) reset() {
	c.mu.Lock()
	c.state = StateRunning
	c.pause = false
	c.stop = false
	c.mu.Unlock()
}

func (c *controlState) requestStop() {
	c.mu.Lock()
	c.stop = true
	c.pause = false
	c.cond.Broadcast()
	c.mu.Unlock()
}

func (c *controlState) requestPause() {
	c.mu.Lock()
	if c.state == StateRunning {
		c.pause = true
		c.state = StatePaused
	}
	c.mu.Unlock()
}

func (c *controlState) requestResume() {
	c.mu.Lock()
	if c.state == StatePaused {
		c.pause = false
		c.state = StateRunning
		c.cond.Broadcast()
	}
	c.mu.Unlock()
}

// gate blocks while paused, without busy-waiting. Returns true if a stop
// arrived, before or while waiting; stop releases the gate.
func (c *controlState) gate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pause && !c.stop {
		c.cond.Wait()
	}
	return c.stop
}

// Executor drives a run over a sequence: it owns the cursor, interprets
// control-flow marker blocks, and exposes pause/resume/stop and callbacks.
type Executor struct {
	seq *Sequence
	ctx *Context
	cfg ExecutorConfig
	log *slog.Logger

	ctl *controlState

	mu       sync.Mutex // guards the fields below against parallel workers
	cursor   int
	executed int
	errs     []string
	entries  []LogEntry
	lastErr  string

	progressFns   []ProgressFunc
	completionFns []CompletionFunc
}

// NewExecutor builds an executor for one sequence and context. A nil config
// selects the defaults.
func NewExecutor(seq *Sequence, ctx *Context, cfg *ExecutorConfig) (*Executor, error) {
	c := DefaultExecutorConfig()
	if cfg != nil {
		c = *cfg
	}
	if err := ValidateConfig(c); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = NewContext()
	}
	return &Executor{
		seq: seq,
		ctx: ctx,
		cfg: c,
		log: ctx.Logger(),
		ctl: newControlState(),
	}, nil
}

func (e *Executor) SetLogger(l *slog.Logger) {
	if l != nil {
		e.log = l
	}
}

// OnProgress registers a progress callback. Register before Start; the
// callback list is not guarded during a run.
func (e *Executor) OnProgress(fn ProgressFunc) {
	e.progressFns = append(e.progressFns, fn)
}

func (e *Executor) OnCompletion(fn CompletionFunc) {
	e.completionFns = append(e.completionFns, fn)
}

func (e *Executor) State() State    { return e.ctl.current() }
func (e *Executor) IsRunning() bool { return e.ctl.current() == StateRunning }
func (e *Executor) IsPaused() bool  { return e.ctl.current() == StatePaused }

// Progress reports cursor position over total as 0-100. An empty sequence is
// complete by definition.
func (e *Executor) Progress() float64 {
	total := e.seq.Len()
	if total == 0 {
		return 100.0
	}
	e.mu.Lock()
	cursor := e.cursor
	e.mu.Unlock()
	return float64(cursor) / float64(total) * 100.0
}

// Stop requests termination at the next block boundary and releases any
// pending pause. Safe to call from any goroutine.
func (e *Executor) Stop() {
	e.log.Info("stop requested")
	e.ctl.requestStop()
}

// Pause holds the cursor before the next block until Resume or Stop.
func (e *Executor) Pause() {
	e.log.Info("pause requested")
	e.ctl.requestPause()
}

func (e *Executor) Resume() {
	e.log.Info("resume requested")
	e.ctl.requestResume()
}

// Start validates the sequence and runs it to a terminal state. It always
// returns a Result; every failure encountered is in the error list.
func (e *Executor) Start() Result {
	e.log.Info(fmt.Sprintf("starting sequence: %s", e.seq.Name))

	if violations := e.seq.Validate(); len(violations) > 0 {
		verr := &ValidationError{Violations: violations}
		e.log.Error("sequence validation failed", "error", verr)
		e.ctl.set(StateFailed)
		result := Result{
			State:  StateFailed,
			Errors: violations,
		}
		e.fireCompletion(result)
		return result
	}

	e.ctl.reset()
	e.mu.Lock()
	e.cursor = 0
	e.executed = 0
	e.errs = nil
	e.entries = nil
	e.lastErr = ""
	e.mu.Unlock()
	e.ctx.Reset()

	start := time.Now()
	err := e.runSpan(0, e.seq.Len(), start, false)
	switch {
	case errors.Is(err, errStopRequested):
		e.log.Info("execution stopped by request")
		e.ctl.set(StateStopped)
	case errors.Is(err, errFailFast):
		e.log.Error("execution terminated on error")
		e.ctl.set(StateFailed)
	default:
		if s := e.ctl.current(); s == StateRunning || s == StatePaused {
			e.ctl.set(StateCompleted)
			e.setCursor(e.seq.Len())
			e.log.Info("sequence execution completed")
		}
	}

	state := e.ctl.current()
	e.mu.Lock()
	result := Result{
		Success:        state == StateCompleted,
		State:          state,
		BlocksExecuted: e.executed,
		Duration:       time.Since(start),
		Errors:         append([]string(nil), e.errs...),
		Variables:      e.ctx.Snapshot(),
		Log:            append([]LogEntry(nil), e.entries...),
	}
	e.mu.Unlock()

	e.fireCompletion(result)
	e.log.Info(fmt.Sprintf("execution finished: %s, %d blocks in %s",
		result.State, result.BlocksExecuted, result.Duration.Round(time.Millisecond)))
	return result
}

// RunAsync starts the run on its own goroutine. The optional callback fires
// with the final result, after any registered completion callbacks.
func (e *Executor) RunAsync(cb func(Result)) {
	go func() {
		result := e.Start()
		if cb != nil {
			cb(result)
		}
	}()
}

// runSpan executes blocks in [lo, hi). When capture is set, a block failure
// surfaces as a capturedError for the enclosing try region instead of
// following the stop-on-error policy.
func (e *Executor) runSpan(lo, hi int, start time.Time, capture bool) error {
	i := lo
	for i < hi {
		if e.ctl.gate() {
			return errStopRequested
		}

		b := e.seq.Blocks[i]
		e.setCursor(i)

		out, ok := e.execOne(b, i, start)
		if !ok {
			if capture {
				return &capturedError{msg: e.lastError()}
			}
			if e.cfg.StopOnError {
				return errFailFast
			}
			// A failed control marker forfeits its body.
			i += 1 + e.bodySpan(b, i, hi)
			continue
		}

		consumed := 0
		var err error
		switch b.Kind() {
		case KindLoop:
			consumed, err = e.interpretLoop(b, i, hi, start, capture)
		case KindWhile:
			consumed, err = e.interpretWhile(b, i, hi, start, capture)
		case KindIf:
			consumed, err = e.interpretIf(b, out, i, hi, start, capture)
		case KindTry:
			consumed, err = e.interpretTry(b, i, hi, start, capture)
		case KindParallel:
			consumed, err = e.interpretParallel(b, i, hi, start, capture)
		}
		if err != nil {
			return err
		}
		i += 1 + consumed
	}
	return nil
}

// execOne runs a single block, appends its log entry, and fires progress
// callbacks. The boolean reports success; failures are recorded here.
func (e *Executor) execOne(b Block, idx int, start time.Time) (Outcome, bool) {
	e.log.Debug("executing block", "index", idx, "block", b.Name())

	out, err := b.Execute(e.ctx)
	elapsed := time.Since(start)

	if err != nil {
		be := &BlockError{Index: idx, Name: b.Name(), Err: err}
		e.log.Error("block execution failed", "block", b.Name(), "index", idx, "error", err)
		e.mu.Lock()
		e.errs = append(e.errs, be.Error())
		e.lastErr = be.Error()
		e.entries = append(e.entries, LogEntry{
			Elapsed: elapsed,
			Block:   b.Name(),
			BlockID: b.ID(),
			Index:   idx,
			Error:   err.Error(),
			Success: false,
		})
		e.mu.Unlock()
		e.fireProgress(b, idx, nil)
		return nil, false
	}

	e.mu.Lock()
	e.executed++
	e.entries = append(e.entries, LogEntry{
		Elapsed: elapsed,
		Block:   b.Name(),
		BlockID: b.ID(),
		Index:   idx,
		Outcome: out,
		Success: true,
	})
	e.mu.Unlock()
	e.fireProgress(b, idx, out)
	return out, true
}

// bodySpan resolves a control block's body_count parameter, clamped to the
// blocks actually remaining in the span.
func (e *Executor) bodySpan(b Block, idx, hi int) int {
	bc := intParam(b, "body_count", 0)
	if bc < 0 {
		bc = 0
	}
	if remaining := hi - idx - 1; bc > remaining {
		bc = remaining
	}
	return bc
}

func (e *Executor) interpretLoop(b Block, idx, hi int, start time.Time, capture bool) (int, error) {
	bc := e.bodySpan(b, idx, hi)
	if bc == 0 {
		return 0, nil
	}
	iters := intParam(b, "iterations", 1)
	if iters > e.cfg.MaxIterations {
		iters = e.cfg.MaxIterations
	}
	counter := strParam(b, "variable", "i")
	for it := 0; it < iters; it++ {
		e.ctx.SetVariable(counter, int64(it))
		if err := e.runSpan(idx+1, idx+1+bc, start, capture); err != nil {
			return bc, err
		}
	}
	return bc, nil
}

func (e *Executor) interpretWhile(b Block, idx, hi int, start time.Time, capture bool) (int, error) {
	bc := e.bodySpan(b, idx, hi)
	cond := strParam(b, "condition", "")
	maxIters := intParam(b, "max_iterations", 1000)
	if maxIters > e.cfg.MaxIterations {
		maxIters = e.cfg.MaxIterations
	}

	count := 0
	for count < maxIters {
		// Hold at the pause gate here too: a bodyless while never re-enters
		// runSpan, so this check is its only pause point.
		if e.ctl.gate() {
			return bc, errStopRequested
		}
		met, err := eval.EvaluateBool(cond, e.ctx)
		if err != nil {
			// An unevaluable condition ends the loop, not the run.
			e.log.Warn("while condition evaluation failed, ending loop", "condition", cond, "error", err)
			break
		}
		if !met {
			break
		}
		if bc > 0 {
			if err := e.runSpan(idx+1, idx+1+bc, start, capture); err != nil {
				return bc, err
			}
		}
		count++
	}
	e.log.Info(fmt.Sprintf("while loop finished after %d iterations", count))
	return bc, nil
}

func (e *Executor) interpretIf(b Block, out Outcome, idx, hi int, start time.Time, capture bool) (int, error) {
	bc := e.bodySpan(b, idx, hi)
	met, _ := out["condition_met"].(bool)
	if !met {
		e.log.Info("condition not met, routing around body", "index", idx, "body_count", bc)
		return bc, nil
	}
	if bc == 0 {
		return 0, nil
	}
	return bc, e.runSpan(idx+1, idx+1+bc, start, capture)
}

func (e *Executor) interpretTry(b Block, idx, hi int, start time.Time, capture bool) (int, error) {
	bc := e.bodySpan(b, idx, hi)
	if bc == 0 {
		return 0, nil
	}
	continueOnError := boolParam(b, "continue_on_error", true)
	errVar := strParam(b, "error_variable", "error")

	err := e.runSpan(idx+1, idx+1+bc, start, true)
	var captured *capturedError
	if errors.As(err, &captured) {
		if continueOnError {
			e.ctx.SetVariable(errVar, captured.msg)
			e.log.Info("error captured by try boundary", "variable", errVar, "error", captured.msg)
			return bc, nil
		}
		if capture {
			return bc, captured
		}
		if e.cfg.StopOnError {
			return bc, errFailFast
		}
		return bc, nil
	}
	return bc, err
}

func (e *Executor) interpretParallel(b Block, idx, hi int, start time.Time, capture bool) (int, error) {
	bc := e.bodySpan(b, idx, hi)
	if bc == 0 {
		return 0, nil
	}
	workers := intParam(b, "max_workers", 4)
	if workers > e.cfg.MaxWorkers {
		workers = e.cfg.MaxWorkers
	}
	if workers < 1 {
		workers = 1
	}
	waitAll := boolParam(b, "wait_all", true)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var failMu sync.Mutex
	failed := false

	for j := 0; j < bc; j++ {
		blockIdx := idx + 1 + j
		blk := e.seq.Blocks[blockIdx]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if _, ok := e.execOne(blk, blockIdx, start); !ok {
				failMu.Lock()
				failed = true
				failMu.Unlock()
			}
		}()
	}

	if !waitAll {
		// Fire and forget: the cursor advances while workers drain.
		e.log.Info("parallel region dispatched without waiting", "blocks", bc)
		return bc, nil
	}

	wg.Wait()
	failMu.Lock()
	anyFailed := failed
	failMu.Unlock()
	if anyFailed {
		if capture {
			return bc, &capturedError{msg: e.lastError()}
		}
		if e.cfg.StopOnError {
			return bc, errFailFast
		}
	}
	return bc, nil
}

func (e *Executor) setCursor(i int) {
	e.mu.Lock()
	e.cursor = i
	e.mu.Unlock()
}

func (e *Executor) lastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// fireProgress invokes progress callbacks, recovering panics so a broken
// callback cannot take down the run.
func (e *Executor) fireProgress(b Block, idx int, out Outcome) {
	state := e.ctl.current()
	for _, fn := range e.progressFns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error("progress callback panicked", "error", r)
				}
			}()
			fn(b, idx, out, state)
		}()
	}
}

func (e *Executor) fireCompletion(result Result) {
	for _, fn := range e.completionFns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error("completion callback panicked", "error", r)
				}
			}()
			fn(result)
		}()
	}
}

// Parameter coercion helpers; persisted values arrive as int from YAML and
// float64 from JSON.

func intParam(b Block, name string, def int) int {
	if f, ok := toFloat64(b.Parameter(name)); ok {
		return int(f)
	}
	return def
}

func strParam(b Block, name, def string) string {
	if s, ok := b.Parameter(name).(string); ok {
		return s
	}
	return def
}

func boolParam(b Block, name string, def bool) bool {
	if v, ok := b.Parameter(name).(bool); ok {
		return v
	}
	return def
}
