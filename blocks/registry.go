package blocks

import "benchflow/runtime"

// NewRegistry returns a registry with every built-in block kind registered.
func NewRegistry() *runtime.Registry {
	r := runtime.NewRegistry()
	r.Register(runtime.KindDelay, NewDelay)
	r.Register(runtime.KindSetVoltage, NewSetVoltage)
	r.Register(runtime.KindSetCurrent, NewSetCurrent)
	r.Register(runtime.KindOutputEnable, NewOutputEnable)
	r.Register(runtime.KindMeasure, NewMeasure)
	r.Register(runtime.KindLogData, NewLogData)
	r.Register(runtime.KindComment, NewComment)
	r.Register(runtime.KindAssert, NewAssert)
	r.Register(runtime.KindSetVariable, NewSetVariable)
	r.Register(runtime.KindMath, NewMath)
	r.Register(runtime.KindDataTransform, NewDataTransform)
	r.Register(runtime.KindLoop, NewLoop)
	r.Register(runtime.KindIf, NewIf)
	r.Register(runtime.KindWhile, NewWhile)
	r.Register(runtime.KindTry, NewTry)
	r.Register(runtime.KindParallel, NewParallel)
	r.Register(runtime.KindWaitFor, NewWaitFor)
	r.Register(runtime.KindSweep, NewSweep)
	return r
}
