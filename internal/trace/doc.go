// Package trace records what the regularizer does while it runs.
//
// Spans mark the driver, every phase of the pass, every function and, at the
// debug level, every single rewrite:
//
//	spvregular run --trace=- --trace-level=detail kernel.mp
//
// # Tracers
//
//   - Nop: the disabled tracer
//   - StreamTracer: writes each event as it happens
//   - RingTracer: keeps the last N events in memory for failure dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// LevelPhase emits ScopeDriver and ScopePass events, LevelDetail adds
// ScopeFunc, LevelDebug adds ScopeInstr.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "lower-intrinsics", parentID)
//	defer span.End("")
package trace
