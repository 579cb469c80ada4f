// Package trace records what the generator does, stage by stage.
//
// Tracing is the structured log of a generation run: every configuration
// file, pipeline stage and kernel section opens a span, and notable
// decisions (skipped kernels, cache hits, dropped signatures) are emitted
// as point events.
//
// # Usage
//
//	kerngen generate --trace=- --trace-level=detail kernels.cfg
//
// # Tracers
//
//   - Nop: disabled tracing, no allocations
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events for a dump on failure
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: ring dump on failure only
//   - LevelPhase: runs and pipeline stages
//   - LevelDetail: plus one span per KERNEL section
//   - LevelDebug: plus every prototype and variant
//
// # Context
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, "render", parentID)
//	defer span.End("")
package trace
