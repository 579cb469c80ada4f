package driver

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"kerngen/internal/buildpipeline"
	"kerngen/internal/trace"
)

// BatchItem is the outcome of one configuration in GenerateAll.
type BatchItem struct {
	Result *GenerateResult
	Err    error
}

// GenerateAll runs independent generation runs concurrently, at most jobs
// at a time (GOMAXPROCS when jobs <= 0). Items come back in input order. A
// failing run does not stop the others; only cancellation of ctx does.
func GenerateAll(ctx context.Context, runs []GenerateOptions, jobs int, sink buildpipeline.ProgressSink) ([]BatchItem, error) {
	items := make([]BatchItem, len(runs))
	if len(runs) == 0 {
		return items, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	ctx, span := trace.StartSpan(ctx, trace.ScopeDriver, "batch")
	start := time.Now()
	for _, run := range runs {
		buildpipeline.Emit(sink, buildpipeline.Event{File: run.ConfigFile, Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(runs)))
	for i, run := range runs {
		g.Go(func() error {
			// каждый запуск со своим FileSet, Bag и аккумуляторами
			if err := gctx.Err(); err != nil {
				items[i] = BatchItem{Err: err}
				return err
			}
			if run.Sink == nil {
				run.Sink = sink
			}
			res, err := Generate(gctx, run)
			items[i] = BatchItem{Result: res, Err: err}
			if err != nil && !IsFatal(err) {
				return err
			}
			return nil
		})
	}
	err := g.Wait()

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	status := buildpipeline.StatusDone
	if failed > 0 {
		status = buildpipeline.StatusError
	}
	buildpipeline.Emit(sink, buildpipeline.Event{Stage: buildpipeline.StageWrite, Status: status, Elapsed: time.Since(start)})
	span.End("")
	if err != nil {
		return items, err
	}
	return items, ctx.Err()
}
