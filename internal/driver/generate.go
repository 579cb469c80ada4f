package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"kerngen/internal/buildpipeline"
	"kerngen/internal/config"
	"kerngen/internal/diag"
	"kerngen/internal/kernel"
	"kerngen/internal/observ"
	"kerngen/internal/render"
	"kerngen/internal/source"
	"kerngen/internal/trace"
	"kerngen/internal/version"
)

const (
	// TargetStdout selects the configured stdout writer as the target.
	TargetStdout = "stdout"
	// StdoutPath is reported as the generated file path for stdout targets.
	StdoutPath = "<stdout>"
	// WriterPath is reported for caller-owned writers without a name.
	WriterPath = "<writer>"
)

// GenerateOptions configure one generation run.
type GenerateOptions struct {
	ConfigFile string
	// TargetFile is a path, TargetStdout, or empty for
	// <SourceDir>/<module>-kernels.c.
	TargetFile string
	// Target, when set, receives the output instead of TargetFile. The
	// caller owns it; it is never closed.
	Target io.Writer
	// Stdout backs TargetStdout; os.Stdout when nil. Never closed.
	Stdout     io.Writer
	SourceDir  string
	SupportDir string

	Renderer       render.Renderer // default: render.NewTemplate
	Cache          *DiskCache      // nil disables caching
	MaxDiagnostics int
	Sink           buildpipeline.ProgressSink
	// DryRun builds and renders but writes nothing.
	DryRun bool
}

// GenerateResult describes a finished run. On failure Generate still
// returns the result so callers can print the collected diagnostics.
type GenerateResult struct {
	ConfigFile string   // absolute
	Sources    []string // generated file first, then module sources
	Output     string   // path written, StdoutPath or WriterPath
	Module     *kernel.ModuleData
	FileSet    *source.FileSet
	Bag        *diag.Bag
	Cached     bool
	Timing     observ.Report
}

// Generate loads the configuration, builds (or restores) the Module Data,
// renders it and writes the c_source output verbatim. Fatal errors return
// before any output is produced; files opened here are closed on every path
// and a failed write leaves no partial file behind.
func Generate(ctx context.Context, opts GenerateOptions) (res *GenerateResult, err error) {
	abs, err := filepath.Abs(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("config path %s: %w", opts.ConfigFile, err)
	}
	fs := source.NewFileSet()
	fs.SetBaseDir(filepath.Dir(abs))
	res = &GenerateResult{
		ConfigFile: abs,
		FileSet:    fs,
		Bag:        diag.NewBag(opts.MaxDiagnostics),
	}
	reporter := diag.BagReporter{Bag: res.Bag}
	timer := observ.NewTimer()

	ctx, span := trace.StartSpan(ctx, trace.ScopeDriver, "generate")
	span.WithExtra("config", opts.ConfigFile)
	defer func() {
		res.Timing = timer.Report()
		detail := "ok"
		if err != nil {
			detail = err.Error()
		}
		span.End(detail)
	}()

	stage := stageRunner{ctx: ctx, timer: timer, sink: opts.Sink, file: opts.ConfigFile}

	var cfg *config.Config
	err = stage.run(buildpipeline.StageLoad, func(context.Context) error {
		var lerr error
		cfg, lerr = config.Load(abs, fs, reporter)
		return lerr
	})
	if err != nil {
		return res, err
	}

	buildOpts := BuildOptions{SupportDir: opts.SupportDir}
	err = stage.run(buildpipeline.StageExpand, func(sctx context.Context) error {
		data, cached, berr := buildWithCache(sctx, cfg, fs, buildOpts, opts.Cache, res.Bag)
		if berr != nil {
			return berr
		}
		res.Module, res.Cached = data, cached
		stage.kernels = len(data.Kernels)
		if cached {
			stage.cached = true
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	renderer := opts.Renderer
	if renderer == nil {
		tmpl, terr := render.NewTemplate(version.String())
		if terr != nil {
			return res, terr
		}
		renderer = tmpl
	}
	var text string
	err = stage.run(buildpipeline.StageRender, func(context.Context) error {
		out, rerr := renderer.Render(res.Module)
		if rerr != nil {
			return fmt.Errorf("render: %w", rerr)
		}
		src, ok := out[render.KeyCSource]
		if !ok {
			return render.ErrMissingSource
		}
		text = src
		return nil
	})
	if err != nil {
		return res, err
	}

	if opts.DryRun {
		res.Output = targetPath(opts, res.Module.ModuleName)
		res.Sources = append([]string{res.Output}, res.Module.Sources...)
		return res, nil
	}
	err = stage.run(buildpipeline.StageWrite, func(context.Context) error {
		path, werr := writeOutput(opts, res.Module.ModuleName, text)
		res.Output = path
		return werr
	})
	if err != nil {
		return res, err
	}
	res.Sources = append([]string{res.Output}, res.Module.Sources...)
	return res, nil
}

// buildWithCache consults the disk cache before running BuildModuleData.
// Cache failures are reported and never fail the run.
func buildWithCache(ctx context.Context, cfg *config.Config, fs *source.FileSet, opts BuildOptions, cache *DiskCache, bag *diag.Bag) (*kernel.ModuleData, bool, error) {
	reporter := diag.BagReporter{Bag: bag}
	if cache == nil {
		data, err := BuildModuleData(ctx, cfg, opts, reporter)
		return data, false, err
	}
	file := fs.Get(cfg.File)
	origin := source.WholeFile(cfg.File)
	key, err := CacheKey(file.Content, version.String(), opts)
	if err != nil {
		return nil, false, err
	}
	data, diags, ok, err := cache.Load(key, cfg.File, version.String())
	if err != nil {
		diag.ReportInfo(reporter, diag.GenCacheFail, origin, fmt.Sprintf("cache read failed: %v", err)).Emit()
	}
	if ok {
		for _, d := range diags {
			bag.Add(d)
		}
		trace.Point(trace.FromContext(ctx), trace.ScopeStage, "cache", "hit "+key.String()[:12], trace.CurrentSpan(ctx).SpanID)
		return data, true, nil
	}

	// собираем диагностики отдельно, чтобы сохранить их вместе с данными
	local := diag.NewBag(int(bag.Cap()))
	data, err = BuildModuleData(ctx, cfg, opts, diag.BagReporter{Bag: local})
	bag.Merge(local)
	if err != nil {
		return nil, false, err
	}
	if err := cache.Store(key, data, local.Items(), version.String()); err != nil {
		diag.ReportInfo(reporter, diag.GenCacheFail, origin, fmt.Sprintf("cache write failed: %v", err)).Emit()
	}
	return data, false, nil
}

func targetPath(opts GenerateOptions, module string) string {
	switch {
	case opts.Target != nil:
		if named, ok := opts.Target.(interface{ Name() string }); ok {
			return named.Name()
		}
		return WriterPath
	case opts.TargetFile == TargetStdout:
		return StdoutPath
	case opts.TargetFile != "":
		return opts.TargetFile
	}
	dir := opts.SourceDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, module+"-kernels.c")
}

func writeOutput(opts GenerateOptions, module, text string) (string, error) {
	path := targetPath(opts, module)
	switch {
	case opts.Target != nil:
		_, err := io.WriteString(opts.Target, text)
		return path, err
	case opts.TargetFile == TargetStdout:
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		_, err := io.WriteString(w, text)
		return path, err
	}
	return path, writeFileAtomic(path, text)
}

// writeFileAtomic writes through a temporary file in the target directory
// and renames it into place.
func writeFileAtomic(path, text string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.WriteString(text); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = f.Chmod(0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// stageRunner wraps a stage with a trace span, a timer phase and progress
// events.
type stageRunner struct {
	ctx     context.Context
	timer   *observ.Timer
	sink    buildpipeline.ProgressSink
	file    string
	kernels int
	cached  bool
}

func (s *stageRunner) run(stage buildpipeline.Stage, fn func(context.Context) error) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	buildpipeline.Emit(s.sink, buildpipeline.Event{File: s.file, Stage: stage, Status: buildpipeline.StatusWorking})
	sctx, span := trace.StartSpan(s.ctx, trace.ScopeStage, string(stage))
	idx := s.timer.Begin(string(stage))
	start := time.Now()

	err := fn(sctx)

	note := ""
	status := buildpipeline.StatusDone
	switch {
	case err != nil:
		note, status = "failed", buildpipeline.StatusError
	case stage == buildpipeline.StageExpand && s.cached:
		note, status = "cached", buildpipeline.StatusCached
	}
	if stage == buildpipeline.StageExpand && err == nil {
		span.WithExtra("variants", strconv.Itoa(s.kernels))
		if note == "" {
			note = strconv.Itoa(s.kernels) + " variants"
		}
	}
	s.timer.End(idx, note)
	span.End(note)
	buildpipeline.Emit(s.sink, buildpipeline.Event{
		File:    s.file,
		Stage:   stage,
		Status:  status,
		Err:     err,
		Elapsed: time.Since(start),
		Kernels: s.kernels,
	})
	return err
}

// IsFatal reports whether err stopped a run, as opposed to cancellation.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
