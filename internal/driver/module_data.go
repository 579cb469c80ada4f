package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"kerngen/internal/annotate"
	"kerngen/internal/config"
	"kerngen/internal/diag"
	"kerngen/internal/kernel"
	"kerngen/internal/proto"
	"kerngen/internal/trace"
	"kerngen/internal/typemap"
	"kerngen/internal/variant"
)

// BuildOptions tune BuildModuleData.
type BuildOptions struct {
	// SupportDir, when set, is prepended to the include dirs and its *.c
	// files (sorted) are prepended to the module sources.
	SupportDir string
}

// bucket is one of prototypes_C, prototypes_Fortran, prototypes.
type bucket struct {
	option string
	text   config.Text
	kinds  []string
}

// BuildModuleData runs the pipeline over every KERNEL of cfg: read
// signatures, normalise types, assign intents and shapes, expand variants.
// Recoverable problems go to r; the returned data is not shared with cfg.
func BuildModuleData(ctx context.Context, cfg *config.Config, opts BuildOptions, r diag.Reporter) (*kernel.ModuleData, error) {
	dedup := diag.NewDedupReporter(r)
	r = dedup
	defer func() {
		if n := dedup.Suppressed(); n > 0 {
			trace.Point(trace.FromContext(ctx), trace.ScopeStage, "dedup", fmt.Sprintf("%d repeated diagnostics", n), trace.CurrentSpan(ctx).SpanID)
		}
	}()
	m := &cfg.Module
	data := &kernel.ModuleData{
		ModuleName: m.Name,
		Includes:   slices.Clone(m.Includes),
	}
	if opts.SupportDir != "" {
		support, err := supportSources(opts.SupportDir)
		if err != nil {
			return nil, err
		}
		data.IncludeDirs = append(data.IncludeDirs, opts.SupportDir)
		data.Sources = append(data.Sources, support...)
	}
	data.IncludeDirs = append(data.IncludeDirs, m.IncludeDirs...)
	data.Sources = append(data.Sources, m.Sources...)

	normalizer := typemap.Normalizer{Table: m.Table}
	var tests typemap.TestSet

	for i := range cfg.Kernels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		k := &cfg.Kernels[i]
		kctx, span := trace.StartSpan(ctx, trace.ScopeKernel, "kernel:"+k.Name)
		kernels := expandKernel(kctx, k, normalizer, &tests, r)
		span.WithExtra("variants", strconv.Itoa(len(kernels))).End("")
		data.Kernels = append(data.Kernels, kernels...)
	}
	for _, name := range cfg.Skipped {
		trace.Point(trace.FromContext(ctx), trace.ScopeKernel, "skip", "[KERNEL "+name+"]", trace.CurrentSpan(ctx).SpanID)
	}
	data.TypemapTests = tests.Items()
	reportRenames(cfg, data, r)
	return data, nil
}

// reportRenames warns about variants whose plain wrapper name clashed with
// an earlier one, e.g. two KERNEL sections wrapping the same function.
func reportRenames(cfg *config.Config, data *kernel.ModuleData, r diag.Reporter) {
	_, renames := data.WrapperNames()
	for _, rn := range renames {
		k := &data.Kernels[rn.Index].Prototype
		prev := &data.Kernels[rn.Prev].Prototype
		span := cfg.Module.Span
		if i := slices.IndexFunc(cfg.Kernels, func(c config.Kernel) bool { return c.Name == k.KernelName }); i >= 0 {
			span = cfg.Kernels[i].Span
		}
		diag.ReportWarning(r, diag.GenNameCollision, span,
			fmt.Sprintf("[KERNEL %s] wrapper %s is already generated for [KERNEL %s]; using %s",
				k.KernelName, rn.Plain, prev.KernelName, rn.Name)).Emit()
	}
}

func supportSources(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.c"))
	if err != nil {
		return nil, fmt.Errorf("support dir %s: %w", dir, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func expandKernel(ctx context.Context, k *config.Kernel, normalizer typemap.Normalizer, tests *typemap.TestSet, r diag.Reporter) []variant.Kernel {
	buckets := []bucket{
		{option: "prototypes_C", text: k.PrototypesC, kinds: []string{variant.KindC}},
		{option: "prototypes_Fortran", text: k.PrototypesFortran, kinds: []string{variant.KindFortran}},
		{option: "prototypes", text: k.Prototypes, kinds: k.Kinds},
	}

	var reader proto.Reader
	parsed := make([][]proto.Prototype, len(buckets))
	total := 0
	for i, b := range buckets {
		protos, errs := reader.Read(b.text.Value)
		for _, err := range errs {
			diag.ReportWarning(r, diag.ProSyntax, b.text.Span,
				fmt.Sprintf("[KERNEL %s] %s: %v; skipping signature", k.Name, b.option, err)).Emit()
		}
		parsed[i] = protos
		total += len(protos)
	}
	if total == 0 {
		diag.ReportWarning(r, diag.ProNoPrototypes, k.Span,
			fmt.Sprintf("no prototypes|prototypes_C|prototypes_Fortran defined in [KERNEL %s]", k.Name)).Emit()
		return nil
	}

	spec := annotate.Spec{
		Input:   k.Input,
		Inplace: k.Inplace,
		Output:  k.Output,
		Hidden:  k.Hide,
		Shapes:  shapes(k, r),
	}
	reportUnknownNames(k, spec, parsed, r)

	t := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID
	var out []variant.Kernel
	for i, b := range buckets {
		for _, p := range parsed[i] {
			p.KernelName = k.Name
			p.Description = k.Description
			p.Debug = k.Debug

			normalized, fired := normalizer.Apply(p)
			tests.Add(fired...)
			annotated := annotate.Apply(normalized, spec)
			variants := variant.Expand(annotated, b.kinds, k.ArrayTypes, k.Ellipses)
			trace.Point(t, trace.ScopeVariant, p.FunctionName,
				fmt.Sprintf("%s: %d variants", b.option, len(variants)), parent)
			out = append(out, variants...)
		}
	}
	if len(out) == 0 {
		diag.ReportWarning(r, diag.VarNoVariants, k.Span,
			fmt.Sprintf("[KERNEL %s] produced no variants: kinds %s with arraytypes %s", k.Name,
				strings.Join(k.Kinds, ","), joinArrayTypes(k.ArrayTypes))).Emit()
	}
	return out
}

// shapes parses dimension entries; malformed ones are reported and dropped.
func shapes(k *config.Kernel, r diag.Reporter) []typemap.Shape {
	sp := k.OptionSpan("dimension")
	var out []typemap.Shape
	seen := make(map[string]bool)
	for _, entry := range k.Dimension {
		shape, err := typemap.ParseShape(entry)
		if err != nil {
			diag.ReportWarning(r, diag.TypBadShape, sp,
				fmt.Sprintf("cannot determine shape from %q in [KERNEL %s]; ignoring", entry, k.Name)).Emit()
			continue
		}
		if seen[shape.Name] {
			diag.ReportWarning(r, diag.TypShapeTwice, sp,
				fmt.Sprintf("shape of %q given more than once in [KERNEL %s]; the last one wins", shape.Name, k.Name)).Emit()
		}
		seen[shape.Name] = true
		out = append(out, shape)
	}
	return out
}

// reportUnknownNames warns about intent or shape names that match no
// argument of any prototype of the kernel.
func reportUnknownNames(k *config.Kernel, spec annotate.Spec, parsed [][]proto.Prototype, r diag.Reporter) {
	counts := make(map[string]int)
	protos := 0
	for _, list := range parsed {
		for _, p := range list {
			protos++
			for _, name := range annotate.Unknown(p, spec) {
				counts[name]++
			}
		}
	}
	for _, name := range unknownOrder(spec) {
		if counts[name] != protos {
			continue
		}
		opt := optionForName(k, name)
		code := diag.AnnUnknownArgument
		if opt == "dimension" {
			code = diag.AnnUnknownShape
		}
		diag.ReportWarning(r, code, k.OptionSpan(opt),
			fmt.Sprintf("[KERNEL %s] %s names %q, which is not an argument of any prototype", k.Name, opt, name)).Emit()
	}
}

func unknownOrder(spec annotate.Spec) []string {
	var names []string
	for _, list := range [][]string{spec.Input, spec.Inplace, spec.Output, spec.Hidden} {
		for _, name := range list {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	for _, s := range spec.Shapes {
		if !slices.Contains(names, s.Name) {
			names = append(names, s.Name)
		}
	}
	return names
}

func optionForName(k *config.Kernel, name string) string {
	switch {
	case slices.Contains(k.Input, name):
		return "input_arguments"
	case slices.Contains(k.Inplace, name):
		return "inplace_arguments"
	case slices.Contains(k.Output, name):
		return "output_arguments"
	case slices.Contains(k.Hide, name):
		return "hide_arguments"
	}
	return "dimension"
}

func joinArrayTypes(ats []variant.ArrayType) string {
	names := make([]string, len(ats))
	for i, at := range ats {
		names[i] = string(at)
	}
	return strings.Join(names, ",")
}
