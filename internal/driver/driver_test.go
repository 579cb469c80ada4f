package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"kerngen/internal/buildpipeline"
	"kerngen/internal/config"
	"kerngen/internal/diag"
	"kerngen/internal/kernel"
	"kerngen/internal/proto"
	"kerngen/internal/render"
	"kerngen/internal/source"
	"kerngen/internal/testkit"
	"kerngen/internal/typemap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadConfig(t *testing.T, content string) (*config.Config, *source.FileSet) {
	t.Helper()
	path := writeFile(t, t.TempDir(), "kernels.cfg", content)
	fs := source.NewFileSet()
	cfg, err := config.Load(path, fs, nil)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg, fs
}

const addConfig = `
[MODULE example]
typemaps =
  double: float64
arraytypes = symbolic

[KERNEL add]
prototypes = void add(double *a, double *b, double *c, int n);
output_arguments = c
`

func TestBuildModuleDataEndToEnd(t *testing.T) {
	cfg, _ := loadConfig(t, addConfig)
	bag := diag.NewBag(50)
	data, err := BuildModuleData(context.Background(), cfg, BuildOptions{}, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("BuildModuleData: %v", err)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if len(data.Kernels) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(data.Kernels))
	}
	k := data.Kernels[0]
	if k.Kind != "Xnd" || k.ArrayType != "symbolic" || k.Ellipsis != "... * " {
		t.Fatalf("variant: kind=%s arraytype=%s ellipsis=%q", k.Kind, k.ArrayType, k.Ellipsis)
	}
	wantIntent := map[string]proto.Intent{"a": proto.IntentInput, "b": proto.IntentInput, "c": proto.IntentOutput, "n": proto.IntentInput}
	wantType := map[string]string{"a": "float64", "b": "float64", "c": "float64", "n": "int"}
	for _, arg := range k.Prototype.Arguments {
		if arg.Intent != wantIntent[arg.Name] {
			t.Errorf("%s intent = %s", arg.Name, arg.Intent)
		}
		if arg.NormalizedType != wantType[arg.Name] {
			t.Errorf("%s normalized = %s", arg.Name, arg.NormalizedType)
		}
	}
	if k.Prototype.KernelName != "add" || k.Prototype.FunctionName != "add" {
		t.Fatalf("prototype metadata: %+v", k.Prototype)
	}
	if want := []typemap.Test{{OrigType: "double", NormalType: "float64"}}; !reflect.DeepEqual(data.TypemapTests, want) {
		t.Fatalf("typemap tests = %v", data.TypemapTests)
	}
}

const bucketConfig = `
[MODULE m]
kinds = Xnd, C
ellipses = none, ...
arraytypes = symbolic, variable

[KERNEL first]
prototypes = void generic(double *x, int n);
prototypes_Fortran = void fort(double *x, int *n);
prototypes_C = void cfun(double *x, int n);
hide_arguments = n
dimension = x(n)

[KERNEL second]
prototypes = void other(float *y)
kinds = Fortran
arraytypes = variable
`

func TestBuildModuleDataOrdering(t *testing.T) {
	cfg, fs := loadConfig(t, bucketConfig)
	if err := testkit.CheckConfigSpans(cfg, fs.Get(cfg.File)); err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(50)
	data, err := BuildModuleData(context.Background(), cfg, BuildOptions{}, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for i := range data.Kernels {
		got = append(got, kernel.WrapperName("m", &data.Kernels[i]))
	}
	want := []string{
		"m_cfun_CSymbolic",
		"m_cfun_CSymbolic_ellipses",
		"m_fort_FortranSymbolic",
		"m_fort_FortranSymbolic_ellipses",
		"m_generic_XndSymbolic",
		"m_generic_XndSymbolic_ellipses",
		"m_generic_CSymbolic",
		"m_generic_CSymbolic_ellipses",
		"m_generic_XndVariable",
		"m_generic_XndVariable_varellipses",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order:\n got %v\nwant %v", got, want)
	}
	if err := testkit.CheckModuleInvariants(data); err != nil {
		t.Fatal(err)
	}
	if err := testkit.CheckNoSharing(data); err != nil {
		t.Fatal(err)
	}
	for _, k := range data.Kernels {
		if k.Prototype.Arguments[0].Shape[0] != "n" {
			t.Fatalf("shape not attached: %+v", k.Prototype.Arguments[0])
		}
	}
	// second kernel: Fortran + variable gives nothing
	if bag.Len() != 1 || bag.Items()[0].Code != diag.VarNoVariants {
		t.Fatalf("expected one VarNoVariants warning, got %+v", bag.Items())
	}

	again, err := BuildModuleData(context.Background(), cfg, BuildOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(again, data) {
		t.Fatal("BuildModuleData is not deterministic")
	}
}

func TestBuildModuleDataSharedFunction(t *testing.T) {
	cfg, _ := loadConfig(t, `
[MODULE m]
kinds = Xnd
ellipses = ...
arraytypes = symbolic

[KERNEL add_vec]
prototypes = void add(double *a, double *b, int n)

[KERNEL add_mat]
prototypes = void add(double *a, double *b, int n)
`)
	bag := diag.NewBag(50)
	data, err := BuildModuleData(context.Background(), cfg, BuildOptions{}, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatal(err)
	}
	names, _ := data.WrapperNames()
	if want := []string{"m_add_XndSymbolic_ellipses", "m_add_mat_add_XndSymbolic_ellipses"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	if err := testkit.CheckModuleInvariants(data); err != nil {
		t.Fatal(err)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.GenNameCollision {
		t.Fatalf("expected one name-collision warning, got %+v", bag.Items())
	}
	if msg := bag.Items()[0].Message; !strings.Contains(msg, "[KERNEL add_mat] wrapper m_add_XndSymbolic_ellipses is already generated for [KERNEL add_vec]") {
		t.Errorf("collision message: %q", msg)
	}

	tmpl, err := render.NewTemplate("")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tmpl.Render(data)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out[render.KeyCSource], "static int\nm_add_XndSymbolic_ellipses("); n != 1 {
		t.Fatalf("m_add_XndSymbolic_ellipses defined %d times", n)
	}
}

func TestBuildModuleDataRecoverableProblems(t *testing.T) {
	cfg, _ := loadConfig(t, `
[MODULE m]
[KERNEL broken]
prototypes =
  void ok(double *a, int n);
  void bad(double);
dimension = a(n), b(m
output_arguments = zz

[KERNEL empty]
description = nothing here

[KERNEL gone]
skip = yes
prototypes = void gone(int n)
`)
	bag := diag.NewBag(50)
	data, err := BuildModuleData(context.Background(), cfg, BuildOptions{}, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Kernels) != 1 || data.Kernels[0].Prototype.FunctionName != "ok" {
		t.Fatalf("kernels = %+v", data.Kernels)
	}
	if !reflect.DeepEqual(data.Kernels[0].Prototype.Arguments[0].Shape, []string{"n"}) {
		t.Fatalf("valid shape should survive: %+v", data.Kernels[0].Prototype.Arguments[0])
	}
	var codes []diag.Code
	var msgs []string
	for _, d := range bag.Items() {
		codes = append(codes, d.Code)
		msgs = append(msgs, d.Message)
	}
	want := []diag.Code{diag.ProSyntax, diag.TypBadShape, diag.AnnUnknownArgument, diag.ProNoPrototypes}
	if !reflect.DeepEqual(codes, want) {
		t.Fatalf("codes = %v, want %v\n%s", codes, want, strings.Join(msgs, "\n"))
	}
	if !strings.Contains(msgs[1], "cannot determine shape from") {
		t.Errorf("shape message: %q", msgs[1])
	}
	if !strings.Contains(msgs[3], "no prototypes|prototypes_C|prototypes_Fortran defined in [KERNEL empty]") {
		t.Errorf("no-prototypes message: %q", msgs[3])
	}
}

func TestBuildModuleDataSupportDir(t *testing.T) {
	support := t.TempDir()
	writeFile(t, support, "b.c", "")
	writeFile(t, support, "a.c", "")
	writeFile(t, support, "notes.txt", "")
	cfg, _ := loadConfig(t, `
[MODULE m]
include_dirs = /opt/include
sources =
  native.c
`)
	data, err := BuildModuleData(context.Background(), cfg, BuildOptions{SupportDir: support}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{support, "/opt/include"}; !reflect.DeepEqual(data.IncludeDirs, want) {
		t.Fatalf("include dirs = %v", data.IncludeDirs)
	}
	want := []string{filepath.Join(support, "a.c"), filepath.Join(support, "b.c"), "native.c"}
	if !reflect.DeepEqual(data.Sources, want) {
		t.Fatalf("sources = %v", data.Sources)
	}
}

func TestBuildModuleDataCancelled(t *testing.T) {
	cfg, _ := loadConfig(t, addConfig)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := BuildModuleData(ctx, cfg, BuildOptions{}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fixedRenderer struct{ out render.Output }

func (r fixedRenderer) Render(*kernel.ModuleData) (render.Output, error) { return r.out, nil }

func TestGenerateWritesCSourceVerbatim(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "kernels.cfg", addConfig+"[MODULE_EXTRA]\n")
	outDir := filepath.Join(dir, "gen")

	res, err := Generate(context.Background(), GenerateOptions{
		ConfigFile: cfgPath,
		SourceDir:  outDir,
		Renderer:   fixedRenderer{out: render.Output{render.KeyCSource: "int x;\n", "h_source": "ignored"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := filepath.Join(outDir, "example-kernels.c")
	got, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "int x;\n" {
		t.Fatalf("output = %q", got)
	}
	if res.Sources[0] != want || res.Output != want {
		t.Fatalf("sources = %v", res.Sources)
	}
	if !filepath.IsAbs(res.ConfigFile) {
		t.Fatalf("config path not absolute: %s", res.ConfigFile)
	}
	if res.Bag.Len() != 1 || res.Bag.Items()[0].Code != diag.CfgUnknownSection {
		t.Fatalf("diagnostics = %+v", res.Bag.Items())
	}
	if len(res.Timing.Phases) != 4 {
		t.Fatalf("timing phases = %+v", res.Timing.Phases)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

type closeTracker struct {
	bytes.Buffer
	closed bool
}

func (c *closeTracker) Close() error { c.closed = true; return nil }

func TestGenerateStdoutAndWriterTargets(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "kernels.cfg", addConfig)

	var stdout closeTracker
	res, err := Generate(context.Background(), GenerateOptions{ConfigFile: cfgPath, TargetFile: TargetStdout, Stdout: &stdout})
	if err != nil {
		t.Fatal(err)
	}
	if stdout.closed {
		t.Fatal("stdout writer must not be closed")
	}
	if !strings.Contains(stdout.String(), "example_add_XndSymbolic_ellipses") {
		t.Fatalf("stdout output:\n%s", stdout.String())
	}
	if res.Sources[0] != StdoutPath {
		t.Fatalf("sources = %v", res.Sources)
	}

	var owned closeTracker
	res, err = Generate(context.Background(), GenerateOptions{ConfigFile: cfgPath, Target: &owned})
	if err != nil {
		t.Fatal(err)
	}
	if owned.closed || owned.Len() == 0 || res.Output != WriterPath {
		t.Fatalf("writer target: closed=%v len=%d output=%s", owned.closed, owned.Len(), res.Output)
	}
	if owned.String() != stdout.String() {
		t.Fatal("same config should render identical output")
	}
}

func TestGenerateFatalErrorsWriteNothing(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"missing module": "[KERNEL k]\nprototypes = void f()\n",
		"bad arraytype":  "[MODULE m]\narraytypes = fixed\n",
		"unknown option": "[MODULE m]\nbogus = 1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			cfgPath := writeFile(t, dir, strings.ReplaceAll(name, " ", "_")+".cfg", content)
			target := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".c")
			res, err := Generate(context.Background(), GenerateOptions{ConfigFile: cfgPath, TargetFile: target})
			if !config.IsConfigError(err) {
				t.Fatalf("expected config error, got %v", err)
			}
			if res == nil || res.Bag == nil {
				t.Fatal("result with diagnostics expected on failure")
			}
			if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
				t.Fatalf("target written despite fatal error")
			}
		})
	}
}

func TestGenerateMissingCSource(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "kernels.cfg", addConfig)
	_, err := Generate(context.Background(), GenerateOptions{
		ConfigFile: cfgPath,
		Target:     &bytes.Buffer{},
		Renderer:   fixedRenderer{out: render.Output{}},
	})
	if !errors.Is(err, render.ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
}

func TestGenerateCacheRoundTrip(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfgPath := writeFile(t, t.TempDir(), "kernels.cfg", addConfig+`
[KERNEL warn]
prototypes = void warn(double *a)
dimension = a(n
`)
	run := func() *GenerateResult {
		t.Helper()
		res, err := Generate(context.Background(), GenerateOptions{ConfigFile: cfgPath, Target: &bytes.Buffer{}, Cache: cache})
		if err != nil {
			t.Fatal(err)
		}
		return res
	}
	first := run()
	second := run()
	if first.Cached || !second.Cached {
		t.Fatalf("cached flags: first=%v second=%v", first.Cached, second.Cached)
	}
	if !reflect.DeepEqual(first.Module, second.Module) {
		t.Fatalf("cached module data differs:\n%+v\n%+v", first.Module, second.Module)
	}
	if first.Bag.Len() != 1 || second.Bag.Len() != 1 || second.Bag.Items()[0].Message != first.Bag.Items()[0].Message {
		t.Fatalf("diagnostics not replayed: %+v vs %+v", first.Bag.Items(), second.Bag.Items())
	}

	if err := cache.DropAll(); err != nil {
		t.Fatal(err)
	}
	if run().Cached {
		t.Fatal("DropAll should empty the cache")
	}
}

func TestCacheKeyChangesWithInputs(t *testing.T) {
	support := t.TempDir()
	base, err := CacheKey([]byte("a"), "1", BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for name, key := range map[string]func() (Digest, error){
		"content": func() (Digest, error) { return CacheKey([]byte("b"), "1", BuildOptions{}) },
		"version": func() (Digest, error) { return CacheKey([]byte("a"), "2", BuildOptions{}) },
		"support": func() (Digest, error) { return CacheKey([]byte("a"), "1", BuildOptions{SupportDir: support}) },
	} {
		d, err := key()
		if err != nil {
			t.Fatal(err)
		}
		if d == base {
			t.Errorf("%s does not change the key", name)
		}
	}
	same, _ := CacheKey([]byte("a"), "1", BuildOptions{})
	if same != base {
		t.Fatal("CacheKey is not deterministic")
	}
}

type syncRecorder struct {
	mu     sync.Mutex
	events []buildpipeline.Event
}

func (r *syncRecorder) OnEvent(e buildpipeline.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func TestGenerateAll(t *testing.T) {
	dir := t.TempDir()
	var runs []GenerateOptions
	for _, name := range []string{"a", "b", "c", "d"} {
		content := strings.Replace(addConfig, "example", name, 1)
		if name == "c" {
			content = "[KERNEL broken]\n"
		}
		runs = append(runs, GenerateOptions{
			ConfigFile: writeFile(t, dir, name+".cfg", content),
			SourceDir:  filepath.Join(dir, "out"),
		})
	}
	var rec syncRecorder
	items, err := GenerateAll(context.Background(), runs, 2, &rec)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	for i, name := range []string{"a", "b", "c", "d"} {
		it := items[i]
		if name == "c" {
			if !errors.Is(it.Err, config.ErrNoModule) {
				t.Fatalf("c: expected ErrNoModule, got %v", it.Err)
			}
			continue
		}
		if it.Err != nil {
			t.Fatalf("%s: %v", name, it.Err)
		}
		if want := filepath.Join(dir, "out", name+"-kernels.c"); it.Result.Output != want {
			t.Fatalf("%s: output %s, want %s", name, it.Result.Output, want)
		}
	}
	done := 0
	for _, e := range rec.events {
		if e.Stage == buildpipeline.StageWrite && e.Status == buildpipeline.StatusDone && e.File != "" {
			done++
		}
	}
	if done != 3 {
		t.Fatalf("expected 3 written files, got %d", done)
	}
}
