package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kerngen/internal/driver"
	"kerngen/internal/project"
	"kerngen/internal/trace"
	"kerngen/internal/version"
)

func TestInitProjectGeneratesCleanly(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "My-Kernels")
	var out bytes.Buffer
	initCmd.SetOut(&out)
	defer initCmd.SetOut(nil)
	if err := runInit(initCmd, []string{dir}); err != nil {
		t.Fatalf("runInit: %v", err)
	}
	if !strings.Contains(out.String(), "kernels/my_kernels.cfg") {
		t.Fatalf("init output:\n%s", out.String())
	}
	if err := runInit(initCmd, []string{dir}); err == nil {
		t.Fatal("second init must refuse to overwrite the manifest")
	}

	m, ok, err := project.Load(dir)
	if err != nil || !ok {
		t.Fatalf("project.Load: ok=%v err=%v", ok, err)
	}
	files, err := m.ConfigFiles()
	if err != nil || len(files) != 1 {
		t.Fatalf("config files: %v %v", files, err)
	}
	res, err := driver.Generate(context.Background(), driver.GenerateOptions{ConfigFile: files[0], SourceDir: m.SourceDir})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Bag.Len() != 0 {
		t.Fatalf("sample config produced diagnostics: %+v", res.Bag.Items())
	}
	if len(res.Module.Kernels) != 4 {
		t.Fatalf("expected 4 variants, got %d", len(res.Module.Kernels))
	}
	if want := filepath.Join(dir, "gen", "my_kernels-kernels.c"); res.Output != want {
		t.Fatalf("output = %s, want %s", res.Output, want)
	}
	if _, err := os.Stat(res.Output); err != nil {
		t.Fatal(err)
	}
}

func TestModuleName(t *testing.T) {
	tests := map[string]string{
		"blas":       "blas",
		"My-Kernels": "my_kernels",
		"2d fft":     "m2d_fft",
		"---":        "kernels",
	}
	for in, want := range tests {
		if got := moduleName(in); got != want {
			t.Errorf("moduleName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseTristate(t *testing.T) {
	tests := map[string]tristate{
		"":       stateAuto,
		"AUTO":   stateAuto,
		" on ":   stateOn,
		"always": stateOn,
		"off":    stateOff,
		"never":  stateOff,
	}
	for in, want := range tests {
		got, err := parseTristate("ui", in)
		if err != nil || got != want {
			t.Errorf("parseTristate(%q) = %s, %v", in, got, err)
		}
	}
	_, err := parseTristate("ui", "sometimes")
	if err == nil || !strings.Contains(err.Error(), "--ui") {
		t.Errorf("invalid value: err = %v", err)
	}
}

func TestTristateResolve(t *testing.T) {
	yes := func() bool { return true }
	no := func() bool { return false }
	if !stateOn.resolve(no) || stateOff.resolve(yes) {
		t.Error("explicit states must ignore detection")
	}
	if !stateAuto.resolve(yes) || stateAuto.resolve(no) || stateAuto.resolve(nil) {
		t.Error("auto must follow detection")
	}
}

func TestStdoutColorHonoursNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if stdoutColor() {
		t.Error("NO_COLOR ignored")
	}
}

func TestFormatPathForOutput(t *testing.T) {
	root := filepath.FromSlash("/p/root")
	if got := formatPathForOutput(root, filepath.FromSlash("/p/root/gen/a.c")); got != "gen/a.c" {
		t.Errorf("inside root: %s", got)
	}
	outside := filepath.FromSlash("/elsewhere/a.c")
	if got := formatPathForOutput(root, outside); got != outside {
		t.Errorf("outside root: %s", got)
	}
}

func TestPrintSources(t *testing.T) {
	var buf bytes.Buffer
	res := &driver.GenerateResult{Sources: []string{"gen/m-kernels.c", "native.c"}, Cached: true}
	if err := printSources(&buf, res); err != nil {
		t.Fatal(err)
	}
	want := "generated (cached): gen/m-kernels.c\nsource: native.c\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestCheckDiagFormat(t *testing.T) {
	for _, f := range []string{"pretty", "short", "json"} {
		if err := checkDiagFormat(f); err != nil {
			t.Errorf("%s rejected: %v", f, err)
		}
	}
	if err := checkDiagFormat("sarif"); err == nil {
		t.Error("sarif accepted")
	}
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, versionOptions{showHash: true}); err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Tool != "kerngen" || payload.Version != version.String() || payload.GitCommit == "" || payload.BuildDate != "" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestTraceFlagsConfig(t *testing.T) {
	cfg, err := traceFlags{output: "run.ndjson", level: "off", mode: "both"}.config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Level != trace.LevelPhase || cfg.Mode != trace.ModeBoth {
		t.Errorf("--trace without a level: %+v", cfg)
	}
	cfg, err = traceFlags{level: "off", mode: "bogus"}.config()
	if err != nil || cfg.Level != trace.LevelOff {
		t.Errorf("disabled tracing must not validate the mode: %+v, %v", cfg, err)
	}
	if _, err := (traceFlags{level: "loud", mode: "stream"}).config(); err == nil {
		t.Error("bad level accepted")
	}
}
