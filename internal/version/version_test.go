package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColoredWithoutColor(t *testing.T) {
	saved, savedNoColor := Version, color.NoColor
	t.Cleanup(func() { Version, color.NoColor = saved, savedNoColor })
	color.NoColor = true

	tests := map[string]string{
		"1.2.3":     "1.2.3",
		"0.1.0-dev": "0.1.0-dev",
		"nightly":   "nightly",
	}
	for in, want := range tests {
		Version = in
		if got := Colored(); got != want {
			t.Errorf("Colored(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestString(t *testing.T) {
	saved := Version
	t.Cleanup(func() { Version = saved })

	Version = "  "
	if got := String(); got != "dev" {
		t.Fatalf("String() = %q, want dev", got)
	}
	Version = "1.0.0"
	if got := String(); got != "1.0.0" {
		t.Fatalf("String() = %q", got)
	}
}

func TestCollectPrefersLinkerValues(t *testing.T) {
	saved := []string{Version, GitCommit, BuildDate}
	t.Cleanup(func() { Version, GitCommit, BuildDate = saved[0], saved[1], saved[2] })
	Version, GitCommit, BuildDate = "2.0.0", " abc123 ", "2026-01-02"

	info := Collect()
	if info.Version != "2.0.0" || info.Commit != "abc123" || info.Date != "2026-01-02" {
		t.Fatalf("Collect() = %+v", info)
	}
	if info.Go == "" {
		t.Error("Go version missing")
	}
}
