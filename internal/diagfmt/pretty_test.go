package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"kerngen/internal/diag"
	"kerngen/internal/source"
)

const prettyConfig = "[MODULE m]\n[KERNEL k]\ndimension = a(n\n"

func prettyBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("/home/user/project/conf/kernels.cfg", []byte(prettyConfig))
	fs.SetBaseDir("/home/user/project")

	start := uint32(strings.Index(prettyConfig, "a(n"))
	bag := diag.NewBag(10)
	d := diag.NewWarning(diag.TypBadShape, source.Span{File: fileID, Start: start, End: start + 3}, `cannot determine shape from "a(n" in [KERNEL k]; ignoring`)
	bag.Add(d.WithNote(source.Span{File: fileID, Start: 11, End: 21}, "kernel declared here"))
	return bag, fs
}

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	bag, fs := prettyBag(t)

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{name: "Absolute path", mode: PathModeAbsolute, contains: "/home/user/project/conf/kernels.cfg:3:13"},
		{name: "Relative path", mode: PathModeRelative, contains: "conf/kernels.cfg:3:13"},
		{name: "Basename only", mode: PathModeBasename, contains: "kernels.cfg:3:13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: tt.mode})
			output := buf.String()

			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.contains, output)
			}
			if !strings.Contains(output, "WARNING TYP3001") {
				t.Errorf("Expected severity and code in output, got:\n%s", output)
			}
			if tt.mode == PathModeRelative && strings.Contains(output, "/home/user") {
				t.Errorf("relative mode leaked absolute path:\n%s", output)
			}
		})
	}
}

func TestPrettyExcerpt(t *testing.T) {
	bag, fs := prettyBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: PathModeBasename})

	want := strings.Join([]string{
		`kernels.cfg:3:13: WARNING TYP3001: cannot determine shape from "a(n" in [KERNEL k]; ignoring`,
		" 2 | [KERNEL k]",
		" 3 | dimension = a(n",
		"   |             ^~~",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPrettyNotesAndColor(t *testing.T) {
	bag, fs := prettyBag(t)

	var plain bytes.Buffer
	Pretty(&plain, bag, fs, PrettyOpts{ShowNotes: true, PathMode: PathModeBasename})
	if !strings.Contains(plain.String(), "note: kernels.cfg:2:1: kernel declared here") {
		t.Fatalf("note missing:\n%s", plain.String())
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatal("colour codes emitted with Color=false")
	}

	var colored bytes.Buffer
	Pretty(&colored, bag, fs, PrettyOpts{Color: true, PathMode: PathModeBasename})
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatal("expected ANSI colour codes")
	}
}

func TestPrettyWideRunesAndWidth(t *testing.T) {
	content := "description = 核函数 add\n"
	fs := source.NewFileSet()
	id := fs.AddVirtual("wide.cfg", []byte(content))
	start := uint32(strings.Index(content, "add"))
	bag := diag.NewBag(10)
	bag.Add(diag.NewWarning(diag.CfgEmptyValue, source.Span{File: id, Start: start, End: start + 3}, "marker"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	lines := strings.Split(buf.String(), "\n")
	// "description = " (14) + три широких символа (6) + пробел
	if want := "   | " + strings.Repeat(" ", 21) + "^~~"; lines[2] != want {
		t.Fatalf("marker line = %q, want %q", lines[2], want)
	}

	buf.Reset()
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, Width: 12})
	if !strings.Contains(buf.String(), " 1 | description…\n") {
		t.Fatalf("line not clipped:\n%s", buf.String())
	}
}

func TestPrettyWholeFileAndDropped(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("k.cfg", []byte("[MODULE m]\n"))
	bag := diag.NewBag(1)
	bag.Add(diag.NewWarning(diag.CfgUnknownSection, source.WholeFile(id), "first"))
	bag.Add(diag.NewWarning(diag.CfgUnknownSection, source.WholeFile(id), "second"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	out := buf.String()
	if strings.Contains(out, " | ") {
		t.Fatalf("whole-file diagnostic should have no excerpt:\n%s", out)
	}
	if !strings.Contains(out, "1 more diagnostics not shown") {
		t.Fatalf("dropped count missing:\n%s", out)
	}
}

func TestParsePathMode(t *testing.T) {
	for _, mode := range []PathMode{PathModeAuto, PathModeAbsolute, PathModeRelative, PathModeBasename} {
		got, ok := ParsePathMode(mode.String())
		if !ok || got != mode {
			t.Errorf("ParsePathMode(%q) = %v, %v", mode.String(), got, ok)
		}
	}
	if _, ok := ParsePathMode("weird"); ok {
		t.Error("unknown mode accepted")
	}
}
