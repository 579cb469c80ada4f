package diag

import (
	"testing"

	"kerngen/internal/source"
)

func TestFormatShortDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")

	cfg := fs.Add("/workspace/kernels/sample.cfg", []byte("a\nb\n"), 0)

	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     TypBadShape,
			Message:  "cannot determine shape from \"out(m, n\"",
			Primary:  source.Span{File: cfg, Start: 2, End: 3},
		},
		{
			Severity: SevWarning,
			Code:     ProSyntax,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: cfg, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: cfg, Start: 2, End: 3}, Msg: "declared here"},
			},
		},
	}

	expected := "warning PRO2001 kernels/sample.cfg:1:1 first line second\n" +
		"note PRO2001 kernels/sample.cfg:2:1 declared here\n" +
		"warning TYP3001 kernels/sample.cfg:2:1 cannot determine shape from \"out(m, n\""

	if got := FormatShortDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
	if got := FormatShortDiagnostics(nil, fs, true); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestBagLimitAndDedup(t *testing.T) {
	bag := NewBag(2)
	sp := source.Span{File: 0, Start: 1, End: 2}
	for range 3 {
		bag.Add(NewWarning(ProSyntax, sp, "same"))
	}
	if bag.Len() != 2 || bag.Dropped() != 1 {
		t.Fatalf("Len=%d Dropped=%d, want 2 and 1", bag.Len(), bag.Dropped())
	}
	bag.Dedup()
	if bag.Len() != 1 {
		t.Fatalf("Dedup left %d items", bag.Len())
	}
	if bag.HasErrors() || !bag.HasWarnings() {
		t.Fatal("expected warnings only")
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{Start: 4, End: 9}
	ReportWarning(r, TypBadShape, sp, "cannot determine shape").Emit()
	ReportWarning(r, TypBadShape, sp, "cannot determine shape").Emit()
	ReportError(r, TypBadShape, sp, "cannot determine shape").Emit()
	ReportWarning(r, TypBadShape, sp, "other").Emit()
	if bag.Len() != 2 {
		t.Fatalf("got %d diagnostics, want 2", bag.Len())
	}
	if r.Suppressed() != 2 {
		t.Errorf("Suppressed() = %d, want 2", r.Suppressed())
	}
	if bag.HasErrors() {
		t.Error("repeated report at a higher severity was forwarded")
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"info", SevInfo},
		{"NOTE", SevInfo},
		{"warn", SevWarning},
		{" Warning ", SevWarning},
		{"error", SevError},
	}
	for _, tt := range tests {
		got, err := ParseSeverity(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseSeverity(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Error("unknown severity accepted")
	}
	if Severity(9).String() != "UNKNOWN" {
		t.Error("out of range severity has a name")
	}
}

func TestBagFilter(t *testing.T) {
	bag := NewBag(2)
	bag.Add(New(SevInfo, GenCacheHit, source.Span{}, "hit"))
	bag.Add(New(SevError, TypBadShape, source.Span{}, "bad"))
	bag.Add(New(SevWarning, VarNoVariants, source.Span{}, "none"))

	filtered := bag.Filter(SevWarning)
	if filtered.Len() != 1 || filtered.Items()[0].Code != TypBadShape {
		t.Fatalf("Filter kept %v", filtered.Items())
	}
	if filtered.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", filtered.Dropped())
	}
	if bag.Len() != 2 {
		t.Error("Filter modified the source bag")
	}
}

func TestCodeID(t *testing.T) {
	tests := map[Code]string{
		CfgUnknownSection: "CFG1001",
		ProSyntax:         "PRO2001",
		TypBadShape:       "TYP3001",
		AnnUnknownShape:   "ANN4002",
		VarNoVariants:     "VAR5001",
		GenCacheHit:       "GEN6001",
		UnknownCode:       "E0000",
	}
	for code, want := range tests {
		if got := code.ID(); got != want {
			t.Errorf("%d.ID() = %q, want %q", code, got, want)
		}
	}
}
