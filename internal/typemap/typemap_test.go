package typemap

import (
	"errors"
	"reflect"
	"testing"

	"kerngen/internal/proto"
)

func mustTable(t *testing.T, entries ...Entry) *Table {
	t.Helper()
	tbl, err := NewTable(entries)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func TestNormalizeIdentityFallback(t *testing.T) {
	tbl := mustTable(t, Entry{"double", "float64"}, Entry{"long", "int64"})
	tests := map[string]string{
		"double":        "float64",
		"long":          "int64",
		"int":           "int",
		"unsigned long": "unsigned long",
	}
	for raw, want := range tests {
		if got := tbl.Normalize(raw); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", raw, got, want)
		}
	}
	var zero *Table
	if got := zero.Normalize("double"); got != "double" {
		t.Fatalf("nil table should be identity, got %q", got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	tbl := mustTable(t, Entry{"double", "float64"}, Entry{"float", "float32"}, Entry{"float64", "float64"})
	for _, raw := range []string{"double", "float", "float64", "int", "xnd_t"} {
		once := tbl.Normalize(raw)
		if twice := tbl.Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", raw, once, twice)
		}
	}
}

func TestNewTableRejectsChains(t *testing.T) {
	_, err := NewTable([]Entry{{"double", "float64"}, {"float64", "real"}})
	if !errors.Is(err, ErrChained) {
		t.Fatalf("expected ErrChained, got %v", err)
	}
	_, err = NewTable([]Entry{{"", "float64"}})
	if !errors.Is(err, ErrEmptyType) {
		t.Fatalf("expected ErrEmptyType, got %v", err)
	}
}

func TestNewTableLaterDuplicateWins(t *testing.T) {
	tbl := mustTable(t, Entry{"double", "float64"}, Entry{"double", "real64"})
	if got := tbl.Normalize("double"); got != "real64" {
		t.Fatalf("got %q", got)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len = %d", tbl.Len())
	}
}

func TestNormalizerApply(t *testing.T) {
	tbl := mustTable(t, Entry{"double", "float64"})
	p := proto.Prototype{
		FunctionName: "add",
		ReturnType:   "double",
		Arguments: []proto.Argument{
			{Name: "a", Type: "double", Right: "*"},
			{Name: "n", Type: "int"},
		},
	}
	got, tests := Normalizer{Table: tbl}.Apply(p)

	if p.Arguments[0].NormalizedType != "" {
		t.Fatalf("Apply mutated its input")
	}
	if got.NormalizedReturnType != "float64" || got.LowLevelReturnType != "float64_t" {
		t.Fatalf("return: %q %q", got.NormalizedReturnType, got.LowLevelReturnType)
	}
	if a := got.Arguments[0]; a.NormalizedType != "float64" || a.LowLevelType != "float64_t" || a.Type != "double" {
		t.Fatalf("a: %+v", a)
	}
	if n := got.Arguments[1]; n.NormalizedType != "int" || n.LowLevelType != "int_t" {
		t.Fatalf("n: %+v", n)
	}
	want := []Test{{"double", "float64"}, {"double", "float64"}}
	if !reflect.DeepEqual(tests, want) {
		t.Fatalf("tests = %v, want %v", tests, want)
	}
}

func TestTestSetDedup(t *testing.T) {
	var set TestSet
	for range 10 {
		set.Add(Test{"double", "float64"})
	}
	set.Add(Test{"float", "float32"}, Test{"double", "float64"})
	want := []Test{{"double", "float64"}, {"float", "float32"}}
	if got := set.Items(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Items = %v, want %v", got, want)
	}
	if set.Len() != 2 {
		t.Fatalf("Len = %d", set.Len())
	}
}

func TestParseShape(t *testing.T) {
	tests := []struct {
		in      string
		want    Shape
		wantErr bool
	}{
		{in: "out(m, n)", want: Shape{Name: "out", Dims: []string{"m", "n"}}},
		{in: " x ( n ) ", want: Shape{Name: "x", Dims: []string{"n"}}},
		{in: "s()", want: Shape{Name: "s", Dims: []string{}}},
		{in: "out(m, n", wantErr: true},
		{in: "out", wantErr: true},
		{in: "(n)", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShape(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrBadShape) {
					t.Fatalf("expected ErrBadShape, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseShape: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
