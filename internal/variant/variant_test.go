package variant

import (
	"fmt"
	"reflect"
	"testing"

	"kerngen/internal/proto"
)

func sample() proto.Prototype {
	return proto.Prototype{
		FunctionName: "add",
		ReturnType:   "void",
		Arguments:    []proto.Argument{{Name: "a", Type: "double", Right: "*", Shape: []string{"n"}}},
	}
}

func describe(ks []Kernel) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = fmt.Sprintf("%s/%s/%q", k.ArrayType, k.Kind, k.Ellipsis)
	}
	return out
}

func TestExpandCountAndOrder(t *testing.T) {
	got := Expand(sample(), []string{"Xnd", "C"}, []ArrayType{Symbolic, Variable}, []string{"none", "..."})
	want := []string{
		`symbolic/Xnd/""`,
		`symbolic/Xnd/"... * "`,
		`symbolic/C/""`,
		`symbolic/C/"... * "`,
		`variable/Xnd/""`,
		`variable/Xnd/"var... * "`,
	}
	if !reflect.DeepEqual(describe(got), want) {
		t.Fatalf("got %v\nwant %v", describe(got), want)
	}
}

func TestExpandEmptyInputs(t *testing.T) {
	if got := Expand(sample(), nil, []ArrayType{Symbolic}, []string{"..."}); len(got) != 0 {
		t.Fatalf("no kinds should give no variants, got %d", len(got))
	}
	if got := Expand(sample(), []string{"C"}, []ArrayType{Variable}, []string{"..."}); len(got) != 0 {
		t.Fatalf("C with variable should be filtered, got %d", len(got))
	}
}

func TestExpandDeepCopies(t *testing.T) {
	got := Expand(sample(), []string{"Xnd"}, []ArrayType{Symbolic}, []string{"", "..."})
	got[0].Prototype.Arguments[0].Shape[0] = "m"
	if got[1].Prototype.Arguments[0].Shape[0] != "n" {
		t.Fatalf("variants share argument memory")
	}
}

func TestEllipsisSuffix(t *testing.T) {
	tests := []struct {
		token string
		at    ArrayType
		want  string
	}{
		{"", Symbolic, ""},
		{"none", Symbolic, ""},
		{"NONE", Variable, ""},
		{"...", Symbolic, "... * "},
		{"...", Variable, "var... * "},
		{"N", Symbolic, "N * "},
		{"N", Variable, "N * "},
	}
	for _, tt := range tests {
		if got := EllipsisSuffix(tt.token, tt.at); got != tt.want {
			t.Errorf("EllipsisSuffix(%q, %s) = %q, want %q", tt.token, tt.at, got, tt.want)
		}
	}
}

func TestParseArrayType(t *testing.T) {
	for _, s := range []string{"symbolic", "variable"} {
		if _, ok := ParseArrayType(s); !ok {
			t.Errorf("%q rejected", s)
		}
	}
	for _, s := range []string{"Symbolic", "fixed", ""} {
		if _, ok := ParseArrayType(s); ok {
			t.Errorf("%q accepted", s)
		}
	}
}
