package expr

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"blank", "  \n\t ", nil},
		{"single", "Xnd", []string{"Xnd"}},
		{"commas", "a,b , c", []string{"a", "b", "c"}},
		{"spaces and newlines", "a b\n  c", []string{"a", "b", "c"}},
		{"doubled separators", "a,, ,b", []string{"a", "b"}},
		{"parentheses kept", "out(m, n), x(k)", []string{"out(m, n)", "x(k)"}},
		{"nested brackets", "a[i, j] b{1 2}", []string{"a[i, j]", "b{1 2}"}},
		{"unbalanced opener", "out(m, n", []string{"out(m, n"}},
		{"quoted", `"a b", 'c,d'`, []string{"a b", "c,d"}},
		{"quoted empty", `"" ...`, []string{"", "..."}},
		{"ellipsis", "none, ...", []string{"none", "..."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLines(t *testing.T) {
	in := "\n  # comment\n  double: float64\n\n  int : int32 \n"
	want := []string{"double: float64", "int : int32"}
	if got := Lines(in); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines = %q, want %q", got, want)
	}
}
