package render

import (
	"strings"
	"testing"

	"kerngen/internal/kernel"
	"kerngen/internal/proto"
	"kerngen/internal/typemap"
	"kerngen/internal/variant"
)

func sampleModule() *kernel.ModuleData {
	add := proto.Prototype{
		FunctionName:         "add",
		KernelName:           "add",
		Description:          "sum */ of two",
		ReturnType:           "void",
		NormalizedReturnType: "void",
		Arguments: []proto.Argument{
			{Name: "a", Type: "double", NormalizedType: "float64", Right: "*", Shape: []string{"n"}},
			{Name: "b", Type: "double", NormalizedType: "float64", Right: "*", Shape: []string{"n"}},
			{Name: "c", Type: "double", NormalizedType: "float64", Right: "*", Shape: []string{"n"}, Intent: proto.IntentOutput},
			{Name: "n", Type: "int", NormalizedType: "int", Intent: proto.IntentHidden},
		},
	}
	dot := proto.Prototype{
		FunctionName:         "dot",
		KernelName:           "dot",
		Debug:                true,
		ReturnType:           "double",
		NormalizedReturnType: "float64",
		Arguments: []proto.Argument{
			{Name: "x", Type: "double", NormalizedType: "float64", Right: "*", Shape: []string{"n"}},
			{Name: "alpha", Type: "double", NormalizedType: "float64"},
		},
	}
	return &kernel.ModuleData{
		ModuleName: "example",
		Includes:   []string{"example.h"},
		Kernels: []variant.Kernel{
			{Prototype: add, Kind: "Xnd", ArrayType: variant.Symbolic},
			{Prototype: dot, Kind: "C", ArrayType: variant.Symbolic, Ellipsis: "... * "},
		},
		TypemapTests: []typemap.Test{{OrigType: "double", NormalType: "float64"}},
	}
}

func TestTemplateRender(t *testing.T) {
	tmpl, err := NewTemplate("v1.2.3")
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	out, err := tmpl.Render(sampleModule())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	src, ok := out[KeyCSource]
	if !ok {
		t.Fatalf("missing %s", KeyCSource)
	}
	wants := []string{
		"example-kernels.c: generated by kerngen v1.2.3",
		`#include "example.h"`,
		"#include <stdio.h>",
		`_Static_assert(sizeof(double) == sizeof(float64_t), "typemap double -> float64 changes size");`,
		"/* add: n * float64, n * float64 -> n * float64",
		" * sum * / of two",
		"example_add_XndSymbolic(void **args, const int64_t *dims)",
		"double * a = (double *)args[0];",
		"double * c = (double *)args[2];",
		"int n = (int)dims[0];",
		"add(a, b, c, n);",
		"example_dot_CSymbolic_ellipses(void **args, const int64_t *dims)",
		"double alpha = *(double *)args[1];",
		"ret = dot(x, alpha);",
		"*(double *)args[2] = ret;",
		`fprintf(stderr, "%s: calling %s\n", "example_dot_CSymbolic_ellipses", "dot");`,
		`{"add", "add", "XndSymbolic", "n * float64, n * float64 -> n * float64", example_add_XndSymbolic},`,
		"const size_t example_kernel_count = 2;",
	}
	for _, want := range wants {
		if !strings.Contains(src, want) {
			t.Errorf("output lacks %q\n--- output ---\n%s", want, src)
		}
	}
	if strings.Contains(src, "args[3]") {
		t.Errorf("hidden argument must not take an argument slot:\n%s", src)
	}
}

func TestTemplateRenderIsDeterministic(t *testing.T) {
	tmpl, err := NewTemplate("")
	if err != nil {
		t.Fatal(err)
	}
	first, err := tmpl.Render(sampleModule())
	if err != nil {
		t.Fatal(err)
	}
	second, err := tmpl.Render(sampleModule())
	if err != nil {
		t.Fatal(err)
	}
	if first[KeyCSource] != second[KeyCSource] {
		t.Fatal("render output differs between runs")
	}
}

func TestParseTemplateErrors(t *testing.T) {
	if _, err := ParseTemplate("{{.Broken", ""); err == nil {
		t.Fatal("expected parse error")
	}
	tmpl, err := ParseTemplate("{{.NoSuchField}}", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpl.Render(sampleModule()); err == nil {
		t.Fatal("expected execution error")
	}
	if _, err := tmpl.Render(nil); err == nil {
		t.Fatal("expected error for nil module data")
	}
}

func TestTemplateRenderSharedFunction(t *testing.T) {
	add := sampleModule().Kernels[0].Prototype
	vec, mat := add.Clone(), add.Clone()
	vec.KernelName, mat.KernelName = "add_vec", "add_mat"
	m := &kernel.ModuleData{
		ModuleName: "m",
		Kernels: []variant.Kernel{
			{Prototype: vec, Kind: "Xnd", ArrayType: variant.Symbolic, Ellipsis: "... * "},
			{Prototype: mat, Kind: "Xnd", ArrayType: variant.Symbolic, Ellipsis: "... * "},
		},
	}
	tmpl, err := NewTemplate("")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tmpl.Render(m)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	src := out[KeyCSource]
	for _, def := range []string{
		"m_add_XndSymbolic_ellipses(void **args, const int64_t *dims)",
		"m_add_mat_add_XndSymbolic_ellipses(void **args, const int64_t *dims)",
	} {
		if n := strings.Count(src, def); n != 1 {
			t.Errorf("%q defined %d times\n%s", def, n, src)
		}
	}
	if !strings.Contains(src, `{"add_mat", "add", "XndSymbolic_ellipses", `) {
		t.Errorf("table entry of add_mat lacks its variant:\n%s", src)
	}
}

func TestTemplateRenderModuleIdent(t *testing.T) {
	m := sampleModule()
	m.ModuleName = "my lib"
	tmpl, err := NewTemplate("")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tmpl.Render(m)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	src := out[KeyCSource]
	for _, want := range []string{
		"typedef int (*my_lib_kernel_fn)",
		"const my_lib_kernel_t my_lib_kernels[] = {",
		"const size_t my_lib_kernel_count = 2;",
		"my_lib_add_XndSymbolic(void **args",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("output lacks %q\n%s", want, src)
		}
	}
	if strings.Contains(src, "my lib_") {
		t.Errorf("raw module name used in an identifier:\n%s", src)
	}
}
