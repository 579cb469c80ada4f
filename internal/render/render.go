// Package render turns Module Data into C source through text/template.
package render

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"kerngen/internal/kernel"
	"kerngen/internal/proto"
	"kerngen/internal/typemap"
	"kerngen/internal/variant"
)

// KeyCSource is the output key holding the generated C translation unit.
const KeyCSource = "c_source"

// ErrMissingSource indicates a renderer that produced no c_source entry.
var ErrMissingSource = errors.New("renderer produced no " + KeyCSource)

// Output maps artefact names to generated text.
type Output map[string]string

// Renderer is the contract between the driver and a template engine.
type Renderer interface {
	Render(m *kernel.ModuleData) (Output, error)
}

//go:embed templates/kernels.c.tmpl
var defaultTemplate string

// Template is the default renderer.
type Template struct {
	tmpl    *template.Template
	Version string
}

// NewTemplate parses the embedded C template.
func NewTemplate(version string) (*Template, error) {
	return ParseTemplate(defaultTemplate, version)
}

// ParseTemplate parses a custom template with the same data model.
func ParseTemplate(text, version string) (*Template, error) {
	tmpl, err := template.New("kernels.c").
		Funcs(template.FuncMap{"cstr": strconv.Quote}).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Template{tmpl: tmpl, Version: version}, nil
}

// Render executes the template; the result carries KeyCSource.
func (t *Template) Render(m *kernel.ModuleData) (Output, error) {
	if m == nil {
		return nil, errors.New("render: nil module data")
	}
	view := buildView(m, t.Version)
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render %s: %w", m.ModuleName, err)
	}
	return Output{KeyCSource: buf.String()}, nil
}

type testView struct {
	OrigType string
	LowLevel string
	Message  string
}

type wrapperView struct {
	Name        string
	Kernel      string
	Function    string
	Variant     string
	Signature   string
	Description string
	Debug       bool
	Locals      []string
	Call        string
	Stores      []string
}

type moduleView struct {
	FileName   string
	Version    string
	ModuleName string
	Ident      string // ModuleName as a C identifier prefix
	Includes   []string
	NeedsStdio bool
	Tests      []testView
	Wrappers   []wrapperView
}

func buildView(m *kernel.ModuleData, version string) moduleView {
	v := moduleView{
		FileName:   commentSafe(m.ModuleName) + "-kernels.c",
		Version:    version,
		ModuleName: commentSafe(m.ModuleName),
		Ident:      m.Ident(),
		Includes:   m.IncludeLines(),
	}
	for _, t := range m.TypemapTests {
		v.Tests = append(v.Tests, testView{
			OrigType: t.OrigType,
			LowLevel: typemap.LowLevel(t.NormalType),
			Message:  fmt.Sprintf("typemap %s -> %s changes size", t.OrigType, t.NormalType),
		})
	}
	names, _ := m.WrapperNames()
	for i := range m.Kernels {
		w := wrapper(names[i], &m.Kernels[i])
		v.NeedsStdio = v.NeedsStdio || w.Debug
		v.Wrappers = append(v.Wrappers, w)
	}
	return v
}

func wrapper(name string, k *variant.Kernel) wrapperView {
	p := &k.Prototype
	w := wrapperView{
		Name:        name,
		Kernel:      p.KernelName,
		Function:    p.FunctionName,
		Variant:     kernel.VariantName(k),
		Signature:   kernel.Signature(k),
		Description: commentSafe(p.Description),
		Debug:       p.Debug,
	}

	dims := kernel.Dimensions(k)
	slot := 0
	callArgs := make([]string, 0, len(p.Arguments))
	for i := range p.Arguments {
		arg := &p.Arguments[i]
		ctype := proto.CType(arg.Left, arg.Type, arg.Right)
		callArgs = append(callArgs, arg.Name)
		switch {
		case arg.Intent == proto.IntentHidden:
			if j := slices.Index(dims, arg.Name); j >= 0 {
				w.Locals = append(w.Locals, fmt.Sprintf("%s %s = (%s)dims[%d];", ctype, arg.Name, ctype, j))
			} else {
				w.Locals = append(w.Locals, fmt.Sprintf("%s %s = 0;", ctype, arg.Name))
			}
		case arg.IsArray():
			w.Locals = append(w.Locals, fmt.Sprintf("%s %s = (%s)args[%d];", ctype, arg.Name, ctype, slot))
			slot++
		default:
			w.Locals = append(w.Locals, fmt.Sprintf("%s %s = *(%s *)args[%d];", ctype, arg.Name, ctype, slot))
			slot++
		}
	}
	call := fmt.Sprintf("%s(%s)", p.FunctionName, strings.Join(callArgs, ", "))
	if p.ReturnsVoid() {
		w.Call = call
	} else {
		rtype := proto.CType(p.ReturnLeft, p.ReturnType, p.ReturnRight)
		w.Locals = append(w.Locals, fmt.Sprintf("%s ret;", rtype))
		w.Call = "ret = " + call
		w.Stores = append(w.Stores, fmt.Sprintf("*(%s *)args[%d] = ret;", rtype, slot))
	}
	return w
}

func commentSafe(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "*/", "* /")
}
