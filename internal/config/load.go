package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"kerngen/internal/diag"
	"kerngen/internal/expr"
	"kerngen/internal/source"
	"kerngen/internal/typemap"
	"kerngen/internal/variant"
)

const (
	markerModule = "MODULE"
	markerKernel = "KERNEL"
)

// Load reads path into fs and resolves it in two phases: the single MODULE
// section first, then every KERNEL section against it. Unknown sections are
// reported to r as warnings. Structural problems return *ConfigError and
// unknown array types return *ValidationError.
func Load(path string, fs *source.FileSet, r diag.Reporter) (*Config, error) {
	if r == nil {
		r = diag.NopReporter{}
	}
	id, err := fs.Load(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("%w: %w", ErrUnreadable, err)}
	}
	file := fs.Get(id)

	var sections []rawSection
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		sections, err = parseTOML(path, file)
	} else {
		sections, err = parseINI(path, file)
	}
	if err != nil {
		return nil, err
	}

	l := loader{path: path, reporter: r}
	cfg := &Config{Path: path, File: id}

	// phase 1: MODULE
	var module *rawSection
	for i := range sections {
		sec := &sections[i]
		marker, name := splitHeader(sec.Name)
		if marker != markerModule {
			continue
		}
		if module != nil {
			return nil, &ConfigError{Path: path, Line: sec.Line, Section: sec.Name, Err: ErrDuplicateModule}
		}
		if name == "" {
			return nil, &ConfigError{Path: path, Line: sec.Line, Section: sec.Name, Err: ErrEmptyName}
		}
		module = sec
	}
	if module == nil {
		return nil, &ConfigError{Path: path, Err: ErrNoModule}
	}
	if cfg.Module, err = l.module(module); err != nil {
		return nil, err
	}

	// phase 2: KERNEL sections in file order
	for i := range sections {
		sec := &sections[i]
		marker, name := splitHeader(sec.Name)
		switch marker {
		case markerModule:
			continue
		case markerKernel:
		default:
			diag.ReportWarning(r, diag.CfgUnknownSection, sec.Span,
				fmt.Sprintf("ignoring section [%s]: expected MODULE <name> or KERNEL <name>", sec.Name)).Emit()
			continue
		}
		if name == "" {
			return nil, &ConfigError{Path: path, Line: sec.Line, Section: sec.Name, Err: ErrEmptyName}
		}
		skip, err := l.skip(sec)
		if err != nil {
			return nil, err
		}
		if skip {
			cfg.Skipped = append(cfg.Skipped, name)
			continue
		}
		k, err := l.kernel(sec, name, &cfg.Module)
		if err != nil {
			return nil, err
		}
		cfg.Kernels = append(cfg.Kernels, k)
	}
	return cfg, nil
}

// splitHeader splits "KERNEL  add" into its marker and identifier.
func splitHeader(header string) (marker, name string) {
	header = strings.TrimSpace(header)
	i := strings.IndexAny(header, " \t")
	if i < 0 {
		return header, ""
	}
	return header[:i], strings.TrimSpace(header[i+1:])
}

type loader struct {
	path     string
	reporter diag.Reporter
}

func (l *loader) errorf(sec *rawSection, line uint32, err error, format string, args ...any) *ConfigError {
	return &ConfigError{Path: l.path, Line: line, Section: sec.Name, Detail: fmt.Sprintf(format, args...), Err: err}
}

func (l *loader) checkOptions(sec *rawSection, schema []OptionSpec) error {
	for _, opt := range sec.Options {
		if _, ok := lookupSpec(schema, opt.Key); !ok {
			return l.errorf(sec, opt.Line, ErrUnknownOption, "%q (allowed: %s)", opt.Key, schemaNames(schema))
		}
	}
	return nil
}

func (l *loader) boolOption(sec *rawSection, key string) (bool, error) {
	opt, ok := sec.option(key)
	if !ok {
		return false, nil
	}
	v, ok := parseBool(opt.Value)
	if !ok {
		return false, l.errorf(sec, opt.Line, ErrBadBool, "%s = %q", key, opt.Value)
	}
	return v, nil
}

func (l *loader) skip(sec *rawSection) (bool, error) {
	return l.boolOption(sec, "skip")
}

func (l *loader) arrayTypes(sec *rawSection, opt rawOption, tokens []string) ([]variant.ArrayType, error) {
	out := make([]variant.ArrayType, 0, len(tokens))
	for _, tok := range tokens {
		at, ok := variant.ParseArrayType(tok)
		if !ok {
			return nil, &ValidationError{
				Path:    l.path,
				Line:    opt.Line,
				Section: sec.Name,
				Option:  opt.Key,
				Value:   tok,
				Allowed: variant.ArrayTypeNames(),
			}
		}
		out = append(out, at)
	}
	return out, nil
}

// listOrDefault splits a MODULE list option; a missing or empty value falls
// back to the schema default.
func (l *loader) listOrDefault(sec *rawSection, key string) ([]string, rawOption) {
	spec, _ := lookupSpec(ModuleSchema, key)
	opt, ok := sec.option(key)
	if !ok {
		return expr.Split(spec.Default), rawOption{Key: key, Span: sec.Span, Line: sec.Line}
	}
	tokens := expr.Split(opt.Value)
	if len(tokens) == 0 {
		diag.ReportWarning(l.reporter, diag.CfgEmptyValue, opt.Span,
			fmt.Sprintf("%s is empty; using default %q", key, spec.Default)).Emit()
		return expr.Split(spec.Default), opt
	}
	return tokens, opt
}

// ellipses resolves a present ellipses option. An empty value yields a
// single empty token (one variant without repetition) where a plain split
// would yield no tokens and so no variants at all; the warning makes that
// reading visible.
func (l *loader) ellipses(opt rawOption) []string {
	tokens := expr.Split(opt.Value)
	if len(tokens) == 0 {
		diag.ReportWarning(l.reporter, diag.CfgEmptyValue, opt.Span,
			"ellipses is empty; generating one variant without repetition").Emit()
		return []string{""}
	}
	return tokens
}

func (l *loader) module(sec *rawSection) (Module, error) {
	if err := l.checkOptions(sec, ModuleSchema); err != nil {
		return Module{}, err
	}
	_, name := splitHeader(sec.Name)
	m := Module{Name: name, Span: sec.Span}

	if opt, ok := sec.option("typemaps"); ok {
		entries := make([]typemap.Entry, 0)
		for _, line := range expr.Lines(opt.Value) {
			raw, normalized, found := strings.Cut(line, ":")
			raw, normalized = strings.TrimSpace(raw), strings.TrimSpace(normalized)
			if !found || raw == "" || normalized == "" {
				return Module{}, l.errorf(sec, opt.Line, ErrBadTypemap, "%q", line)
			}
			m.Typemaps = append(m.Typemaps, TypemapEntry{Raw: raw, Normalized: normalized, Span: opt.Span})
			entries = append(entries, typemap.Entry{Raw: raw, Normalized: normalized})
		}
		table, err := typemap.NewTable(entries)
		if err != nil {
			return Module{}, &ConfigError{Path: l.path, Line: opt.Line, Section: sec.Name, Detail: "typemaps", Err: err}
		}
		m.Table = table
	} else {
		m.Table, _ = typemap.NewTable(nil)
	}

	if opt, ok := sec.option("include_dirs"); ok {
		m.IncludeDirs = expr.Lines(opt.Value)
	}
	if opt, ok := sec.option("sources"); ok {
		m.Sources = expr.Lines(opt.Value)
	}
	if opt, ok := sec.option("includes"); ok {
		m.Includes = strings.Fields(opt.Value)
	}

	m.Kinds, _ = l.listOrDefault(sec, "kinds")
	if opt, ok := sec.option("ellipses"); ok {
		m.Ellipses = l.ellipses(opt)
	} else {
		m.Ellipses = []string{DefaultEllipses}
	}
	tokens, opt := l.listOrDefault(sec, "arraytypes")
	var err error
	if m.ArrayTypes, err = l.arrayTypes(sec, opt, tokens); err != nil {
		return Module{}, err
	}
	return m, nil
}

func (l *loader) kernel(sec *rawSection, name string, m *Module) (Kernel, error) {
	if err := l.checkOptions(sec, KernelSchema); err != nil {
		return Kernel{}, err
	}
	k := Kernel{Name: name, Span: sec.Span, spans: make(map[string]source.Span, len(sec.Options))}
	for _, opt := range sec.Options {
		k.spans[opt.Key] = opt.Span
	}

	text := func(key string) Text {
		if opt, ok := sec.option(key); ok {
			return Text{Value: opt.Value, Span: opt.Span, Set: true}
		}
		return Text{Span: sec.Span}
	}
	list := func(key string) []string {
		if opt, ok := sec.option(key); ok {
			return expr.Split(opt.Value)
		}
		return nil
	}

	k.Description = strings.TrimSpace(text("description").Value)
	k.Prototypes = text("prototypes")
	k.PrototypesC = text("prototypes_c")
	k.PrototypesFortran = text("prototypes_fortran")

	var err error
	if k.Debug, err = l.boolOption(sec, "debug"); err != nil {
		return Kernel{}, err
	}

	k.Kinds = list("kinds")
	if len(k.Kinds) == 0 {
		k.Kinds = append([]string(nil), m.Kinds...)
	}
	if opt, ok := sec.option("ellipses"); ok {
		k.Ellipses = l.ellipses(opt)
	} else {
		k.Ellipses = append([]string(nil), m.Ellipses...)
	}
	if tokens := list("arraytypes"); len(tokens) > 0 {
		opt, _ := sec.option("arraytypes")
		if k.ArrayTypes, err = l.arrayTypes(sec, opt, tokens); err != nil {
			return Kernel{}, err
		}
	} else {
		k.ArrayTypes = append([]variant.ArrayType(nil), m.ArrayTypes...)
	}

	k.Input = list("input_arguments")
	k.Output = list("output_arguments")
	k.Inplace = list("inplace_arguments")
	k.Hide = list("hide_arguments")
	k.Dimension = list("dimension")
	return k, nil
}

// IsConfigError reports whether err is a structural or validation failure
// of the configuration, as opposed to an I/O or rendering failure.
func IsConfigError(err error) bool {
	var cerr *ConfigError
	var verr *ValidationError
	return errors.As(err, &cerr) || errors.As(err, &verr)
}
