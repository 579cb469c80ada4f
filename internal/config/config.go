// Package config loads kernel generator configurations (INI or TOML) into
// resolved MODULE and KERNEL records.
package config

import (
	"kerngen/internal/source"
	"kerngen/internal/typemap"
	"kerngen/internal/variant"
)

// Text is a verbatim option value and where it came from.
type Text struct {
	Value string
	Span  source.Span
	Set   bool
}

// TypemapEntry is one "raw: normalized" line of MODULE typemaps.
type TypemapEntry struct {
	Raw        string
	Normalized string
	Span       source.Span
}

// Module is the resolved MODULE section.
type Module struct {
	Name        string
	Span        source.Span
	Typemaps    []TypemapEntry
	Table       *typemap.Table
	IncludeDirs []string
	Sources     []string
	Kinds       []string
	Ellipses    []string
	ArrayTypes  []variant.ArrayType
	Includes    []string
}

// Kernel is one KERNEL section resolved against the module defaults.
type Kernel struct {
	Name              string
	Span              source.Span
	Description       string
	Prototypes        Text
	PrototypesC       Text
	PrototypesFortran Text
	Debug             bool
	Kinds             []string
	Ellipses          []string
	ArrayTypes        []variant.ArrayType
	Input             []string
	Output            []string
	Inplace           []string
	Hide              []string
	Dimension         []string
	spans             map[string]source.Span
}

// OptionSpan returns the span of an option, or the section header span when
// the option was not written.
func (k *Kernel) OptionSpan(name string) source.Span {
	if sp, ok := k.spans[name]; ok {
		return sp
	}
	return k.Span
}

// HasPrototypes reports whether any prototype bucket carries text.
func (k *Kernel) HasPrototypes() bool {
	return k.Prototypes.Value != "" || k.PrototypesC.Value != "" || k.PrototypesFortran.Value != ""
}

// Config is a loaded configuration file.
type Config struct {
	Path    string
	File    source.FileID
	Module  Module
	Kernels []Kernel
	// Skipped lists kernels dropped by skip = true, in file order.
	Skipped []string
}
