package config

import (
	"slices"
	"strings"
)

// Kind describes how an option value is interpreted.
type Kind uint8

const (
	// KindText keeps the value verbatim (signature blocks, description).
	KindText Kind = iota
	// KindLines splits on newlines, dropping blank and '#' lines.
	KindLines
	// KindList splits with expr.Split.
	KindList
	// KindWords splits on whitespace.
	KindWords
	// KindBool accepts 1/yes/true/on and 0/no/false/off.
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindLines:
		return "lines"
	case KindList:
		return "list"
	case KindWords:
		return "words"
	case KindBool:
		return "bool"
	}
	return "unknown"
}

// OptionSpec declares one recognised option.
type OptionSpec struct {
	Name    string
	Kind    Kind
	Default string
}

const (
	// DefaultKinds is the calling kind used when MODULE does not set kinds.
	DefaultKinds = "Xnd"
	// DefaultEllipses is the repetition token used when MODULE does not set ellipses.
	DefaultEllipses = "..."
	// DefaultArrayTypes is the array representation used when MODULE does not set arraytypes.
	DefaultArrayTypes = "symbolic"
)

// ModuleSchema lists every option of a MODULE section.
var ModuleSchema = []OptionSpec{
	{Name: "typemaps", Kind: KindLines},
	{Name: "include_dirs", Kind: KindLines},
	{Name: "sources", Kind: KindLines},
	{Name: "kinds", Kind: KindList, Default: DefaultKinds},
	{Name: "ellipses", Kind: KindList, Default: DefaultEllipses},
	{Name: "arraytypes", Kind: KindList, Default: DefaultArrayTypes},
	{Name: "includes", Kind: KindWords},
}

// KernelSchema lists every option of a KERNEL section. Option names are
// compared case-insensitively, so prototypes_C and prototypes_c are the same.
var KernelSchema = []OptionSpec{
	{Name: "skip", Kind: KindBool, Default: "false"},
	{Name: "description", Kind: KindText},
	{Name: "prototypes", Kind: KindText},
	{Name: "prototypes_c", Kind: KindText},
	{Name: "prototypes_fortran", Kind: KindText},
	{Name: "debug", Kind: KindBool, Default: "false"},
	{Name: "kinds", Kind: KindList},
	{Name: "ellipses", Kind: KindList},
	{Name: "arraytypes", Kind: KindList},
	{Name: "input_arguments", Kind: KindList},
	{Name: "output_arguments", Kind: KindList},
	{Name: "inplace_arguments", Kind: KindList},
	{Name: "hide_arguments", Kind: KindList},
	{Name: "dimension", Kind: KindList},
}

func lookupSpec(schema []OptionSpec, name string) (OptionSpec, bool) {
	i := slices.IndexFunc(schema, func(s OptionSpec) bool { return s.Name == name })
	if i < 0 {
		return OptionSpec{}, false
	}
	return schema[i], true
}

func schemaNames(schema []OptionSpec) string {
	names := make([]string, len(schema))
	for i, s := range schema {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

func parseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "no", "false", "off":
		return false, true
	case "1", "yes", "true", "on":
		return true, true
	}
	return false, false
}
