package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnreadable wraps filesystem errors while opening the config file.
	ErrUnreadable = errors.New("cannot read configuration")
	// ErrSyntax indicates a line that is neither a section header, an option nor a continuation.
	ErrSyntax = errors.New("syntax error")
	// ErrNoModule indicates that no MODULE section exists.
	ErrNoModule = errors.New("missing [MODULE <name>] section")
	// ErrDuplicateModule indicates more than one MODULE section.
	ErrDuplicateModule = errors.New("more than one MODULE section")
	// ErrEmptyName indicates a MODULE or KERNEL header without identifier.
	ErrEmptyName = errors.New("section identifier is empty")
	// ErrDuplicateSection indicates the same section header twice.
	ErrDuplicateSection = errors.New("duplicate section")
	// ErrDuplicateOption indicates the same option twice in one section.
	ErrDuplicateOption = errors.New("duplicate option")
	// ErrUnknownOption indicates an option outside the schema.
	ErrUnknownOption = errors.New("unknown option")
	// ErrBadBool indicates a boolean option with an unrecognised value.
	ErrBadBool = errors.New("not a boolean")
	// ErrBadTypemap indicates a typemaps line without "raw: normalized" form.
	ErrBadTypemap = errors.New("malformed typemap")
	// ErrBadValue indicates a TOML value of an unsupported type.
	ErrBadValue = errors.New("unsupported value")
)

// ConfigError reports a structurally invalid configuration. It is fatal for
// the generation run.
type ConfigError struct {
	Path    string
	Line    uint32 // 1-based, 0 when unknown
	Section string
	Detail  string
	Err     error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	b.WriteString(": ")
	if e.Section != "" {
		fmt.Fprintf(&b, "[%s]: ", e.Section)
	}
	if e.Detail != "" {
		b.WriteString(e.Detail)
		if e.Err != nil {
			b.WriteString(": ")
		}
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ValidationError reports an option value outside its recognised set, such
// as an unknown array type. It is fatal for the generation run.
type ValidationError struct {
	Path    string
	Line    uint32
	Section string
	Option  string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	return fmt.Sprintf("%s: [%s]: %s: invalid value %q (expected one of %s)",
		loc, e.Section, e.Option, e.Value, strings.Join(e.Allowed, ", "))
}
