// Package typemap maps raw type spellings to canonical names and records
// which substitutions fired.
package typemap

import (
	"errors"
	"fmt"
	"sort"
)

// LowLevelSuffix is appended to a normalised name to get the low-level tag.
const LowLevelSuffix = "_t"

var (
	// ErrChained indicates an entry whose target is itself mapped to something else.
	ErrChained = errors.New("chained typemap")
	// ErrEmptyType indicates an entry with an empty side.
	ErrEmptyType = errors.New("empty type in typemap")
)

// Entry is one "raw: normalized" line.
type Entry struct {
	Raw        string
	Normalized string
}

// Table is an immutable substitution table. The zero value maps every type
// to itself.
type Table struct {
	m map[string]string
}

// NewTable builds a table. Later duplicates of a raw key win. A table where
// a target is itself a different key is rejected, so normalisation is
// idempotent.
func NewTable(entries []Entry) (*Table, error) {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Raw == "" || e.Normalized == "" {
			return nil, fmt.Errorf("%w: %q: %q", ErrEmptyType, e.Raw, e.Normalized)
		}
		m[e.Raw] = e.Normalized
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, raw := range keys {
		target := m[raw]
		if next, ok := m[target]; ok && next != target {
			return nil, fmt.Errorf("%w: %s -> %s -> %s", ErrChained, raw, target, next)
		}
	}
	return &Table{m: m}, nil
}

// Normalize performs one verbatim lookup with identity fallback.
func (t *Table) Normalize(raw string) string {
	if t == nil {
		return raw
	}
	if n, ok := t.m[raw]; ok {
		return n
	}
	return raw
}

// Len returns the number of distinct raw keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.m)
}

// LowLevel returns the low-level tag of a normalised name.
func LowLevel(name string) string {
	return name + LowLevelSuffix
}
