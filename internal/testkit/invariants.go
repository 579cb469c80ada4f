// Package testkit holds invariant checks shared by package tests.
package testkit

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"kerngen/internal/config"
	"kerngen/internal/kernel"
	"kerngen/internal/source"
	"kerngen/internal/typemap"
	"kerngen/internal/variant"
)

// CheckModuleInvariants runs the structural invariants of Module Data:
// 1) every variant combines a valid kind and array type
// 2) ellipsis suffixes are empty or end in " * ", "var" only for variable arrays
// 3) low-level types are the normalised type plus the suffix
// 4) wrapper identifiers are unique and typemap tests are distinct
func CheckModuleInvariants(m *kernel.ModuleData) error {
	if m == nil {
		return fmt.Errorf("nil module data")
	}
	names, _ := m.WrapperNames()
	wrappers := make(map[string]int, len(m.Kernels))
	for i := range m.Kernels {
		k := &m.Kernels[i]
		if !variant.Valid(k.Kind, k.ArrayType) {
			return fmt.Errorf("variant %d: kind %s does not combine with %s arrays", i, k.Kind, k.ArrayType)
		}
		if k.Ellipsis != "" && !strings.HasSuffix(k.Ellipsis, " * ") {
			return fmt.Errorf("variant %d: malformed ellipsis %q", i, k.Ellipsis)
		}
		if strings.HasPrefix(k.Ellipsis, "var") && k.ArrayType != variant.Variable {
			return fmt.Errorf("variant %d: %q on %s arrays", i, k.Ellipsis, k.ArrayType)
		}
		p := &k.Prototype
		if p.LowLevelReturnType != typemap.LowLevel(p.NormalizedReturnType) {
			return fmt.Errorf("variant %d: return low-level type %q for %q", i, p.LowLevelReturnType, p.NormalizedReturnType)
		}
		for _, arg := range p.Arguments {
			if arg.LowLevelType != typemap.LowLevel(arg.NormalizedType) {
				return fmt.Errorf("variant %d: argument %s low-level type %q for %q", i, arg.Name, arg.LowLevelType, arg.NormalizedType)
			}
		}
		name := names[i]
		if prev, dup := wrappers[name]; dup {
			return fmt.Errorf("variants %d and %d share wrapper name %s", prev, i, name)
		}
		wrappers[name] = i
	}

	seen := make(map[typemap.Test]bool, len(m.TypemapTests))
	for _, t := range m.TypemapTests {
		if seen[t] {
			return fmt.Errorf("duplicate typemap test %s -> %s", t.OrigType, t.NormalType)
		}
		seen[t] = true
	}
	return nil
}

// CheckNoSharing fails when two variants share argument or shape storage,
// so that editing one variant can never leak into another.
func CheckNoSharing(m *kernel.ModuleData) error {
	args := make(map[*string]int)
	shapes := make(map[*string]int)
	for i := range m.Kernels {
		p := &m.Kernels[i].Prototype
		if len(p.Arguments) == 0 {
			continue
		}
		key := &p.Arguments[0].Name
		if prev, ok := args[key]; ok {
			return fmt.Errorf("variants %d and %d share arguments", prev, i)
		}
		args[key] = i
		for j := range p.Arguments {
			if len(p.Arguments[j].Shape) == 0 {
				continue
			}
			sk := &p.Arguments[j].Shape[0]
			if prev, ok := shapes[sk]; ok {
				return fmt.Errorf("variants %d and %d share the shape of %s", prev, i, p.Arguments[j].Name)
			}
			shapes[sk] = i
		}
	}
	return nil
}

// CheckConfigSpans checks that the module and kernel header spans point
// into sf and are non-empty.
func CheckConfigSpans(cfg *config.Config, sf *source.File) error {
	if cfg == nil || sf == nil {
		return fmt.Errorf("nil config or file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	check := func(what string, sp source.Span) error {
		if sp.File != sf.ID {
			return fmt.Errorf("%s span points to different file id: got=%d want=%d", what, sp.File, sf.ID)
		}
		if sp.End <= sp.Start {
			return fmt.Errorf("%s span is empty: %v", what, sp)
		}
		if sp.End > lenContent {
			return fmt.Errorf("%s span end beyond content: %d > %d", what, sp.End, lenContent)
		}
		return nil
	}
	if err := check("[MODULE "+cfg.Module.Name+"]", cfg.Module.Span); err != nil {
		return err
	}
	prev := cfg.Module.Span
	for i := range cfg.Kernels {
		k := &cfg.Kernels[i]
		what := "[KERNEL " + k.Name + "]"
		if err := check(what, k.Span); err != nil {
			return err
		}
		if k.Span.Start < prev.Start && i > 0 {
			return fmt.Errorf("%s is out of file order", what)
		}
		prev = k.Span
	}
	return nil
}
