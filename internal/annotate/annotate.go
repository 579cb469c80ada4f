// Package annotate assigns argument intents and shapes.
package annotate

import (
	"kerngen/internal/proto"
	"kerngen/internal/typemap"
)

// Spec lists argument names per intent plus shape entries of one kernel.
type Spec struct {
	Input   []string
	Inplace []string
	Output  []string
	Hidden  []string
	Shapes  []typemap.Shape
}

// Apply returns an annotated copy of p. Intents are applied in the order
// input, inplace, output, hidden, so the later list wins. Names that match
// no argument are ignored.
func Apply(p proto.Prototype, spec Spec) proto.Prototype {
	out := p.Clone()
	steps := []struct {
		names  []string
		intent proto.Intent
	}{
		{spec.Input, proto.IntentInput},
		{spec.Inplace, proto.IntentInplace},
		{spec.Output, proto.IntentOutput},
		{spec.Hidden, proto.IntentHidden},
	}
	for _, step := range steps {
		for _, name := range step.names {
			if i := out.Argument(name); i >= 0 {
				out.Arguments[i].Intent = step.intent
			}
		}
	}
	for _, shape := range spec.Shapes {
		if i := out.Argument(shape.Name); i >= 0 {
			out.Arguments[i].Shape = append([]string(nil), shape.Dims...)
		}
	}
	return out
}

// Unknown returns names in spec that match no argument of p, for
// diagnostics.
func Unknown(p proto.Prototype, spec Spec) []string {
	var out []string
	seen := make(map[string]bool)
	check := func(name string) {
		if seen[name] || p.Argument(name) >= 0 {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, list := range [][]string{spec.Input, spec.Inplace, spec.Output, spec.Hidden} {
		for _, name := range list {
			check(name)
		}
	}
	for _, shape := range spec.Shapes {
		check(shape.Name)
	}
	return out
}
