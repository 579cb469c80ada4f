package kernel

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"kerngen/internal/proto"
	"kerngen/internal/variant"
)

// titleCase capitalises the first letter. Casers are stateful, so each
// call gets its own.
func titleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}

// WrapperName builds the C identifier of a variant:
// <module>_<function>_<Kind><ArrayType>[_<ellipsis>]. It is not unique on
// its own; ModuleData.WrapperNames resolves clashes.
func WrapperName(module string, k *variant.Kernel) string {
	return moduleIdent(module) + "_" + identifier(k.Prototype.FunctionName) + "_" + VariantName(k)
}

// VariantName is the <Kind><ArrayType>[_<ellipsis>] tail of a wrapper name.
func VariantName(k *variant.Kernel) string {
	var b strings.Builder
	b.WriteString(identifier(titleCase(k.Kind)))
	b.WriteString(titleCase(string(k.ArrayType)))
	if e := EllipsisName(k.Ellipsis); e != "" {
		b.WriteByte('_')
		b.WriteString(e)
	}
	return b.String()
}

// Rename records a wrapper whose plain name was already taken.
type Rename struct {
	Index int    // variant that was renamed
	Prev  int    // variant holding the plain name
	Plain string // name WrapperName produced
	Name  string // name actually assigned
}

// WrapperNames assigns a unique identifier to every variant. A clashing
// variant is qualified with its KERNEL name first; if that is still
// taken a numeric suffix _2, _3, ... follows.
func (m *ModuleData) WrapperNames() ([]string, []Rename) {
	names := make([]string, len(m.Kernels))
	used := make(map[string]int, len(m.Kernels))
	var renames []Rename
	for i := range m.Kernels {
		k := &m.Kernels[i]
		plain := WrapperName(m.ModuleName, k)
		name := plain
		if _, taken := used[name]; taken {
			name = m.Ident() + "_" + identifier(k.Prototype.KernelName) + "_" +
				identifier(k.Prototype.FunctionName) + "_" + VariantName(k)
			base := name
			for n := 2; ; n++ {
				if _, taken := used[name]; !taken {
					break
				}
				name = fmt.Sprintf("%s_%d", base, n)
			}
			renames = append(renames, Rename{Index: i, Prev: used[plain], Plain: plain, Name: name})
		}
		used[name] = i
		names[i] = name
	}
	return names, renames
}

// Ident is the module name as a C identifier prefix.
func (m *ModuleData) Ident() string {
	return moduleIdent(m.ModuleName)
}

func moduleIdent(name string) string {
	id := identifier(name)
	if id == "" || id[0] >= '0' && id[0] <= '9' {
		id = "_" + id
	}
	return id
}

// EllipsisName turns an ellipsis suffix into an identifier fragment:
// "... * " -> "ellipses", "var... * " -> "varellipses", "N * " -> "N".
func EllipsisName(suffix string) string {
	token := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(suffix), "*"))
	if token == "" {
		return ""
	}
	token = strings.ReplaceAll(token, variant.CanonicalEllipsis, "ellipses")
	return identifier(token)
}

// identifier replaces every byte that cannot appear in a C identifier.
func identifier(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, s)
}

// Signature renders the kernel type signature "inputs -> outputs". Array
// arguments carry the ellipsis and their shape; scalars only the type.
// Hidden arguments do not appear.
func Signature(k *variant.Kernel) string {
	p := &k.Prototype
	var in, out []string
	for i := range p.Arguments {
		arg := &p.Arguments[i]
		term := argumentTerm(k, arg)
		switch arg.Intent {
		case proto.IntentInput:
			in = append(in, term)
		case proto.IntentInplace:
			in = append(in, term)
			out = append(out, term)
		case proto.IntentOutput:
			out = append(out, term)
		}
	}
	if !p.ReturnsVoid() {
		out = append([]string{k.Ellipsis + p.NormalizedReturnType}, out...)
	}
	return joinTerms(in) + " -> " + joinTerms(out)
}

func argumentTerm(k *variant.Kernel, arg *proto.Argument) string {
	if !arg.IsArray() && len(arg.Shape) == 0 {
		return arg.NormalizedType
	}
	var b strings.Builder
	b.WriteString(k.Ellipsis)
	for _, d := range arg.Shape {
		if k.ArrayType == variant.Variable {
			d = "var"
		}
		b.WriteString(d)
		b.WriteString(" * ")
	}
	b.WriteString(arg.NormalizedType)
	return b.String()
}

func joinTerms(terms []string) string {
	if len(terms) == 0 {
		return "void"
	}
	return strings.Join(terms, ", ")
}

// Dimensions lists the distinct shape dimension names of the non-hidden
// arguments in order of first appearance.
func Dimensions(k *variant.Kernel) []string {
	var out []string
	for _, arg := range k.Prototype.Arguments {
		if arg.Intent == proto.IntentHidden {
			continue
		}
		for _, d := range arg.Shape {
			if !slices.Contains(out, d) {
				out = append(out, d)
			}
		}
	}
	return out
}
