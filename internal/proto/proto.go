// Package proto reads C-like function signatures into Prototype records.
package proto

import (
	"fmt"
	"slices"
	"strings"
)

// Intent is the data-flow role of an argument.
type Intent uint8

const (
	IntentInput Intent = iota
	IntentInplace
	IntentOutput
	IntentHidden
)

var intentNames = [...]string{
	IntentInput:   "input",
	IntentInplace: "inplace",
	IntentOutput:  "output",
	IntentHidden:  "hidden",
}

func (i Intent) String() string {
	if int(i) < len(intentNames) {
		return intentNames[i]
	}
	return fmt.Sprintf("Intent(%d)", uint8(i))
}

// MarshalText keeps inspect output and cache payloads readable.
func (i Intent) MarshalText() ([]byte, error) {
	if int(i) >= len(intentNames) {
		return nil, fmt.Errorf("proto: invalid intent %d", uint8(i))
	}
	return []byte(intentNames[i]), nil
}

func (i *Intent) UnmarshalText(b []byte) error {
	idx := slices.Index(intentNames[:], string(b))
	if idx < 0 {
		return fmt.Errorf("proto: unknown intent %q", b)
	}
	*i = Intent(idx) //nolint:gosec // idx < len(intentNames)
	return nil
}

// Argument is one declared parameter of a native routine.
type Argument struct {
	Name           string   `json:"name" msgpack:"name"`
	Type           string   `json:"type" msgpack:"type"` // base type as written, e.g. "unsigned long"
	NormalizedType string   `json:"normalized_type" msgpack:"normalized_type"`
	LowLevelType   string   `json:"low_level_type" msgpack:"low_level_type"`
	Intent         Intent   `json:"intent" msgpack:"intent"`
	Shape          []string `json:"shape,omitempty" msgpack:"shape"`
	Left           string   `json:"left,omitempty" msgpack:"left"`   // qualifiers before the base type
	Right          string   `json:"right,omitempty" msgpack:"right"` // "*", "**", "[]", "[n]"...
	Decl           string   `json:"decl" msgpack:"decl"`
}

// IsArray reports whether the argument is passed by pointer or as an array.
func (a *Argument) IsArray() bool {
	return a.Right != ""
}

// Prototype is one parsed signature together with the kernel metadata
// attached by later stages.
type Prototype struct {
	FunctionName         string     `json:"function_name" msgpack:"function_name"`
	ReturnType           string     `json:"return_type" msgpack:"return_type"`
	NormalizedReturnType string     `json:"normalized_return_type" msgpack:"normalized_return_type"`
	LowLevelReturnType   string     `json:"low_level_return_type" msgpack:"low_level_return_type"`
	ReturnLeft           string     `json:"return_left,omitempty" msgpack:"return_left"`
	ReturnRight          string     `json:"return_right,omitempty" msgpack:"return_right"`
	Arguments            []Argument `json:"arguments" msgpack:"arguments"`
	KernelName           string     `json:"kernel_name" msgpack:"kernel_name"`
	Description          string     `json:"description,omitempty" msgpack:"description"`
	Debug                bool       `json:"debug,omitempty" msgpack:"debug"`
	Signature            string     `json:"signature" msgpack:"signature"`
}

// Clone returns a deep copy; later stages never share argument slices.
func (p *Prototype) Clone() Prototype {
	out := *p
	if p.Arguments != nil {
		out.Arguments = make([]Argument, len(p.Arguments))
		for i, arg := range p.Arguments {
			arg.Shape = slices.Clone(arg.Shape)
			out.Arguments[i] = arg
		}
	}
	return out
}

// Argument returns the index of the named argument or -1.
func (p *Prototype) Argument(name string) int {
	return slices.IndexFunc(p.Arguments, func(a Argument) bool { return a.Name == name })
}

// ReturnsVoid reports a plain void return.
func (p *Prototype) ReturnsVoid() bool {
	return p.ReturnType == "void" && p.ReturnRight == ""
}

// ArgumentsByIntent lists arguments with any of the given intents, in declaration order.
func (p *Prototype) ArgumentsByIntent(intents ...Intent) []Argument {
	var out []Argument
	for _, arg := range p.Arguments {
		if slices.Contains(intents, arg.Intent) {
			out = append(out, arg)
		}
	}
	return out
}

// CType renders a declared type as a pointer type: array declarators decay
// to pointers, so "double", "[]" gives "double *".
func CType(left, base, right string) string {
	var b strings.Builder
	if left != "" {
		b.WriteString(left)
		b.WriteByte(' ')
	}
	b.WriteString(base)
	if depth := strings.Count(right, "*") + strings.Count(right, "["); depth > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Repeat("*", depth))
	}
	return b.String()
}
