// Package variant expands annotated prototypes into concrete kernel variants.
package variant

import (
	"strings"

	"kerngen/internal/proto"
)

// ArrayType is the array representation of a kernel variant.
type ArrayType string

const (
	Symbolic ArrayType = "symbolic"
	Variable ArrayType = "variable"
)

// ArrayTypes lists the recognised array types.
var ArrayTypes = []ArrayType{Symbolic, Variable}

// ArrayTypeNames returns ArrayTypes as strings.
func ArrayTypeNames() []string {
	out := make([]string, len(ArrayTypes))
	for i, a := range ArrayTypes {
		out[i] = string(a)
	}
	return out
}

// ParseArrayType accepts exactly "symbolic" or "variable".
func ParseArrayType(s string) (ArrayType, bool) {
	switch ArrayType(s) {
	case Symbolic, Variable:
		return ArrayType(s), true
	}
	return "", false
}

const (
	// GenericKind is the only kind that combines with Variable arrays.
	GenericKind = "Xnd"
	// KindC is the calling kind of the prototypes_C bucket.
	KindC = "C"
	// KindFortran is the calling kind of the prototypes_Fortran bucket.
	KindFortran = "Fortran"
	// CanonicalEllipsis is the repetition token rewritten for Variable arrays.
	CanonicalEllipsis = "..."
)

// Kernel is one concrete variant of a prototype.
type Kernel struct {
	Prototype proto.Prototype `json:"prototype" msgpack:"prototype"`
	Kind      string          `json:"kind" msgpack:"kind"`
	ArrayType ArrayType       `json:"arraytype" msgpack:"arraytype"`
	// Ellipsis is the rendered suffix, "" or "<token> * ".
	Ellipsis string `json:"ellipsis" msgpack:"ellipsis"`
}

// Valid reports whether a kind and array type may be combined.
func Valid(kind string, at ArrayType) bool {
	return at != Variable || kind == GenericKind
}

// EllipsisSuffix formats a repetition token for an array type.
func EllipsisSuffix(token string, at ArrayType) string {
	if token == "" || strings.EqualFold(token, "none") {
		return ""
	}
	if token == CanonicalEllipsis && at == Variable {
		return "var" + token + " * "
	}
	return token + " * "
}

// Expand returns the variants of p in the order array types, kinds,
// ellipses. Every variant owns its own copy of the prototype.
func Expand(p proto.Prototype, kinds []string, arrayTypes []ArrayType, ellipses []string) []Kernel {
	var out []Kernel
	for _, at := range arrayTypes {
		for _, kind := range kinds {
			if !Valid(kind, at) {
				continue
			}
			for _, token := range ellipses {
				out = append(out, Kernel{
					Prototype: p.Clone(),
					Kind:      kind,
					ArrayType: at,
					Ellipsis:  EllipsisSuffix(token, at),
				})
			}
		}
	}
	return out
}
