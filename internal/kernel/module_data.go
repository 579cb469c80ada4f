// Package kernel holds the Module Data aggregate handed to renderers and the
// derived views templates need.
package kernel

import (
	"fmt"
	"slices"
	"strings"

	"kerngen/internal/typemap"
	"kerngen/internal/variant"
)

// ModuleData is the result of one generation run before rendering.
type ModuleData struct {
	ModuleName   string           `json:"module_name" msgpack:"module_name"`
	Includes     []string         `json:"includes" msgpack:"includes"` // header names from MODULE includes
	IncludeDirs  []string         `json:"include_dirs" msgpack:"include_dirs"`
	Sources      []string         `json:"sources" msgpack:"sources"`
	Kernels      []variant.Kernel `json:"kernels" msgpack:"kernels"`
	TypemapTests []typemap.Test   `json:"typemap_tests" msgpack:"typemap_tests"`
}

// IncludeLines renders includes as #include directives.
func (m *ModuleData) IncludeLines() []string {
	out := make([]string, 0, len(m.Includes))
	for _, h := range m.Includes {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, fmt.Sprintf("#include %q", h))
		}
	}
	return out
}

// Clone returns a deep copy.
func (m *ModuleData) Clone() *ModuleData {
	out := *m
	out.Includes = slices.Clone(m.Includes)
	out.IncludeDirs = slices.Clone(m.IncludeDirs)
	out.Sources = slices.Clone(m.Sources)
	out.TypemapTests = slices.Clone(m.TypemapTests)
	if m.Kernels != nil {
		out.Kernels = make([]variant.Kernel, len(m.Kernels))
		for i, k := range m.Kernels {
			k.Prototype = k.Prototype.Clone()
			out.Kernels[i] = k
		}
	}
	return &out
}

// KernelNames returns the distinct KERNEL section names in emission order.
func (m *ModuleData) KernelNames() []string {
	var out []string
	for _, k := range m.Kernels {
		if !slices.Contains(out, k.Prototype.KernelName) {
			out = append(out, k.Prototype.KernelName)
		}
	}
	return out
}
