package typemap

import "kerngen/internal/proto"

// Test is one substitution that fired: OrigType was rewritten to NormalType.
type Test struct {
	OrigType   string `json:"orig_type" msgpack:"orig_type"`
	NormalType string `json:"normal_type" msgpack:"normal_type"`
}

// Normalizer rewrites prototype types through a Table.
type Normalizer struct {
	Table *Table
}

// Apply returns a normalised copy of p and the substitutions that fired,
// return type first, then arguments in declaration order.
func (n Normalizer) Apply(p proto.Prototype) (proto.Prototype, []Test) {
	out := p.Clone()
	var tests []Test

	out.NormalizedReturnType = n.Table.Normalize(out.ReturnType)
	out.LowLevelReturnType = LowLevel(out.NormalizedReturnType)
	if out.NormalizedReturnType != out.ReturnType {
		tests = append(tests, Test{OrigType: out.ReturnType, NormalType: out.NormalizedReturnType})
	}
	for i := range out.Arguments {
		arg := &out.Arguments[i]
		arg.NormalizedType = n.Table.Normalize(arg.Type)
		arg.LowLevelType = LowLevel(arg.NormalizedType)
		if arg.NormalizedType != arg.Type {
			tests = append(tests, Test{OrigType: arg.Type, NormalType: arg.NormalizedType})
		}
	}
	return out, tests
}

// TestSet collects tests in first-seen order without duplicates.
type TestSet struct {
	seen  map[Test]struct{}
	items []Test
}

// Add records tests; duplicates are ignored.
func (s *TestSet) Add(tests ...Test) {
	if s.seen == nil {
		s.seen = make(map[Test]struct{})
	}
	for _, t := range tests {
		if _, dup := s.seen[t]; dup {
			continue
		}
		s.seen[t] = struct{}{}
		s.items = append(s.items, t)
	}
}

// Len returns the number of distinct tests.
func (s *TestSet) Len() int { return len(s.items) }

// Items returns a copy in insertion order.
func (s *TestSet) Items() []Test {
	out := make([]Test, len(s.items))
	copy(out, s.items)
	return out
}
