package source

import "fmt"

// Span is a half-open byte range [Start, End) inside one file. The zero
// range stands for the file as a whole.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// WholeFile is the span used by diagnostics about a file rather than a
// place in it (unknown sections, cache failures).
func WholeFile(id FileID) Span {
	return Span{File: id}
}

func (s Span) IsWholeFile() bool {
	return s.Start == 0 && s.End == 0
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover widens s to include other; a span of another file leaves s as is.
func (s Span) Cover(other Span) Span {
	if s.File == other.File {
		s.Start = min(s.Start, other.Start)
		s.End = max(s.End, other.End)
	}
	return s
}
