package typemap

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadShape indicates a dimension entry not of the form name(d1, d2, ...).
var ErrBadShape = errors.New("cannot determine shape")

// Shape is a parsed dimension entry.
type Shape struct {
	Name string
	Dims []string
}

// ParseShape parses "out(m, n)". An empty list "x()" yields zero dims.
func ParseShape(entry string) (Shape, error) {
	entry = strings.TrimSpace(entry)
	open := strings.IndexByte(entry, '(')
	if open < 0 || !strings.HasSuffix(entry, ")") {
		return Shape{}, fmt.Errorf("%w from %q", ErrBadShape, entry)
	}
	name := strings.TrimSpace(entry[:open])
	if name == "" {
		return Shape{}, fmt.Errorf("%w from %q: missing argument name", ErrBadShape, entry)
	}
	body := strings.TrimSpace(entry[open+1 : len(entry)-1])
	dims := []string{}
	if body != "" {
		for _, d := range strings.Split(body, ",") {
			dims = append(dims, strings.TrimSpace(d))
		}
	}
	return Shape{Name: name, Dims: dims}, nil
}
