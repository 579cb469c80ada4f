package proto

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// PrototypeSyntaxError reports a signature that could not be read. The
// signature is skipped; other signatures in the same block are still read.
type PrototypeSyntaxError struct {
	Text   string
	Reason string
	Offset int // byte offset of the signature in the block
}

func (e *PrototypeSyntaxError) Error() string {
	return fmt.Sprintf("cannot parse prototype %q: %s", e.Text, e.Reason)
}

// Reader parses blocks of signatures such as
//
//	double dot(double *x, double *y, int n);
//	// comment
//	void scale(double *x, double alpha, int n)
//
// The zero value is ready to use.
type Reader struct{}

// Read parses every signature in text in declaration order.
func (Reader) Read(text string) ([]Prototype, []error) {
	src := blankComments(text)
	var (
		protos []Prototype
		errs   []error
	)
	pos := 0
	for {
		pos = skipSeparators(src, pos)
		if pos >= len(src) {
			break
		}
		rest := src[pos:]
		open := strings.IndexAny(rest, "(;)")
		switch {
		case open < 0:
			errs = append(errs, syntaxError(rest, pos, "missing argument list"))
			return protos, errs
		case rest[open] == ';':
			errs = append(errs, syntaxError(rest[:open], pos, "missing argument list"))
			pos += open + 1
			continue
		case rest[open] == ')':
			errs = append(errs, syntaxError(rest[:open+1], pos, "unbalanced parentheses"))
			pos += open + 1
			continue
		}
		closing := matchParen(rest, open)
		if closing < 0 {
			errs = append(errs, syntaxError(rest, pos, "unbalanced parentheses"))
			return protos, errs
		}
		sig := collapse(rest[:closing+1])
		p, err := parseSignature(rest[:open], rest[open+1:closing])
		if err != nil {
			errs = append(errs, syntaxError(sig, pos, err.Error()))
		} else {
			p.Signature = sig
			protos = append(protos, p)
		}
		pos += closing + 1
	}
	return protos, errs
}

func syntaxError(text string, offset int, reason string) *PrototypeSyntaxError {
	return &PrototypeSyntaxError{Text: collapse(text), Reason: reason, Offset: offset}
}

// blankComments replaces '#' and '//' comments with spaces so offsets stay
// valid. Outside an argument list a comment may follow a signature on the
// same line; inside one only whole comment lines count.
func blankComments(text string) string {
	b := []byte(text)
	depth := 0
	lineStart := true
	for i := 0; i < len(b); i++ {
		c := b[i]
		comment := c == '#' || c == '/' && i+1 < len(b) && b[i+1] == '/'
		if comment && (depth == 0 || lineStart) {
			for ; i < len(b) && b[i] != '\n' && b[i] != '\r'; i++ {
				b[i] = ' '
			}
			lineStart = i < len(b)
			continue
		}
		switch c {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
		if c == '\n' {
			lineStart = true
		} else if c != ' ' && c != '\t' && c != '\r' {
			lineStart = false
		}
	}
	return string(b)
}

func skipSeparators(s string, pos int) int {
	for pos < len(s) && (s[pos] == ';' || unicode.IsSpace(rune(s[pos]))) {
		pos++
	}
	return pos
}

func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseSignature(header, args string) (Prototype, error) {
	ret, err := parseDecl(header)
	if err != nil {
		return Prototype{}, fmt.Errorf("return type: %w", err)
	}
	if strings.Contains(ret.right, "[") {
		return Prototype{}, errors.New("return type: function cannot return an array")
	}
	p := Prototype{
		FunctionName: ret.name,
		ReturnType:   ret.base,
		ReturnLeft:   ret.left,
		ReturnRight:  ret.right,
	}
	args = strings.TrimSpace(args)
	if args == "" || args == "void" {
		return p, nil
	}
	for i, part := range splitArguments(args) {
		d, err := parseDecl(part)
		if err != nil {
			return Prototype{}, fmt.Errorf("argument %d: %w", i+1, err)
		}
		if p.Argument(d.name) >= 0 {
			return Prototype{}, fmt.Errorf("argument %d: duplicate name %q", i+1, d.name)
		}
		p.Arguments = append(p.Arguments, Argument{
			Name:  d.name,
			Type:  d.base,
			Left:  d.left,
			Right: d.right,
			Decl:  collapse(part),
		})
	}
	return p, nil
}

// splitArguments splits on commas outside brackets.
func splitArguments(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

type decl struct {
	left, base, right, name string
}

var qualifiers = []string{"const", "volatile", "restrict", "__restrict", "__restrict__", "register", "static", "extern", "inline"}

// typeWords never name a declaration on their own.
var typeWords = []string{
	"void", "char", "short", "int", "long", "float", "double", "signed", "unsigned",
	"_Bool", "_Complex", "struct", "union", "enum",
}

func parseDecl(s string) (decl, error) {
	toks, err := tokenizeDecl(s)
	if err != nil {
		return decl{}, err
	}
	if len(toks) == 0 {
		return decl{}, errors.New("empty declaration")
	}

	var dims []string
	for len(toks) > 0 && strings.HasPrefix(toks[len(toks)-1], "[") {
		dims = append([]string{toks[len(toks)-1]}, dims...)
		toks = toks[:len(toks)-1]
	}
	if len(toks) == 0 || !isIdent(toks[len(toks)-1]) {
		return decl{}, fmt.Errorf("missing name in %q", collapse(s))
	}
	name := toks[len(toks)-1]
	toks = toks[:len(toks)-1]
	if slices.Contains(typeWords, name) || slices.Contains(qualifiers, name) {
		return decl{}, fmt.Errorf("missing name in %q", collapse(s))
	}

	var left, base, right []string
	star := slices.Index(toks, "*")
	words := toks
	if star >= 0 {
		words, right = toks[:star], toks[star:]
	}
	for _, w := range words {
		if slices.Contains(qualifiers, w) {
			left = append(left, w)
		} else {
			base = append(base, w)
		}
	}
	for _, tok := range right {
		if tok != "*" && !slices.Contains(qualifiers, tok) {
			return decl{}, fmt.Errorf("unexpected %q after '*'", tok)
		}
	}
	if len(base) == 0 {
		return decl{}, fmt.Errorf("missing type in %q", collapse(s))
	}
	return decl{
		left:  strings.Join(left, " "),
		base:  strings.Join(base, " "),
		right: joinDeclarator(right) + strings.Join(dims, ""),
		name:  name,
	}, nil
}

// joinDeclarator keeps consecutive stars together: "**", "* const *".
func joinDeclarator(toks []string) string {
	var b strings.Builder
	for i, tok := range toks {
		if i > 0 && (tok != "*" || toks[i-1] != "*") {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func tokenizeDecl(s string) ([]string, error) {
	var toks []string
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case unicode.IsSpace(rune(c)):
			i++
		case c == '*':
			toks = append(toks, "*")
			i++
		case c == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, errors.New("unterminated '['")
			}
			toks = append(toks, "["+collapse(s[i+1:i+end])+"]")
			i += end + 1
		case isIdentByte(c):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		default:
			return nil, fmt.Errorf("unexpected %q", c)
		}
	}
	return toks, nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isIdent(s string) bool {
	return s != "" && !(s[0] >= '0' && s[0] <= '9') && strings.IndexFunc(s, func(r rune) bool {
		return r > unicode.MaxASCII || !isIdentByte(byte(r))
	}) < 0
}
