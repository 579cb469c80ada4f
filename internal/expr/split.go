// Package expr splits list-valued option text into tokens.
package expr

import "strings"

// Split breaks s into tokens separated by commas and whitespace.
//
// Text nested in (), [] or {} is never split, so "out(m, n)" stays one token.
// Single or double quotes group text and are removed; a quoted empty string
// yields an empty token. An unbalanced opener keeps the rest of s in the
// current token.
func Split(s string) []string {
	var (
		tokens  []string
		cur     strings.Builder
		depth   int
		quote   rune
		started bool // cur holds a token, possibly empty ("")
	)
	flush := func() {
		if started {
			tokens = append(tokens, strings.TrimSpace(cur.String()))
		}
		cur.Reset()
		started = false
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			started = true
		case r == '(' || r == '[' || r == '{':
			depth++
			cur.WriteRune(r)
			started = true
		case r == ')' || r == ']' || r == '}':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
			started = true
		case depth == 0 && (r == ',' || isSpace(r)):
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	flush()
	return tokens
}

// Lines returns the non-blank lines of s that do not start with '#', trimmed.
func Lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}
