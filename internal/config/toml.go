package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"kerngen/internal/source"
)

// parseTOML reads the TOML encoding of a kernel configuration:
//
//	["MODULE example"]
//	typemaps = ["double: float64"]
//
//	["KERNEL add"]
//	prototypes = "void add(double *a, double *b, double *c, int n);"
//
// Section and option order follow declaration order. TOML carries no byte
// offsets, so spans point at the start of the file.
func parseTOML(path string, file *source.File) ([]rawSection, error) {
	var doc map[string]map[string]any
	meta, err := toml.Decode(string(file.Content), &doc)
	if err != nil {
		cerr := &ConfigError{Path: path, Err: fmt.Errorf("%w: %w", ErrSyntax, err)}
		if perr, ok := err.(toml.ParseError); ok {
			cerr.Line = uint32(perr.Position.Line) //nolint:gosec // line numbers are small
		}
		return nil, cerr
	}

	origin := source.WholeFile(file.ID)
	var sections []rawSection
	index := make(map[string]int)
	for _, key := range meta.Keys() {
		switch len(key) {
		case 1:
			name := strings.TrimSpace(key[0])
			if _, dup := index[name]; dup {
				return nil, &ConfigError{Path: path, Section: name, Err: ErrDuplicateSection}
			}
			index[name] = len(sections)
			sections = append(sections, rawSection{Name: name, Span: origin})
		case 2:
			name := strings.TrimSpace(key[0])
			i, ok := index[name]
			if !ok {
				return nil, &ConfigError{Path: path, Section: name, Detail: "option outside of any section", Err: ErrSyntax}
			}
			optKey := strings.ToLower(key[1])
			if _, dup := sections[i].option(optKey); dup {
				return nil, &ConfigError{Path: path, Section: name, Detail: optKey, Err: ErrDuplicateOption}
			}
			value, err := tomlValue(doc[key[0]][key[1]])
			if err != nil {
				return nil, &ConfigError{Path: path, Section: name, Detail: optKey, Err: err}
			}
			sections[i].Options = append(sections[i].Options, rawOption{Key: optKey, Value: value, Span: origin})
		default:
			return nil, &ConfigError{Path: path, Section: key[0], Detail: fmt.Sprintf("nested key %q", key.String()), Err: ErrBadValue}
		}
	}
	return sections, nil
}

func tomlValue(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("%w: array items must be strings, got %T", ErrBadValue, item)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, "\n"), nil
	}
	return "", fmt.Errorf("%w: %T", ErrBadValue, v)
}
