package config

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"kerngen/internal/source"
)

// rawOption is one key/value pair as written in the file.
type rawOption struct {
	Key   string // lower-cased
	Value string
	Span  source.Span // key start .. end of last value line
	Line  uint32
}

// rawSection is one [header] block.
type rawSection struct {
	Name    string
	Span    source.Span
	Line    uint32
	Options []rawOption
}

func (s *rawSection) option(key string) (rawOption, bool) {
	for _, opt := range s.Options {
		if opt.Key == key {
			return opt, true
		}
	}
	return rawOption{}, false
}

// parseINI reads configparser-style text: "key = value" or "key: value",
// indented continuation lines, full-line '#'/';' comments, no interpolation.
func parseINI(path string, file *source.File) ([]rawSection, error) {
	var (
		sections []rawSection
		cur      *rawSection
		opt      *rawOption
		optLines []string
		blanks   int // pending empty lines inside a multi-line value
		indent   int
	)
	seenSection := make(map[string]bool)

	finishOption := func() {
		if opt == nil {
			return
		}
		opt.Value = strings.TrimRight(strings.Join(optLines, "\n"), " \t\n")
		cur.Options = append(cur.Options, *opt)
		opt = nil
		optLines = nil
		blanks = 0
	}

	content := string(file.Content)
	offset := 0
	lineNo := uint32(0)
	for offset <= len(content) {
		end := strings.IndexByte(content[offset:], '\n')
		if end < 0 {
			end = len(content) - offset
		}
		line := content[offset : offset+end]
		lineStart := offset
		offset += end + 1
		lineNo++

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			continue
		}
		if trimmed == "" {
			if opt != nil {
				blanks++
			}
			continue
		}

		lineIndent := len(line) - len(strings.TrimLeft(line, " \t"))
		if opt != nil && lineIndent > indent {
			for ; blanks > 0; blanks-- {
				optLines = append(optLines, "")
			}
			optLines = append(optLines, trimmed)
			opt.Span.End = spanOffset(lineStart + len(line))
			continue
		}
		finishOption()

		if strings.HasPrefix(trimmed, "[") {
			if !strings.HasSuffix(trimmed, "]") {
				return nil, &ConfigError{Path: path, Line: lineNo, Detail: fmt.Sprintf("unterminated section header %q", trimmed), Err: ErrSyntax}
			}
			name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			if seenSection[name] {
				return nil, &ConfigError{Path: path, Line: lineNo, Section: name, Err: ErrDuplicateSection}
			}
			seenSection[name] = true
			sections = append(sections, rawSection{
				Name: name,
				Line: lineNo,
				Span: source.Span{File: file.ID, Start: spanOffset(lineStart), End: spanOffset(lineStart + len(line))},
			})
			cur = &sections[len(sections)-1]
			continue
		}

		if cur == nil {
			return nil, &ConfigError{Path: path, Line: lineNo, Detail: "option outside of any section", Err: ErrSyntax}
		}
		delim := strings.IndexAny(line, "=:")
		if delim < 0 {
			return nil, &ConfigError{Path: path, Line: lineNo, Section: cur.Name, Detail: fmt.Sprintf("expected \"key = value\", got %q", trimmed), Err: ErrSyntax}
		}
		key := strings.ToLower(strings.TrimSpace(line[:delim]))
		if key == "" {
			return nil, &ConfigError{Path: path, Line: lineNo, Section: cur.Name, Detail: "option without name", Err: ErrSyntax}
		}
		if _, dup := cur.option(key); dup {
			return nil, &ConfigError{Path: path, Line: lineNo, Section: cur.Name, Detail: key, Err: ErrDuplicateOption}
		}
		keyStart := lineStart + lineIndent
		opt = &rawOption{
			Key:  key,
			Line: lineNo,
			Span: source.Span{File: file.ID, Start: spanOffset(keyStart), End: spanOffset(lineStart + len(line))},
		}
		optLines = []string{strings.TrimSpace(line[delim+1:])}
		indent = lineIndent
	}
	finishOption()
	return sections, nil
}

func spanOffset(off int) uint32 {
	v, err := safecast.Conv[uint32](off)
	if err != nil {
		panic(fmt.Errorf("config offset overflow: %w", err))
	}
	return v
}
