package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota // no tracing
	LevelError               // ring dump on failure only
	LevelPhase               // runs and stages
	LevelDetail              // plus kernel sections
	LevelDebug               // everything
)

var levelNames = [...]string{
	LevelOff:    "off",
	LevelError:  "error",
	LevelPhase:  "phase",
	LevelDetail: "detail",
	LevelDebug:  "debug",
}

// levelScope is the finest scope each level lets through. Off and error
// let nothing through: error only ever dumps the ring.
var levelScope = [...]Scope{
	LevelPhase:  ScopeStage,
	LevelDetail: ScopeKernel,
	LevelDebug:  ScopeVariant,
}

func (l Level) String() string { return nameOf(levelNames[:], int(l)) }

func ParseLevel(s string) (Level, error) {
	i, ok := indexOf(levelNames[:], s)
	if !ok {
		return LevelOff, fmt.Errorf("invalid trace level %q (expected %s)", s, strings.Join(levelNames[:], "|"))
	}
	return Level(i), nil //nolint:gosec // i < len(levelNames)
}

// ShouldEmit reports whether events of scope pass at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	return int(l) < len(levelScope) && scope <= levelScope[l]
}

func nameOf(names []string, i int) string {
	if i >= 0 && i < len(names) && names[i] != "" {
		return names[i]
	}
	return "unknown"
}

func indexOf(names []string, s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n != "" && n == s {
			return i, true
		}
	}
	return 0, false
}
