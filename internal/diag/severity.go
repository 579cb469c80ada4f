package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic. Errors are fatal to
// a generation run, warnings and infos never are.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{
	SevInfo:    "INFO",
	SevWarning: "WARNING",
	SevError:   "ERROR",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// ParseSeverity accepts a severity name in any case; "warn" and "note" are
// understood as aliases of warning and info.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info", "note":
		return SevInfo, nil
	case "warning", "warn":
		return SevWarning, nil
	case "error":
		return SevError, nil
	}
	return SevInfo, fmt.Errorf("unknown severity %q (expected info|warning|error)", name)
}

// AtLeast returns the diagnostics whose severity is min or higher.
func AtLeast(items []Diagnostic, min Severity) []Diagnostic {
	if min == SevInfo {
		return items
	}
	out := make([]Diagnostic, 0, len(items))
	for _, d := range items {
		if d.Severity >= min {
			out = append(out, d)
		}
	}
	return out
}
