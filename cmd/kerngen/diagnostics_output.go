package main

import (
	"fmt"
	"io"

	"kerngen/internal/diag"
	"kerngen/internal/diagfmt"
	"kerngen/internal/source"
)

type diagOutput struct {
	format      string
	withNotes   bool
	pathMode    diagfmt.PathMode
	color       bool
	minSeverity diag.Severity
}

func checkDiagFormat(format string) error {
	switch format {
	case "pretty", "short", "json":
		return nil
	}
	return fmt.Errorf("unknown format %q (expected pretty|short|json)", format)
}

// printDiagnostics writes the bag in the requested format. Empty bags print
// nothing except in json mode, where an empty document keeps output parseable.
func printDiagnostics(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts diagOutput) error {
	if bag == nil || fs == nil {
		return nil
	}
	bag.Sort()
	if opts.minSeverity > diag.SevInfo {
		bag = bag.Filter(opts.minSeverity)
	}
	switch opts.format {
	case "pretty":
		if bag.Len() == 0 {
			return nil
		}
		diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     opts.color,
			Context:   1,
			PathMode:  opts.pathMode,
			ShowNotes: opts.withNotes,
		})
	case "short":
		if out := diag.FormatShortDiagnostics(bag.Items(), fs, opts.withNotes); out != "" {
			if _, err := fmt.Fprintln(w, out); err != nil {
				return err
			}
		}
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         opts.pathMode,
			IncludeNotes:     opts.withNotes,
		})
	default:
		return checkDiagFormat(opts.format)
	}
	return nil
}
