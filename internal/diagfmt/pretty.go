package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"kerngen/internal/diag"
	"kerngen/internal/source"
)

type palette struct {
	sev      map[diag.Severity]*color.Color
	location *color.Color
	gutter   *color.Color
	marker   *color.Color
	note     *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan, color.Bold),
		},
		location: color.New(color.Bold),
		gutter:   color.New(color.FgBlue),
		marker:   color.New(color.FgGreen, color.Bold),
		note:     color.New(color.FgCyan),
	}
	all := []*color.Color{p.location, p.gutter, p.marker, p.note}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range all {
		// цвет задаётся опцией, а не окружением
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		start, _ := fs.Resolve(d.Primary)
		sev := p.sev[d.Severity]
		if sev == nil {
			sev = p.location
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.location.Sprint(position(fs, d.Primary, start, opts.PathMode)),
			sev.Sprint(d.Severity.String()),
			d.Code.ID(),
			d.Message)
		writeExcerpt(w, fs, d.Primary, opts, p)

		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			nstart, _ := fs.Resolve(n.Span)
			fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), position(fs, n.Span, nstart, opts.PathMode), n.Msg)
		}
	}
	if dropped := bag.Dropped(); dropped > 0 {
		fmt.Fprintf(w, "\n... %d more diagnostics not shown\n", dropped)
	}
}

func position(fs *source.FileSet, span source.Span, pos source.LineCol, mode PathMode) string {
	path := formatPath(fs.Get(span.File), fs, mode)
	if path == "" {
		path = "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", path, pos.Line, pos.Col)
}

// writeExcerpt prints the context lines and the marked line. Spans without
// a byte range (whole-file diagnostics) print nothing.
func writeExcerpt(w io.Writer, fs *source.FileSet, span source.Span, opts PrettyOpts, p palette) {
	f := fs.Get(span.File)
	if f == nil || len(f.Content) == 0 || span.IsWholeFile() {
		return
	}
	start, end := fs.Resolve(span)
	first := uint32(1)
	if ctx := uint32(max(opts.Context, 0)); start.Line > ctx {
		first = start.Line - ctx
	}
	numWidth := len(strconv.FormatUint(uint64(start.Line), 10))

	for ln := first; ln <= start.Line; ln++ {
		text := f.GetLine(ln)
		fmt.Fprintf(w, " %s %s\n", p.gutter.Sprintf("%*d |", numWidth, ln), clip(text, opts.Width))
	}

	line := f.GetLine(start.Line)
	from := int(start.Col) - 1
	to := len(line)
	if end.Line == start.Line {
		to = int(end.Col) - 1
	}
	from = min(max(from, 0), len(line))
	to = min(max(to, from), len(line))

	marker := "^" + strings.Repeat("~", max(runewidth.StringWidth(line[from:to])-1, 0))
	fmt.Fprintf(w, " %s %s%s\n", p.gutter.Sprintf("%*s |", numWidth, ""), padding(line[:from]), p.marker.Sprint(marker))
}

// padding reproduces the visual width of prefix, keeping tabs so the marker
// lines up under wide runes and tab stops alike.
func padding(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}

func clip(s string, width uint8) string {
	if width == 0 {
		return s
	}
	return runewidth.Truncate(s, int(width), "…")
}
