// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/afero"
)

// tabWidth is the number of columns a tab is expanded to.
const tabWidth = 4

// Renderer formats diagnostics as annotated source snippets.
type Renderer struct {
	// Color controls ANSI color output. Default is ColorAuto.
	Color ColorMode

	// Fs is where source files are read from. If nil, the OS file system
	// is used.
	Fs afero.Fs
}

// Render writes a single diagnostic to w.
func (r *Renderer) Render(w io.Writer, d Diagnostic) error {
	p := choosePalette(r.Color, w)
	bw := bufio.NewWriter(w)
	ew := &errWriter{w: bw}

	r.writeHeader(ew, d, p)
	for _, span := range d.Spans {
		r.writeSpan(ew, span, p)
	}
	for _, note := range d.Notes {
		ew.printf("   %s note: %s\n", p.boldCyan.Sprint("="), note)
	}
	for _, help := range d.Help {
		ew.printf("   %s help: %s\n", p.boldGrn.Sprint("="), help)
	}

	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

// RenderAll writes all diagnostics to w separated by blank lines.
func (r *Renderer) RenderAll(w io.Writer, diags []Diagnostic) error {
	for i, d := range diags {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := r.Render(w, d); err != nil {
			return err
		}
	}
	return nil
}

// errWriter keeps the first write error and drops everything after it.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, a...)
}

func (r *Renderer) writeHeader(ew *errWriter, d Diagnostic, p palette) {
	sev := d.Severity.String()
	if d.Code != "" {
		sev += "[" + d.Code + "]"
	}
	switch d.Severity {
	case SeverityError:
		sev = p.boldRed.Sprint(sev)
	case SeverityWarning:
		sev = p.yellow.Sprint(sev)
	case SeverityHelp:
		sev = p.boldGrn.Sprint(sev)
	default:
		sev = p.boldCyan.Sprint(sev)
	}
	ew.printf("%s: %s\n", sev, p.bold.Sprint(d.Message))
}

func (r *Renderer) writeSpan(ew *errWriter, span Span, p palette) {
	loc := span.File
	if span.Line > 0 {
		loc = fmt.Sprintf("%s:%d", span.File, span.Line)
		if span.Col > 0 {
			loc = fmt.Sprintf("%s:%d:%d", span.File, span.Line, span.Col)
		}
	}
	ew.printf("  %s %s\n", p.boldBlue.Sprint("-->"), loc)

	source, ok := r.readSourceLine(span.File, span.Line)
	if !ok {
		ew.printf("   %s\n", p.boldBlue.Sprint("|"))
		return
	}

	lineStr := fmt.Sprintf("%d", span.Line)
	pad := strings.Repeat(" ", len(lineStr))
	gutter := p.boldBlue.Sprint(pad + " |")

	ew.printf(" %s\n", gutter)
	ew.printf(" %s  %s\n", p.boldBlue.Sprint(lineStr+" |"), strings.ReplaceAll(source, "\t", strings.Repeat(" ", tabWidth)))

	col := span.Col
	if col <= 0 {
		col = 1
	}
	endCol := span.EndCol
	if endCol <= 0 {
		endCol = detectEndCol(source, col)
	}
	if endCol < col {
		endCol = col
	}

	// Columns are byte based; the underline is placed by display width.
	start := min(col-1, len(source))
	end := min(max(endCol-1, start), len(source))
	prefix, marked := source[:start], source[start:end]
	underLen := max(displayWidth(marked), 1)

	ew.printf(" %s  %s%s", gutter, strings.Repeat(" ", displayWidth(prefix)), p.boldRed.Sprint(strings.Repeat("^", underLen)))
	if span.Label != "" {
		ew.printf(" %s", p.boldRed.Sprint(span.Label))
	}
	ew.printf("\n")
	ew.printf(" %s\n", gutter)
}

func (r *Renderer) readSourceLine(file string, line int) (string, bool) {
	if line <= 0 || file == "" {
		return "", false
	}
	fs := r.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fs, file)
	if err != nil {
		return "", false
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for i := 1; scanner.Scan(); i++ {
		if i == line {
			return scanner.Text(), true
		}
	}
	return "", false
}

// detectEndCol returns the exclusive 1-based column ending the word at col.
func detectEndCol(source string, col int) int {
	if col <= 0 || col > len(source) {
		return col
	}
	end := col - 1
	for end < len(source) {
		ch, size := utf8.DecodeRuneInString(source[end:])
		if strings.ContainsRune(" \t()[]{},;.", ch) {
			break
		}
		end += size
	}
	return end + 1
}

// displayWidth returns the terminal width of s with tabs expanded.
func displayWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += tabWidth
			continue
		}
		w += runewidth.RuneWidth(ch)
	}
	return w
}
