// Copyright © 2024 The ELPS authors

package hint

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// Location formats the start of d as file:line:col with one-based line and
// column.
func Location(d *Diagnostic) string {
	return fmt.Sprintf("%s:%d:%d", d.Range.File, d.Range.Start.Line+1, d.Range.Start.Col+1)
}

// FormatText writes diagnostics in go vet style, one per line, followed by
// their notes.
func FormatText(w io.Writer, diags []*Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s: %s (%s)\n", Location(d), d.Message, d.Rule) //nolint:errcheck // best-effort output to writer
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  = note: %s\n", n) //nolint:errcheck // best-effort output to writer
		}
	}
}

// FormatJSON writes diagnostics as a JSON array.
func FormatJSON(w io.Writer, diags []*Diagnostic) error {
	if diags == nil {
		diags = []*Diagnostic{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(diags)
}

// RuleNames returns the sorted names of the built-in rules.
func RuleNames() []string {
	rules := DefaultRules()
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	sort.Strings(names)
	return names
}

// RuleDoc returns the documentation of rules formatted for a terminal of
// the given width. Non-positive widths default to 72 columns.
func RuleDoc(rules []*Rule, width int) string {
	if width <= 0 {
		width = 72
	}
	limit := max(width-4, 1)
	var b strings.Builder
	for _, r := range rules {
		fmt.Fprintf(&b, "  %s (%s)\n", r.Name, r.Severity)
		// Words longer than the limit are broken.
		doc := wrap.String(wordwrap.String(r.Doc, limit), limit)
		fmt.Fprintf(&b, "%s\n\n", indent.String(doc, 4))
	}
	return b.String()
}
