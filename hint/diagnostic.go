// Copyright © 2024 The ELPS authors

package hint

import "fmt"

// Position is a location in a file. Line and Col are zero-based; Col counts
// bytes.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Col    int `json:"col"`
}

// Range is a half-open span of a file.
type Range struct {
	File  string   `json:"file"`
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Range    Range    `json:"range"`
	Notes    []string `json:"notes,omitempty"`

	// Fixes offered for the problem. Engine results carry a LazyFixes set
	// that is computed on demand.
	Fixes FixSet `json:"-" msgpack:"-"`
}

// Key identifies a diagnostic structurally.
type Key struct {
	Rule    string
	File    string
	Start   int
	End     int
	Message string
}

// Key returns the structured identity of d.
func (d *Diagnostic) Key() Key {
	return Key{
		Rule:    d.Rule,
		File:    d.Range.File,
		Start:   d.Range.Start.Offset,
		End:     d.Range.End.Offset,
		Message: d.Message,
	}
}

// String returns the textual identity of d,
// "<line>:<col>-<endLine>:<endCol>:<severity>:<message>" with zero-based
// lines and columns. Fixture expectations are written in this form.
func (d *Diagnostic) String() string {
	return fmt.Sprintf("%d:%d-%d:%d:%s:%s",
		d.Range.Start.Line, d.Range.Start.Col,
		d.Range.End.Line, d.Range.End.Col,
		d.Severity, d.Message)
}

// Strings returns the textual identities of diags in order.
func Strings(diags []*Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.String()
	}
	return out
}
