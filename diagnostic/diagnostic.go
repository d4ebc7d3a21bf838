// Copyright © 2024 The ELPS authors

// Package diagnostic renders hint findings as annotated source snippets for
// terminal output. It knows nothing about rules or the engine; callers
// convert their findings to Diagnostic values first.
package diagnostic

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
	SeverityHelp
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	case SeverityHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Span identifies a region of source code to highlight in the diagnostic.
type Span struct {
	File   string // path for reading source; display name if unreadable
	Line   int    // 1-based line number
	Col    int    // 1-based start column
	EndCol int    // 1-based column after the span (0 = auto-detect from source)
	Label  string // text shown under the underline
}

// Diagnostic is a single finding with optional source annotations,
// trailing notes and suggested fixes.
type Diagnostic struct {
	Severity Severity
	// Code is shown in brackets after the severity, e.g. the rule name.
	Code    string
	Message string
	Spans   []Span
	Notes   []string // "= note:" lines
	Help    []string // "= help:" lines, one per available fix
}
