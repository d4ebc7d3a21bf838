// Copyright © 2024 The ELPS authors

package cmd

import (
	"io"

	"github.com/spf13/afero"

	"github.com/luthersystems/hints/diagnostic"
	"github.com/luthersystems/hints/hint"
)

// syntaxRule names diagnostics made from parse errors.
const syntaxRule = "syntax"

// hintToDiagnostic converts a hint.Diagnostic to a diagnostic.Diagnostic.
// Every fix except suppression is listed as help.
func hintToDiagnostic(hd *hint.Diagnostic) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{
		Severity: mapSeverity(hd.Severity),
		Code:     hd.Rule,
		Message:  hd.Message,
	}
	span := diagnostic.Span{
		File: hd.Range.File,
		Line: hd.Range.Start.Line + 1,
		Col:  hd.Range.Start.Col + 1,
	}
	if hd.Range.End.Line == hd.Range.Start.Line && hd.Range.End.Col > hd.Range.Start.Col {
		span.EndCol = hd.Range.End.Col + 1
	}
	d.Spans = append(d.Spans, span)
	d.Notes = append(d.Notes, hd.Notes...)
	if hd.Rule == syntaxRule {
		return d
	}
	for _, f := range hint.Materialize(hd.Fixes) {
		if f.ID.Kind != "suppress" {
			d.Help = append(d.Help, "fix available: "+f.Title)
		}
	}
	d.Notes = append(d.Notes, "to suppress: add \"//nolint:"+hd.Rule+"\" as a comment on this line")
	return d
}

func mapSeverity(sev hint.Severity) diagnostic.Severity {
	switch sev {
	case hint.SeverityError:
		return diagnostic.SeverityError
	case hint.SeverityInfo:
		return diagnostic.SeverityNote
	case hint.SeverityHint:
		return diagnostic.SeverityHelp
	default:
		return diagnostic.SeverityWarning
	}
}

// renderDiagnostics renders diagnostics with source snippets read from fs.
func renderDiagnostics(w io.Writer, fs afero.Fs, diags []*hint.Diagnostic) error {
	ds := make([]diagnostic.Diagnostic, len(diags))
	for i, hd := range diags {
		ds[i] = hintToDiagnostic(hd)
	}
	r := &diagnostic.Renderer{Color: colorMode(), Fs: fs}
	return r.RenderAll(w, ds)
}
