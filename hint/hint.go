// Copyright © 2024 The ELPS authors

// Package hint is a rule engine for Go source. A Rule inspects the syntax
// path enclosing a cursor position, reports Diagnostics, and attaches Fixes
// that rewrite the source.
//
// Rules are independent and composable in the style of go vet analyzers: the
// Engine walks a file, offers every node to every rule, and collects the
// results. The same rules can be driven at a single position, which is how
// editor integrations and the hinttest harness use them.
package hint

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/token"

	"github.com/luthersystems/hints/compiler"
)

// Severity indicates how serious a diagnostic is.
type Severity int

const (
	severityUnset Severity = iota // zero value, replaced by the rule default
	SeverityError
	SeverityWarning
	SeverityInfo
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the severity as a JSON string. An unset severity is
// marshaled as "warning".
func (s Severity) MarshalJSON() ([]byte, error) {
	if s == severityUnset {
		return json.Marshal("warning")
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON deserializes a severity from a JSON string.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	case "hint":
		*s = SeverityHint
	default:
		return fmt.Errorf("unknown severity: %q", str)
	}
	return nil
}

// Rule defines a single hint.
type Rule struct {
	// Name is a short identifier (e.g. "bool-compare").
	Name string

	// Doc is a human-readable description. The first line is a summary.
	Doc string

	// Severity is the default severity of reported diagnostics.
	Severity Severity

	// Run inspects pass.Path and reports findings through the pass. Rules
	// look at the innermost node; the engine offers every node in turn.
	Run func(pass *Pass) error
}

// Pass is one invocation of a rule at one path.
type Pass struct {
	Rule   *Rule
	Info   *compiler.Info
	Path   compiler.Path
	Offset int

	diagnostics []*Diagnostic
}

// Leaf returns the innermost node of the path.
func (p *Pass) Leaf() ast.Node {
	return p.Path.Leaf()
}

// Enclosing returns the innermost node of the path satisfying pred.
func (p *Pass) Enclosing(pred func(ast.Node) bool) ast.Node {
	for _, n := range p.Path {
		if pred(n) {
			return n
		}
	}
	return nil
}

// Report records d, filling in the rule name, the default severity and the
// file name when they are unset.
func (p *Pass) Report(d *Diagnostic) {
	d.Rule = p.Rule.Name
	if d.Severity == severityUnset {
		d.Severity = p.Rule.Severity
	}
	if d.Range.File == "" {
		d.Range.File = p.Info.Name
	}
	p.diagnostics = append(p.diagnostics, d)
}

// Reportf reports a diagnostic spanning node and returns it so fixes can be
// attached.
func (p *Pass) Reportf(node ast.Node, format string, args ...any) *Diagnostic {
	d := &Diagnostic{
		Message: fmt.Sprintf(format, args...),
		Range:   p.RangeOf(node.Pos(), node.End()),
	}
	p.Report(d)
	return d
}

// RangeOf converts a token range to a Range.
func (p *Pass) RangeOf(start, end token.Pos) Range {
	s := p.Info.Position(start)
	e := p.Info.Position(end)
	return Range{
		File:  s.Filename,
		Start: Position{Offset: s.Offset, Line: s.Line - 1, Col: s.Column - 1},
		End:   Position{Offset: e.Offset, Line: e.Line - 1, Col: e.Column - 1},
	}
}

// Replace returns an edit replacing the source of node with text.
func (p *Pass) Replace(node ast.Node, text string) Edit {
	r := p.RangeOf(node.Pos(), node.End())
	return Edit{
		File:    r.File,
		Start:   r.Start.Offset,
		End:     r.End.Offset,
		NewText: text,
		OldText: p.Info.Text(node),
	}
}

// Text returns the source text of node.
func (p *Pass) Text(node ast.Node) string {
	return p.Info.Text(node)
}

// RunAt runs rule at path and returns what it reported. A rule error is
// returned as is. The result is never nil when err is nil.
func RunAt(rule *Rule, info *compiler.Info, path compiler.Path, offset int) ([]*Diagnostic, error) {
	pass := &Pass{
		Rule:   rule,
		Info:   info,
		Path:   path,
		Offset: offset,
	}
	if err := rule.Run(pass); err != nil {
		return nil, err
	}
	if pass.diagnostics == nil {
		return []*Diagnostic{}, nil
	}
	return pass.diagnostics, nil
}
