// Copyright © 2024 The ELPS authors

package hint

import (
	"go/ast"
	"go/token"
	"strings"

	parsec "github.com/prataprc/goparsec"
)

/*
Suppression directives are line comments of the form

	directive := '//' 'nolint' ( ':' <rules> )?
	rules     := <rule> ( ',' <rule> )*
	rule      := /[A-Za-z0-9_-]+/

A directive without rules suppresses every rule on its line. Anything after
the directive (usually a reason) is ignored.
*/

type nolint struct {
	all   bool
	rules map[string]bool
}

func (n *nolint) suppresses(rule string) bool {
	return n.all || n.rules[rule]
}

// newNolintParser matches the directive grammar with no whitespace allowed
// between tokens, so prose such as "// nolint here" is not a directive.
func newNolintParser() parsec.Parser {
	slashes := parsec.TokenExact(`//`, "SLASHES")
	keyword := parsec.TokenExact(`nolint\b`, "NOLINT")
	colon := parsec.TokenExact(`:`, "COLON")
	comma := parsec.TokenExact(`,`, "COMMA")
	rule := parsec.TokenExact(`[A-Za-z0-9_\-]+`, "RULE")
	rules := parsec.And(nil, colon, parsec.Kleene(nil, rule, comma))
	return parsec.And(nil, slashes, keyword, parsec.Maybe(nil, rules))
}

// parseNolint parses the text of one comment. It returns nil when the comment
// is not a directive.
func parseNolint(text string) *nolint {
	if !strings.HasPrefix(text, "//") {
		return nil
	}
	root, _ := newNolintParser()(parsec.NewScanner([]byte(text)))
	if root == nil {
		return nil
	}
	var names []string
	for _, t := range terminals(root, nil) {
		if t.GetName() == "RULE" {
			names = append(names, t.GetValue())
		}
	}
	d := &nolint{all: len(names) == 0, rules: make(map[string]bool, len(names))}
	for _, name := range names {
		d.rules[name] = true
	}
	return d
}

func terminals(n parsec.ParsecNode, out []*parsec.Terminal) []*parsec.Terminal {
	switch v := n.(type) {
	case *parsec.Terminal:
		out = append(out, v)
	case []parsec.ParsecNode:
		for _, c := range v {
			out = terminals(c, out)
		}
	}
	return out
}

// nolintLines maps line numbers (one-based, as token.Position reports them)
// to the directive found on that line.
func nolintLines(fset *token.FileSet, f *ast.File) map[int]*nolint {
	lines := make(map[int]*nolint)
	for _, group := range f.Comments {
		for _, c := range group.List {
			if d := parseNolint(c.Text); d != nil {
				lines[fset.Position(c.Slash).Line] = d
			}
		}
	}
	return lines
}

// filterSuppressed drops diagnostics whose first line carries a directive
// naming their rule.
func filterSuppressed(diags []*Diagnostic, lines map[int]*nolint) []*Diagnostic {
	if len(lines) == 0 {
		return diags
	}
	var kept []*Diagnostic
	for _, d := range diags {
		if n, ok := lines[d.Range.Start.Line+1]; ok && n.suppresses(d.Rule) {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// suppressFix returns a fix appending a directive for d's rule to the end of
// the line d starts on.
func suppressFix(src []byte, d *Diagnostic) *Fix {
	at := d.Range.Start.Offset
	if at > len(src) {
		at = len(src)
	}
	for at < len(src) && src[at] != '\n' {
		at++
	}
	if at > 0 && src[at-1] == '\r' {
		at--
	}
	return &Fix{
		ID:    FixID{Rule: d.Rule, Kind: "suppress"},
		Title: "Suppress with //nolint:" + d.Rule,
		Edits: []Edit{{
			File:    d.Range.File,
			Start:   at,
			End:     at,
			NewText: " //nolint:" + d.Rule,
		}},
	}
}
