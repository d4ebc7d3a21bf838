// Copyright © 2024 The ELPS authors

package hint

import (
	"fmt"
	"go/ast"
	"go/token"
	"path"
	"strings"
)

// RuleErrorf reports errors.New(fmt.Sprintf(...)) and rewrites it to
// fmt.Errorf(...).
var RuleErrorf = &Rule{
	Name:     "errorf",
	Doc:      "Replace errors.New(fmt.Sprintf(...)) with fmt.Errorf(...).\n\nfmt.Errorf formats and constructs the error in one call and allows wrapping with %w.",
	Severity: SeverityHint,
	Run: func(pass *Pass) error {
		call, ok := pass.Leaf().(*ast.CallExpr)
		if !ok || len(call.Args) != 1 || call.Ellipsis.IsValid() {
			return nil
		}
		if !IsPackageFunc(pass, call, "errors", "New") {
			return nil
		}
		inner, ok := Unparen(call.Args[0]).(*ast.CallExpr)
		if !ok || !IsPackageFunc(pass, inner, "fmt", "Sprintf") {
			return nil
		}
		d := pass.Reportf(call, "errors.New(fmt.Sprintf(...)) should be replaced by fmt.Errorf(...)")
		d.Fixes = Fixes{{
			ID:    FixID{Rule: "errorf", Kind: "rewrite"},
			Title: "Rewrite to fmt.Errorf",
			Edits: []Edit{pass.Replace(call, "fmt.Errorf("+argsText(pass, inner)+")")},
		}}
		return nil
	},
}

// RuleBoolCompare reports comparisons against the constants true and false.
var RuleBoolCompare = &Rule{
	Name:     "bool-compare",
	Doc:      "Omit comparisons of boolean expressions to true or false.\n\nx == true is x and x == false is !x.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		bin, ok := pass.Leaf().(*ast.BinaryExpr)
		if !ok || (bin.Op != token.EQL && bin.Op != token.NEQ) {
			return nil
		}
		operand, value := bin.X, false
		if v, ok := BoolConst(pass, bin.Y); ok {
			value = v
		} else if v, ok := BoolConst(pass, bin.X); ok {
			operand, value = bin.Y, v
		} else {
			return nil
		}
		if _, ok := BoolConst(pass, operand); ok {
			return nil
		}

		// x == true and x != false keep x; the other two negate it.
		negate := (bin.Op == token.EQL) != value
		text := pass.Text(operand)
		if negate {
			if needsParens(operand) {
				text = "(" + text + ")"
			}
			text = "!" + text
		}
		d := pass.Reportf(bin, "comparison to bool constant %s can be simplified", pass.Text(bin))
		d.Fixes = Fixes{{
			ID:    FixID{Rule: "bool-compare", Kind: "simplify"},
			Title: "Simplify to " + text,
			Edits: []Edit{pass.Replace(bin, text)},
		}}
		return nil
	},
}

// RuleStringsContains reports strings.Index results compared against -1 or 0
// that only test for presence.
var RuleStringsContains = &Rule{
	Name:     "strings-contains",
	Doc:      "Use strings.Contains instead of comparing strings.Index to -1 or 0.\n\nstrings.Index(s, t) != -1 and strings.Index(s, t) >= 0 are strings.Contains(s, t); == -1 and < 0 are its negation.",
	Severity: SeverityHint,
	Run: func(pass *Pass) error {
		bin, ok := pass.Leaf().(*ast.BinaryExpr)
		if !ok {
			return nil
		}
		call, ok := Unparen(bin.X).(*ast.CallExpr)
		if !ok || len(call.Args) != 2 || !IsPackageFunc(pass, call, "strings", "Index") {
			return nil
		}
		n, ok := IntLit(bin.Y)
		if !ok {
			return nil
		}
		var negate bool
		switch {
		case bin.Op == token.NEQ && n == -1, bin.Op == token.GEQ && n == 0, bin.Op == token.GTR && n == -1:
			negate = false
		case bin.Op == token.EQL && n == -1, bin.Op == token.LSS && n == 0:
			negate = true
		default:
			return nil
		}
		text := "strings.Contains(" + argsText(pass, call) + ")"
		if negate {
			text = "!" + text
		}
		d := pass.Reportf(bin, "strings.Index used as a presence test")
		d.Fixes = Fixes{{
			ID:    FixID{Rule: "strings-contains", Kind: "rewrite"},
			Title: "Rewrite to strings.Contains",
			Edits: []Edit{pass.Replace(bin, text)},
		}}
		return nil
	},
}

// RuleSelfAssign reports assignments of variables to themselves.
var RuleSelfAssign = &Rule{
	Name:     "self-assign",
	Doc:      "Report assignments of a variable to itself.\n\nx = x has no effect and usually means the wrong variable was named.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		as, ok := pass.Leaf().(*ast.AssignStmt)
		if !ok || as.Tok != token.ASSIGN || len(as.Lhs) != len(as.Rhs) {
			return nil
		}
		for i := range as.Lhs {
			if !isAddressable(as.Lhs[i]) || pass.Text(as.Lhs[i]) != pass.Text(Unparen(as.Rhs[i])) {
				return nil
			}
		}
		// Statements in a list are removed outright; anywhere else (the init
		// of an if, a for post) an empty statement is not allowed.
		if _, ok := pass.Path.Parent().(*ast.BlockStmt); !ok {
			if _, ok := pass.Path.Parent().(*ast.CaseClause); !ok {
				return nil
			}
		}
		var names []string
		for _, l := range as.Lhs {
			names = append(names, pass.Text(l))
		}
		d := pass.Reportf(as, "self-assignment of %s", strings.Join(names, ", "))
		d.Fixes = Fixes{{
			ID:    FixID{Rule: "self-assign", Kind: "remove"},
			Title: "Remove self-assignment",
			Edits: []Edit{pass.Replace(as, "")},
		}}
		return nil
	},
}

func isAddressable(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.Ident:
		return e.Name != "_"
	case *ast.SelectorExpr:
		return isAddressable(e.X)
	case *ast.StarExpr:
		return isAddressable(e.X)
	}
	return false
}

// DeclarationsFile is the file the undeclared-name rule can declare missing
// names in.
const DeclarationsFile = "declarations.go"

// RuleUndeclaredName reports identifiers the type checker could not resolve
// and offers to declare them.
var RuleUndeclaredName = &Rule{
	Name:     "undeclared-name",
	Doc:      "Report undeclared names and offer to declare them.\n\nThe name is declared as a variable of type any, or as a function when it is called, either next to its use or in " + DeclarationsFile + ".",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		id, ok := pass.Leaf().(*ast.Ident)
		if !ok || id.Name == "_" {
			return nil
		}
		found := false
		for _, terr := range pass.Info.TypeErrorsAt(id.Pos()) {
			if terr.Msg == "undefined: "+id.Name {
				found = true
				break
			}
		}
		if !found {
			return nil
		}
		decl := declarationFor(pass, id)
		d := pass.Reportf(id, "undeclared name: %s", id.Name)

		var fixes Fixes
		if top := topLevelDecl(pass.Path); top != nil {
			at := pass.Info.Offset(top.End())
			fixes = append(fixes, &Fix{
				ID:    FixID{Rule: "undeclared-name", Kind: "declare-here"},
				Title: fmt.Sprintf("Declare %s here", id.Name),
				Edits: []Edit{{File: pass.Info.Name, Start: at, End: at, NewText: "\n\n" + decl}},
			})
		}
		if target := path.Join(path.Dir(pass.Info.Name), DeclarationsFile); target != pass.Info.Name {
			fixes = append(fixes, &Fix{
				ID:    FixID{Rule: "undeclared-name", Kind: "declare-in-file"},
				Title: fmt.Sprintf("Declare %s in %s", id.Name, DeclarationsFile),
				Edits: []Edit{declareInFile(pass, target, decl)},
			})
		}
		d.Fixes = fixes
		return nil
	},
}

func declarationFor(pass *Pass, id *ast.Ident) string {
	if call, ok := pass.Path.Parent().(*ast.CallExpr); ok && call.Fun == id {
		return fmt.Sprintf("func %s(args ...any) any {\n\tpanic(\"unimplemented\")\n}", id.Name)
	}
	return fmt.Sprintf("var %s any", id.Name)
}

func topLevelDecl(p []ast.Node) ast.Node {
	if len(p) < 2 {
		return nil
	}
	if _, ok := p[len(p)-1].(*ast.File); !ok {
		return nil
	}
	if d, ok := p[len(p)-2].(ast.Decl); ok {
		return d
	}
	return nil
}

// declareInFile appends decl to target, or creates target holding it.
func declareInFile(pass *Pass, target, decl string) Edit {
	if src, ok := pass.Info.Source(target); ok {
		return Edit{File: target, Start: len(src), End: len(src), NewText: "\n" + decl + "\n"}
	}
	if b, err := pass.Info.Project.ReadFile(target); err == nil {
		return Edit{File: target, Start: len(b), End: len(b), NewText: "\n" + decl + "\n"}
	}
	pkg := "main"
	if pass.Info.File.Name != nil {
		pkg = pass.Info.File.Name.Name
	}
	return Edit{File: target, NewText: "package " + pkg + "\n\n" + decl + "\n"}
}

// DefaultRules returns the built-in rules.
func DefaultRules() []*Rule {
	return []*Rule{
		RuleErrorf,
		RuleBoolCompare,
		RuleStringsContains,
		RuleSelfAssign,
		RuleUndeclaredName,
	}
}

// Lookup returns the built-in rule called name.
func Lookup(name string) (*Rule, bool) {
	for _, r := range DefaultRules() {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}
