// Copyright © 2024 The ELPS authors

package hint

import (
	"go/ast"
	"go/token"
	"go/types"
	"strconv"
)

// Unparen strips any number of enclosing parentheses.
func Unparen(e ast.Expr) ast.Expr {
	return ast.Unparen(e)
}

// IsPackageFunc reports whether call invokes pkgPath.name. Without type
// information the package is matched by its local name.
func IsPackageFunc(pass *Pass, call *ast.CallExpr, pkgPath, name string) bool {
	sel, ok := Unparen(call.Fun).(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != name {
		return false
	}
	x, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	if obj := objectOf(pass, x); obj != nil {
		pn, ok := obj.(*types.PkgName)
		return ok && pn.Imported().Path() == pkgPath
	}
	return x.Name == pkgPath
}

// BoolConst reports whether e is the predeclared true or false, and which.
func BoolConst(pass *Pass, e ast.Expr) (value, ok bool) {
	id, isIdent := Unparen(e).(*ast.Ident)
	if !isIdent || (id.Name != "true" && id.Name != "false") {
		return false, false
	}
	if obj := objectOf(pass, id); obj != nil {
		c, isConst := obj.(*types.Const)
		if !isConst || c.Parent() != types.Universe {
			return false, false
		}
	}
	return id.Name == "true", true
}

// IntLit returns the value of an integer literal, allowing a leading minus.
func IntLit(e ast.Expr) (int64, bool) {
	e = Unparen(e)
	neg := false
	if u, ok := e.(*ast.UnaryExpr); ok && u.Op == token.SUB {
		neg = true
		e = Unparen(u.X)
	}
	lit, ok := e.(*ast.BasicLit)
	if !ok || lit.Kind != token.INT {
		return 0, false
	}
	v, err := strconv.ParseInt(lit.Value, 0, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

func objectOf(pass *Pass, id *ast.Ident) types.Object {
	ti := pass.Info.TypesInfo
	if ti == nil {
		return nil
	}
	if obj := ti.Uses[id]; obj != nil {
		return obj
	}
	return ti.Defs[id]
}

// argsText returns the source between the parentheses of call.
func argsText(pass *Pass, call *ast.CallExpr) string {
	src, ok := pass.Info.Source(pass.Info.Position(call.Lparen).Filename)
	if !ok {
		return ""
	}
	start := pass.Info.Offset(call.Lparen) + 1
	end := pass.Info.Offset(call.Rparen)
	if start > end || end > len(src) {
		return ""
	}
	return string(src[start:end])
}

// needsParens reports whether e must be parenthesized before a unary
// operator is applied to it.
func needsParens(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Ident, *ast.SelectorExpr, *ast.CallExpr, *ast.IndexExpr,
		*ast.IndexListExpr, *ast.ParenExpr, *ast.BasicLit, *ast.UnaryExpr:
		return false
	}
	return true
}
