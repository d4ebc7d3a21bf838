// Copyright © 2024 The ELPS authors

package hinttest

import (
	"github.com/luthersystems/hints/compiler"
	"github.com/luthersystems/hints/hint"
)

// Func computes the diagnostics for the path enclosing offset.
type Func func(info *compiler.Info, path compiler.Path, offset int) ([]*hint.Diagnostic, error)

// PathFunc computes diagnostics from the path alone.
type PathFunc func(info *compiler.Info, path compiler.Path) ([]*hint.Diagnostic, error)

// Func adapts fn to a Func ignoring the offset.
func (fn PathFunc) Func() Func {
	return func(info *compiler.Info, path compiler.Path, _ int) ([]*hint.Diagnostic, error) {
		return fn(info, path)
	}
}

// RuleFunc runs rules one after the other and concatenates what they report.
func RuleFunc(rules ...*hint.Rule) Func {
	return func(info *compiler.Info, path compiler.Path, offset int) ([]*hint.Diagnostic, error) {
		var diags []*hint.Diagnostic
		for _, rule := range rules {
			ds, err := hint.RunAt(rule, info, path, offset)
			if err != nil {
				return nil, err
			}
			diags = append(diags, ds...)
		}
		return diags, nil
	}
}

// Run computes the diagnostics fn reports for the path enclosing offset. A nil
// result is returned as an empty slice. An error from fn is returned as is.
func Run(info *compiler.Info, offset int, fn Func) ([]*hint.Diagnostic, error) {
	path, err := info.PathFor(offset)
	if err != nil {
		return nil, setupErr("%w", err)
	}
	diags, err := fn(info, path, offset)
	if err != nil {
		return nil, err
	}
	if diags == nil {
		diags = []*hint.Diagnostic{}
	}
	return diags, nil
}
