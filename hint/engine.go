// Copyright © 2024 The ELPS authors

package hint

import (
	"context"
	"fmt"
	"go/ast"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/luthersystems/hints/compiler"
)

const tracerName = "github.com/luthersystems/hints/hint"

// Engine runs a set of rules over whole files.
type Engine struct {
	Rules  []*Rule
	Tracer trace.Tracer
}

// NewEngine returns an engine running rules.
func NewEngine(rules ...*Rule) *Engine {
	return &Engine{Rules: rules}
}

func (e *Engine) tracer() trace.Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}
	return otel.GetTracerProvider().Tracer(tracerName)
}

// Check offers every node of info.File to every rule and returns the
// findings ordered by position. Findings on lines carrying a matching
// //nolint directive are dropped. Every diagnostic gets a lazily computed fix
// set extended with a suppression fix.
func (e *Engine) Check(ctx context.Context, info *compiler.Info) ([]*Diagnostic, error) {
	_, span := e.tracer().Start(ctx, "hint.Engine.Check", trace.WithAttributes(
		attribute.String("hints.file", info.Name),
		attribute.Int("hints.rules", len(e.Rules)),
	))
	defer span.End()

	all, err := e.walk(info)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	all = filterSuppressed(all, nolintLines(info.Fset, info.File))
	sortDiagnostics(all)

	for _, d := range all {
		d.Fixes = extend(d.Fixes, suppressFix(info.Src, d))
	}
	span.SetAttributes(attribute.Int("hints.diagnostics", len(all)))
	return all, nil
}

func (e *Engine) walk(info *compiler.Info) ([]*Diagnostic, error) {
	var (
		all    []*Diagnostic
		runErr error
		seen   = make(map[Key]bool)
	)
	in := inspector.New([]*ast.File{info.File})
	in.WithStack(nil, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push || runErr != nil {
			return false
		}
		path := make(compiler.Path, len(stack))
		for i, node := range stack {
			path[len(stack)-1-i] = node
		}
		offset := info.Offset(n.Pos())
		for _, rule := range e.Rules {
			diags, err := RunAt(rule, info, path, offset)
			if err != nil {
				runErr = fmt.Errorf("%s: rule %s: %w", info.Name, rule.Name, err)
				return false
			}
			for _, d := range diags {
				k := d.Key()
				if seen[k] {
					continue
				}
				seen[k] = true
				all = append(all, d)
			}
		}
		return true
	})
	return all, runErr
}

func sortDiagnostics(diags []*Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Range, diags[j].Range
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Start.Offset != b.Start.Offset {
			return a.Start.Offset < b.Start.Offset
		}
		if a.End.Offset != b.End.Offset {
			return a.End.Offset < b.End.Offset
		}
		return diags[i].Rule < diags[j].Rule
	})
}
