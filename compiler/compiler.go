// Copyright © 2024 The ELPS authors

// Package compiler parses and type-checks the Go package that contains a
// project file and exposes the result as an Info. Syntax and type errors are
// recorded on the Info rather than returned, so broken input can still be
// inspected.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"go/types"
	"path"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/luthersystems/hints/project"
)

const tracerName = "github.com/luthersystems/hints/compiler"

// ErrNotFound is returned when the requested file is neither open in the
// overlay nor present in the project.
var ErrNotFound = errors.New("compiler: file not found")

// Phase is how far resolution proceeds.
type Phase int

const (
	// PhaseParsed stops after syntax.
	PhaseParsed Phase = iota + 1
	// PhaseResolved also type-checks the package.
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseParsed:
		return "parsed"
	case PhaseResolved:
		return "resolved"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Overlay supplies file content that takes precedence over the project,
// typically unsaved editor buffers.
type Overlay interface {
	Contents(name string) ([]byte, bool)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithOverlay makes r read open documents from o before the project.
func WithOverlay(o Overlay) Option {
	return func(r *Resolver) { r.overlay = o }
}

// WithTracer sets the tracer used for resolution spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Resolver) { r.tracer = t }
}

// Resolver resolves files of a single project. A Resolver may be used by one
// goroutine at a time.
type Resolver struct {
	proj    *project.Project
	overlay Overlay
	tracer  trace.Tracer
}

// New returns a resolver bound to proj.
func New(proj *project.Project, opts ...Option) *Resolver {
	r := &Resolver{proj: proj}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	return r
}

// Project returns the project r is bound to.
func (r *Resolver) Project() *project.Project {
	return r.proj
}

func (r *Resolver) read(name string) ([]byte, error) {
	if r.overlay != nil {
		if b, ok := r.overlay.Contents(name); ok {
			return b, nil
		}
	}
	return r.proj.ReadFile(name)
}

func (r *Resolver) exists(name string) (bool, error) {
	if r.overlay != nil {
		if _, ok := r.overlay.Contents(name); ok {
			return true, nil
		}
	}
	f, err := r.proj.Find(name)
	return f != nil, err
}

// Resolve parses the package containing name and, at PhaseResolved,
// type-checks it. The returned Info is never nil when err is nil.
func (r *Resolver) Resolve(ctx context.Context, name string, phase Phase) (*Info, error) {
	name = project.Clean(name)
	_, span := r.tracer.Start(ctx, "compiler.Resolve", trace.WithAttributes(
		semconv.CodeFilepath(name),
		attribute.String("hints.phase", phase.String()),
	))
	defer span.End()

	info, err := r.resolve(name, phase)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("hints.errors", len(info.Errors)))

	if err := r.storeSummary(info); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return info, nil
}

func (r *Resolver) resolve(name string, phase Phase) (*Info, error) {
	ok, err := r.exists(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	info := &Info{
		Project: r.proj,
		Name:    name,
		Phase:   PhaseParsed,
		Fset:    token.NewFileSet(),
	}
	sources := make(map[string][]byte)

	f, tf, src, err := r.parse(info.Fset, name, &info.Errors)
	if err != nil {
		return nil, err
	}
	info.File, info.TokFile, info.Src = f, tf, src
	info.Files = append(info.Files, f)
	sources[name] = src

	dir := dirOf(name)
	siblings, err := r.packageFiles(dir)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		if sib == name {
			continue
		}
		sf, _, ssrc, err := r.parse(info.Fset, sib, &info.Errors)
		if err != nil {
			return nil, err
		}
		// Files of another package in the same directory (external tests,
		// stray fixtures) are left out.
		if sf.Name == nil || f.Name == nil || sf.Name.Name != f.Name.Name {
			continue
		}
		info.Files = append(info.Files, sf)
		sources[sib] = ssrc
	}
	info.sources = sources

	if phase < PhaseResolved {
		return info, nil
	}

	imp := newImporter(r, info.Fset)
	info.TypesInfo = newTypesInfo()
	conf := types.Config{
		Importer: imp,
		Error: func(err error) {
			info.Errors = append(info.Errors, err)
		},
	}
	// Check reports every problem through conf.Error; the returned error is
	// the first of them.
	info.Pkg, _ = conf.Check(packagePath(dir, f), info.Fset, info.Files, info.TypesInfo)
	info.Phase = PhaseResolved
	return info, nil
}

// parse reads and parses one file, appending syntax errors to errs.
func (r *Resolver) parse(fset *token.FileSet, name string, errs *[]error) (*ast.File, *token.File, []byte, error) {
	src, err := r.read(name)
	if err != nil {
		return nil, nil, nil, err
	}
	base := fset.Base()
	f, perr := parser.ParseFile(fset, name, src, parser.ParseComments|parser.AllErrors)
	if perr != nil {
		var list scanner.ErrorList
		if errors.As(perr, &list) {
			for _, e := range list {
				*errs = append(*errs, e)
			}
		} else {
			*errs = append(*errs, perr)
		}
	}
	tf := fset.File(token.Pos(base))
	if f == nil || tf == nil {
		return nil, nil, nil, fmt.Errorf("compiler: parse %s: %w", name, perr)
	}
	return f, tf, src, nil
}

// packageFiles lists the .go files sharing name's directory, including open
// overlay documents the project does not have yet.
func (r *Resolver) packageFiles(dir string) ([]string, error) {
	files, err := r.proj.PackageFiles(dir)
	if err != nil {
		return nil, err
	}
	if lister, ok := r.overlay.(interface{ Names() []string }); ok {
		seen := make(map[string]bool, len(files))
		for _, f := range files {
			seen[f] = true
		}
		for _, n := range lister.Names() {
			if !seen[n] && dirOf(n) == dir && path.Ext(n) == ".go" {
				files = append(files, n)
			}
		}
		sort.Strings(files)
	}
	return files, nil
}

func newTypesInfo() *types.Info {
	return &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
	}
}

func dirOf(name string) string {
	d := path.Dir(name)
	if d == "." {
		return ""
	}
	return d
}

func packagePath(dir string, f *ast.File) string {
	if dir != "" {
		return dir
	}
	if f != nil && f.Name != nil && f.Name.Name != "" && f.Name.Name != "_" {
		return f.Name.Name
	}
	return "main"
}
