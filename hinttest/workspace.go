// Copyright © 2024 The ELPS authors

package hinttest

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/luthersystems/hints/compiler"
	"github.com/luthersystems/hints/document"
	"github.com/luthersystems/hints/fix"
	"github.com/luthersystems/hints/hint"
	"github.com/luthersystems/hints/project"
)

// Workspace is the scratch area one fixture runs in. Every Prepare wipes the
// directory and rebuilds the source, build and cache roots, so a Workspace
// serves fixtures one after the other. Two fixtures must never share a
// workspace directory at the same time.
type Workspace struct {
	fs    afero.Fs
	dir   string
	files map[string]string
	opts  []compiler.Option
	log   *log.Logger

	proj     *project.Project
	docs     *document.Store
	resolver *compiler.Resolver
	info     *compiler.Info
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithFixtureFiles adds files written next to every fixture, keyed by
// source-root-relative name.
func WithFixtureFiles(files map[string]string) WorkspaceOption {
	return func(ws *Workspace) {
		for name, content := range files {
			ws.files[project.Clean(name)] = content
		}
	}
}

// WithResolverOptions passes options to the resolver built for each fixture.
func WithResolverOptions(opts ...compiler.Option) WorkspaceOption {
	return func(ws *Workspace) {
		ws.opts = append(ws.opts, opts...)
	}
}

// WithWorkspaceLogger sets the logger receiving progress messages.
func WithWorkspaceLogger(l *log.Logger) WorkspaceOption {
	return func(ws *Workspace) {
		ws.log = l
	}
}

// NewWorkspace returns a workspace rooted at dir on fsys. Nothing is created
// until the first Prepare.
func NewWorkspace(fsys afero.Fs, dir string, opts ...WorkspaceOption) *Workspace {
	ws := &Workspace{
		fs:    fsys,
		dir:   dir,
		files: make(map[string]string),
	}
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

// Prepare writes source verbatim to fileName, next to the workspace's
// fixture files, and resolves it.
func (ws *Workspace) Prepare(fileName, source string) (*compiler.Info, error) {
	return ws.PrepareFiles(fileName, map[string]string{fileName: source})
}

// PrepareFiles recreates the workspace holding files and resolves fileName,
// which must be one of them, to PhaseResolved. Every failure wraps ErrSetup.
func (ws *Workspace) PrepareFiles(fileName string, files map[string]string) (*compiler.Info, error) {
	fileName = project.Clean(fileName)
	ws.proj, ws.docs, ws.resolver, ws.info = nil, nil, nil, nil

	if err := ws.fs.RemoveAll(ws.dir); err != nil {
		return nil, setupErr("clear %s: %w", ws.dir, err)
	}
	proj, err := project.New(ws.fs, ws.dir)
	if err != nil {
		return nil, setupErr("%w", err)
	}

	all := make(map[string]string, len(ws.files)+len(files))
	for name, content := range ws.files {
		all[name] = content
	}
	for name, content := range files {
		all[project.Clean(name)] = content
	}
	if _, ok := all[fileName]; !ok {
		return nil, setupErr("no source for %s", fileName)
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := proj.CreateFile(name, all[name]); err != nil {
			return nil, setupErr("%w", err)
		}
	}

	f, err := proj.Find(fileName)
	if err != nil {
		return nil, setupErr("%w", err)
	}
	if f == nil {
		return nil, setupErr("%s was not written", fileName)
	}

	docs := document.NewStore(proj)
	doc, err := docs.Open(fileName)
	if err != nil {
		return nil, setupErr("open %s: %w", fileName, err)
	}
	if doc.LanguageID != document.LanguageGo {
		return nil, setupErr("%s is not a Go file", fileName)
	}

	opts := append([]compiler.Option{compiler.WithOverlay(docs)}, ws.opts...)
	resolver := compiler.New(proj, opts...)
	info, err := resolver.Resolve(context.Background(), fileName, compiler.PhaseResolved)
	if err != nil {
		return nil, setupErr("resolve %s: %w", fileName, err)
	}
	if info.Phase < compiler.PhaseResolved {
		return nil, setupErr("%s resolved only to %s", fileName, info.Phase)
	}
	if ws.log != nil {
		ws.log.Debug("prepared fixture", "file", fileName, "files", len(names), "errors", len(info.Errors))
	}

	ws.proj, ws.docs, ws.resolver, ws.info = proj, docs, resolver, info
	return info, nil
}

// Info returns the context of the last prepared fixture.
func (ws *Workspace) Info() *compiler.Info {
	return ws.info
}

// Documents returns the document store of the last prepared fixture.
func (ws *Workspace) Documents() *document.Store {
	return ws.docs
}

// Project returns the project of the last prepared fixture.
func (ws *Workspace) Project() *project.Project {
	return ws.proj
}

// Apply performs f on the documents it targets.
func (ws *Workspace) Apply(f *hint.Fix) error {
	if ws.docs == nil {
		return setupErr("no fixture prepared")
	}
	return fix.Apply(ws.docs, f)
}

// Compare reads the current text of target, which need not be the fixture
// file, and normalizes its whitespace. When expected is not nil the result
// must equal expected, whitespace normalized as well. Open documents are
// saved afterwards whatever the outcome of the comparison.
func (ws *Workspace) Compare(target string, expected *string) (string, error) {
	if ws.docs == nil {
		return "", setupErr("no fixture prepared")
	}
	target = project.Clean(target)
	if ws.docs.Get(target) == nil {
		f, err := ws.proj.Find(target)
		if err != nil {
			return "", setupErr("%w", err)
		}
		if f == nil {
			return "", setupErr("%s does not exist", target)
		}
	}
	doc, err := ws.docs.Open(target)
	if err != nil {
		return "", setupErr("open %s: %w", target, err)
	}
	got := NormalizeWhitespace(doc.Text())

	var mismatch error
	if expected != nil {
		if want := NormalizeWhitespace(*expected); want != got {
			mismatch = &MismatchError{Kind: ErrTextMismatch, Want: want, Got: got}
		}
	}
	if err := ws.docs.SaveAll(); err != nil {
		return got, setupErr("save: %w", err)
	}
	return got, mismatch
}

func setupErr(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrSetup, fmt.Errorf(format, args...))
}
