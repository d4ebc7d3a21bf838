// Copyright © 2024 The ELPS authors

// Package hinttest runs hint rules against source fixtures. A fixture is
// written to a scratch workspace, resolved, and the rule is run at a cursor
// offset. Tests then check the reported diagnostics, or apply a fix and
// compare the resulting text against a golden string with whitespace
// differences ignored.
//
// A typical rule test:
//
//	func TestBoolCompare(t *testing.T) {
//		tt := hinttest.ForRule(t, hint.RuleBoolCompare)
//		tt.Analysis("test.go", "package test\n\nfunc f(ok bool) bool { return ok <|>== true }\n",
//			"2:30-2:40:warning:comparison to bool constant ok == true can be simplified")
//		tt.Fix("test.go", "package test\n\nfunc f(ok bool) bool { return ok <|>== true }\n",
//			"2:30-2:40:warning:comparison to bool constant ok == true can be simplified",
//			"Simplify to ok",
//			"package test func f(ok bool) bool { return ok } ")
//		tt.SweepCommon()
//	}
//
// Fixture offsets are marked with "<|>" unless WithMarker says otherwise.
package hinttest

import (
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/hints/compiler"
	"github.com/luthersystems/hints/hint"
)

// Tester drives one rule function through fixtures on behalf of a test.
// Failures stop the test.
type Tester struct {
	t      testing.TB
	fn     Func
	marker string
	debug  DebugFunc
	log    *log.Logger
	fs     afero.Fs
	dir    string
	extra  map[string]string
	ropts  []compiler.Option

	testLog bool
}

// Option configures a Tester.
type Option func(*Tester)

// WithMarker sets the token marking the cursor offset in fixtures.
func WithMarker(marker string) Option {
	return func(tt *Tester) {
		tt.marker = marker
	}
}

// WithDebugString sets how fixes are identified.
func WithDebugString(fn DebugFunc) Option {
	return func(tt *Tester) {
		tt.debug = fn
	}
}

// WithLogger sets the logger. The default logs at debug level to the test.
func WithLogger(l *log.Logger) Option {
	return func(tt *Tester) {
		tt.log = l
	}
}

// WithFs sets the file system workspaces are created on.
func WithFs(fsys afero.Fs) Option {
	return func(tt *Tester) {
		tt.fs = fsys
	}
}

// WithDir sets the workspace directory.
func WithDir(dir string) Option {
	return func(tt *Tester) {
		tt.dir = dir
	}
}

// WithExtraFiles adds files written next to every fixture.
func WithExtraFiles(files map[string]string) Option {
	return func(tt *Tester) {
		for name, content := range files {
			tt.extra[name] = content
		}
	}
}

// WithCompilerOptions passes options to the resolver of every fixture.
func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(tt *Tester) {
		tt.ropts = append(tt.ropts, opts...)
	}
}

// New returns a Tester running fn. Unless WithFs or WithDir are given, each
// Tester works in its own temporary directory, so tests using separate
// Testers may run in parallel.
func New(t testing.TB, fn Func, opts ...Option) *Tester {
	tt := &Tester{
		t:      t,
		fn:     fn,
		marker: DefaultMarker,
		debug:  FixString,
		extra:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(tt)
	}
	if tt.fs == nil {
		tt.fs = afero.NewOsFs()
		if tt.dir == "" {
			tt.dir = filepath.Join(t.TempDir(), "workspace")
		}
	}
	if tt.dir == "" {
		tt.dir = "/workspace"
	}
	if tt.log == nil {
		tt.log = NewTestLogger(t)
		tt.testLog = true
	}
	return tt
}

// ForRule returns a Tester running rule.
func ForRule(t testing.TB, rule *hint.Rule, opts ...Option) *Tester {
	return New(t, RuleFunc(rule), opts...)
}

// Workspace returns a new workspace configured like the Tester's.
func (tt *Tester) Workspace() *Workspace {
	return NewWorkspace(tt.fs, tt.dir,
		WithFixtureFiles(tt.extra),
		WithResolverOptions(tt.ropts...),
		WithWorkspaceLogger(tt.log))
}

func (tt *Tester) detect(code string) (string, int) {
	tt.t.Helper()
	code, offset, err := DetectOffset(code, tt.marker, 0)
	require.NoError(tt.t, err)
	return code, offset
}

func (tt *Tester) analyze(fileName, code string, offset int) (*Workspace, []*hint.Diagnostic) {
	tt.t.Helper()
	ws := tt.Workspace()
	info, err := ws.Prepare(fileName, code)
	require.NoError(tt.t, err)
	diags, err := Run(info, offset, tt.fn)
	require.NoError(tt.t, err)
	return ws, diags
}

// Analysis checks that the rule reports exactly golden at the marked offset
// of code.
func (tt *Tester) Analysis(fileName, code string, golden ...string) {
	tt.t.Helper()
	code, offset := tt.detect(code)
	tt.AnalysisAt(fileName, code, offset, golden...)
}

// AnalysisAt checks that the rule reports exactly golden at offset.
func (tt *Tester) AnalysisAt(fileName, code string, offset int, golden ...string) {
	tt.t.Helper()
	_, diags := tt.analyze(fileName, code, offset)
	require.NoError(tt.t, ExpectDiagnostics(golden...)(offset, diags))
}

// Fix applies the fix identified by fix of the diagnostic identified by
// diagnostic, reported at the marked offset, and checks fileName against
// golden. It returns the normalized text.
func (tt *Tester) Fix(fileName, code, diagnostic, fix, golden string) string {
	tt.t.Helper()
	code, offset := tt.detect(code)
	return tt.fixAt(fileName, code, offset, diagnostic, fix, fileName, &golden)
}

// FixAt is Fix at an explicit offset.
func (tt *Tester) FixAt(fileName, code string, offset int, diagnostic, fix, golden string) string {
	tt.t.Helper()
	return tt.fixAt(fileName, code, offset, diagnostic, fix, fileName, &golden)
}

// FixFile is Fix checking goldenFile, which the fix may have edited or
// created, instead of the fixture file.
func (tt *Tester) FixFile(fileName, code, diagnostic, fix, goldenFile, golden string) string {
	tt.t.Helper()
	code, offset := tt.detect(code)
	return tt.fixAt(fileName, code, offset, diagnostic, fix, goldenFile, &golden)
}

// FixFileAt is FixFile at an explicit offset.
func (tt *Tester) FixFileAt(fileName, code string, offset int, diagnostic, fix, goldenFile, golden string) string {
	tt.t.Helper()
	return tt.fixAt(fileName, code, offset, diagnostic, fix, goldenFile, &golden)
}

// FixResult applies a fix like Fix and returns the normalized text of
// fileName without comparing it.
func (tt *Tester) FixResult(fileName, code, diagnostic, fix string) string {
	tt.t.Helper()
	code, offset := tt.detect(code)
	return tt.fixAt(fileName, code, offset, diagnostic, fix, fileName, nil)
}

func (tt *Tester) fixAt(fileName, code string, offset int, diagnostic, fix, goldenFile string, golden *string) string {
	tt.t.Helper()
	ws, diags := tt.analyze(fileName, code, offset)
	d, err := FindDiagnostic(diags, diagnostic)
	require.NoError(tt.t, err)
	f, err := FindFix(d, fix, tt.debug)
	require.NoError(tt.t, err)
	require.NoError(tt.t, ws.Apply(f))
	text, err := ws.Compare(goldenFile, golden)
	require.NoError(tt.t, err)
	return text
}

// Sweep checks that the rule reports exactly golden at every offset of code.
func (tt *Tester) Sweep(fileName, code string, golden ...string) {
	tt.t.Helper()
	require.NoError(tt.t, Sweep(tt.Workspace(), fileName, code, tt.fn, ExpectDiagnostics(golden...)))
}

// SweepCommon checks that the rule reports nothing anywhere in the
// CommonFixtures.
func (tt *Tester) SweepCommon() {
	tt.t.Helper()
	for _, code := range CommonFixtures {
		tt.Sweep(CommonFile, code)
	}
}
