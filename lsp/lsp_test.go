// Copyright © 2024 The ELPS authors

package lsp

import (
	"go/scanner"
	"go/token"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/hints/hint"
	"github.com/luthersystems/hints/hinttest"
)

const (
	testRoot = "file:///ws"
	testURI  = "file:///ws/test.go"
)

const boolSource = `package test

func f(ok bool) bool {
	return ok != true
}
`

// testServer creates a server over an in-memory file system rooted at /ws.
func testServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{
		WithFs(afero.NewMemMapFs()),
		WithLogger(hinttest.NewTestLogger(t)),
	}, opts...)
	s := New(opts...)
	root := testRoot
	_, err := s.initialize(mockContext(), &protocol.InitializeParams{RootURI: &root})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.shutdown(mockContext()) })
	return s
}

// mockContext returns a minimal glsp.Context for testing.
func mockContext() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {},
	}
}

// published collects diagnostics notifications, possibly sent from a
// debounce timer.
type published struct {
	mu   sync.Mutex
	list []*protocol.PublishDiagnosticsParams
}

func (p *published) all() []*protocol.PublishDiagnosticsParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*protocol.PublishDiagnosticsParams(nil), p.list...)
}

// capturingContext returns a context that captures published diagnostics.
func capturingContext() (*glsp.Context, *published) {
	p := &published{}
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				p.mu.Lock()
				p.list = append(p.list, params.(*protocol.PublishDiagnosticsParams))
				p.mu.Unlock()
			}
		},
	}
	return ctx, p
}

func openDoc(t *testing.T, s *Server, ctx *glsp.Context, uri, text string) {
	t.Helper()
	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: "go",
			Version:    1,
			Text:       text,
		},
	})
	require.NoError(t, err)
}

func pos(line, char int) protocol.Position {
	return protocol.Position{Line: safeUint(line), Character: safeUint(char)}
}

// --- Position conversion tests ---

func TestOffsetToPosition(t *testing.T) {
	text := "a\nhé𝄞x\n"
	assert.Equal(t, pos(0, 0), offsetToPosition(text, 0))
	assert.Equal(t, pos(0, 1), offsetToPosition(text, 1))
	assert.Equal(t, pos(1, 0), offsetToPosition(text, 2))
	// h is one unit, é is one unit in two bytes, 𝄞 is a surrogate pair.
	assert.Equal(t, pos(1, 4), offsetToPosition(text, 9))
	assert.Equal(t, pos(2, 0), offsetToPosition(text, len(text)))
	assert.Equal(t, pos(2, 0), offsetToPosition(text, len(text)+10))
	assert.Equal(t, pos(0, 0), offsetToPosition(text, -1))
}

func TestPositionToOffset(t *testing.T) {
	text := "a\nhé𝄞x\n"
	assert.Equal(t, 0, positionToOffset(text, pos(0, 0)))
	assert.Equal(t, 9, positionToOffset(text, pos(1, 4)))
	assert.Equal(t, 10, positionToOffset(text, pos(1, 100)), "clamps to the line end")
	assert.Equal(t, len(text), positionToOffset(text, pos(7, 0)), "clamps to the end")
	for _, off := range []int{0, 1, 2, 3, 5, 9, 10, 11} {
		assert.Equal(t, off, positionToOffset(text, offsetToPosition(text, off)), "offset %d", off)
	}
}

func TestURIConversion(t *testing.T) {
	assert.Equal(t, "/ws/test.go", uriToPath("file:///ws/test.go"))
	assert.Equal(t, "relative.go", uriToPath("relative.go"))
	assert.Equal(t, "file:///ws/test.go", pathToURI("/ws/test.go"))
	assert.Equal(t, "relative.go", pathToURI("relative.go"))
}

// --- Diagnostics ---

func TestDiagnosticsOnOpen(t *testing.T) {
	s := testServer(t)
	ctx, pub := capturingContext()

	openDoc(t, s, ctx, testURI, boolSource)

	got := pub.all()
	require.Len(t, got, 1)
	assert.Equal(t, testURI, got[0].URI)
	require.NotNil(t, got[0].Version)
	assert.Equal(t, protocol.UInteger(1), *got[0].Version)
	require.Len(t, got[0].Diagnostics, 1)

	d := got[0].Diagnostics[0]
	assert.Equal(t, protocol.Range{Start: pos(3, 8), End: pos(3, 18)}, d.Range)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *d.Severity)
	assert.Equal(t, sourceHints, *d.Source)
	assert.Equal(t, "bool-compare", d.Code.Value)
	assert.Equal(t, "comparison to bool constant ok != true can be simplified", d.Message)
}

func TestDiagnosticsCleanFile(t *testing.T) {
	s := testServer(t)
	ctx, pub := capturingContext()

	openDoc(t, s, ctx, testURI, "package test\n\nfunc f(ok bool) bool { return ok }\n")

	got := pub.all()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Diagnostics)
}

func TestDiagnosticsOnSyntaxError(t *testing.T) {
	s := testServer(t)
	ctx, pub := capturingContext()

	openDoc(t, s, ctx, testURI, "package test\n\nfunc f( {\n")

	got := pub.all()
	require.Len(t, got, 1)
	require.NotEmpty(t, got[0].Diagnostics)
	d := got[0].Diagnostics[0]
	assert.Equal(t, sourceSyntax, *d.Source)
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	assert.Positive(t, d.Range.Start.Line, "syntax errors carry their position")
}

func TestProtocolDiagnosticsSyntaxFirst(t *testing.T) {
	text := "package test\n\nfunc f( {\n"
	res := &result{
		text: text,
		syntax: []*scanner.Error{
			{Pos: token.Position{Filename: "main.go", Offset: 22, Line: 3, Column: 9}, Msg: "expected ')', found newline"},
		},
		diags: []*hint.Diagnostic{{
			Rule:     "self-assign",
			Severity: hint.SeverityWarning,
			Message:  "self-assignment of x",
			Range:    hint.Range{Start: hint.Position{Offset: 14}, End: hint.Position{Offset: 18}},
		}},
	}

	diags := res.protocolDiagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, sourceSyntax, *diags[0].Source)
	assert.Equal(t, "expected ')', found newline", diags[0].Message)
	assert.Equal(t, protocol.Position{Line: 2, Character: 8}, diags[0].Range.Start)
	assert.Equal(t, diags[0].Range.Start, diags[0].Range.End)
	assert.Equal(t, sourceHints, *diags[1].Source)
	assert.Equal(t, protocol.Position{Line: 2, Character: 0}, diags[1].Range.Start)
}

func TestDiagnosticsNolint(t *testing.T) {
	s := testServer(t)
	ctx, pub := capturingContext()

	openDoc(t, s, ctx, testURI, `package test

func f(ok bool) bool {
	return ok != true //nolint:bool-compare
}
`)

	got := pub.all()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Diagnostics)
}

func TestDiagnosticsOnChangeDebounced(t *testing.T) {
	s := testServer(t)
	ctx, pub := capturingContext()
	openDoc(t, s, ctx, testURI, "package test\n")
	require.Len(t, pub.all(), 1)

	err := s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: boolSource}},
	})
	require.NoError(t, err)
	assert.Len(t, pub.all(), 1, "change is not checked immediately")

	require.Eventually(t, func() bool { return len(pub.all()) == 2 }, 5*time.Second, 20*time.Millisecond)
	last := pub.all()[1]
	assert.Equal(t, protocol.UInteger(2), *last.Version)
	assert.Len(t, last.Diagnostics, 1)
}

func TestDiagnosticsOnSave_Immediate(t *testing.T) {
	s := testServer(t)
	ctx, pub := capturingContext()
	openDoc(t, s, ctx, testURI, boolSource)

	before := len(pub.all())
	err := s.textDocumentDidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Greater(t, len(pub.all()), before, "save should trigger immediate diagnostics publish")
}

func TestDiagnosticsOnClose_Cleared(t *testing.T) {
	s := testServer(t)
	openCtx, _ := capturingContext()
	openDoc(t, s, openCtx, testURI, boolSource)

	closeCtx, pub := capturingContext()
	s.captureNotify(closeCtx)
	err := s.textDocumentDidClose(closeCtx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)

	got := pub.all()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Diagnostics, "close should clear diagnostics")
	docs, name, ok := s.ws.resolve("/ws/test.go")
	require.True(t, ok)
	assert.Nil(t, docs.Get(name), "document should be removed from the store")
	assert.Nil(t, s.ws.result(name))
}

func TestDocumentOutsideRoot(t *testing.T) {
	s := testServer(t)
	ctx, pub := capturingContext()

	openDoc(t, s, ctx, "file:///elsewhere/x.go", boolSource)
	assert.Empty(t, pub.all())
}

func TestNonGoDocument(t *testing.T) {
	s := testServer(t)
	ctx, pub := capturingContext()

	openDoc(t, s, ctx, "file:///ws/notes.txt", "ok != true")
	assert.Empty(t, pub.all())
}

func TestRootFromFirstDocument(t *testing.T) {
	s := New(WithFs(afero.NewMemMapFs()), WithLogger(hinttest.NewTestLogger(t)))
	ctx, pub := capturingContext()

	openDoc(t, s, ctx, "file:///tmp/proj/pkg.go", boolSource)
	assert.Equal(t, "/tmp/proj", s.ws.root)
	got := pub.all()
	require.Len(t, got, 1)
	assert.Len(t, got[0].Diagnostics, 1)
}

func TestSiblingFilesResolve(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/ws/decl.go", []byte("package test\n\nvar b = true\n"), 0o644))
	s := testServer(t, WithFs(fs))
	ctx, pub := capturingContext()

	openDoc(t, s, ctx, testURI, "package test\n\nvar a = b == true\n")

	got := pub.all()
	require.Len(t, got, 1)
	require.Len(t, got[0].Diagnostics, 1, "b is declared in a sibling file")
	assert.Equal(t, "bool-compare", got[0].Diagnostics[0].Code.Value)
}

func TestWithRules(t *testing.T) {
	s := testServer(t, WithRules(hint.RuleErrorf))
	ctx, pub := capturingContext()

	openDoc(t, s, ctx, testURI, boolSource)
	got := pub.all()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Diagnostics)
}

func TestWithTracer(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(t.Context()) }()

	s := testServer(t, WithTracer(tp.Tracer("lsp-test")))
	ctx, _ := capturingContext()
	openDoc(t, s, ctx, testURI, boolSource)

	var names []string
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	assert.Contains(t, names, "compiler.Resolve")
	assert.Contains(t, names, "hint.Engine.Check")
}

func TestDiskIsNotWritten(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/ws", 0o755))
	fs := afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(base), afero.NewMemMapFs())
	s := testServer(t, WithFs(fs))
	ctx, pub := capturingContext()

	openDoc(t, s, ctx, "file:///ws/sub/test.go", boolSource)
	require.Len(t, pub.all(), 1)

	exists, err := afero.Exists(base, scratchDir)
	require.NoError(t, err)
	assert.False(t, exists, "build and cache areas stay in the overlay")
	exists, err = afero.DirExists(base, "/ws/sub")
	require.NoError(t, err)
	assert.False(t, exists)
}

// --- Code actions ---

func codeActions(t *testing.T, s *Server, uri string, rng protocol.Range, only ...protocol.CodeActionKind) []protocol.CodeAction {
	t.Helper()
	result, err := s.textDocumentCodeAction(mockContext(), &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Range:        rng,
		Context:      protocol.CodeActionContext{Only: only},
	})
	require.NoError(t, err)
	if result == nil {
		return nil
	}
	actions, ok := result.([]protocol.CodeAction)
	require.True(t, ok, "code action result should be []CodeAction, got %T", result)
	return actions
}

func TestCodeActionQuickFix(t *testing.T) {
	s := testServer(t)
	openDoc(t, s, mockContext(), testURI, boolSource)

	actions := codeActions(t, s, testURI, protocol.Range{Start: pos(3, 10), End: pos(3, 10)})
	require.Len(t, actions, 2)

	simplify := actions[0]
	assert.Equal(t, "Simplify to !ok", simplify.Title)
	assert.Equal(t, protocol.CodeActionKindQuickFix, *simplify.Kind)
	require.NotNil(t, simplify.IsPreferred)
	assert.True(t, *simplify.IsPreferred)
	require.Len(t, simplify.Diagnostics, 1)
	assert.Equal(t, "bool-compare", simplify.Diagnostics[0].Code.Value)
	assert.Equal(t, map[string][]protocol.TextEdit{
		testURI: {{Range: protocol.Range{Start: pos(3, 8), End: pos(3, 18)}, NewText: "!ok"}},
	}, simplify.Edit.Changes)

	suppress := actions[1]
	assert.Equal(t, "Suppress with //nolint:bool-compare", suppress.Title)
	assert.Nil(t, suppress.IsPreferred)
	assert.Equal(t, map[string][]protocol.TextEdit{
		testURI: {{Range: protocol.Range{Start: pos(3, 18), End: pos(3, 18)}, NewText: " //nolint:bool-compare"}},
	}, suppress.Edit.Changes)
}

func TestCodeActionOutsideRange(t *testing.T) {
	s := testServer(t)
	openDoc(t, s, mockContext(), testURI, boolSource)

	assert.Nil(t, codeActions(t, s, testURI, protocol.Range{Start: pos(0, 0), End: pos(1, 0)}))
}

func TestCodeActionOnlyOtherKinds(t *testing.T) {
	s := testServer(t)
	openDoc(t, s, mockContext(), testURI, boolSource)

	rng := protocol.Range{Start: pos(3, 10), End: pos(3, 10)}
	assert.Nil(t, codeActions(t, s, testURI, rng, protocol.CodeActionKindRefactor))
	assert.Len(t, codeActions(t, s, testURI, rng, protocol.CodeActionKindQuickFix), 2)
}

func TestCodeActionUnknownDocument(t *testing.T) {
	s := testServer(t)
	assert.Nil(t, codeActions(t, s, "file:///ws/missing.go", protocol.Range{}))
}

func TestCodeActionCreatesFile(t *testing.T) {
	s := testServer(t)
	openDoc(t, s, mockContext(), testURI, "package test\n\nvar a = b\n")

	actions := codeActions(t, s, testURI, protocol.Range{Start: pos(2, 8), End: pos(2, 9)})
	titles := make([]string, len(actions))
	for i, a := range actions {
		titles[i] = a.Title
	}
	require.Equal(t, []string{
		"Declare b here",
		"Declare b in declarations.go",
		"Suppress with //nolint:undeclared-name",
	}, titles)

	here := actions[0]
	assert.Equal(t, map[string][]protocol.TextEdit{
		testURI: {{Range: protocol.Range{Start: pos(2, 9), End: pos(2, 9)}, NewText: "\n\nvar b any"}},
	}, here.Edit.Changes)

	inFile := actions[1]
	assert.Nil(t, inFile.Edit.Changes)
	declURI := "file:///ws/declarations.go"
	assert.Equal(t, []any{
		protocol.CreateFile{Kind: "create", URI: declURI},
		protocol.TextDocumentEdit{
			TextDocument: protocol.OptionalVersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: declURI},
			},
			Edits: []any{protocol.TextEdit{
				Range:   protocol.Range{Start: pos(0, 0), End: pos(0, 0)},
				NewText: "package test\n\nvar b any\n",
			}},
		},
	}, inFile.Edit.DocumentChanges)
}

// --- Lifecycle ---

func TestExitHandler(t *testing.T) {
	s := testServer(t)
	var exitCode int
	var exitCalled bool
	s.exitFn = func(code int) {
		exitCode = code
		exitCalled = true
	}

	err := s.exit(mockContext())
	require.NoError(t, err)
	assert.True(t, exitCalled, "exit handler should call exitFn")
	assert.Equal(t, 0, exitCode, "exit should call with code 0")
}

func TestInitializeLifecycle(t *testing.T) {
	s := New(WithFs(afero.NewMemMapFs()), WithLogger(hinttest.NewTestLogger(t)))

	rootURI := "file:///workspace"
	result, err := s.initialize(mockContext(), &protocol.InitializeParams{
		RootURI: &rootURI,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	initResult, ok := result.(protocol.InitializeResult)
	require.True(t, ok)
	require.NotNil(t, initResult.ServerInfo)
	assert.Equal(t, serverName, initResult.ServerInfo.Name)
	assert.Equal(t, "/workspace", s.rootPath)
	assert.Equal(t, "/workspace", s.ws.root)
	assert.Equal(t, &protocol.CodeActionOptions{
		CodeActionKinds: []protocol.CodeActionKind{protocol.CodeActionKindQuickFix},
	}, initResult.Capabilities.CodeActionProvider)
}
