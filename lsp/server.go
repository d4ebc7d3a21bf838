// Copyright © 2024 The ELPS authors

// Package lsp implements a Language Server Protocol server publishing hint
// diagnostics for Go files and offering their fixes as quick fixes.
package lsp

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/tliron/glsp"
	glspserver "github.com/tliron/glsp/server"
	"go.opentelemetry.io/otel/trace"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/hints/hint"
)

const serverName = "hints-lsp"

// scratchDir holds the build and cache areas of the served project. On the
// default file system it only ever exists in memory.
const scratchDir = "/.hints-lsp"

// Server is the hints language server.
type Server struct {
	handler  protocol.Handler
	glspSrv  *glspserver.Server
	rootURI  string
	rootPath string

	fs     afero.Fs
	engine *hint.Engine
	tracer trace.Tracer
	log    *log.Logger

	ws *workspace

	// Debouncer for didChange notifications.
	debounceMu sync.Mutex
	debounce   map[string]*time.Timer

	// Context for sending notifications (captured from latest request).
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc

	// exitFn is called on the LSP exit notification. Defaults to os.Exit.
	// Overridable for testing.
	exitFn func(int)
}

// Option configures the LSP server.
type Option func(*Server)

// WithFs sets the file system the served project is read from. Writes made
// while checking (build artifacts, cache records) land on it too. By default
// the OS file system is read through an in-memory layer that absorbs every
// write.
func WithFs(fs afero.Fs) Option {
	return func(s *Server) { s.fs = fs }
}

// WithRules replaces the built-in rules.
func WithRules(rules ...*hint.Rule) Option {
	return func(s *Server) { s.engine = hint.NewEngine(rules...) }
}

// WithLogger sets the server log. It must not write to stdout when serving
// over stdio.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithTracer sets the tracer used for resolution and check spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// New creates a new hints LSP server.
func New(opts ...Option) *Server {
	s := &Server{
		engine:   hint.NewEngine(hint.DefaultRules()...),
		debounce: make(map[string]*time.Timer),
		exitFn:   os.Exit,
	}
	for _, o := range opts {
		o(s)
	}
	if s.fs == nil {
		s.fs = afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(afero.NewOsFs()), afero.NewMemMapFs())
	}
	if s.log == nil {
		s.log = log.NewWithOptions(os.Stderr, log.Options{Prefix: serverName})
	}
	if s.tracer != nil && s.engine.Tracer == nil {
		s.engine.Tracer = s.tracer
	}
	s.ws = newWorkspace(s.fs, filepath.Join(scratchDir, "build"), filepath.Join(scratchDir, "cache"))

	s.handler = protocol.Handler{
		Initialize: s.initialize,
		Shutdown:   s.shutdown,
		Exit:       s.exit,
		SetTrace:   s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCodeAction: s.textDocumentCodeAction,
	}

	s.glspSrv = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// RunStdio starts the server using stdio transport.
func (s *Server) RunStdio() error {
	return s.glspSrv.RunStdio()
}

// RunTCP starts the server listening on the given address.
func (s *Server) RunTCP(addr string) error {
	return s.glspSrv.RunTCP(addr)
}

// initialize handles the LSP initialize request.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.captureNotify(ctx)

	if params.RootURI != nil {
		s.rootURI = *params.RootURI
		s.rootPath = uriToPath(s.rootURI)
	} else if params.RootPath != nil {
		s.rootPath = *params.RootPath
		s.rootURI = pathToURI(s.rootPath)
	}
	if s.rootPath != "" {
		s.ws.setRoot(s.rootPath)
	}
	s.log.Debug("initialize", "root", s.rootPath)

	capabilities := s.handler.CreateServerCapabilities()

	// Override text document sync to full.
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: boolPtr(false)},
	}
	capabilities.CodeActionProvider = &protocol.CodeActionOptions{
		CodeActionKinds: []protocol.CodeActionKind{protocol.CodeActionKindQuickFix},
	}

	version := "0.1.0"
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

// shutdown handles the LSP shutdown request.
func (s *Server) shutdown(_ *glsp.Context) error {
	s.debounceMu.Lock()
	for _, t := range s.debounce {
		t.Stop()
	}
	s.debounce = make(map[string]*time.Timer)
	s.debounceMu.Unlock()
	return nil
}

// exit handles the LSP exit notification by terminating the process.
func (s *Server) exit(_ *glsp.Context) error {
	s.exitFn(0)
	return nil
}

// setTrace handles the $/setTrace notification (required by some clients).
func (s *Server) setTrace(_ *glsp.Context, _ *protocol.SetTraceParams) error {
	return nil
}

// captureNotify stores the notification function from the context for
// async use (e.g., publishing diagnostics after a debounce).
func (s *Server) captureNotify(ctx *glsp.Context) {
	s.notifyMu.Lock()
	s.notify = ctx.Notify
	s.notifyMu.Unlock()
}

// sendNotification sends a notification to the client.
func (s *Server) sendNotification(method string, params any) {
	s.notifyMu.Lock()
	fn := s.notify
	s.notifyMu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
