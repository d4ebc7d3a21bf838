// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"go/scanner"
	"path"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/hints/compiler"
	"github.com/luthersystems/hints/document"
	"github.com/luthersystems/hints/hint"
)

const debounceDelay = 300 * time.Millisecond

// Values of protocol.Diagnostic.Source.
const (
	sourceHints  = "hints"
	sourceSyntax = "go"
)

// textDocumentDidOpen handles the textDocument/didOpen notification.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureNotify(ctx)
	uri := params.TextDocument.URI
	docs, name, ok := s.ws.resolve(uriToPath(uri))
	if !ok {
		s.log.Debug("ignoring document outside the workspace", "uri", uri)
		return nil
	}
	docs.Set(name, int32(params.TextDocument.Version), params.TextDocument.Text)
	s.checkAndPublish(uri)
	return nil
}

// textDocumentDidChange handles the textDocument/didChange notification.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(ctx)
	// With full sync, the last content change is the complete document.
	var content string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			content = c.Text
		}
	}

	uri := params.TextDocument.URI
	docs, name, ok := s.ws.resolve(uriToPath(uri))
	if !ok {
		return nil
	}
	docs.Set(name, int32(params.TextDocument.Version), content)

	// Debounce: delay checking to avoid thrashing during rapid edits.
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
	}
	s.debounce[uri] = time.AfterFunc(debounceDelay, func() {
		defer func() { _ = recover() }() // don't crash the server on a rule panic
		s.checkAndPublish(uri)
	})
	s.debounceMu.Unlock()
	return nil
}

// textDocumentDidSave handles the textDocument/didSave notification.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.captureNotify(ctx)
	s.cancelDebounce(params.TextDocument.URI)
	s.checkAndPublish(params.TextDocument.URI)
	return nil
}

// textDocumentDidClose handles the textDocument/didClose notification.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.cancelDebounce(uri)

	// Clear diagnostics for the closed file.
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	if docs, name, ok := s.ws.resolve(uriToPath(uri)); ok {
		docs.Close(name)
		s.ws.forget(name)
	}
	return nil
}

func (s *Server) cancelDebounce(uri string) {
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.debounceMu.Unlock()
}

// checkAndPublish checks a document and publishes the resulting diagnostics
// to the client.
func (s *Server) checkAndPublish(uri string) {
	res, err := s.check(uri)
	if err != nil {
		s.log.Error("check failed", "uri", uri, "err", err)
		return
	}
	if res == nil {
		return
	}
	version := safeUint(int(res.version))
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: res.protocolDiagnostics(),
	})
}

// check returns the diagnostics of the open Go document at uri, reusing the
// previous result while the document is unchanged. It returns nil for
// documents that are not served.
func (s *Server) check(uri string) (*result, error) {
	docs, name, ok := s.ws.resolve(uriToPath(uri))
	if !ok {
		return nil, nil
	}
	doc := docs.Get(name)
	if doc == nil || doc.LanguageID != document.LanguageGo {
		return nil, nil
	}
	version, text := doc.Version(), doc.Text()
	if prev := s.ws.result(name); prev != nil && prev.version == version && prev.text == text {
		return prev, nil
	}

	// The package directory may only exist in the editor.
	proj := docs.Project()
	if err := proj.CreateFolder(path.Dir(name)); err != nil {
		return nil, err
	}
	opts := []compiler.Option{compiler.WithOverlay(docs)}
	if s.tracer != nil {
		opts = append(opts, compiler.WithTracer(s.tracer))
	}
	ctx := context.Background()
	info, err := compiler.New(proj, opts...).Resolve(ctx, name, compiler.PhaseResolved)
	if err != nil {
		return nil, err
	}
	diags, err := s.engine.Check(ctx, info)
	if err != nil {
		return nil, err
	}

	res := &result{version: version, text: string(info.Src), diags: diags}
	for _, e := range info.Errors {
		if se, ok := e.(*scanner.Error); ok && se.Pos.Filename == name {
			res.syntax = append(res.syntax, se)
		}
	}
	s.ws.setResult(name, res)
	s.log.Debug("checked", "file", name, "version", version, "diagnostics", len(diags), "syntax", len(res.syntax))
	return res, nil
}

func (r *result) protocolDiagnostics() []protocol.Diagnostic {
	diags := make([]protocol.Diagnostic, 0, len(r.syntax)+len(r.diags))
	for _, e := range r.syntax {
		pos := offsetToPosition(r.text, e.Pos.Offset)
		diags = append(diags, protocol.Diagnostic{
			Range:    protocol.Range{Start: pos, End: pos},
			Severity: severity(protocol.DiagnosticSeverityError),
			Source:   strPtr(sourceSyntax),
			Message:  e.Msg,
		})
	}
	for _, d := range r.diags {
		diags = append(diags, convertDiagnostic(r.text, d))
	}
	return diags
}

// convertDiagnostic converts a hint.Diagnostic to an LSP Diagnostic.
func convertDiagnostic(text string, d *hint.Diagnostic) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: offsetToPosition(text, d.Range.Start.Offset),
			End:   offsetToPosition(text, d.Range.End.Offset),
		},
		Severity: severity(mapSeverity(d.Severity)),
		Source:   strPtr(sourceHints),
		Code:     &protocol.IntegerOrString{Value: d.Rule},
		Message:  d.Message,
	}
}

// mapSeverity converts a hint.Severity to a protocol.DiagnosticSeverity.
func mapSeverity(sev hint.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case hint.SeverityError:
		return protocol.DiagnosticSeverityError
	case hint.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case hint.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	case hint.SeverityHint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityWarning
	}
}

func severity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func strPtr(s string) *string {
	return &s
}
