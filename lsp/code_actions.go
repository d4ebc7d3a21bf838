// Copyright © 2024 The ELPS authors

package lsp

import (
	"slices"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/hints/document"
	"github.com/luthersystems/hints/hint"
)

// textDocumentCodeAction handles the textDocument/codeAction request. Every
// fix of every diagnostic overlapping the requested range becomes a
// quick-fix action.
func (s *Server) textDocumentCodeAction(_ *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	// If the client only wants specific kinds, check we support them.
	if len(params.Context.Only) > 0 && !slices.Contains(params.Context.Only, protocol.CodeActionKindQuickFix) {
		return nil, nil
	}

	uri := params.TextDocument.URI
	res, err := s.check(uri)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	docs, name, _ := s.ws.resolve(uriToPath(uri))

	start := positionToOffset(res.text, params.Range.Start)
	end := positionToOffset(res.text, params.Range.End)

	var actions []protocol.CodeAction
	for _, d := range res.diags {
		if d.Range.End.Offset < start || d.Range.Start.Offset > end {
			continue
		}
		diag := convertDiagnostic(res.text, d)
		for i, f := range hint.Materialize(d.Fixes) {
			edit, err := s.workspaceEdit(docs, name, res, f)
			if err != nil {
				s.log.Warn("skipping fix", "rule", d.Rule, "fix", f.Title, "err", err)
				continue
			}
			kind := protocol.CodeActionKindQuickFix
			action := protocol.CodeAction{
				Title:       f.Title,
				Kind:        &kind,
				Diagnostics: []protocol.Diagnostic{diag},
				Edit:        edit,
			}
			if i == 0 && f.ID.Kind != "suppress" {
				action.IsPreferred = boolPtr(true)
			}
			actions = append(actions, action)
		}
	}

	if len(actions) == 0 {
		return nil, nil
	}
	return actions, nil
}

// workspaceEdit converts f to a WorkspaceEdit. Edit offsets refer to the
// text the diagnostics were computed on for the checked document, and to the
// current text for any other file. A fix writing a file that does not exist
// yet creates it first.
func (s *Server) workspaceEdit(docs *document.Store, name string, res *result, f *hint.Fix) (*protocol.WorkspaceEdit, error) {
	var (
		order   []string
		created []string
		byFile  = make(map[string][]protocol.TextEdit)
	)
	for _, e := range f.Edits {
		text, exists, err := s.textOf(docs, name, res, e.File)
		if err != nil {
			return nil, err
		}
		if _, ok := byFile[e.File]; !ok {
			order = append(order, e.File)
			if !exists {
				created = append(created, e.File)
			}
		}
		byFile[e.File] = append(byFile[e.File], protocol.TextEdit{
			Range: protocol.Range{
				Start: offsetToPosition(text, e.Start),
				End:   offsetToPosition(text, e.End),
			},
			NewText: e.NewText,
		})
	}

	if len(created) == 0 {
		changes := make(map[protocol.DocumentUri][]protocol.TextEdit, len(byFile))
		for file, edits := range byFile {
			changes[s.uriOf(file)] = edits
		}
		return &protocol.WorkspaceEdit{Changes: changes}, nil
	}

	var changes []any
	for _, file := range created {
		changes = append(changes, protocol.CreateFile{Kind: "create", URI: s.uriOf(file)})
	}
	for _, file := range order {
		edits := make([]any, len(byFile[file]))
		for i, e := range byFile[file] {
			edits[i] = e
		}
		changes = append(changes, protocol.TextDocumentEdit{
			TextDocument: protocol.OptionalVersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: s.uriOf(file)},
			},
			Edits: edits,
		})
	}
	return &protocol.WorkspaceEdit{DocumentChanges: changes}, nil
}

// textOf returns the text edits to file are relative to and whether file
// exists.
func (s *Server) textOf(docs *document.Store, name string, res *result, file string) (string, bool, error) {
	if file == name {
		return res.text, true, nil
	}
	if doc := docs.Get(file); doc != nil {
		return doc.Text(), true, nil
	}
	proj := docs.Project()
	found, err := proj.Find(file)
	if err != nil || found == nil {
		return "", false, err
	}
	b, err := proj.ReadFile(file)
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (s *Server) uriOf(name string) protocol.DocumentUri {
	return pathToURI(s.ws.pathOf(name))
}
