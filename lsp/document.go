// Copyright © 2024 The ELPS authors

package lsp

import (
	"go/scanner"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/luthersystems/hints/document"
	"github.com/luthersystems/hints/hint"
	"github.com/luthersystems/hints/project"
)

// workspace binds the editor's open documents to a project rooted at the
// client's workspace folder. Without a folder the root becomes the directory
// of the first opened file.
type workspace struct {
	fs        afero.Fs
	buildRoot string
	cacheRoot string

	mu      sync.Mutex
	root    string
	docs    *document.Store
	results map[string]*result
}

// result is the outcome of the last check of a document.
type result struct {
	version int32
	text    string
	syntax  []*scanner.Error
	diags   []*hint.Diagnostic
}

func newWorkspace(fs afero.Fs, buildRoot, cacheRoot string) *workspace {
	return &workspace{
		fs:        fs,
		buildRoot: buildRoot,
		cacheRoot: cacheRoot,
		results:   make(map[string]*result),
	}
}

// setRoot binds the project to root unless one is bound already.
func (w *workspace) setRoot(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bindLocked(root)
}

func (w *workspace) bindLocked(root string) {
	if w.docs != nil {
		return
	}
	w.root = filepath.Clean(root)
	w.docs = document.NewStore(project.Open(w.fs, w.root, w.buildRoot, w.cacheRoot))
}

// resolve maps a file path to the project name of the document and the store
// holding it. Files outside the root are not served.
func (w *workspace) resolve(path string) (*document.Store, string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bindLocked(filepath.Dir(path))
	rel, err := filepath.Rel(w.root, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, "", false
	}
	return w.docs, project.Clean(rel), true
}

// pathOf is the inverse of resolve.
func (w *workspace) pathOf(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return filepath.Join(w.root, filepath.FromSlash(name))
}

func (w *workspace) result(name string) *result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.results[name]
}

func (w *workspace) setResult(name string, r *result) {
	w.mu.Lock()
	w.results[name] = r
	w.mu.Unlock()
}

func (w *workspace) forget(name string) {
	w.mu.Lock()
	delete(w.results, name)
	w.mu.Unlock()
}
