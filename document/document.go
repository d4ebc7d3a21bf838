// Copyright © 2024 The ELPS authors

// Package document tracks editable text documents backed by a project's
// source root.
package document

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/luthersystems/hints/project"
)

// Language identity of Go documents.
const (
	LanguageGo = "go"
	MimeGo     = "text/x-go"
)

// ErrRange is returned when an edit falls outside the document.
var ErrRange = errors.New("document: edit out of range")

// Document is an open text document. It is safe for concurrent use.
type Document struct {
	Name       string
	LanguageID string
	MimeType   string

	mu      sync.Mutex
	version int32
	text    string
	dirty   bool
}

// Text returns the current content.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Version returns the edit generation of the document.
func (d *Document) Version() int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Dirty reports whether the document has unsaved edits.
func (d *Document) Dirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

// SetText replaces the whole content and marks the document dirty.
func (d *Document) SetText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.version++
	d.dirty = true
}

// Edit replaces the byte range [start, end) with newText.
func (d *Document) Edit(start, end int, newText string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if start < 0 || end < start || end > len(d.text) {
		return fmt.Errorf("%w: [%d,%d) in %s of length %d", ErrRange, start, end, d.Name, len(d.text))
	}
	d.text = d.text[:start] + newText + d.text[end:]
	d.version++
	d.dirty = true
	return nil
}

func (d *Document) markSaved() {
	d.mu.Lock()
	d.dirty = false
	d.mu.Unlock()
}

func languageOf(name string) (string, string) {
	if path.Ext(name) == ".go" {
		return LanguageGo, MimeGo
	}
	return "plaintext", "text/plain"
}

// Store holds the open documents of one project, keyed by their
// source-root-relative name.
type Store struct {
	proj *project.Project

	mu   sync.RWMutex
	docs map[string]*Document
}

// NewStore returns an empty store backed by proj.
func NewStore(proj *project.Project) *Store {
	return &Store{proj: proj, docs: make(map[string]*Document)}
}

// Project returns the backing project.
func (s *Store) Project() *project.Project {
	return s.proj
}

// Open returns the open document for name, loading it from the project on
// first use. A file that does not exist yet opens as an empty dirty document
// that SaveAll will create.
func (s *Store) Open(name string) (*Document, error) {
	name = project.Clean(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[name]; ok {
		return doc, nil
	}
	lang, mime := languageOf(name)
	doc := &Document{Name: name, LanguageID: lang, MimeType: mime}
	f, err := s.proj.Find(name)
	if err != nil {
		return nil, err
	}
	if f == nil {
		doc.dirty = true
	} else {
		b, err := s.proj.ReadFile(name)
		if err != nil {
			return nil, err
		}
		doc.text = string(b)
	}
	s.docs[name] = doc
	return doc, nil
}

// Set installs editor-provided content for name. The content is owned by the
// editor so the document is not considered dirty.
func (s *Store) Set(name string, version int32, content string) *Document {
	name = project.Clean(name)
	s.mu.Lock()
	doc, ok := s.docs[name]
	if !ok {
		lang, mime := languageOf(name)
		doc = &Document{Name: name, LanguageID: lang, MimeType: mime}
		s.docs[name] = doc
	}
	s.mu.Unlock()

	doc.mu.Lock()
	doc.version = version
	doc.text = content
	doc.dirty = false
	doc.mu.Unlock()
	return doc
}

// Get returns the open document for name or nil.
func (s *Store) Get(name string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[project.Clean(name)]
}

// Close forgets the document. Unsaved edits are discarded.
func (s *Store) Close(name string) {
	s.mu.Lock()
	delete(s.docs, project.Clean(name))
	s.mu.Unlock()
}

// All returns the open documents ordered by name.
func (s *Store) All() []*Document {
	s.mu.RLock()
	docs := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	s.mu.RUnlock()
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs
}

// Contents returns the text of an open document. It is the overlay consulted
// by the compiler before the project's files.
func (s *Store) Contents(name string) ([]byte, bool) {
	doc := s.Get(name)
	if doc == nil {
		return nil, false
	}
	return []byte(doc.Text()), true
}

// SaveAll writes every dirty document back to the project.
func (s *Store) SaveAll() error {
	for _, doc := range s.All() {
		if !doc.Dirty() {
			continue
		}
		if err := s.proj.WriteFile(doc.Name, []byte(doc.Text())); err != nil {
			return fmt.Errorf("document: save %s: %w", doc.Name, err)
		}
		doc.markSaved()
	}
	return nil
}

// Names returns the names of the open documents in order.
func (s *Store) Names() []string {
	docs := s.All()
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return names
}
