// Copyright © 2024 The ELPS authors

package document

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/hints/project"
)

func newStore(t *testing.T) (*Store, *project.Project) {
	t.Helper()
	p, err := project.New(afero.NewMemMapFs(), "/work")
	require.NoError(t, err)
	return NewStore(p), p
}

func TestOpenLoadsFromProject(t *testing.T) {
	s, p := newStore(t)
	_, err := p.CreateFile("test.go", "package test\n")
	require.NoError(t, err)

	doc, err := s.Open("test.go")
	require.NoError(t, err)
	assert.Equal(t, "package test\n", doc.Text())
	assert.Equal(t, LanguageGo, doc.LanguageID)
	assert.Equal(t, MimeGo, doc.MimeType)
	assert.False(t, doc.Dirty())

	again, err := s.Open("./test.go")
	require.NoError(t, err)
	assert.Same(t, doc, again)
}

func TestOpenMissingCreatesOnSave(t *testing.T) {
	s, p := newStore(t)
	doc, err := s.Open("pkg/new.go")
	require.NoError(t, err)
	assert.Equal(t, "", doc.Text())
	assert.True(t, doc.Dirty())

	require.NoError(t, doc.Edit(0, 0, "package pkg\n"))
	require.NoError(t, s.SaveAll())
	assert.False(t, doc.Dirty())

	b, err := p.ReadFile("pkg/new.go")
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n", string(b))
}

func TestEdit(t *testing.T) {
	s, p := newStore(t)
	_, err := p.CreateFile("a.go", "hello world")
	require.NoError(t, err)
	doc, err := s.Open("a.go")
	require.NoError(t, err)

	v := doc.Version()
	require.NoError(t, doc.Edit(6, 11, "there"))
	assert.Equal(t, "hello there", doc.Text())
	assert.Greater(t, doc.Version(), v)
	assert.True(t, doc.Dirty())

	err = doc.Edit(5, 100, "x")
	assert.ErrorIs(t, err, ErrRange)
	err = doc.Edit(4, 3, "x")
	assert.ErrorIs(t, err, ErrRange)
	assert.Equal(t, "hello there", doc.Text())
}

func TestSetIsEditorOwned(t *testing.T) {
	s, p := newStore(t)
	doc := s.Set("b.go", 3, "package b\n")
	assert.Equal(t, int32(3), doc.Version())
	assert.False(t, doc.Dirty())

	b, ok := s.Contents("b.go")
	require.True(t, ok)
	assert.Equal(t, "package b\n", string(b))

	require.NoError(t, s.SaveAll())
	f, err := p.Find("b.go")
	require.NoError(t, err)
	assert.Nil(t, f, "editor content is never written")

	s.Close("b.go")
	assert.Nil(t, s.Get("b.go"))
	_, ok = s.Contents("b.go")
	assert.False(t, ok)
}

func TestAllSorted(t *testing.T) {
	s, _ := newStore(t)
	s.Set("c.go", 1, "")
	s.Set("a.go", 1, "")
	s.Set("b.txt", 1, "")
	var names []string
	for _, d := range s.All() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"a.go", "b.txt", "c.go"}, names)
	assert.Equal(t, "plaintext", s.Get("b.txt").LanguageID)
}
