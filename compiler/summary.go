// Copyright © 2024 The ELPS authors

package compiler

import (
	"github.com/luthersystems/hints/project"
)

// FileDigest identifies the content a file had when it was resolved.
type FileDigest struct {
	Name   string
	Digest project.Digest
}

// Summary is the cached record of a resolution.
type Summary struct {
	Package string
	Phase   Phase
	Files   []FileDigest
	Errors  []string
}

func summaryKey(name string) string {
	return "resolve/" + project.Clean(name)
}

// Summary describes info in a form suitable for caching.
func (info *Info) Summary() *Summary {
	s := &Summary{Phase: info.Phase}
	if info.File != nil && info.File.Name != nil {
		s.Package = info.File.Name.Name
	}
	for _, f := range info.Files {
		name := info.Fset.Position(f.FileStart).Filename
		s.Files = append(s.Files, FileDigest{Name: name, Digest: project.DigestOf(info.sources[name])})
	}
	for _, err := range info.Errors {
		s.Errors = append(s.Errors, err.Error())
	}
	return s
}

func (r *Resolver) storeSummary(info *Info) error {
	return r.proj.Cache().Put(summaryKey(info.Name), info.Summary())
}

// ReadSummary returns the summary stored by the last resolution of name.
func ReadSummary(proj *project.Project, name string) (*Summary, bool, error) {
	var s Summary
	ok, err := proj.Cache().Get(summaryKey(name), &s)
	if err != nil || !ok {
		return nil, false, err
	}
	return &s, true, nil
}
