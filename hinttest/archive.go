// Copyright © 2024 The ELPS authors

package hinttest

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/txtar"
	"github.com/stretchr/testify/require"
)

// GoldenSection is the archive file holding the expected text after a fix.
const GoldenSection = "golden"

// Case is one fixture read from a txtar archive.
//
// The archive comment holds "key: value" directives:
//
//	file: test.go           fixture file, default the first file
//	want: <diagnostic>      expected diagnostic, repeatable
//	diagnostic: <identity>  diagnostic whose fix is applied
//	fix: <identity>         fix to apply
//	golden-file: <name>     file compared after the fix, default the fixture
//	sweep                   check want at every offset
//
// Lines starting with # are ignored. The file named golden holds the
// expected text; every other file is written to the workspace.
type Case struct {
	Name       string
	File       string
	Want       []string
	Diagnostic string
	Fix        string
	GoldenFile string
	Golden     *string
	Sweep      bool
	Files      map[string]string
}

// ParseCase decodes an archive.
func ParseCase(name string, ar *txtar.Archive) (*Case, error) {
	c := &Case{Name: name, Files: make(map[string]string)}
	for _, f := range ar.Files {
		if f.Name == GoldenSection {
			golden := string(f.Data)
			c.Golden = &golden
			continue
		}
		if c.File == "" {
			c.File = f.Name
		}
		c.Files[f.Name] = string(f.Data)
	}

	sc := bufio.NewScanner(strings.NewReader(string(ar.Comment)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, _ := strings.Cut(line, ":")
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "file":
			c.File = value
		case "want":
			c.Want = append(c.Want, value)
		case "diagnostic":
			c.Diagnostic = value
		case "fix":
			c.Fix = value
		case "golden-file":
			c.GoldenFile = value
		case "sweep":
			c.Sweep = true
		default:
			return nil, fmt.Errorf("%s: unknown directive %q", name, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if _, ok := c.Files[c.File]; !ok {
		return nil, fmt.Errorf("%s: no fixture file %q", name, c.File)
	}
	if (c.Fix == "") != (c.Diagnostic == "") {
		return nil, fmt.Errorf("%s: fix and diagnostic go together", name)
	}
	if c.Fix != "" && c.Sweep {
		return nil, fmt.Errorf("%s: a sweep cannot apply a fix", name)
	}
	if c.GoldenFile == "" {
		c.GoldenFile = c.File
	}
	return c, nil
}

// Archive runs the case stored in the txtar file at path.
func (tt *Tester) Archive(path string) {
	tt.t.Helper()
	ar, err := txtar.ParseFile(path)
	require.NoError(tt.t, err)
	c, err := ParseCase(filepath.Base(path), ar)
	require.NoError(tt.t, err)
	tt.Case(c)
}

// Archives runs every archive matching pattern, each in a subtest when the
// Tester wraps a *testing.T.
func (tt *Tester) Archives(pattern string) {
	tt.t.Helper()
	paths, err := filepath.Glob(pattern)
	require.NoError(tt.t, err)
	require.NotEmpty(tt.t, paths, "no archives match %s", pattern)
	t, ok := tt.t.(*testing.T)
	for _, path := range paths {
		if !ok {
			tt.Archive(path)
			continue
		}
		t.Run(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), func(t *testing.T) {
			sub := *tt
			sub.t = t
			if sub.testLog {
				sub.log = NewTestLogger(t)
			}
			sub.Archive(path)
		})
	}
}

// Case runs c.
func (tt *Tester) Case(c *Case) {
	tt.t.Helper()
	extra := make(map[string]string, len(c.Files))
	for name, content := range c.Files {
		if name != c.File {
			extra[name] = content
		}
	}
	sub := *tt
	sub.extra = make(map[string]string, len(tt.extra)+len(extra))
	for name, content := range tt.extra {
		sub.extra[name] = content
	}
	for name, content := range extra {
		sub.extra[name] = content
	}

	code := c.Files[c.File]
	switch {
	case c.Sweep:
		sub.Sweep(c.File, code, c.Want...)
	case c.Fix != "":
		code, offset := sub.detect(code)
		sub.fixAt(c.File, code, offset, c.Diagnostic, c.Fix, c.GoldenFile, c.Golden)
	default:
		sub.Analysis(c.File, code, c.Want...)
	}
}
