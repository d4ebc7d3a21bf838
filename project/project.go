// Copyright © 2024 The ELPS authors

// Package project models the on-disk layout a hint run works against: a
// source root holding Go files, a build root receiving compiler artifacts,
// and a cache root for persisted records. All access goes through an
// afero.Fs so tests can run against memory or a scratch directory.
package project

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Names of the three areas created under a project root.
const (
	SourceDir = "src"
	BuildDir  = "build"
	CacheDir  = "cache"
)

// Project is a set of disjoint roots on a file system.
type Project struct {
	Fs         afero.Fs
	SourceRoot string
	BuildRoot  string
	CacheRoot  string
}

// File is a resolved source file.
type File struct {
	// Name is the slash-separated path relative to the source root.
	Name string
	// Path is the location on the project file system.
	Path string
	Size int64
}

// New creates the source, build and cache areas under root and returns the
// project bound to them.
func New(fsys afero.Fs, root string) (*Project, error) {
	p := &Project{
		Fs:         fsys,
		SourceRoot: filepath.Join(root, SourceDir),
		BuildRoot:  filepath.Join(root, BuildDir),
		CacheRoot:  filepath.Join(root, CacheDir),
	}
	for _, dir := range []string{p.SourceRoot, p.BuildRoot, p.CacheRoot} {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("project: create %s: %w", dir, err)
		}
	}
	return p, nil
}

// Open binds a project to existing roots without creating anything.
func Open(fsys afero.Fs, sourceRoot, buildRoot, cacheRoot string) *Project {
	return &Project{
		Fs:         fsys,
		SourceRoot: sourceRoot,
		BuildRoot:  buildRoot,
		CacheRoot:  cacheRoot,
	}
}

// Path maps a source-root-relative name onto the project file system.
func (p *Project) Path(name string) string {
	return filepath.Join(p.SourceRoot, filepath.FromSlash(Clean(name)))
}

// CreateFolder creates a directory (and parents) under the source root.
func (p *Project) CreateFolder(name string) error {
	if err := p.Fs.MkdirAll(p.Path(name), 0o755); err != nil {
		return fmt.Errorf("project: create folder %s: %w", name, err)
	}
	return nil
}

// CreateFile writes content verbatim to name under the source root, creating
// parent directories as needed.
func (p *Project) CreateFile(name, content string) (*File, error) {
	full := p.Path(name)
	if err := p.Fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("project: create file %s: %w", name, err)
	}
	if err := afero.WriteFile(p.Fs, full, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("project: create file %s: %w", name, err)
	}
	return &File{Name: Clean(name), Path: full, Size: int64(len(content))}, nil
}

// WriteFile replaces the content of an existing or new source file.
func (p *Project) WriteFile(name string, content []byte) error {
	_, err := p.CreateFile(name, string(content))
	return err
}

// Find resolves name against the source root. It returns nil without an error
// when the file does not exist.
func (p *Project) Find(name string) (*File, error) {
	full := p.Path(name)
	info, err := p.Fs.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("project: find %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, nil
	}
	return &File{Name: Clean(name), Path: full, Size: info.Size()}, nil
}

// ReadFile returns the content of a source-root-relative file.
func (p *Project) ReadFile(name string) ([]byte, error) {
	b, err := afero.ReadFile(p.Fs, p.Path(name))
	if err != nil {
		return nil, fmt.Errorf("project: read %s: %w", name, err)
	}
	return b, nil
}

// IsPackageDir reports whether dir (relative to the source root) contains at
// least one Go file.
func (p *Project) IsPackageDir(dir string) bool {
	files, err := p.PackageFiles(dir)
	return err == nil && len(files) > 0
}

// PackageFiles returns the sorted names of the .go files directly inside dir,
// relative to the source root.
func (p *Project) PackageFiles(dir string) ([]string, error) {
	entries, err := afero.ReadDir(p.Fs, p.Path(dir))
	if err != nil {
		return nil, fmt.Errorf("project: list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".go" {
			continue
		}
		names = append(names, path.Join(Clean(dir), e.Name()))
	}
	sort.Strings(names)
	return names, nil
}

// GoFiles walks root on fsys and returns every .go file below it. Hidden
// directories, vendor and testdata are skipped.
func GoFiles(fsys afero.Fs, root string) ([]string, error) {
	var files []string
	err := afero.Walk(fsys, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if p != root && shouldSkipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(p) == ".go" {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func shouldSkipDir(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	return name == "vendor" || name == "testdata"
}

// Clean normalizes a source-root-relative name to slash form without a
// leading separator. The empty name denotes the root itself.
func Clean(name string) string {
	name = path.Clean(filepath.ToSlash(name))
	name = strings.TrimPrefix(name, "/")
	if name == "." {
		return ""
	}
	return name
}
