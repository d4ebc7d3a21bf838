// Copyright © 2024 The ELPS authors

package compiler

import (
	"bufio"
	"bytes"
	"fmt"
	"go/ast"
	"go/importer"
	"go/token"
	"go/types"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/tools/go/gcexportdata"
)

// The standard library importer is shared by every resolver. Loading export
// data is the expensive part of resolution and its packages never change
// within a process.
var stdlib struct {
	once sync.Once
	mu   sync.Mutex
	imp  types.Importer
}

func importStd(path string) (*types.Package, error) {
	stdlib.once.Do(func() {
		stdlib.imp = importer.ForCompiler(token.NewFileSet(), "gc", nil)
	})
	stdlib.mu.Lock()
	defer stdlib.mu.Unlock()
	return stdlib.imp.Import(path)
}

// sourceImporter resolves imports for one resolution. Packages found under
// the project's source root are type-checked from source, written to the
// build root as export data and read back. Everything else comes from the
// standard library importer.
type sourceImporter struct {
	r         *Resolver
	fset      *token.FileSet
	packages  map[string]*types.Package
	importing map[string]bool
}

func newImporter(r *Resolver, fset *token.FileSet) *sourceImporter {
	return &sourceImporter{
		r:         r,
		fset:      fset,
		packages:  map[string]*types.Package{"unsafe": types.Unsafe},
		importing: make(map[string]bool),
	}
}

func (im *sourceImporter) Import(path string) (*types.Package, error) {
	if pkg, ok := im.packages[path]; ok && pkg.Complete() {
		return pkg, nil
	}
	if im.r.proj.IsPackageDir(path) {
		return im.importLocal(path)
	}
	pkg, err := importStd(path)
	if err != nil {
		return nil, err
	}
	im.register(pkg)
	return pkg, nil
}

// register records pkg and its transitive imports so export data read later
// links against the same package objects.
func (im *sourceImporter) register(pkg *types.Package) {
	if p, ok := im.packages[pkg.Path()]; ok && p.Complete() {
		return
	}
	im.packages[pkg.Path()] = pkg
	for _, dep := range pkg.Imports() {
		im.register(dep)
	}
}

func (im *sourceImporter) importLocal(path string) (*types.Package, error) {
	if im.importing[path] {
		return nil, fmt.Errorf("import cycle through %s", path)
	}
	im.importing[path] = true
	defer delete(im.importing, path)

	names, err := im.r.proj.PackageFiles(path)
	if err != nil {
		return nil, err
	}
	var files []*ast.File
	var errs []error
	for _, name := range names {
		f, _, _, err := im.r.parse(im.fset, name, &errs)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("import %s: %w", path, errs[0])
	}
	conf := types.Config{Importer: im}
	pkg, err := conf.Check(path, im.fset, files, nil)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return im.roundTrip(pkg)
}

// roundTrip stores the export data of pkg under the build root and loads the
// package back from it.
func (im *sourceImporter) roundTrip(pkg *types.Package) (*types.Package, error) {
	fs := im.r.proj.Fs
	out := filepath.Join(im.r.proj.BuildRoot, filepath.FromSlash(pkg.Path())+".x")
	var buf bytes.Buffer
	if err := gcexportdata.Write(&buf, im.fset, pkg); err != nil {
		return nil, fmt.Errorf("export %s: %w", pkg.Path(), err)
	}
	if err := fs.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, err
	}
	if err := afero.WriteFile(fs, out, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}

	f, err := fs.Open(out)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	for _, dep := range pkg.Imports() {
		im.register(dep)
	}
	loaded, err := gcexportdata.Read(bufio.NewReader(f), im.fset, im.packages, pkg.Path())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", pkg.Path(), err)
	}
	return loaded, nil
}
