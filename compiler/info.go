// Copyright © 2024 The ELPS authors

package compiler

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/luthersystems/hints/project"
)

// ErrOffset is returned for offsets outside a file.
var ErrOffset = errors.New("compiler: offset out of range")

// Info is the result of resolving one file.
type Info struct {
	Project *project.Project
	// Name is the source-root-relative name of the resolved file.
	Name  string
	Phase Phase

	Fset    *token.FileSet
	File    *ast.File
	TokFile *token.File
	Src     []byte
	// Files holds every file of the package, File first.
	Files []*ast.File

	// Pkg and TypesInfo are set at PhaseResolved.
	Pkg       *types.Package
	TypesInfo *types.Info

	// Errors holds syntax and type errors in the order they were found.
	Errors []error

	sources map[string][]byte
}

// Path is a chain of syntax nodes enclosing a position, innermost first.
// The last element is always the *ast.File.
type Path []ast.Node

// Leaf returns the innermost node.
func (p Path) Leaf() ast.Node {
	if len(p) == 0 {
		return nil
	}
	return p[0]
}

// Parent returns the node enclosing the leaf, or nil.
func (p Path) Parent() ast.Node {
	if len(p) < 2 {
		return nil
	}
	return p[1]
}

// Size is the length of the resolved file in bytes.
func (info *Info) Size() int {
	return info.TokFile.Size()
}

// PathFor returns the nodes enclosing the byte offset. The offset may equal
// the file size.
func (info *Info) PathFor(offset int) (Path, error) {
	if offset < 0 || offset > info.TokFile.Size() {
		return nil, fmt.Errorf("%w: %d not in [0,%d]", ErrOffset, offset, info.TokFile.Size())
	}
	pos := info.TokFile.Pos(offset)
	nodes, _ := astutil.PathEnclosingInterval(info.File, pos, pos)
	return Path(nodes), nil
}

// Pos converts a byte offset of the resolved file to a token.Pos.
func (info *Info) Pos(offset int) token.Pos {
	return info.TokFile.Pos(offset)
}

// Offset converts pos to a byte offset within its file.
func (info *Info) Offset(pos token.Pos) int {
	return info.Fset.Position(pos).Offset
}

// Position expands pos.
func (info *Info) Position(pos token.Pos) token.Position {
	return info.Fset.Position(pos)
}

// Source returns the text of the named package file as it was parsed.
func (info *Info) Source(name string) ([]byte, bool) {
	b, ok := info.sources[project.Clean(name)]
	return b, ok
}

// Text returns the source text spanned by n.
func (info *Info) Text(n ast.Node) string {
	start := info.Fset.Position(n.Pos())
	end := info.Fset.Position(n.End())
	src, ok := info.sources[start.Filename]
	if !ok || start.Filename != end.Filename || start.Offset > end.Offset || end.Offset > len(src) {
		return ""
	}
	return string(src[start.Offset:end.Offset])
}

// FileOf returns the package file containing pos.
func (info *Info) FileOf(pos token.Pos) *ast.File {
	for _, f := range info.Files {
		if f.FileStart <= pos && pos <= f.FileEnd {
			return f
		}
	}
	return nil
}

// TypeErrorsAt returns the type errors whose position is pos.
func (info *Info) TypeErrorsAt(pos token.Pos) []types.Error {
	var out []types.Error
	for _, err := range info.Errors {
		var terr types.Error
		if errors.As(err, &terr) && terr.Pos == pos {
			out = append(out, terr)
		}
	}
	return out
}
