// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/luthersystems/hints/project"
)

// expandArgs expands arguments into Go files. A pattern ending with "/..."
// yields every .go file below the directory (skipping hidden directories,
// vendor and testdata), a directory yields the .go files directly inside it,
// and anything else passes through unchanged. Paths matching an exclude
// pattern are dropped.
func expandArgs(fs afero.Fs, args, excludes []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if dir, ok := strings.CutSuffix(arg, "/..."); ok {
			if dir == "" {
				dir = "."
			}
			files, err := project.GoFiles(fs, dir)
			if err != nil {
				return nil, fmt.Errorf("expanding %s: %w", arg, err)
			}
			out = append(out, files...)
			continue
		}
		isDir, err := afero.IsDir(fs, arg)
		if err != nil || !isDir {
			out = append(out, arg)
			continue
		}
		files, err := goFilesIn(fs, arg)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", arg, err)
		}
		out = append(out, files...)
	}
	return filterExcludes(out, excludes), nil
}

func goFilesIn(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".go" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// filterExcludes drops paths matching any of the exclude patterns.
func filterExcludes(paths, excludes []string) []string {
	if len(excludes) == 0 {
		return paths
	}
	var out []string
	for _, p := range paths {
		if !matchesAny(p, excludes) {
			out = append(out, p)
		}
	}
	return out
}

// matchesAny reports whether a pattern matches the whole path or any one of
// its components, so "vendor" excludes a directory at any depth and
// "*_gen.go" a file in any directory.
func matchesAny(path string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, path); ok {
			return true
		}
		for _, c := range splitPath(path) {
			if ok, _ := filepath.Match(pat, c); ok {
				return true
			}
		}
	}
	return false
}

func splitPath(path string) []string {
	return strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
}
