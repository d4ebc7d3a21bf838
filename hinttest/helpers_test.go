// Copyright © 2024 The ELPS authors

package hinttest

import "github.com/rogpeppe/go-internal/txtar"

// txtarOf builds an archive from a comment and name/content pairs.
func txtarOf(comment string, files ...string) *txtar.Archive {
	ar := &txtar.Archive{Comment: []byte(comment)}
	for i := 0; i+1 < len(files); i += 2 {
		ar.Files = append(ar.Files, txtar.File{Name: files[i], Data: []byte(files[i+1])})
	}
	return ar
}
