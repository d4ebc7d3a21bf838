// Copyright © 2024 The ELPS authors

// Package fix applies hint fixes to documents.
package fix

import (
	"errors"
	"fmt"
	"sort"

	"github.com/luthersystems/hints/document"
	"github.com/luthersystems/hints/hint"
)

var (
	// ErrNoEdits is returned for a fix without edits.
	ErrNoEdits = errors.New("fix: fix has no edits")
	// ErrConflict is returned when edits of one fix overlap.
	ErrConflict = errors.New("fix: overlapping edits")
	// ErrStale is returned when an edit's range does not hold the text it
	// expects, or lies outside the document.
	ErrStale = errors.New("fix: document does not match edit")
)

// Apply performs every edit of f on the documents of docs, opening them as
// needed. Files that do not exist yet are created empty. Either all edits
// apply or none do.
func Apply(docs *document.Store, f *hint.Fix) error {
	if f == nil || len(f.Edits) == 0 {
		return ErrNoEdits
	}
	return applyEdits(docs, f.Edits)
}

func applyEdits(docs *document.Store, edits []hint.Edit) error {
	files, buckets := groupByFile(edits)
	opened := make(map[string]*document.Document, len(files))
	for _, name := range files {
		doc, err := docs.Open(name)
		if err != nil {
			return err
		}
		if err := validate(doc.Text(), buckets[name]); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		opened[name] = doc
	}
	for _, name := range files {
		doc := opened[name]
		for _, e := range buckets[name] {
			if err := doc.Edit(e.Start, e.End, e.NewText); err != nil {
				return err
			}
		}
	}
	return nil
}

// groupByFile buckets edits per file, each bucket sorted back to front so
// earlier offsets stay valid while later ones are applied.
func groupByFile(edits []hint.Edit) ([]string, map[string][]hint.Edit) {
	var files []string
	buckets := make(map[string][]hint.Edit)
	for _, e := range edits {
		if _, ok := buckets[e.File]; !ok {
			files = append(files, e.File)
		}
		buckets[e.File] = append(buckets[e.File], e)
	}
	for _, name := range files {
		b := buckets[name]
		sort.SliceStable(b, func(i, j int) bool {
			if b[i].Start == b[j].Start {
				return b[i].End > b[j].End
			}
			return b[i].Start > b[j].Start
		})
	}
	return files, buckets
}

// validate checks back-to-front sorted edits against text.
func validate(text string, edits []hint.Edit) error {
	for i, e := range edits {
		if e.Start < 0 || e.End < e.Start || e.End > len(text) {
			return fmt.Errorf("%w: range [%d,%d) outside text of length %d", ErrStale, e.Start, e.End, len(text))
		}
		if e.OldText != "" && text[e.Start:e.End] != e.OldText {
			return fmt.Errorf("%w: expected %q at [%d,%d), found %q", ErrStale, e.OldText, e.Start, e.End, text[e.Start:e.End])
		}
		if i > 0 && spansConflict(e, edits[i-1]) {
			return fmt.Errorf("%w: [%d,%d) and [%d,%d)", ErrConflict, e.Start, e.End, edits[i-1].Start, edits[i-1].End)
		}
	}
	return nil
}

// spansConflict reports whether two edits overlap as half-open intervals.
// Two insertions never conflict; an insertion conflicts with a replacement
// strictly containing its position.
func spansConflict(a, b hint.Edit) bool {
	if a.Start == a.End && b.Start == b.End {
		return false
	}
	if a.Start == a.End {
		return b.Start < a.Start && a.Start < b.End
	}
	if b.Start == b.End {
		return a.Start < b.Start && b.Start < a.End
	}
	return a.Start < b.End && b.Start < a.End
}
