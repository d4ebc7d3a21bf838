// Copyright © 2024 The ELPS authors

package fix

import (
	"fmt"

	"github.com/luthersystems/hints/document"
	"github.com/luthersystems/hints/hint"
)

// Options configures ApplyAll.
type Options struct {
	// Lazy allows fix sets that are not yet computed to be computed.
	Lazy bool
	// Skip lists fix kinds that are never applied, such as "suppress".
	Skip []string
}

// Applied records a fix that was applied.
type Applied struct {
	Rule  string
	Title string
	File  string
	Edits int
}

// Skipped records a fix that was not applied and why.
type Skipped struct {
	Rule   string
	Title  string
	Reason string
}

// Result is the outcome of ApplyAll.
type Result struct {
	Applied []Applied
	Skipped []Skipped
}

// ApplyAll applies the first eligible fix of every diagnostic, in order.
// Offsets of all fixes refer to the text the diagnostics were computed on;
// fixes overlapping one applied earlier are skipped.
func ApplyAll(docs *document.Store, diags []*hint.Diagnostic, opts Options) (*Result, error) {
	res := &Result{}
	applied := make(map[string][]hint.Edit)
	skip := make(map[string]bool, len(opts.Skip))
	for _, k := range opts.Skip {
		skip[k] = true
	}

	for _, d := range diags {
		fixes, ok := hint.Computed(d.Fixes)
		if !ok && opts.Lazy {
			fixes, ok = hint.Materialize(d.Fixes), true
		}
		if !ok {
			res.Skipped = append(res.Skipped, Skipped{Rule: d.Rule, Title: d.Message, Reason: "fixes not computed"})
			continue
		}
		var f *hint.Fix
		for _, cand := range fixes {
			if !skip[cand.ID.Kind] {
				f = cand
				break
			}
		}
		if f == nil {
			continue
		}
		if len(f.Edits) == 0 {
			res.Skipped = append(res.Skipped, Skipped{Rule: d.Rule, Title: f.Title, Reason: "fix has no edits"})
			continue
		}
		if conflictsWithApplied(applied, f.Edits) {
			res.Skipped = append(res.Skipped, Skipped{Rule: d.Rule, Title: f.Title, Reason: "conflicts with a previously applied fix"})
			continue
		}
		shifted := make([]hint.Edit, len(f.Edits))
		for i, e := range f.Edits {
			delta := cumulativeDelta(applied[e.File], e.Start)
			e.Start += delta
			e.End += delta
			shifted[i] = e
		}
		if err := applyEdits(docs, shifted); err != nil {
			res.Skipped = append(res.Skipped, Skipped{Rule: d.Rule, Title: f.Title, Reason: err.Error()})
			continue
		}
		for _, e := range f.Edits {
			applied[e.File] = append(applied[e.File], e)
		}
		res.Applied = append(res.Applied, Applied{Rule: d.Rule, Title: f.Title, File: d.Range.File, Edits: len(f.Edits)})
	}
	return res, nil
}

func conflictsWithApplied(applied map[string][]hint.Edit, edits []hint.Edit) bool {
	for _, e := range edits {
		for _, prev := range applied[e.File] {
			if spansConflict(prev, e) {
				return true
			}
		}
	}
	return false
}

// cumulativeDelta is how far text at pos has moved because of the applied
// edits before it.
func cumulativeDelta(applied []hint.Edit, pos int) int {
	delta := 0
	for _, e := range applied {
		if e.End <= pos {
			delta += len(e.NewText) - (e.End - e.Start)
		}
	}
	return delta
}

func (r *Result) String() string {
	return fmt.Sprintf("%d applied, %d skipped", len(r.Applied), len(r.Skipped))
}
