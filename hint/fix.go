// Copyright © 2024 The ELPS authors

package hint

// FixID identifies a fix structurally: the rule that offers it and a kind
// unique within that rule.
type FixID struct {
	Rule string
	Kind string
}

// Fix is a named source transformation.
type Fix struct {
	ID    FixID
	Title string
	Edits []Edit
}

// String returns the debug identity of the fix, its title.
func (f *Fix) String() string {
	return f.Title
}

// Edit replaces the byte range [Start, End) of File with NewText. When
// OldText is set the range must currently hold exactly that text.
type Edit struct {
	File    string `json:"file"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	NewText string `json:"newText"`
	OldText string `json:"oldText,omitempty"`
}

// FixSet is the set of fixes attached to a diagnostic. It is either Fixes,
// already computed, or LazyFixes, computed on demand.
type FixSet interface {
	fixSet()
}

// Fixes is a computed fix set.
type Fixes []*Fix

func (Fixes) fixSet() {}

// LazyFixes computes a fix set when called.
type LazyFixes func() Fixes

func (LazyFixes) fixSet() {}

// Computed returns the fixes of s when they are already available.
func Computed(s FixSet) (Fixes, bool) {
	f, ok := s.(Fixes)
	return f, ok
}

// Materialize returns the fixes of s, computing them if needed.
func Materialize(s FixSet) Fixes {
	switch s := s.(type) {
	case Fixes:
		return s
	case LazyFixes:
		if s == nil {
			return nil
		}
		return s()
	default:
		return nil
	}
}

// extend returns a lazy set yielding the fixes of s followed by more.
func extend(s FixSet, more ...*Fix) FixSet {
	return LazyFixes(func() Fixes {
		base := Materialize(s)
		out := make(Fixes, 0, len(base)+len(more))
		out = append(out, base...)
		return append(out, more...)
	})
}
