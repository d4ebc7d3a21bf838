// Copyright © 2024 The ELPS authors

package hinttest

import (
	"fmt"
	"slices"
	"strings"

	"github.com/luthersystems/hints/hint"
)

// DebugFunc renders the identity a fix is matched by.
type DebugFunc func(f *hint.Fix) string

// FixString identifies a fix by its title.
func FixString(f *hint.Fix) string {
	return f.String()
}

// FindDiagnostic returns the first diagnostic whose String is identity.
func FindDiagnostic(diags []*hint.Diagnostic, identity string) (*hint.Diagnostic, error) {
	for _, d := range diags {
		if d.String() == identity {
			return d, nil
		}
	}
	return nil, &MismatchError{Kind: ErrDiagnosticNotFound, Want: identity, Observed: hint.Strings(diags)}
}

// FindDiagnosticKey returns the first diagnostic whose Key is key.
func FindDiagnosticKey(diags []*hint.Diagnostic, key hint.Key) (*hint.Diagnostic, error) {
	observed := make([]string, 0, len(diags))
	for _, d := range diags {
		if d.Key() == key {
			return d, nil
		}
		observed = append(observed, formatKey(d.Key()))
	}
	return nil, &MismatchError{Kind: ErrDiagnosticNotFound, Want: formatKey(key), Observed: observed}
}

// FindFix returns the first fix of d that debug renders as identity. The
// fixes of d must already be computed. A nil debug uses FixString.
func FindFix(d *hint.Diagnostic, identity string, debug DebugFunc) (*hint.Fix, error) {
	if debug == nil {
		debug = FixString
	}
	fixes, err := computedFixes(d)
	if err != nil {
		return nil, err
	}
	observed := make([]string, 0, len(fixes))
	for _, f := range fixes {
		s := debug(f)
		if s == identity {
			return f, nil
		}
		observed = append(observed, s)
	}
	return nil, &MismatchError{Kind: ErrFixNotFound, Want: identity, Observed: observed}
}

// FindFixID returns the first fix of d with the given id.
func FindFixID(d *hint.Diagnostic, id hint.FixID) (*hint.Fix, error) {
	fixes, err := computedFixes(d)
	if err != nil {
		return nil, err
	}
	observed := make([]string, 0, len(fixes))
	for _, f := range fixes {
		if f.ID == id {
			return f, nil
		}
		observed = append(observed, formatFixID(f.ID))
	}
	return nil, &MismatchError{Kind: ErrFixNotFound, Want: formatFixID(id), Observed: observed}
}

// computedFixes returns the fixes of d. A diagnostic with no fix set has no
// fixes; a lazy set has not been computed.
func computedFixes(d *hint.Diagnostic) (hint.Fixes, error) {
	if d.Fixes == nil {
		return hint.Fixes{}, nil
	}
	fixes, ok := hint.Computed(d.Fixes)
	if !ok {
		return nil, &MismatchError{Kind: ErrFixesNotComputed, Want: d.String()}
	}
	return fixes, nil
}

// ExpectDiagnostics returns an Oracle requiring exactly the diagnostics
// identified by want, in order.
func ExpectDiagnostics(want ...string) Oracle {
	return func(_ int, diags []*hint.Diagnostic) error {
		got := hint.Strings(diags)
		if slices.Equal(want, got) {
			return nil
		}
		return &MismatchError{
			Kind:     ErrDiagnosticsMismatch,
			Want:     "[" + strings.Join(want, ", ") + "]",
			Observed: got,
		}
	}
}

func formatKey(k hint.Key) string {
	return fmt.Sprintf("%s %s[%d:%d] %s", k.Rule, k.File, k.Start, k.End, k.Message)
}

func formatFixID(id hint.FixID) string {
	return id.Rule + "/" + id.Kind
}
