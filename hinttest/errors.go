// Copyright © 2024 The ELPS authors

package hinttest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSetup reports a broken fixture environment. It is never a result of
	// the rule under test.
	ErrSetup = errors.New("hinttest: fixture setup failed")
	// ErrMultipleMarkers is returned when a fixture holds more than one
	// offset marker.
	ErrMultipleMarkers = errors.New("hinttest: more than one offset marker")
	// ErrDiagnosticNotFound is returned when no diagnostic has the requested
	// identity.
	ErrDiagnosticNotFound = errors.New("hinttest: diagnostic not found")
	// ErrFixesNotComputed is returned when a diagnostic's fixes have not been
	// materialized.
	ErrFixesNotComputed = errors.New("hinttest: fixes not computed")
	// ErrFixNotFound is returned when no fix has the requested identity.
	ErrFixNotFound = errors.New("hinttest: fix not found")
	// ErrTextMismatch is returned when the text after a fix differs from the
	// golden text.
	ErrTextMismatch = errors.New("hinttest: the output code does not match the expected code")
	// ErrDiagnosticsMismatch is returned when the reported diagnostics differ
	// from the golden diagnostics.
	ErrDiagnosticsMismatch = errors.New("hinttest: the reported diagnostics do not match the expected diagnostics")
)

// MismatchError describes an expectation that did not hold. It carries
// everything that was observed so a failure can be diagnosed from the
// message alone.
type MismatchError struct {
	// Kind is one of the sentinel errors of this package.
	Kind error
	// Want is the requested identity or golden value.
	Want string
	// Observed lists the identities that were available.
	Observed []string
	// Got is the realized text for text mismatches.
	Got string
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	switch e.Kind {
	case ErrTextMismatch:
		fmt.Fprintf(&b, "\nexpected: %q\nactual:   %q", e.Want, e.Got)
	case ErrFixesNotComputed:
		fmt.Fprintf(&b, ": %s", e.Want)
	default:
		if e.Want != "" {
			fmt.Fprintf(&b, ": %q", e.Want)
		}
		fmt.Fprintf(&b, "\nobserved: [%s]", strings.Join(quoteAll(e.Observed), ", "))
	}
	return b.String()
}

func (e *MismatchError) Unwrap() error {
	return e.Kind
}

func quoteAll(ss []string) []string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = fmt.Sprintf("%q", s)
	}
	return q
}
