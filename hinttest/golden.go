// Copyright © 2024 The ELPS authors

package hinttest

import "regexp"

var whitespace = regexp.MustCompile(`[ \t\n\r\f\v]+`)

// NormalizeWhitespace collapses every run of whitespace to a single space.
// Leading and trailing runs are kept as one space.
func NormalizeWhitespace(s string) string {
	return whitespace.ReplaceAllString(s, " ")
}
