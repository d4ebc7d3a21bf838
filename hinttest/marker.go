// Copyright © 2024 The ELPS authors

package hinttest

import (
	"fmt"
	"strings"
)

// DefaultMarker is the token marking the cursor in a fixture. It cannot occur
// in Go source, unlike "|" which would collide with |, || and |=.
const DefaultMarker = "<|>"

// DetectOffset removes marker from code and returns the remaining text along
// with the byte offset the marker occupied. Without a marker the text is
// returned unchanged with fallback as the offset. A fixture may hold at most
// one marker.
func DetectOffset(code, marker string, fallback int) (string, int, error) {
	if marker == "" {
		return code, fallback, nil
	}
	i := strings.Index(code, marker)
	if i < 0 {
		return code, fallback, nil
	}
	rest := code[i+len(marker):]
	if strings.Contains(rest, marker) {
		return "", 0, fmt.Errorf("%w %q", ErrMultipleMarkers, marker)
	}
	return code[:i] + rest, i, nil
}
