// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// offsetToPosition converts a byte offset in text to a 0-based LSP position.
// Characters are counted in UTF-16 code units. Offsets past the end clamp to
// the end of text.
func offsetToPosition(text string, offset int) protocol.Position {
	offset = max(0, min(offset, len(text)))
	line := strings.Count(text[:offset], "\n")
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	return protocol.Position{
		Line:      safeUint(line),
		Character: safeUint(utf16Len(text[lineStart:offset])),
	}
}

// positionToOffset converts an LSP position to a byte offset in text. A
// character past the end of its line clamps to the line end; a line past the
// end of text clamps to len(text).
func positionToOffset(text string, pos protocol.Position) int {
	offset := 0
	for line := protocol.UInteger(0); line < pos.Line; line++ {
		i := strings.IndexByte(text[offset:], '\n')
		if i < 0 {
			return len(text)
		}
		offset += i + 1
	}
	units := 0
	for offset < len(text) && text[offset] != '\n' && units < int(pos.Character) {
		r, size := utf8.DecodeRuneInString(text[offset:])
		units += utf16.RuneLen(r)
		offset += size
	}
	return offset
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// safeUint converts a non-negative int to protocol.UInteger, clamping
// negative values to zero.
func safeUint(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) // #nosec G115 -- line/col are always small positive ints
}

// uriToPath converts a file:// URI to a filesystem path.
func uriToPath(uri string) string {
	if path, ok := strings.CutPrefix(uri, "file://"); ok {
		return path
	}
	return uri
}

// pathToURI converts a filesystem path to a file:// URI.
func pathToURI(path string) string {
	if strings.HasPrefix(path, "/") {
		return "file://" + path
	}
	return path
}
