// Package chunker splits long text into bounded, boundary-aware pieces
// suitable for independent embedding.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// isBoundary reports whether b ends a natural split point. Sentence
// punctuation and newlines are preferred split points; a plain space is
// the weakest acceptable one.
func isBoundary(b byte) bool {
	switch b {
	case '.', '?', '!', '\n', ' ':
		return true
	}
	return false
}

// SplitText splits text into non-empty pieces of at most maxLength
// bytes each, cutting at the natural boundary nearest to the end of
// each window. Scanning is greedy: the cursor advances to the chosen
// boundary and the search repeats from there. When the nearest boundary
// sits less than maxLength-1000 bytes past the cursor the split would
// leave a degenerately small piece, so the window is hard-cut at its
// edge instead. Results are trimmed and empty pieces dropped. The
// function is deterministic for a given (text, maxLength) pair.
func SplitText(text string, maxLength int) []string {
	if maxLength <= 0 || len(text) <= maxLength {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + maxLength
		if end > len(text) {
			end = len(text)
		}

		cut := hardCut(text, end)
		if idx := lastBoundary(text, start, end); idx >= 0 {
			// Cut after the boundary byte so punctuation stays with
			// its sentence; a trailing space is trimmed below.
			if idx+1-start >= maxLength-1000 {
				cut = idx + 1
			}
		}
		if cut <= start {
			cut = end
		}

		if chunk := strings.TrimSpace(text[start:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = cut
	}

	return chunks
}

// lastBoundary returns the largest index in [start, end) holding a
// boundary byte, or -1 when the window has none.
func lastBoundary(text string, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if isBoundary(text[i]) {
			return i
		}
	}
	return -1
}

// hardCut backs a byte offset off to the nearest rune start so a forced
// cut never lands inside a multi-byte sequence.
func hardCut(text string, pos int) int {
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}
