// Package chunktext splits canonical text into bounded, position-tracked
// segments using a sentence-aware sliding window.
package chunktext

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// pageChars is the heuristic page size: document layout is not tracked, so a
// page boundary is estimated every ~3000 characters of canonical text.
const pageChars = 3000

// Segment is a window of text with byte offsets into the source document.
// CharEnd - CharStart always equals the emitted segment length.
type Segment struct {
	Text      string
	CharStart int
	CharEnd   int
}

// PageEstimate derives an approximate 1-based page number from a segment's
// start offset. An estimator, not an exact page mapping.
func PageEstimate(charStart int) int {
	return charStart/pageChars + 1
}

// CutAt returns the largest index not exceeding max that falls on a rune
// boundary, so s[:CutAt(s, max)] never splits a multi-byte rune.
func CutAt(s string, max int) int {
	if len(s) <= max {
		return len(s)
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return max
}

// Window accumulates sentence-like units into segments of at most maxLen
// bytes. A buffer shorter than minLen that would overflow is force-cut at the
// nearest rune boundary at or below maxLen. Empty input yields no segments.
func Window(text string, minLen, maxLen int) []Segment {
	sentences := splitSentences(text)

	var segments []Segment
	var buf string
	start, pos := 0, 0

	for _, s := range sentences {
		next := s
		if buf != "" {
			next = buf + " " + s
		}

		if len(next) > maxLen {
			if len(buf) >= minLen {
				segments = append(segments, Segment{Text: buf, CharStart: start, CharEnd: start + len(buf)})
				start = pos
				buf = s
			} else {
				// too short to emit alone: force-cut the combined text and
				// carry the remainder into the new buffer
				for len(next) > maxLen {
					cut := CutAt(next, maxLen)
					segments = append(segments, Segment{Text: next[:cut], CharStart: start, CharEnd: start + cut})
					next = next[cut:]
					start += cut
				}
				buf = next
			}
		} else {
			if buf == "" {
				start = pos
			}
			buf = next
		}
		pos += len(s) + 1 // +1 approximates the split space/newline
	}

	if buf != "" {
		segments = append(segments, Segment{Text: buf, CharStart: start, CharEnd: start + len(buf)})
	}
	return segments
}

// splitSentences cuts text into sentence-like units: at sentence-ending
// punctuation followed by whitespace, or at a newline block followed by
// non-whitespace. Units are trimmed; empty units are dropped.
func splitSentences(text string) []string {
	var units []string
	var b strings.Builder

	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			units = append(units, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			j := i
			for j+1 < len(runes) && runes[j+1] == '\n' {
				j++
			}
			if j+1 < len(runes) && !unicode.IsSpace(runes[j+1]) {
				flush()
				i = j
				continue
			}
		}

		b.WriteRune(r)

		if (r == '.' || r == '?' || r == '!') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			flush()
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
		}
	}
	flush()
	return units
}
