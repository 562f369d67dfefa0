// Package canon reduces extracted resume text to a canonical form. Normalize
// is pure, deterministic and idempotent, and its output always ends with
// exactly one trailing newline.
package canon

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Flatten selects how single line breaks are treated.
type Flatten string

const (
	// FlattenNone keeps line breaks as-is.
	FlattenNone Flatten = "none"
	// FlattenSoft joins sentence-internal line breaks, keeps paragraph breaks.
	FlattenSoft Flatten = "soft"
	// FlattenAll collapses every single newline, keeps paragraph breaks.
	FlattenAll Flatten = "all"
)

// ParseFlatten maps a config/request string to a Flatten mode.
// Unknown values fall back to FlattenNone.
func ParseFlatten(s string) Flatten {
	switch Flatten(s) {
	case FlattenSoft:
		return FlattenSoft
	case FlattenAll:
		return FlattenAll
	default:
		return FlattenNone
	}
}

var (
	ctrlRe      = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
	spaceRunRe  = regexp.MustCompile(`[^\S\n]+`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
	hyphenRe    = regexp.MustCompile(`(\p{L}{2,})-\s*\n\s*(\p{Ll}+)`)
	bulletRe    = regexp.MustCompile(`(?m)^\s*[•‣∙◦–—·*●○-]\s+`)
	bulletGapRe = regexp.MustCompile(`(?m)^-\s{2,}`)
	dashRe      = regexp.MustCompile(`[‒—–ᅳ]+`)

	// soft flatten: letter/digit, a lone newline, then lowercase/digit
	softJoinRe = regexp.MustCompile(`([\p{L}\d])[ \t]*\n[ \t]*([\p{Ll}\d])`)
	// soft flatten: newline right after comma/semicolon/colon
	punctJoinRe = regexp.MustCompile(`([,;:])\s*\n[ \t]*([^\n])`)

	paraRe   = regexp.MustCompile(`\n{2,}`)
	headerRe = regexp.MustCompile(`([^.])\.([A-Z][A-Z0-9/& \-]{5,}\b)`)

	leadingBlankRe = regexp.MustCompile(`^\s*\n+`)
	lineTrailRe    = regexp.MustCompile(`[ \t]+\n`)
)

// Normalize canonicalizes raw extracted text. Safe to call on its own output.
func Normalize(raw string, flatten Flatten) string {
	t := norm.NFC.String(raw)

	// control chars (keep \n)
	t = ctrlRe.ReplaceAllString(t, "")

	// spaces and blank blocks
	t = strings.ReplaceAll(t, "\t", " ")
	t = spaceRunRe.ReplaceAllString(t, " ")
	t = blankRunRe.ReplaceAllString(t, "\n\n")

	// de-hyphenate wrapped words: "construc-\ntion" -> "construction"
	t = hyphenRe.ReplaceAllString(t, "$1$2")

	// normalize bullets
	t = bulletRe.ReplaceAllString(t, "- ")
	t = bulletGapRe.ReplaceAllString(t, "- ")

	// tame weird separator glyphs
	t = dashRe.ReplaceAllString(t, "—")

	switch flatten {
	case FlattenSoft:
		// RE2 has no lookaround, so the join consumes its context characters;
		// iterate to a fixpoint so chains like "a\nb\nc" fully unwrap.
		t = replaceAllStable(softJoinRe, t, "$1 $2")
		t = replaceAllStable(punctJoinRe, t, "$1 $2")
	case FlattenAll:
		// mark paragraph breaks, flatten, restore
		t = paraRe.ReplaceAllString(t, "¶")
		t = strings.ReplaceAll(t, "\n", " ")
		t = strings.ReplaceAll(t, "¶", "\n\n")
	}

	// re-introduce section breaks before ALL-CAPS headers that follow a period
	t = headerRe.ReplaceAllString(t, "$1.\n$2")

	// remove leading blank lines completely
	t = leadingBlankRe.ReplaceAllString(t, "")

	// tidy edges
	t = lineTrailRe.ReplaceAllString(t, "\n")
	return strings.TrimRight(t, " \t\n") + "\n"
}

// FlattenForPreview collapses all whitespace to single spaces for one-line previews.
func FlattenForPreview(t string) string {
	return strings.TrimSpace(regexp.MustCompile(`\s+`).ReplaceAllString(t, " "))
}

func replaceAllStable(re *regexp.Regexp, s, repl string) string {
	for {
		next := re.ReplaceAllString(s, repl)
		if next == s {
			return s
		}
		s = next
	}
}
