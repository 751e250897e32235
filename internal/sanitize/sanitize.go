// Package sanitize applies the storage-time content-hygiene pass an indexer
// runs before persisting a title or content field: NFC normalization,
// bidirectional-override stripping, and (for content) removal of control
// characters other than newline and tab. Markup is not parsed and tags and
// attributes are not filtered. Nothing in the teacher's domain (a ledger has no
// user-generated text) grounds this directly; it is built against
// golang.org/x/text/unicode/norm, already pulled transitively by the
// teacher's own dependency graph, for the one genuinely Unicode-sensitive
// step, with the rest left to stdlib per the rationale below.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// bidiOverrides are the Unicode bidirectional-control code points that can
// be used to visually disguise text direction; stripping them is a known
// mitigation for homograph/spoofing attacks in user-submitted text.
var bidiOverrides = map[rune]struct{}{
	'‪': {}, // LRE
	'‫': {}, // RLE
	'‬': {}, // PDF
	'‭': {}, // LRO
	'‮': {}, // RLO
	'⁦': {}, // LRI
	'⁧': {}, // RLI
	'⁨': {}, // FSI
	'⁩': {}, // PDI
}

func stripBidiOverrides(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if _, bad := bidiOverrides[r]; bad {
			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

// Title sanitizes a title field to plain text: NFC-normalized, bidi
// overrides stripped, and collapsed to a single line (newlines become
// spaces since titles are rendered as one line downstream).
func Title(raw string) string {
	s := norm.NFC.String(raw)
	s = stripBidiOverrides(s)
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}

		return r
	}, s)

	return strings.TrimSpace(s)
}

// Content sanitizes a content field: NFC-normalized, bidi overrides
// stripped, and control characters other than newline and tab dropped.
// Rendering of sanitized content into HTML is an external collaborator's
// concern, out of scope here; what remains is storage-time hygiene only.
// Inputs are treated as plain text: markup characters and tags pass
// through unchanged.
func Content(raw string) string {
	s := norm.NFC.String(raw)
	s = stripBidiOverrides(s)

	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}
