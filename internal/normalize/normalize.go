// Package normalize canonicalizes free text so keyword matching is insensitive
// to case, accents, line breaks and whitespace runs.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text lower-cases s, strips combining marks after canonical decomposition,
// turns line, page and tab breaks into spaces and collapses whitespace runs to
// a single space. The result is trimmed. Text is idempotent.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = stripMarks(s)
	return strings.Join(strings.Fields(s), " ")
}

// stripMarks decomposes s (NFD), drops Mn runes and recomposes (NFC) so any
// remaining compatibility sequences stay in canonical form.
func stripMarks(s string) string {
	// A transform chain keeps state; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		// Only reachable on invalid UTF-8 edge cases; fall back to the input.
		return s
	}
	return out
}
