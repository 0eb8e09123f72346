// Package match tests extracted document text against a keyword set using
// normalized, whole-word comparison.
package match

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperifyio/docwatch/internal/normalize"
)

type keyword struct {
	original   string
	normalized string
}

// Matcher holds a pre-normalized keyword set. It is safe for concurrent use.
type Matcher struct {
	keywords []keyword
}

// New builds a Matcher. Keywords that normalize to the empty string are
// dropped, as are duplicates after normalization (first spelling wins).
func New(keywords []string) *Matcher {
	m := &Matcher{}
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		n := normalize.Text(k)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		m.keywords = append(m.keywords, keyword{original: strings.TrimSpace(k), normalized: n})
	}
	return m
}

// Len reports the number of usable keywords.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keywords)
}

// Match returns the configured spelling of every keyword with at least one
// whole-word occurrence in text, in configuration order.
func (m *Matcher) Match(text string) []string {
	if m.Len() == 0 {
		return nil
	}
	hay := normalize.Text(text)
	if hay == "" {
		return nil
	}
	var out []string
	for _, k := range m.keywords {
		if containsWord(hay, k.normalized) {
			out = append(out, k.original)
		}
	}
	return out
}

// containsWord finds needle in hay at a position that passes both boundary
// checks below.
func containsWord(hay, needle string) bool {
	if needle == "" {
		return false
	}
	from := 0
	for from <= len(hay)-len(needle) {
		i := strings.Index(hay[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		if boundaryBefore(hay, start, needle) && boundaryAfter(hay, end, needle) {
			return true
		}
		_, size := utf8.DecodeRuneInString(hay[start:])
		from = start + size
	}
	return false
}

// The neighbouring rune is checked only on a side where the needle starts or
// ends with a word rune; there it must be absent or a non-word rune. A needle
// edge that is itself punctuation (for example "sa.") matches regardless of
// what follows it.
func boundaryBefore(hay string, start int, needle string) bool {
	first, _ := utf8.DecodeRuneInString(needle)
	if !isWordRune(first) || start == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(hay[:start])
	return !isWordRune(prev)
}

func boundaryAfter(hay string, end int, needle string) bool {
	last, _ := utf8.DecodeLastRuneInString(needle)
	if !isWordRune(last) || end == len(hay) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(hay[end:])
	return !isWordRune(next)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
