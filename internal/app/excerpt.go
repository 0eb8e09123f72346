package app

import "strings"

// Excerpt returns the first n runes of text with whitespace collapsed,
// followed by "..." when text was longer.
func Excerpt(text string, n int) string {
	s := strings.Join(strings.Fields(text), " ")
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
