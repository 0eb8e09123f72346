package extract

import (
	"bytes"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Extractor defines a minimal interface for HTML extraction strategies.
// Implementations can swap readability tactics without changing callers.
type Extractor interface {
	// Extract converts raw HTML bytes into a simplified Document.
	// Implementations should be deterministic and avoid side effects.
	Extract(input []byte) (Document, error)
}

// VisibleTextExtractor keeps every visible text node. It is the default
// because a name may appear anywhere on a page, including tables and footers.
type VisibleTextExtractor struct{}

func (VisibleTextExtractor) Extract(input []byte) (Document, error) {
	return FromHTML(input)
}

// ReadabilityExtractor keeps only the main article body as scored by
// go-readability, falling back to visible text when nothing is found.
type ReadabilityExtractor struct{}

func (ReadabilityExtractor) Extract(input []byte) (Document, error) {
	article, err := readability.FromReader(bytes.NewReader(input), nil)
	if err == nil {
		text := strings.Join(strings.Fields(article.TextContent), " ")
		if text != "" {
			return Document{Title: strings.TrimSpace(article.Title), Text: text}, nil
		}
	}
	return FromHTML(input)
}

// NewExtractor returns the HTML strategy registered under name ("text" or
// "readability"). Unknown names yield ok=false.
func NewExtractor(name string) (Extractor, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "visible":
		return VisibleTextExtractor{}, true
	case "readability":
		return ReadabilityExtractor{}, true
	}
	return nil, false
}
