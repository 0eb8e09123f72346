package extract

import (
	"bytes"
	"net/url"
	"path"
	"strings"
)

// Kind is the content family a document is parsed as.
type Kind string

const (
	KindHTML Kind = "html"
	KindPDF  Kind = "pdf"
	KindText Kind = "text"
)

var htmlExtensions = map[string]bool{
	"":       true,
	".htm":   true,
	".html":  true,
	".xhtml": true,
	".php":   true,
	".asp":   true,
	".aspx":  true,
	".jsp":   true,
}

// Ext returns the lower-cased extension of the URL path, ignoring query and
// fragment. Unparsable input yields "".
func Ext(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

// KindFromURL decides the kind from the address alone.
func KindFromURL(rawURL string) Kind {
	ext := Ext(rawURL)
	switch {
	case ext == ".pdf":
		return KindPDF
	case htmlExtensions[ext]:
		return KindHTML
	default:
		return KindText
	}
}

// refine corrects an HTML guess for addresses without a telling extension
// (for example download?id=42) using the response itself.
func refine(kind Kind, contentType string, body []byte) Kind {
	if kind != KindHTML {
		return kind
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "application/pdf"), bytes.HasPrefix(body, []byte("%PDF-")):
		return KindPDF
	case strings.HasPrefix(ct, "text/plain"):
		return KindText
	}
	return kind
}
