package discover

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Links parses an HTML listing page and returns the absolute addresses of
// every <a href> / <area href> whose path ends with a recognized extension, in
// document order. References resolve against <base href> when present,
// otherwise against baseURL. Duplicates are kept.
func Links(baseURL string, body []byte, exts []string) ([]string, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w base url: %w", ErrParse, err)
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w listing: %w", ErrParse, err)
	}
	if b := baseHref(doc); b != "" {
		if ref, err := url.Parse(b); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "area") {
			if href := attr(n, "href"); href != "" {
				if abs, ok := resolve(base, href); ok && IsDocument(abs, exts) {
					links = append(links, abs)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func resolve(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return Canonical(abs), true
}

func baseHref(doc *html.Node) string {
	var found string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "base" {
			found = attr(n, "href")
			return true
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
