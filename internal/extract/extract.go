package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Document is a simplified representation of extracted page content.
type Document struct {
	Title string
	Text  string
}

// FromHTML extracts every visible text node of the page, joined with single
// spaces and trimmed. Script, style and template contents are skipped; the
// <title> is reported separately and not part of Text.
func FromHTML(input []byte) (Document, error) {
	if len(bytes.TrimSpace(input)) == 0 {
		return Document{}, nil
	}
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}
	if node == nil {
		return Document{}, errors.New("parse html: empty tree")
	}

	title := strings.TrimSpace(findTitle(node))
	var parts []string
	collectText(&parts, node)
	return Document{Title: title, Text: strings.Join(parts, " ")}, nil
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return t.FirstChild.Data
}

func findFirst(n *html.Node, tag string) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
			res = cur
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(n)
	return res
}

// collectText appends the whitespace-collapsed content of each visible text
// node to parts.
func collectText(parts *[]string, n *html.Node) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "head", "script", "style", "noscript", "template", "iframe", "svg":
			return
		}
	}
	if n.Type == html.TextNode {
		if s := strings.Join(strings.Fields(n.Data), " "); s != "" {
			*parts = append(*parts, s)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(parts, c)
	}
}
