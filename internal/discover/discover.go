// Package discover turns seed addresses into candidate document addresses:
// either the seed itself or the document links found on a listing page.
package discover

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hyperifyio/docwatch/internal/extract"
)

// ErrParse marks listings, link files and addresses that could not be parsed.
var ErrParse = errors.New("parse")

// DefaultExtensions are recognized document extensions when none are configured.
var DefaultExtensions = []string{".pdf", ".txt"}

// Candidate is a document address eligible for extraction.
type Candidate struct {
	URL  string
	Kind extract.Kind
}

// Discoverer enumerates candidates for a seed. Implementations are
// interchangeable: static HTML parsing, pre-rendered link files, or a
// browser-driven renderer.
type Discoverer interface {
	Discover(ctx context.Context, seed string) ([]Candidate, error)
}

// Getter is the minimal fetch surface used for listing pages.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// IsDocument reports whether the path of rawURL ends with one of exts
// (case-insensitive). Query and fragment are ignored.
func IsDocument(rawURL string, exts []string) bool {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && strings.HasSuffix(p, e) {
			return true
		}
	}
	return false
}

// NewCandidate canonicalizes rawURL and derives its kind.
func NewCandidate(rawURL string) (Candidate, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Candidate{}, fmt.Errorf("%w url: %w", ErrParse, err)
	}
	if !u.IsAbs() {
		return Candidate{}, fmt.Errorf("%w: not an absolute url: %q", ErrParse, rawURL)
	}
	s := Canonical(u)
	return Candidate{URL: s, Kind: extract.KindFromURL(s)}, nil
}

// Canonical drops the fragment and lower-cases scheme and host. Query strings
// are kept: they often select the document on download endpoints.
func Canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	return c.String()
}

// HTMLDiscoverer fetches a listing page and selects anchors that point at
// recognized document extensions. A seed that is itself a document is its own
// sole candidate and is not fetched here.
type HTMLDiscoverer struct {
	Getter     Getter
	Extensions []string
}

func (d *HTMLDiscoverer) Discover(ctx context.Context, seed string) ([]Candidate, error) {
	if IsDocument(seed, d.Extensions) {
		c, err := NewCandidate(seed)
		if err != nil {
			return nil, err
		}
		return []Candidate{c}, nil
	}
	if d.Getter == nil {
		return nil, errors.New("listing fetcher not configured")
	}
	body, _, err := d.Getter.Get(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	links, err := Links(seed, body, d.Extensions)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(links))
	for _, l := range links {
		out = append(out, Candidate{URL: l, Kind: extract.KindFromURL(l)})
	}
	return out, nil
}
