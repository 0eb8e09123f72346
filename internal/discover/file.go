package discover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/hyperifyio/docwatch/internal/extract"
)

// FileDiscoverer serves candidates from a JSON object mapping seed addresses to
// link lists, as produced by an external renderer for pages that need script
// execution. Seeds missing from the file are delegated to Fallback.
//
//	{"https://host/pages/2025/": ["a.pdf", "https://cdn/b.pdf"]}
type FileDiscoverer struct {
	Path       string
	Extensions []string
	Fallback   Discoverer

	once  sync.Once
	links map[string][]string
	err   error
}

func (f *FileDiscoverer) load() {
	f.once.Do(func() {
		if strings.TrimSpace(f.Path) == "" {
			f.err = errors.New("discovery file path is empty")
			return
		}
		b, err := os.ReadFile(f.Path)
		if err != nil {
			f.err = fmt.Errorf("read discovery file: %w", err)
			return
		}
		var raw map[string][]string
		if err := json.Unmarshal(b, &raw); err != nil {
			f.err = fmt.Errorf("%w discovery file: %w", ErrParse, err)
			return
		}
		f.links = make(map[string][]string, len(raw))
		for seed, list := range raw {
			f.links[strings.TrimSpace(seed)] = list
		}
	})
}

func (f *FileDiscoverer) Discover(ctx context.Context, seed string) ([]Candidate, error) {
	f.load()
	list, ok := f.links[strings.TrimSpace(seed)]
	if f.err != nil || !ok {
		if f.Fallback != nil {
			return f.Fallback.Discover(ctx, seed)
		}
		if f.err != nil {
			return nil, f.err
		}
		return nil, fmt.Errorf("seed not present in discovery file: %s", seed)
	}
	base, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("%w seed: %w", ErrParse, err)
	}
	out := make([]Candidate, 0, len(list))
	for _, l := range list {
		abs, ok := resolve(base, strings.TrimSpace(l))
		if !ok || !IsDocument(abs, f.Extensions) {
			continue
		}
		out = append(out, Candidate{URL: abs, Kind: extract.KindFromURL(abs)})
	}
	return out, nil
}
