package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docwatch/internal/diag"
	"github.com/hyperifyio/docwatch/internal/discover"
	"github.com/hyperifyio/docwatch/internal/extract"
	"github.com/hyperifyio/docwatch/internal/store"
)

// pageMemo keeps the bodies fetched during discovery so that a listing page
// can be matched without downloading it twice.
type pageMemo struct {
	getter extract.Getter

	mu    sync.Mutex
	pages map[string]page
}

type page struct {
	body        []byte
	contentType string
}

func (m *pageMemo) Get(ctx context.Context, url string) ([]byte, string, error) {
	body, contentType, err := m.getter.Get(ctx, url)
	if err != nil {
		return nil, "", err
	}
	m.mu.Lock()
	if m.pages == nil {
		m.pages = make(map[string]page)
	}
	m.pages[url] = page{body: body, contentType: contentType}
	m.mu.Unlock()
	return body, contentType, nil
}

// take returns and forgets the body fetched for url.
func (m *pageMemo) take(url string) (page, bool) {
	if m == nil {
		return page{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[url]
	delete(m.pages, url)
	return p, ok
}

// matchListing matches the text of an HTML seed page. Only a matching page is
// marked visited; a listing without a match is checked again next run.
func (a *App) matchListing(ctx context.Context, seed string, visited, seen *store.VisitedSet, sum *diag.Summary) *store.Record {
	p, cached := a.pages.take(seed)
	if !a.cfg.MatchListing || a.cfg.DryRun || discover.IsDocument(seed, a.cfg.Extensions) {
		return nil
	}
	if visited.Contains(seed) || seen.Contains(seed) {
		return nil
	}

	var res extract.Result
	if cached {
		res = a.extractor.Parse(seed, extract.KindHTML, p.body, p.contentType)
	} else {
		res = a.extractor.Fetch(ctx, seed, extract.KindHTML)
	}
	o := a.matchResult(seed, res)
	if o.err != nil {
		sum.Add(o.err)
		log.Warn().Err(o.err.Err).Str("url", seed).Str("stage", string(o.err.Stage)).Msg("listing failed")
		return nil
	}
	sum.Count(func(s *diag.Summary) { s.Analyzed++ })
	if o.record == nil {
		return nil
	}
	seen.Record(seed)
	visited.Record(seed)
	sum.Count(func(s *diag.Summary) { s.Matched++ })
	return o.record
}
