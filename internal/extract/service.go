package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docwatch/internal/diag"
)

// Getter is the minimal fetch surface the service needs.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Result is the outcome of fetching and extracting one address. Text is empty
// whenever Err is set.
type Result struct {
	URL   string
	Kind  Kind
	Title string
	Text  string
	Err   *diag.Error
}

// OK reports whether extraction succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Service fetches documents and converts them to plain text. It never returns
// bare errors: failures come back as a Result carrying a diagnostic.
type Service struct {
	Getter Getter
	HTML   Extractor
}

// Fetch retrieves url and extracts its text according to kind.
func (s *Service) Fetch(ctx context.Context, url string, kind Kind) Result {
	res := Result{URL: url, Kind: kind}
	if s == nil || s.Getter == nil {
		res.Err = diag.New(url, diag.StageFetch, diag.ClassNetwork, errors.New("fetch client not configured"))
		return res
	}
	body, contentType, err := s.Getter.Get(ctx, url)
	if err != nil {
		res.Err = diag.New(url, diag.StageFetch, diag.ClassNetwork, err)
		return res
	}
	return s.Parse(url, kind, body, contentType)
}

// Parse extracts the text of an already fetched body.
func (s *Service) Parse(url string, kind Kind, body []byte, contentType string) Result {
	res := Result{URL: url, Kind: refine(kind, contentType, body)}

	switch res.Kind {
	case KindPDF:
		pages, err := FromPDF(body)
		if err != nil {
			res.Err = diag.New(url, diag.StageExtract, diag.ClassParse, err)
			return res
		}
		empty := 0
		for _, p := range pages {
			if strings.TrimSpace(p) == "" {
				empty++
			}
		}
		if empty > 0 {
			log.Debug().Str("url", url).Int("pages", len(pages)).Int("empty", empty).Msg("pdf pages without text")
		}
		res.Text = strings.Join(pages, "\n")
	case KindText:
		res.Text = FromText(body)
	default:
		var ext Extractor
		if s != nil {
			ext = s.HTML
		}
		if ext == nil {
			ext = VisibleTextExtractor{}
		}
		doc, err := ext.Extract(body)
		if err != nil {
			res.Err = diag.New(url, diag.StageExtract, diag.ClassParse, err)
			return res
		}
		res.Title = doc.Title
		res.Text = doc.Text
	}
	return res
}
