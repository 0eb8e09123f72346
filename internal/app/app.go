package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/docwatch/internal/cache"
	"github.com/hyperifyio/docwatch/internal/diag"
	"github.com/hyperifyio/docwatch/internal/discover"
	"github.com/hyperifyio/docwatch/internal/extract"
	"github.com/hyperifyio/docwatch/internal/fetch"
	"github.com/hyperifyio/docwatch/internal/match"
	"github.com/hyperifyio/docwatch/internal/report"
	"github.com/hyperifyio/docwatch/internal/robots"
	"github.com/hyperifyio/docwatch/internal/store"
)

// robotsExpiry bounds how long robots.txt rules are reused within a process.
const robotsExpiry = 24 * time.Hour

var (
	// ErrPersist is returned by Run when the visited set or the results log
	// could not be saved. The run's diagnostics still list every failure.
	ErrPersist = errors.New("persist state")
	// ErrLocked is returned by Run when another run holds the state lock.
	ErrLocked = store.ErrLocked
)

type App struct {
	cfg        Config
	httpClient *http.Client
	pages      *pageMemo
	matcher    *match.Matcher
	httpCache  *cache.HTTPCache
	fetcher    *fetch.Client
	extractor  *extract.Service
	discoverer discover.Discoverer
}

func New(ctx context.Context, cfg Config) (*App, error) {
	cfg = withDefaults(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	m := match.New(cfg.Keywords)
	if m.Len() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, ErrNoKeywords)
	}
	a := &App{cfg: cfg, matcher: m}

	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("clear http cache")
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge)
			if err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("purge http cache")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("purged stale http cache entries")
			}
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir}
	}

	hc := newHighThroughputHTTPClient(!cfg.InsecureSkipVerify)
	a.httpClient = hc
	a.fetcher = &fetch.Client{
		HTTPClient:        hc,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.MaxAttempts,
		PerRequestTimeout: cfg.FetchTimeout,
		Cache:             a.httpCache,
		MaxConcurrent:     cfg.Concurrency,
		RateLimit:         cfg.RateLimit,
		RateBurst:         cfg.RateBurst,
	}
	if cfg.RespectRobots {
		a.fetcher.Robots = &robots.Manager{HTTPClient: hc, UserAgent: cfg.UserAgent, EntryExpiry: robotsExpiry}
	}

	html, _ := extract.NewExtractor(cfg.HTMLExtractor)
	a.extractor = &extract.Service{Getter: a.fetcher, HTML: html}

	var listingGetter discover.Getter = a.fetcher
	if cfg.MatchListing {
		a.pages = &pageMemo{getter: a.fetcher}
		listingGetter = a.pages
	}
	var d discover.Discoverer = &discover.HTMLDiscoverer{Getter: listingGetter, Extensions: cfg.Extensions}
	if cfg.DiscoveryFile != "" {
		d = &discover.FileDiscoverer{Path: cfg.DiscoveryFile, Extensions: cfg.Extensions, Fallback: d}
	}
	a.discoverer = d

	log.Debug().Int("keywords", m.Len()).Int("seeds", len(cfg.Seeds)).Str("store", backendName(cfg)).Msg("configured")
	return a, nil
}

// Close releases pooled connections.
func (a *App) Close() {
	if a.httpClient != nil {
		a.httpClient.CloseIdleConnections()
	}
}

// Run performs one scan cycle: it loads the persisted state, analyzes every
// candidate not seen before, and saves the updated state once at the end.
// Per-document failures are collected in the returned summary and never stop
// the run. The summary is non-nil even when an error is returned.
func (a *App) Run(ctx context.Context) (*diag.Summary, error) {
	sum := diag.NewSummary(a.cfg.Now())
	sum.DryRun = a.cfg.DryRun
	sum.Seeds = len(a.cfg.Seeds)
	defer func() { sum.Finish(a.cfg.Now()) }()

	lock, err := store.Lock(a.cfg.LockPath)
	if err != nil {
		return sum, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn().Err(err).Str("lock", a.cfg.LockPath).Msg("release lock")
		}
	}()

	st, err := store.Open(a.storeOptions())
	if st == nil {
		return sum, fmt.Errorf("open store: %w", err)
	}
	if err != nil {
		a.loadFailed(sum, a.cfg.StorePath, diag.StageOpenStore, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}()

	visited, err := st.LoadVisited(ctx)
	if err != nil {
		a.loadFailed(sum, a.visitedLabel(), diag.StageLoadVisited, err)
	}
	prior, err := st.LoadResults(ctx)
	if err != nil {
		a.loadFailed(sum, a.resultsLabel(), diag.StageLoadResults, err)
	}
	log.Debug().Int("visited", visited.Len()).Int("records", len(prior)).Msg("loaded state")

	seen := store.NewVisitedSet()
	var added []store.Record
	for _, seed := range a.cfg.Seeds {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("run cancelled; saving progress")
			break
		}
		added = append(added, a.processSeed(ctx, seed, visited, seen, sum)...)
	}

	if a.cfg.DryRun {
		log.Info().Int("pending", len(sum.Pending)).Msg("dry run; nothing fetched or saved")
		return sum, nil
	}

	// Persistence must not be skipped because the run context ended.
	saveCtx := context.WithoutCancel(ctx)
	persistErr := a.persist(saveCtx, st, visited, prior, added, sum)

	if a.cfg.ReportPath != "" {
		all := store.Merge(prior, added)
		if err := report.Write(all, a.cfg.ReportPath); err != nil {
			sum.Add(diag.New(a.cfg.ReportPath, diag.StageWriteReport, diag.ClassPersistence, err))
			log.Warn().Err(err).Str("path", a.cfg.ReportPath).Msg("write report")
		} else {
			log.Info().Str("path", a.cfg.ReportPath).Int("records", len(all)).Msg("wrote report")
		}
	}
	return sum, persistErr
}

// outcome is the result of analyzing one candidate.
type outcome struct {
	url    string
	record *store.Record
	err    *diag.Error
}

// processSeed discovers the candidates of one seed and analyzes the ones not
// visited before. Outcomes are merged in candidate order.
func (a *App) processSeed(ctx context.Context, seed string, visited, seen *store.VisitedSet, sum *diag.Summary) []store.Record {
	logger := log.With().Str("seed", seed).Logger()

	cands, err := a.discoverer.Discover(ctx, seed)
	if err != nil {
		a.pages.take(seed)
		sum.Add(diag.New(seed, diag.StageDiscover, discoverClass(err), err))
		logger.Warn().Err(err).Msg("discovery failed")
		return nil
	}

	var recs []store.Record
	if rec := a.matchListing(ctx, seed, visited, seen, sum); rec != nil {
		logger.Info().Strs("keywords", rec.Keywords).Msg("listing matched")
		recs = append(recs, *rec)
	}

	todo := make([]discover.Candidate, 0, len(cands))
	skipped := 0
	for _, c := range cands {
		if visited.Contains(c.URL) || !seen.Record(c.URL) {
			skipped++
			continue
		}
		todo = append(todo, c)
	}
	sum.Count(func(s *diag.Summary) {
		s.Discovered += len(cands)
		s.Skipped += skipped
	})
	logger.Info().Int("candidates", len(cands)).Int("new", len(todo)).Msg("discovered")

	if a.cfg.DryRun {
		for _, c := range todo {
			sum.AddPending(c.URL)
		}
		return nil
	}
	if len(todo) == 0 {
		return recs
	}

	outcomes := make([]outcome, len(todo))
	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for i, c := range todo {
		g.Go(func() error {
			outcomes[i] = a.analyze(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	analyzed, matched := 0, 0
	for _, o := range outcomes {
		if o.err != nil {
			sum.Add(o.err)
			logger.Warn().Err(o.err.Err).Str("url", o.url).Str("stage", string(o.err.Stage)).Msg("document failed")
			if o.err.Class == diag.ClassNetwork {
				// Not recorded as visited: the next run retries it.
				continue
			}
		}
		visited.Record(o.url)
		analyzed++
		if o.record != nil {
			recs = append(recs, *o.record)
			matched++
		}
	}
	sum.Count(func(s *diag.Summary) {
		s.Analyzed += analyzed
		s.Matched += matched
	})
	return recs
}

// analyze fetches one candidate, extracts its text and matches it.
func (a *App) analyze(ctx context.Context, c discover.Candidate) outcome {
	return a.matchResult(c.URL, a.extractor.Fetch(ctx, c.URL, c.Kind))
}

func (a *App) matchResult(url string, res extract.Result) outcome {
	if !res.OK() {
		return outcome{url: url, err: res.Err}
	}
	text := res.Text
	if res.Title != "" {
		text = res.Title + " " + text
	}
	kws := a.matcher.Match(text)
	if len(kws) == 0 {
		log.Debug().Str("url", url).Str("kind", string(res.Kind)).Msg("no match")
		return outcome{url: url}
	}
	rec := store.Record{
		URL:       url,
		Timestamp: a.cfg.Now(),
		Keywords:  kws,
		Excerpt:   Excerpt(res.Text, a.cfg.ExcerptChars),
	}
	log.Info().Str("url", url).Strs("keywords", kws).Msg("match")
	return outcome{url: url, record: &rec}
}

// persist saves both stores. A failure of one does not prevent the other.
func (a *App) persist(ctx context.Context, st store.Backend, visited *store.VisitedSet, prior, added []store.Record, sum *diag.Summary) error {
	var errs []error
	if err := st.SaveVisited(ctx, visited); err != nil {
		sum.Add(diag.New(a.visitedLabel(), diag.StageSaveVisited, diag.ClassPersistence, err))
		log.Error().Err(err).Msg("save visited set")
		errs = append(errs, err)
	}
	if err := st.SaveResults(ctx, store.Merge(prior, added)); err != nil {
		sum.Add(diag.New(a.resultsLabel(), diag.StageSaveResults, diag.ClassPersistence, err))
		log.Error().Err(err).Msg("save results")
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrPersist, errors.Join(errs...))
	}
	log.Debug().Int("visited", visited.Len()).Int("added", len(added)).Msg("saved state")
	return nil
}

func (a *App) loadFailed(sum *diag.Summary, label string, stage diag.Stage, err error) {
	sum.Add(diag.New(label, stage, diag.ClassPersistence, err))
	log.Warn().Err(err).Str("stage", string(stage)).Msg("starting from empty state")
}

func (a *App) storeOptions() store.Options {
	return store.Options{
		Backend:     a.cfg.StoreBackend,
		VisitedPath: a.cfg.VisitedPath,
		ResultsPath: a.cfg.ResultsPath,
		Path:        a.cfg.StorePath,
		Backup:      a.cfg.Backup,
	}
}

func (a *App) visitedLabel() string {
	if backendName(a.cfg) == "json" {
		return a.cfg.VisitedPath
	}
	return a.cfg.StorePath
}

func (a *App) resultsLabel() string {
	if backendName(a.cfg) == "json" {
		return a.cfg.ResultsPath
	}
	return a.cfg.StorePath
}

// discoverClass separates unparsable listings and link files from transport
// failures.
func discoverClass(err error) diag.Class {
	var se *fetch.StatusError
	if errors.As(err, &se) || errors.Is(err, fetch.ErrDisallowed) || errors.Is(err, context.DeadlineExceeded) {
		return diag.ClassNetwork
	}
	if errors.Is(err, discover.ErrParse) {
		return diag.ClassParse
	}
	return diag.ClassNetwork
}
