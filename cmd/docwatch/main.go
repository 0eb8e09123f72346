package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docwatch/internal/app"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
	exitLocked  = 3
)

// options are CLI settings that do not belong to app.Config.
type options struct {
	configPath string
	envFiles   string
	printJSON  bool
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, opts, err := parseConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		log.Error().Err(err).Msg("configuration")
		os.Exit(exitConfig)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, opts, os.Stdout)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
	}
	os.Exit(exitCode(err))
}

// parseConfig builds the configuration with precedence flags > environment
// (including dotenv files) > config file > defaults.
func parseConfig(args []string, stderr io.Writer) (app.Config, options, error) {
	fs := flag.NewFlagSet("docwatch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts          options
		keywords      string
		seeds         string
		extensions    string
		visitedPath   string
		resultsPath   string
		storeBackend  string
		storePath     string
		lockPath      string
		backup        bool
		fetchTimeout  time.Duration
		maxAttempts   int
		userAgent     string
		concurrency   int
		rateLimit     float64
		rateBurst     int
		sslVerify     bool
		respectRobots bool
		cacheDir      string
		cacheMaxAge   time.Duration
		cacheClear    bool
		htmlExtractor string
		discoveryFile string
		excerptChars  int
		matchListing  bool
		reportPath    string
		summaryPath   string
		dryRun        bool
		verbose       bool
	)

	fs.StringVar(&opts.configPath, "config", "", "Path to YAML or JSON config file")
	fs.StringVar(&opts.envFiles, "env", "", "Comma-separated dotenv files loaded after .env")
	fs.BoolVar(&opts.printJSON, "json", false, "Print the run summary as JSON on stdout")
	fs.StringVar(&keywords, "keywords", "", "Comma-separated keywords to look for")
	fs.StringVar(&seeds, "seeds", "", "Comma-separated seed URLs (listing pages or documents)")
	fs.StringVar(&extensions, "extensions", "", "Comma-separated document extensions (default .pdf,.txt)")
	fs.StringVar(&visitedPath, "visited", app.DefaultVisitedPath, "Path to the visited-address JSON file")
	fs.StringVar(&resultsPath, "results", app.DefaultResultsPath, "Path to the results JSON file")
	fs.StringVar(&storeBackend, "store", "", "State backend: json, sqlite or leveldb")
	fs.StringVar(&storePath, "store.path", "", "Database file (sqlite) or directory (leveldb)")
	fs.StringVar(&lockPath, "lock", "", "Lock file guarding the state (default next to the state)")
	fs.BoolVar(&backup, "backup", false, "Keep a timestamped copy of each JSON state file before replacing it")
	fs.DurationVar(&fetchTimeout, "fetch.timeout", app.DefaultFetchTimeout, "Per-request timeout")
	fs.IntVar(&maxAttempts, "fetch.attempts", app.DefaultMaxAttempts, "Attempts per request, including the first")
	fs.StringVar(&userAgent, "fetch.ua", app.DefaultUserAgent, "User-Agent header")
	fs.IntVar(&concurrency, "fetch.concurrency", app.DefaultConcurrency, "Documents fetched in parallel per seed")
	fs.Float64Var(&rateLimit, "fetch.rate", 0, "Requests per second per host; 0 disables")
	fs.IntVar(&rateBurst, "fetch.burst", 0, "Burst size for -fetch.rate")
	fs.BoolVar(&sslVerify, "ssl.verify", true, "Verify TLS certificates")
	fs.BoolVar(&respectRobots, "robots", false, "Honor robots.txt")
	fs.StringVar(&cacheDir, "cache.dir", "", "HTTP cache directory; empty disables the cache")
	fs.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Purge cache entries older than this; 0 disables")
	fs.BoolVar(&cacheClear, "cache.clear", false, "Clear the HTTP cache before the run")
	fs.StringVar(&htmlExtractor, "extract.html", "", "HTML extractor: text or readability")
	fs.StringVar(&discoveryFile, "discovery.file", "", "JSON file mapping seeds to pre-rendered link lists")
	fs.IntVar(&excerptChars, "excerpt.chars", app.DefaultExcerptChars, "Excerpt length in characters")
	fs.BoolVar(&matchListing, "match.listing", false, "Also match the text of HTML listing seeds")
	fs.StringVar(&reportPath, "report", "", "Write a Markdown or PDF (.pdf) report of all matches")
	fs.StringVar(&summaryPath, "summary", "", "Write the run summary JSON to this path")
	fs.BoolVar(&dryRun, "dry-run", false, "Discover and list candidates without fetching or saving")
	fs.BoolVar(&verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, opts, err
	}

	envFiles := append([]string{".env"}, app.SplitList(opts.envFiles)...)
	if err := app.LoadEnvFiles(envFiles...); err != nil {
		return app.Config{}, opts, fmt.Errorf("load env files: %w", err)
	}

	var cfg app.Config
	if opts.configPath != "" {
		fc, err := app.LoadConfigFile(opts.configPath)
		if err != nil {
			return app.Config{}, opts, fmt.Errorf("load config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	apply := func(name string, fn func()) {
		if set[name] {
			fn()
		}
	}
	apply("keywords", func() { cfg.Keywords = app.SplitList(keywords) })
	apply("seeds", func() { cfg.Seeds = app.SplitList(seeds) })
	apply("extensions", func() { cfg.Extensions = app.SplitList(extensions) })
	apply("visited", func() { cfg.VisitedPath = visitedPath })
	apply("results", func() { cfg.ResultsPath = resultsPath })
	apply("store", func() { cfg.StoreBackend = storeBackend })
	apply("store.path", func() { cfg.StorePath = storePath })
	apply("lock", func() { cfg.LockPath = lockPath })
	apply("backup", func() { cfg.Backup = backup })
	apply("fetch.timeout", func() { cfg.FetchTimeout = fetchTimeout })
	apply("fetch.attempts", func() { cfg.MaxAttempts = maxAttempts })
	apply("fetch.ua", func() { cfg.UserAgent = userAgent })
	apply("fetch.concurrency", func() { cfg.Concurrency = concurrency })
	apply("fetch.rate", func() { cfg.RateLimit = rateLimit })
	apply("fetch.burst", func() { cfg.RateBurst = rateBurst })
	apply("ssl.verify", func() { cfg.InsecureSkipVerify = !sslVerify })
	apply("robots", func() { cfg.RespectRobots = respectRobots })
	apply("cache.dir", func() { cfg.CacheDir = cacheDir })
	apply("cache.maxAge", func() { cfg.CacheMaxAge = cacheMaxAge })
	apply("cache.clear", func() { cfg.CacheClear = cacheClear })
	apply("extract.html", func() { cfg.HTMLExtractor = htmlExtractor })
	apply("discovery.file", func() { cfg.DiscoveryFile = discoveryFile })
	apply("excerpt.chars", func() { cfg.ExcerptChars = excerptChars })
	apply("match.listing", func() { cfg.MatchListing = matchListing })
	apply("report", func() { cfg.ReportPath = reportPath })
	apply("summary", func() { cfg.SummaryPath = summaryPath })
	apply("dry-run", func() { cfg.DryRun = dryRun })
	apply("v", func() { cfg.Verbose = verbose })

	// Positional arguments are extra seeds.
	for _, a := range fs.Args() {
		if s := strings.TrimSpace(a); s != "" {
			cfg.Seeds = append(cfg.Seeds, s)
		}
	}
	return cfg, opts, app.ValidateConfig(cfg)
}

func run(ctx context.Context, cfg app.Config, opts options, stdout io.Writer) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	sum, runErr := a.Run(ctx)
	if sum != nil {
		sum.Log(log.Logger)
		if cfg.SummaryPath != "" {
			if err := app.WriteSummary(cfg.SummaryPath, sum); err != nil {
				log.Warn().Err(err).Str("path", cfg.SummaryPath).Msg("write summary")
			}
		}
		if opts.printJSON {
			b, err := sum.JSON()
			if err != nil {
				return fmt.Errorf("encode summary: %w", err)
			}
			fmt.Fprintln(stdout, string(b))
		}
	}
	return runErr
}

// exitCode maps run errors to the process exit status. Per-document failures
// never reach here; they only appear in the summary.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, app.ErrInvalidConfig):
		return exitConfig
	case errors.Is(err, app.ErrLocked):
		return exitLocked
	default:
		return exitFailure
	}
}
