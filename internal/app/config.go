package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hyperifyio/docwatch/internal/extract"
	"github.com/hyperifyio/docwatch/internal/store"
)

// Defaults shared by the CLI flags and the config overlays.
const (
	DefaultVisitedPath  = "visited.json"
	DefaultResultsPath  = "results.json"
	DefaultUserAgent    = "docwatch/1.0 (+https://github.com/hyperifyio/docwatch)"
	DefaultCacheDir     = ".docwatch-cache"
	DefaultExcerptChars = 300
	DefaultMaxAttempts  = 2
	DefaultConcurrency  = 1
	DefaultFetchTimeout = 15 * time.Second
)

// Config holds runtime configuration for the application.
type Config struct {
	// Matching
	Keywords   []string
	Seeds      []string
	Extensions []string

	// Persistence
	VisitedPath  string
	ResultsPath  string
	StoreBackend string
	StorePath    string
	LockPath     string
	Backup       bool

	// Fetching
	FetchTimeout time.Duration
	MaxAttempts  int
	UserAgent    string
	Concurrency  int
	RateLimit    float64
	RateBurst    int
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	RespectRobots      bool

	// HTTP cache
	CacheDir    string
	CacheMaxAge time.Duration
	CacheClear  bool

	// Extraction and discovery
	HTMLExtractor string
	DiscoveryFile string
	ExcerptChars  int
	// MatchListing also matches the text of HTML listing seeds. A matching
	// listing is recorded under the seed URL.
	MatchListing bool

	// Outputs
	ReportPath  string
	SummaryPath string

	// Behavior
	DryRun  bool
	Verbose bool

	// Now overrides the clock used for record timestamps. Nil means time.Now.
	Now func() time.Time
}

var (
	// ErrInvalidConfig wraps every error returned by ValidateConfig.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoKeywords is returned when no usable keyword remains after trimming.
	ErrNoKeywords = errors.New("at least one keyword is required")
	// ErrNoSeeds is returned when no seed address is configured.
	ErrNoSeeds = errors.New("at least one seed url is required")
)

// ValidateConfig performs schema validation for required settings. Errors
// wrap ErrInvalidConfig.
func ValidateConfig(cfg Config) error {
	if err := validate(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func validate(cfg Config) error {
	if len(nonEmpty(cfg.Keywords)) == 0 {
		return ErrNoKeywords
	}
	seeds := nonEmpty(cfg.Seeds)
	if len(seeds) == 0 {
		return ErrNoSeeds
	}
	for _, s := range seeds {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("seed %q is not an http(s) url", s)
		}
	}
	for _, e := range cfg.Extensions {
		if !strings.HasPrefix(strings.TrimSpace(e), ".") {
			return fmt.Errorf("extension %q must start with '.'", e)
		}
	}
	if cfg.FetchTimeout < 0 {
		return errors.New("fetch timeout must be positive")
	}
	if cfg.MaxAttempts < 0 || cfg.Concurrency < 0 || cfg.ExcerptChars < 0 || cfg.RateLimit < 0 || cfg.RateBurst < 0 {
		return errors.New("negative limits are not allowed")
	}
	if !knownBackend(cfg.StoreBackend) {
		return fmt.Errorf("%w %q (want one of %s)", store.ErrUnknownBackend, cfg.StoreBackend, strings.Join(store.Backends, ", "))
	}
	if b := strings.ToLower(strings.TrimSpace(cfg.StoreBackend)); (b == "sqlite" || b == "leveldb") && strings.TrimSpace(cfg.StorePath) == "" {
		return fmt.Errorf("store.path is required for the %s backend", b)
	}
	if _, ok := extract.NewExtractor(cfg.HTMLExtractor); !ok {
		return fmt.Errorf("unknown html extractor %q", cfg.HTMLExtractor)
	}
	return nil
}

// withDefaults fills zero values the CLI would otherwise have set.
func withDefaults(cfg Config) Config {
	cfg.Keywords = nonEmpty(cfg.Keywords)
	cfg.Seeds = nonEmpty(cfg.Seeds)
	if cfg.VisitedPath == "" {
		cfg.VisitedPath = DefaultVisitedPath
	}
	if cfg.ResultsPath == "" {
		cfg.ResultsPath = DefaultResultsPath
	}
	if cfg.LockPath == "" {
		cfg.LockPath = defaultLockPath(cfg)
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.ExcerptChars == 0 {
		cfg.ExcerptChars = DefaultExcerptChars
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

// defaultLockPath places the lock next to the state it protects.
func defaultLockPath(cfg Config) string {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "sqlite", "leveldb":
		return strings.TrimRight(cfg.StorePath, "/") + ".lock"
	}
	return cfg.ResultsPath + ".lock"
}

func knownBackend(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return true
	}
	for _, b := range store.Backends {
		if b == name {
			return true
		}
	}
	return false
}

// nonEmpty trims every entry and drops blanks.
func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitList parses a comma-separated list, dropping blank entries.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return nonEmpty(strings.Split(s, ","))
}

func backendName(cfg Config) string {
	if b := strings.ToLower(strings.TrimSpace(cfg.StoreBackend)); b != "" {
		return b
	}
	return "json"
}
