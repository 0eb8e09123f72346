package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables recognized by ApplyEnvToConfig and ApplyEnvOverrides.
// List values are comma-separated.
const (
	envKeywords      = "DOCWATCH_KEYWORDS"
	envSeeds         = "DOCWATCH_SEEDS"
	envExtensions    = "DOCWATCH_EXTENSIONS"
	envVisited       = "DOCWATCH_VISITED"
	envResults       = "DOCWATCH_RESULTS"
	envStoreBackend  = "DOCWATCH_STORE"
	envStorePath     = "DOCWATCH_STORE_PATH"
	envLockPath      = "DOCWATCH_LOCK"
	envBackup        = "DOCWATCH_BACKUP"
	envFetchTimeout  = "DOCWATCH_FETCH_TIMEOUT"
	envMaxAttempts   = "DOCWATCH_MAX_ATTEMPTS"
	envUserAgent     = "DOCWATCH_USER_AGENT"
	envConcurrency   = "DOCWATCH_CONCURRENCY"
	envRateLimit     = "DOCWATCH_RATE_LIMIT"
	envSSLVerify     = "SSL_VERIFY"
	envRobots        = "DOCWATCH_ROBOTS"
	envCacheDir      = "CACHE_DIR"
	envCacheMaxAge   = "CACHE_MAX_AGE"
	envCacheClear    = "CACHE_CLEAR"
	envHTMLExtractor = "DOCWATCH_HTML_EXTRACTOR"
	envDiscoveryFile = "DOCWATCH_DISCOVERY_FILE"
	envExcerptChars  = "DOCWATCH_EXCERPT_CHARS"
	envMatchListing  = "DOCWATCH_MATCH_LISTING"
	envReport        = "DOCWATCH_REPORT"
	envSummary       = "DOCWATCH_SUMMARY"
	envDryRun        = "DRY_RUN"
	envVerbose       = "VERBOSE"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	setList := func(dst *[]string, envKey string) {
		if len(*dst) == 0 {
			*dst = SplitList(os.Getenv(envKey))
		}
	}
	setList(&cfg.Keywords, envKeywords)
	setList(&cfg.Seeds, envSeeds)
	setList(&cfg.Extensions, envExtensions)

	setString := func(dst *string, envKey string) {
		if *dst == "" {
			*dst = strings.TrimSpace(os.Getenv(envKey))
		}
	}
	setString(&cfg.VisitedPath, envVisited)
	setString(&cfg.ResultsPath, envResults)
	setString(&cfg.StoreBackend, envStoreBackend)
	setString(&cfg.StorePath, envStorePath)
	setString(&cfg.LockPath, envLockPath)
	setString(&cfg.UserAgent, envUserAgent)
	setString(&cfg.CacheDir, envCacheDir)
	setString(&cfg.HTMLExtractor, envHTMLExtractor)
	setString(&cfg.DiscoveryFile, envDiscoveryFile)
	setString(&cfg.ReportPath, envReport)
	setString(&cfg.SummaryPath, envSummary)

	setInt := func(dst *int, envKey string) {
		if *dst != 0 {
			return
		}
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(envKey))); err == nil && n > 0 {
			*dst = n
		}
	}
	setInt(&cfg.MaxAttempts, envMaxAttempts)
	setInt(&cfg.Concurrency, envConcurrency)
	setInt(&cfg.ExcerptChars, envExcerptChars)

	if cfg.RateLimit == 0 {
		if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(envRateLimit)), 64); err == nil && f > 0 {
			cfg.RateLimit = f
		}
	}

	// Optional durations
	setDuration := func(dst *time.Duration, envKey string) {
		if *dst != 0 {
			return
		}
		if s := os.Getenv(envKey); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				*dst = d
			}
		}
	}
	setDuration(&cfg.FetchTimeout, envFetchTimeout)
	setDuration(&cfg.CacheMaxAge, envCacheMaxAge)

	// Booleans
	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			if s == "1" || s == "true" || s == "yes" || s == "on" {
				*dst = true
			}
		}
	}
	setBool(&cfg.Backup, envBackup)
	setBool(&cfg.RespectRobots, envRobots)
	setBool(&cfg.CacheClear, envCacheClear)
	setBool(&cfg.MatchListing, envMatchListing)
	setBool(&cfg.DryRun, envDryRun)
	setBool(&cfg.Verbose, envVerbose)
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This is used to let env take
// precedence over values coming from a config file while still allowing flags
// to remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := SplitList(os.Getenv(envKeywords)); len(v) > 0 {
		cfg.Keywords = v
	}
	if v := SplitList(os.Getenv(envSeeds)); len(v) > 0 {
		cfg.Seeds = v
	}
	if v := SplitList(os.Getenv(envExtensions)); len(v) > 0 {
		cfg.Extensions = v
	}

	strs := []struct {
		dst *string
		key string
	}{
		{&cfg.VisitedPath, envVisited},
		{&cfg.ResultsPath, envResults},
		{&cfg.StoreBackend, envStoreBackend},
		{&cfg.StorePath, envStorePath},
		{&cfg.LockPath, envLockPath},
		{&cfg.UserAgent, envUserAgent},
		{&cfg.CacheDir, envCacheDir},
		{&cfg.HTMLExtractor, envHTMLExtractor},
		{&cfg.DiscoveryFile, envDiscoveryFile},
		{&cfg.ReportPath, envReport},
		{&cfg.SummaryPath, envSummary},
	}
	for _, s := range strs {
		if v := strings.TrimSpace(os.Getenv(s.key)); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		dst *int
		key string
	}{
		{&cfg.MaxAttempts, envMaxAttempts},
		{&cfg.Concurrency, envConcurrency},
		{&cfg.ExcerptChars, envExcerptChars},
	}
	for _, n := range ints {
		if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(n.key))); err == nil && v > 0 {
			*n.dst = v
		}
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(envRateLimit)), 64); err == nil && f > 0 {
		cfg.RateLimit = f
	}

	if s := os.Getenv(envFetchTimeout); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.FetchTimeout = d
		}
	}
	if s := os.Getenv(envCacheMaxAge); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.CacheMaxAge = d
		}
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.Backup, envBackup)
	verify := !cfg.InsecureSkipVerify
	setBool(&verify, envSSLVerify)
	cfg.InsecureSkipVerify = !verify
	setBool(&cfg.RespectRobots, envRobots)
	setBool(&cfg.CacheClear, envCacheClear)
	setBool(&cfg.MatchListing, envMatchListing)
	setBool(&cfg.DryRun, envDryRun)
	setBool(&cfg.Verbose, envVerbose)
}
