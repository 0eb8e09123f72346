package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to the dotted flag names.
type FileConfig struct {
	Keywords   []string `yaml:"keywords" json:"keywords"`
	Seeds      []string `yaml:"seeds" json:"seeds"`
	Extensions []string `yaml:"extensions" json:"extensions"`

	Store struct {
		Backend string `yaml:"backend" json:"backend"`
		Path    string `yaml:"path" json:"path"`
		Visited string `yaml:"visited" json:"visited"`
		Results string `yaml:"results" json:"results"`
		Lock    string `yaml:"lock" json:"lock"`
		Backup  bool   `yaml:"backup" json:"backup"`
	} `yaml:"store" json:"store"`

	Fetch struct {
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
		MaxAttempts int           `yaml:"maxAttempts" json:"maxAttempts"`
		UserAgent   string        `yaml:"userAgent" json:"userAgent"`
		Concurrency int           `yaml:"concurrency" json:"concurrency"`
		RateLimit   float64       `yaml:"rateLimit" json:"rateLimit"`
		RateBurst   int           `yaml:"rateBurst" json:"rateBurst"`
		SSLVerify   *bool         `yaml:"sslVerify" json:"sslVerify"`
	} `yaml:"fetch" json:"fetch"`

	Robots struct {
		Respect bool `yaml:"respect" json:"respect"`
	} `yaml:"robots" json:"robots"`

	Cache struct {
		Dir    string        `yaml:"dir" json:"dir"`
		MaxAge time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear  bool          `yaml:"clear" json:"clear"`
	} `yaml:"cache" json:"cache"`

	Extract struct {
		HTML         string `yaml:"html" json:"html"`
		ExcerptChars int    `yaml:"excerptChars" json:"excerptChars"`
	} `yaml:"extract" json:"extract"`

	Discovery struct {
		File string `yaml:"file" json:"file"`
	} `yaml:"discovery" json:"discovery"`

	Match struct {
		Listing bool `yaml:"listing" json:"listing"`
	} `yaml:"match" json:"match"`

	Report struct {
		Path    string `yaml:"path" json:"path"`
		Summary string `yaml:"summary" json:"summary"`
	} `yaml:"report" json:"report"`

	DryRun  bool `yaml:"dryRun" json:"dryRun"`
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their flag default. Flags should already have
// been parsed; this lets the file supply values while preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	if len(cfg.Keywords) == 0 && len(fc.Keywords) > 0 {
		cfg.Keywords = append([]string{}, fc.Keywords...)
	}
	if len(cfg.Seeds) == 0 && len(fc.Seeds) > 0 {
		cfg.Seeds = append([]string{}, fc.Seeds...)
	}
	if len(cfg.Extensions) == 0 && len(fc.Extensions) > 0 {
		cfg.Extensions = append([]string{}, fc.Extensions...)
	}

	if cfg.StoreBackend == "" && fc.Store.Backend != "" {
		cfg.StoreBackend = fc.Store.Backend
	}
	if cfg.StorePath == "" && fc.Store.Path != "" {
		cfg.StorePath = fc.Store.Path
	}
	if (cfg.VisitedPath == "" || cfg.VisitedPath == DefaultVisitedPath) && fc.Store.Visited != "" {
		cfg.VisitedPath = fc.Store.Visited
	}
	if (cfg.ResultsPath == "" || cfg.ResultsPath == DefaultResultsPath) && fc.Store.Results != "" {
		cfg.ResultsPath = fc.Store.Results
	}
	if cfg.LockPath == "" && fc.Store.Lock != "" {
		cfg.LockPath = fc.Store.Lock
	}
	if !cfg.Backup && fc.Store.Backup {
		cfg.Backup = true
	}

	if (cfg.FetchTimeout == 0 || cfg.FetchTimeout == DefaultFetchTimeout) && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if (cfg.MaxAttempts == 0 || cfg.MaxAttempts == DefaultMaxAttempts) && fc.Fetch.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.Fetch.MaxAttempts
	}
	if (cfg.UserAgent == "" || cfg.UserAgent == DefaultUserAgent) && fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if (cfg.Concurrency == 0 || cfg.Concurrency == DefaultConcurrency) && fc.Fetch.Concurrency > 0 {
		cfg.Concurrency = fc.Fetch.Concurrency
	}
	if cfg.RateLimit == 0 && fc.Fetch.RateLimit > 0 {
		cfg.RateLimit = fc.Fetch.RateLimit
	}
	if cfg.RateBurst == 0 && fc.Fetch.RateBurst > 0 {
		cfg.RateBurst = fc.Fetch.RateBurst
	}
	if !cfg.InsecureSkipVerify && fc.Fetch.SSLVerify != nil && !*fc.Fetch.SSLVerify {
		cfg.InsecureSkipVerify = true
	}
	if !cfg.RespectRobots && fc.Robots.Respect {
		cfg.RespectRobots = true
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}

	if cfg.HTMLExtractor == "" && fc.Extract.HTML != "" {
		cfg.HTMLExtractor = fc.Extract.HTML
	}
	if (cfg.ExcerptChars == 0 || cfg.ExcerptChars == DefaultExcerptChars) && fc.Extract.ExcerptChars > 0 {
		cfg.ExcerptChars = fc.Extract.ExcerptChars
	}
	if cfg.DiscoveryFile == "" && fc.Discovery.File != "" {
		cfg.DiscoveryFile = fc.Discovery.File
	}
	if !cfg.MatchListing && fc.Match.Listing {
		cfg.MatchListing = true
	}
	if cfg.ReportPath == "" && fc.Report.Path != "" {
		cfg.ReportPath = fc.Report.Path
	}
	if cfg.SummaryPath == "" && fc.Report.Summary != "" {
		cfg.SummaryPath = fc.Report.Summary
	}
	if !cfg.DryRun && fc.DryRun {
		cfg.DryRun = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}
