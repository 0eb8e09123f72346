// Package robots implements an optional robots.txt gate for listing pages and
// documents. Rules are fetched once per host and kept in memory for
// EntryExpiry.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

// Source tells where the rules for a host came from.
type Source int

const (
	SourceNetwork Source = iota
	SourceMemory
)

// Manager resolves and caches robots.txt rules per scheme+host.
type Manager struct {
	HTTPClient  *http.Client
	UserAgent   string
	EntryExpiry time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	rules  *robotstxt.RobotsData
	expiry time.Time
}

// Allowed reports whether rawURL may be fetched by UserAgent. Any failure to
// obtain or parse robots.txt allows the request.
func (m *Manager) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	rules, _, err := m.Get(ctx, u.Scheme+"://"+u.Host+"/robots.txt")
	if err != nil || rules == nil {
		log.Debug().Err(err).Str("url", rawURL).Msg("robots unavailable; allowing")
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return rules.TestAgent(path, m.agent())
}

// Get returns the parsed rules for robotsURL, served from memory when fresh.
func (m *Manager) Get(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, Source, error) {
	m.mu.Lock()
	if m.now == nil {
		m.now = time.Now
	}
	if m.mem == nil {
		m.mem = make(map[string]memEntry)
	}
	if ent, ok := m.mem[robotsURL]; ok && m.now().Before(ent.expiry) {
		m.mu.Unlock()
		return ent.rules, SourceMemory, nil
	}
	m.mu.Unlock()

	rules, err := m.fetch(ctx, robotsURL)
	if err != nil {
		return nil, SourceNetwork, err
	}
	m.storeMem(robotsURL, rules)
	return rules, SourceNetwork, nil
}

func (m *Manager) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}
	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Missing or failing robots.txt means no restrictions.
		return robotstxt.FromString("")
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, fmt.Errorf("read robots: %w", err)
	}
	rules, err := robotstxt.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return rules, nil
}

func (m *Manager) storeMem(key string, rules *robotstxt.RobotsData) {
	exp := m.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	m.mu.Lock()
	m.mem[key] = memEntry{rules: rules, expiry: m.now().Add(exp)}
	m.mu.Unlock()
}

// agent reduces a full User-Agent header to the product token robots.txt
// groups are keyed by.
func (m *Manager) agent() string {
	ua := strings.TrimSpace(m.UserAgent)
	if ua == "" {
		return "*"
	}
	if i := strings.IndexAny(ua, "/ "); i > 0 {
		ua = ua[:i]
	}
	return ua
}
