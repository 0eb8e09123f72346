package store

import (
	"sort"
	"sync"
)

// VisitedSet is the set of document addresses already processed. It is safe
// for concurrent use.
type VisitedSet struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

// NewVisitedSet returns a set holding urls.
func NewVisitedSet(urls ...string) *VisitedSet {
	s := &VisitedSet{urls: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		if u != "" {
			s.urls[u] = struct{}{}
		}
	}
	return s
}

// Contains reports whether url was recorded.
func (s *VisitedSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.urls[url]
	return ok
}

// Record adds url and reports whether it was newly added. Re-adding is a no-op.
func (s *VisitedSet) Record(url string) bool {
	if url == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.urls == nil {
		s.urls = make(map[string]struct{})
	}
	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}

// Len returns the number of addresses.
func (s *VisitedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls)
}

// Sorted returns the addresses in ascending order.
func (s *VisitedSet) Sorted() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.urls))
	for u := range s.urls {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
