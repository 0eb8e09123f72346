// Package diag collects the per-run diagnostics: counters and every error
// encountered, keyed by address and stage.
package diag

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Class groups failures by origin.
type Class string

const (
	ClassNetwork     Class = "network"
	ClassParse       Class = "parse"
	ClassPersistence Class = "persistence"
)

// Stage names the step of a run at which a failure occurred.
type Stage string

const (
	StageDiscover    Stage = "discover"
	StageFetch       Stage = "fetch"
	StageExtract     Stage = "extract"
	StageOpenStore   Stage = "open-store"
	StageLoadVisited Stage = "load-visited"
	StageLoadResults Stage = "load-results"
	StageSaveVisited Stage = "save-visited"
	StageSaveResults Stage = "save-results"
	StageWriteReport Stage = "write-report"
)

// Error is a failure bound to the address (or file) and stage where it happened.
type Error struct {
	URL   string
	Stage Stage
	Class Class
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "unknown error"
	}
	if e.Err == nil {
		return string(e.Stage) + ": unknown error"
	}
	return string(e.Stage) + " " + e.URL + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a diagnostic error, or nil when err is nil.
func New(url string, stage Stage, class Class, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{URL: url, Stage: stage, Class: class, Err: err}
}

// Entry is the serialized form of an Error.
type Entry struct {
	URL   string `json:"url"`
	Stage Stage  `json:"stage"`
	Class Class  `json:"class"`
	Error string `json:"error"`
}

// Summary is the ephemeral report of one run. Methods are safe for
// concurrent use.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run,omitempty"`
	Seeds      int       `json:"seeds"`
	Discovered int       `json:"discovered"`
	Skipped    int       `json:"skipped"`
	Analyzed   int       `json:"analyzed"`
	Matched    int       `json:"matched"`
	Errors     []Entry   `json:"errors"`
	// Pending lists the addresses a dry run would have analyzed.
	Pending []string `json:"pending,omitempty"`

	mu sync.Mutex
}

// NewSummary starts a summary with a fresh run identifier.
func NewSummary(now time.Time) *Summary {
	return &Summary{RunID: uuid.NewString(), StartedAt: now.UTC(), Errors: []Entry{}}
}

// Add records err. Nil is ignored.
func (s *Summary) Add(err *Error) {
	if err == nil {
		return
	}
	msg := "unknown error"
	if err.Err != nil {
		msg = err.Err.Error()
	}
	s.mu.Lock()
	s.Errors = append(s.Errors, Entry{URL: err.URL, Stage: err.Stage, Class: err.Class, Error: msg})
	s.mu.Unlock()
}

// AddPending records an address a dry run would analyze.
func (s *Summary) AddPending(url string) {
	s.mu.Lock()
	s.Pending = append(s.Pending, url)
	s.mu.Unlock()
}

// Count applies a counter update under the summary lock.
func (s *Summary) Count(fn func(s *Summary)) {
	s.mu.Lock()
	fn(s)
	s.mu.Unlock()
}

// HasClass reports whether any recorded error belongs to class c.
func (s *Summary) HasClass(c Class) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.Errors {
		if e.Class == c {
			return true
		}
	}
	return false
}

// Finish stamps the end time.
func (s *Summary) Finish(now time.Time) {
	s.mu.Lock()
	s.FinishedAt = now.UTC()
	s.mu.Unlock()
}

// JSON encodes the summary with stable indentation.
func (s *Summary) JSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.MarshalIndent(s, "", "  ")
}

// Log writes one warning per error and a final info line with the counters.
func (s *Summary) Log(l zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.Errors {
		l.Warn().Str("run", s.RunID).Str("url", e.URL).Str("stage", string(e.Stage)).
			Str("class", string(e.Class)).Msg(e.Error)
	}
	l.Info().
		Str("run", s.RunID).
		Int("seeds", s.Seeds).
		Int("discovered", s.Discovered).
		Int("skipped", s.Skipped).
		Int("analyzed", s.Analyzed).
		Int("matched", s.Matched).
		Int("errors", len(s.Errors)).
		Dur("elapsed", s.FinishedAt.Sub(s.StartedAt)).
		Msg("run finished")
}
