package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hyperifyio/docwatch/internal/cache"
)

// JSONFiles keeps the visited set as a sorted JSON array of addresses and the
// results as an indented JSON array of records. Each save rewrites the whole
// file atomically.
type JSONFiles struct {
	VisitedPath string
	ResultsPath string
	// Backup copies the previous file to <path>.<UTC stamp>.bak before replacing it.
	Backup bool

	now func() time.Time
	// unreadable holds paths that failed to load; they are always backed up
	// before the first overwrite.
	unreadable map[string]bool
}

// LoadVisited returns an empty set when the file is missing or empty. A
// corrupt file also yields an empty set, together with a *LoadError.
func (j *JSONFiles) LoadVisited(_ context.Context) (*VisitedSet, error) {
	b, err := readState(j.VisitedPath)
	if err != nil || b == nil {
		return NewVisitedSet(), j.failed(j.VisitedPath, err)
	}
	var urls []string
	if err := json.Unmarshal(b, &urls); err != nil {
		return NewVisitedSet(), j.failed(j.VisitedPath, &LoadError{Path: j.VisitedPath, Err: err})
	}
	return NewVisitedSet(urls...), nil
}

// SaveVisited writes the full set, sorted.
func (j *JSONFiles) SaveVisited(_ context.Context, s *VisitedSet) error {
	urls := []string{}
	if s != nil {
		urls = s.Sorted()
	}
	return j.write(j.VisitedPath, urls)
}

// LoadResults mirrors LoadVisited for the results log.
func (j *JSONFiles) LoadResults(_ context.Context) ([]Record, error) {
	b, err := readState(j.ResultsPath)
	if err != nil || b == nil {
		return []Record{}, j.failed(j.ResultsPath, err)
	}
	var rs []Record
	if err := json.Unmarshal(b, &rs); err != nil {
		return []Record{}, j.failed(j.ResultsPath, &LoadError{Path: j.ResultsPath, Err: err})
	}
	SortRecords(rs)
	return rs, nil
}

// SaveResults writes every record, newest first.
func (j *JSONFiles) SaveResults(_ context.Context, rs []Record) error {
	out := make([]Record, len(rs))
	copy(out, rs)
	SortRecords(out)
	return j.write(j.ResultsPath, out)
}

func (j *JSONFiles) Close() error { return nil }

func (j *JSONFiles) failed(path string, err error) error {
	if err == nil {
		return nil
	}
	if j.unreadable == nil {
		j.unreadable = make(map[string]bool)
	}
	j.unreadable[path] = true
	return err
}

func (j *JSONFiles) write(path string, v any) error {
	if path == "" {
		return errors.New("state path not configured")
	}
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if j.Backup || j.unreadable[path] {
		if err := j.backup(path); err != nil {
			return err
		}
		delete(j.unreadable, path)
	}
	return cache.WriteFileAtomic(path, data, 0o644)
}

func (j *JSONFiles) backup(path string) error {
	prev, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read for backup: %w", err)
	}
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	bak := path + "." + now().UTC().Format(backupStamp) + ".bak"
	if err := cache.WriteFileAtomic(bak, prev, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

// encode produces 2-space indented UTF-8 JSON without HTML escaping.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readState returns nil, nil for a missing or blank file.
func readState(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	return b, nil
}
