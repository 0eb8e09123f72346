// Package store persists the visited-address set and the results log. The
// default backend keeps the two JSON files; sqlite and leveldb backends key
// both on the document address and only append.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// backupStamp names the copies kept of replaced or unreadable state.
const backupStamp = "20060102T150405.000000000Z"

// VisitedStore loads and saves the visited-address set.
type VisitedStore interface {
	LoadVisited(ctx context.Context) (*VisitedSet, error)
	SaveVisited(ctx context.Context, s *VisitedSet) error
}

// ResultStore loads and saves the results log, newest first.
type ResultStore interface {
	LoadResults(ctx context.Context) ([]Record, error)
	SaveResults(ctx context.Context, rs []Record) error
}

// Backend bundles both stores.
type Backend interface {
	VisitedStore
	ResultStore
	Close() error
}

// LoadError reports persisted state that could not be read. Callers fall back
// to the empty state that accompanies it.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return "load " + e.Path + ": " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// Options selects and configures a backend.
type Options struct {
	// Backend is "json" (default), "sqlite" or "leveldb".
	Backend string
	// VisitedPath and ResultsPath are the JSON files.
	VisitedPath string
	ResultsPath string
	// Path is the database file (sqlite) or directory (leveldb).
	Path string
	// Backup copies each JSON file aside before it is replaced.
	Backup bool
}

var (
	// ErrUnknownBackend is returned by Open for unsupported backend names.
	ErrUnknownBackend = errors.New("unknown store backend")
	// ErrCorrupt marks a database that exists but cannot be opened as one.
	ErrCorrupt = errors.New("database unreadable")
)

// Backends lists the accepted backend names.
var Backends = []string{"json", "sqlite", "leveldb"}

// Open constructs the configured backend. An unreadable database is moved
// aside and replaced by an empty one; Open then returns the fresh backend
// together with a *LoadError.
func Open(opts Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "json":
		return &JSONFiles{VisitedPath: opts.VisitedPath, ResultsPath: opts.ResultsPath, Backup: opts.Backup}, nil
	case "sqlite":
		return reopen(opts.Path, func(p string) (Backend, error) {
			db, err := OpenSQLite(p)
			if err != nil {
				return nil, err
			}
			return db, nil
		})
	case "leveldb":
		return reopen(opts.Path, func(p string) (Backend, error) {
			db, err := OpenLevelDB(p)
			if err != nil {
				return nil, err
			}
			return db, nil
		})
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}

func reopen(path string, open func(string) (Backend, error)) (Backend, error) {
	b, err := open(path)
	if err == nil || !errors.Is(err, ErrCorrupt) {
		return b, err
	}
	path = strings.TrimRight(path, "/")
	bak := path + "." + time.Now().UTC().Format(backupStamp) + ".bak"
	if rerr := os.Rename(path, bak); rerr != nil {
		return nil, fmt.Errorf("%w (move aside: %w)", err, rerr)
	}
	// SQLite sidecars belong to the moved file.
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if _, serr := os.Stat(path + suffix); serr == nil {
			_ = os.Rename(path+suffix, bak+suffix)
		}
	}
	b, oerr := open(path)
	if oerr != nil {
		return nil, oerr
	}
	return b, &LoadError{Path: path, Err: fmt.Errorf("%w; moved to %s", err, bak)}
}
