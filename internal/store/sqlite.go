package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLite stores visited addresses and matches in one database file. Saves
// only insert rows that are not present yet.
type SQLite struct {
	db *sql.DB
}

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS visited (
	url TEXT PRIMARY KEY,
	recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
	url TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	keywords TEXT NOT NULL DEFAULT '[]',
	excerpt TEXT NOT NULL DEFAULT '',
	UNIQUE (url, timestamp)
);

CREATE INDEX IF NOT EXISTS matches_timestamp ON matches (timestamp);
`

// OpenSQLite opens (and creates when missing) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("store: sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// A single connection serializes writers within the process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set WAL mode: %w", corrupt(err))
	}
	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create tables: %w", corrupt(err))
	}
	return &SQLite{db: db}, nil
}

// corrupt tags errors sqlite reports for files that are not a usable database.
func corrupt(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}
	return err
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) LoadVisited(ctx context.Context) (*VisitedSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM visited`)
	if err != nil {
		return NewVisitedSet(), &LoadError{Path: "sqlite:visited", Err: err}
	}
	defer rows.Close()
	set := NewVisitedSet()
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return NewVisitedSet(), &LoadError{Path: "sqlite:visited", Err: err}
		}
		set.Record(u)
	}
	if err := rows.Err(); err != nil {
		return NewVisitedSet(), &LoadError{Path: "sqlite:visited", Err: err}
	}
	return set, nil
}

func (s *SQLite) SaveVisited(ctx context.Context, set *VisitedSet) error {
	if set == nil {
		return nil
	}
	now := time.Now().Unix()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO visited (url, recorded_at) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, u := range set.Sorted() {
			if _, err := stmt.ExecContext(ctx, u, now); err != nil {
				return fmt.Errorf("store: save visited %s: %w", u, err)
			}
		}
		return nil
	})
}

func (s *SQLite) LoadResults(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, timestamp, keywords, excerpt FROM matches`)
	if err != nil {
		return []Record{}, &LoadError{Path: "sqlite:matches", Err: err}
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		var (
			r        Record
			ts, kwds string
		)
		if err := rows.Scan(&r.URL, &ts, &kwds, &r.Excerpt); err != nil {
			return []Record{}, &LoadError{Path: "sqlite:matches", Err: err}
		}
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return []Record{}, &LoadError{Path: "sqlite:matches", Err: err}
		}
		if err := json.Unmarshal([]byte(kwds), &r.Keywords); err != nil {
			return []Record{}, &LoadError{Path: "sqlite:matches", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return []Record{}, &LoadError{Path: "sqlite:matches", Err: err}
	}
	SortRecords(out)
	return out, nil
}

func (s *SQLite) SaveResults(ctx context.Context, rs []Record) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO matches (url, timestamp, keywords, excerpt) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rs {
			kw := r.Keywords
			if kw == nil {
				kw = []string{}
			}
			kwds, err := json.Marshal(kw)
			if err != nil {
				return err
			}
			ts := r.Timestamp.UTC().Format(time.RFC3339Nano)
			if _, err := stmt.ExecContext(ctx, r.URL, ts, string(kwds), r.Excerpt); err != nil {
				return fmt.Errorf("store: save match %s: %w", r.URL, err)
			}
		}
		return nil
	})
}

func (s *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
