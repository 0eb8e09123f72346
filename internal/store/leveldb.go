package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	visitedPrefix = "visited/"
	matchPrefix   = "match/"
)

// LevelDB keeps visited addresses as keys (existence is membership) and
// matches under match/<timestamp>/<url>. Saves are single batches.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens or creates the database directory at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	const op = "store.OpenLevelDB"
	if path == "" {
		return nil, errors.New(op + ": path is required")
	}
	db, err := leveldb.OpenFile(path, nil)
	if lerrors.IsCorrupted(err) {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		if fi, serr := os.Stat(path); lerrors.IsCorrupted(err) || (serr == nil && !fi.IsDir()) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrCorrupt, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Close() error { return l.db.Close() }

func (l *LevelDB) LoadVisited(_ context.Context) (*VisitedSet, error) {
	set := NewVisitedSet()
	it := l.db.NewIterator(util.BytesPrefix([]byte(visitedPrefix)), nil)
	defer it.Release()
	for it.Next() {
		set.Record(string(it.Key()[len(visitedPrefix):]))
	}
	if err := it.Error(); err != nil {
		return NewVisitedSet(), &LoadError{Path: "leveldb:visited", Err: err}
	}
	return set, nil
}

func (l *LevelDB) SaveVisited(_ context.Context, set *VisitedSet) error {
	if set == nil {
		return nil
	}
	batch := new(leveldb.Batch)
	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	for _, u := range set.Sorted() {
		key := []byte(visitedPrefix + u)
		if ok, err := l.db.Has(key, nil); err == nil && ok {
			continue
		}
		batch.Put(key, stamp)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := l.db.Write(batch, nil); err != nil {
		return fmt.Errorf("store.LevelDB.SaveVisited: %w", err)
	}
	return nil
}

func (l *LevelDB) LoadResults(_ context.Context) ([]Record, error) {
	out := []Record{}
	it := l.db.NewIterator(util.BytesPrefix([]byte(matchPrefix)), nil)
	defer it.Release()
	for it.Next() {
		var r Record
		if err := json.Unmarshal(it.Value(), &r); err != nil {
			return []Record{}, &LoadError{Path: "leveldb:match", Err: err}
		}
		out = append(out, r)
	}
	if err := it.Error(); err != nil {
		return []Record{}, &LoadError{Path: "leveldb:match", Err: err}
	}
	SortRecords(out)
	return out, nil
}

func (l *LevelDB) SaveResults(_ context.Context, rs []Record) error {
	batch := new(leveldb.Batch)
	for _, r := range rs {
		key := []byte(matchPrefix + r.key())
		if ok, err := l.db.Has(key, nil); err == nil && ok {
			continue
		}
		val, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("store.LevelDB.SaveResults: %w", err)
		}
		batch.Put(key, val)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := l.db.Write(batch, nil); err != nil {
		return fmt.Errorf("store.LevelDB.SaveResults: %w", err)
	}
	return nil
}
