package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked means another process holds the run lock.
var ErrLocked = errors.New("another run holds the lock")

// Lock takes an exclusive, non-blocking lock on path. The persisted state is
// read-modify-write, so only one run may hold it at a time. Call Unlock on the
// returned lock when the run has saved its state.
func Lock(path string) (*flock.Flock, error) {
	if path == "" {
		return nil, errors.New("lock path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return fl, nil
}
