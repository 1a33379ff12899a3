// Package lock guards against two burst runs sharing one lock file.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("another burst run holds the lock")

// RunLock is an acquired advisory file lock.
type RunLock struct {
	fl *flock.Flock
}

// Acquire takes a non-blocking exclusive lock on path, creating the file and
// its parent directory if needed.
func Acquire(path string) (*RunLock, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("lock directory: %w", err)
		}
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &RunLock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	if l == nil {
		return ""
	}
	return l.fl.Path()
}

// Release unlocks the file. It is safe on a nil lock and when called twice.
func (l *RunLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
