package flock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLocked indicates the lock is held by another file descriptor.
var ErrLocked = errors.New("file is locked")

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// TryLockFile opens (creating if needed) the file at path and takes an
// exclusive lock on it without blocking. The parent directory is created.
// On success the caller owns the returned file and must call Release.
func TryLockFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, filePerm) //#nosec G304 -- path is built by callers from the releaser home
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := Exclusive(f.Fd()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return f, nil
}

// Release unlocks and closes a file returned by TryLockFile.
// The lock file itself is left on disk; removing it would race with a
// process that has opened but not yet locked it.
func Release(f *os.File) error {
	if f == nil {
		return nil
	}
	unlockErr := Unlock(f.Fd())
	closeErr := f.Close()
	return errors.Join(unlockErr, closeErr)
}
