package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	relerrors "github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/flock"
)

// FileLocker takes an exclusive flock on <dir>/<key>.lock. The lock is
// released by the kernel if the process dies, so a crashed run never
// leaves a package locked.
type FileLocker struct {
	dir string
}

// NewFileLocker creates a FileLocker storing lock files in dir.
func NewFileLocker(dir string) *FileLocker {
	return &FileLocker{dir: dir}
}

// Path returns the lock file path for key.
func (l *FileLocker) Path(key string) string {
	return filepath.Join(l.dir, key+".lock")
}

// Acquire implements Locker.
func (l *FileLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if l.dir == "" {
		return nil, fmt.Errorf("lock directory %w", relerrors.ErrEmptyValue)
	}

	f, err := flock.TryLockFile(l.Path(key))
	if errors.Is(err, flock.ErrLocked) {
		return nil, fmt.Errorf("package %s: %w", key, relerrors.ErrRunLocked)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", key, err)
	}

	// Record the holder for operators inspecting a stuck lock.
	_ = f.Truncate(0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())

	return &fileLease{key: key, f: f}, nil
}

// Close implements Locker.
func (l *FileLocker) Close() error {
	return nil
}

type fileLease struct {
	key  string
	once sync.Once
	f    *os.File
	err  error
}

func (l *fileLease) Key() string {
	return l.key
}

func (l *fileLease) Release(context.Context) error {
	l.once.Do(func() {
		l.err = flock.Release(l.f)
	})
	return l.err
}

var _ Locker = (*FileLocker)(nil)
