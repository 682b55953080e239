// Package history persists release run records.
// Records are JSON files written atomically and guarded by file locks, so
// concurrent readers never see a partial record.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hydragram/releaser/internal/constants"
	relerrors "github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/flock"
	"github.com/hydragram/releaser/internal/pipeline"
)

// Directory and file permission constants.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// lockRetryInterval is the pause between lock attempts.
const lockRetryInterval = 50 * time.Millisecond

// Store defines run record persistence.
type Store interface {
	pipeline.Saver

	// Get returns the record with id or ErrRunNotFound.
	Get(ctx context.Context, id string) (*pipeline.Run, error)

	// List returns every record, newest first.
	List(ctx context.Context) ([]*pipeline.Run, error)

	// Delete removes a record.
	Delete(ctx context.Context, id string) error
}

// FileStore implements Store under <home>/runs.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at home. An empty home uses
// ~/.releaser.
func NewFileStore(home string) (*FileStore, error) {
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		home = filepath.Join(userHome, constants.ReleaserHome)
	}
	return &FileStore{dir: filepath.Join(home, constants.RunsDir)}, nil
}

// Dir returns the directory holding run records.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes run, replacing any earlier record with the same ID.
func (s *FileStore) Save(ctx context.Context, run *pipeline.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("failed to save run: run %w", relerrors.ErrEmptyValue)
	}
	if err := pipeline.ValidateRunID(run.ID); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	lockFile, err := s.acquireLock(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to save run '%s': %w", run.ID, err)
	}
	defer func() { _ = flock.Release(lockFile) }()

	run.SchemaVersion = constants.RunSchemaVersion
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to save run '%s': %w", run.ID, err)
	}

	if err := atomicWrite(s.recordPath(run.ID), data); err != nil {
		return fmt.Errorf("failed to save run '%s': %w", run.ID, err)
	}
	return nil
}

// Get reads one record.
func (s *FileStore) Get(ctx context.Context, id string) (*pipeline.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := pipeline.ValidateRunID(id); err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	path := s.recordPath(id)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to get run '%s': %w", id, relerrors.ErrRunNotFound)
	}

	lockFile, err := s.acquireLock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run '%s': %w", id, err)
	}
	defer func() { _ = flock.Release(lockFile) }()

	data, err := os.ReadFile(path) //#nosec G304 -- id is validated and the path is built from the store root
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to get run '%s': %w", id, relerrors.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run '%s': %w", id, err)
	}

	var run pipeline.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run '%s': corrupted record: %w", id, err)
	}
	return &run, nil
}

// List returns every readable record, newest first. Unreadable or
// foreign files are skipped.
func (s *FileStore) List(ctx context.Context) ([]*pipeline.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []*pipeline.Run{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*pipeline.Run, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		if pipeline.ValidateRunID(id) != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		run, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// Delete removes the record with id.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := pipeline.ValidateRunID(id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	lockFile, err := s.acquireLock(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete run '%s': %w", id, err)
	}
	defer func() {
		_ = flock.Release(lockFile)
		_ = os.Remove(s.lockPath(id))
	}()

	err = os.Remove(s.recordPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete run '%s': %w", id, relerrors.ErrRunNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete run '%s': %w", id, err)
	}
	return nil
}

func (s *FileStore) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) lockPath(id string) string {
	return filepath.Join(s.dir, "."+id+".lock")
}

// acquireLock takes the record lock, retrying until LockTimeout.
func (s *FileStore) acquireLock(ctx context.Context, id string) (*os.File, error) {
	deadline := time.Now().Add(constants.LockTimeout)
	for {
		f, err := flock.TryLockFile(s.lockPath(id))
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, flock.ErrLocked) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("failed to acquire lock: %w", relerrors.ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// atomicWrite writes data to a temp file and renames it over path.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
