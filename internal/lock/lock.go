// Package lock guards a package against concurrent release runs.
//
// A run acquires the lock for its package name before the first step and
// releases it when the run ends. Acquisition never waits: a held lock fails
// immediately with ErrRunLocked, so a second run for the same package stops
// instead of racing the first one to the registry.
package lock

import (
	"context"
	"fmt"
	"regexp"
	"time"

	relerrors "github.com/hydragram/releaser/internal/errors"
)

// Backend names accepted by New.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// ValidBackends lists every backend name in display order.
var ValidBackends = []string{BackendFile, BackendRedis, BackendNone}

// keyPattern restricts lock keys to characters safe in file names and Redis keys.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Lease is a held lock.
type Lease interface {
	// Key returns the key the lease was acquired for.
	Key() string
	// Release gives the lock up. Releasing twice is a no-op.
	Release(ctx context.Context) error
}

// Locker hands out leases.
type Locker interface {
	// Acquire takes the lock for key or fails with ErrRunLocked.
	Acquire(ctx context.Context, key string) (Lease, error)
	// Close frees backend resources.
	Close() error
}

// ValidateKey rejects keys that could escape the lock namespace.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("lock key %q: %w", key, relerrors.ErrPathTraversal)
	}
	return nil
}

// IsValidBackend reports whether name is a known backend.
func IsValidBackend(name string) bool {
	for _, b := range ValidBackends {
		if b == name {
			return true
		}
	}
	return false
}

// Options configures New.
type Options struct {
	Backend  string
	Dir      string
	RedisURL string
	TTL      time.Duration
}

// New builds the Locker for opts.Backend.
func New(opts Options) (Locker, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileLocker(opts.Dir), nil
	case BackendRedis:
		return NewRedisLocker(opts.RedisURL, opts.TTL), nil
	case BackendNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("lock backend %q: %w", opts.Backend, relerrors.ErrConfigInvalidLock)
	}
}

// Noop always acquires. It reproduces an automator with no run guard.
type Noop struct{}

type noopLease string

func (l noopLease) Key() string {
	return string(l)
}

func (noopLease) Release(context.Context) error {
	return nil
}

// Acquire implements Locker.
func (Noop) Acquire(ctx context.Context, key string) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return noopLease(key), nil
}

// Close implements Locker.
func (Noop) Close() error { return nil }

var _ Locker = Noop{}
