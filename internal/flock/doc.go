// Package flock provides cross-platform, non-blocking exclusive file locks.
//
// The run lock and the run history store both use it:
//
//	f, err := flock.TryLockFile(path)
//	if errors.Is(err, flock.ErrLocked) {
//	    // another process holds it
//	}
//	defer flock.Release(f)
package flock
