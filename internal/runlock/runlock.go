// Package runlock enforces single-instance execution via an exclusive
// advisory lock on a well-known path. Two concurrent runs would race on the
// same host mutations, so failure to acquire is fatal for the caller.
package runlock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultPath is the default lock file path.
const DefaultPath = "/run/meshup.lock"

// ErrHeld is returned when another process already holds the lock.
var ErrHeld = errors.New("runlock: already held by another process")

// Lock is an acquired run lock. The kernel releases the flock automatically
// when the process exits, including on signal-driven termination; Release
// exists for orderly shutdown paths.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive, non-blocking flock on path, creating the file
// if needed. It returns ErrHeld if another process holds the lock.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("runlock: open %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (lock file %s)", ErrHeld, path)
		}
		return nil, fmt.Errorf("runlock: flock %s: %w", path, err)
	}

	// Record the holder pid for diagnostics only; the flock is authoritative.
	_ = f.Truncate(0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())

	return &Lock{f: f}, nil
}

// Release drops the lock. Safe to call once; the lock file itself is left
// in place.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return fmt.Errorf("runlock: unlock: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("runlock: close: %w", closeErr)
	}
	return nil
}
