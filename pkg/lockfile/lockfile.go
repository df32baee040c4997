package lockfile

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Lock holds an exclusive advisory flock on a lock file. It serializes
// read-modify-write cycles on the JSON stores across processes.
type Lock struct {
	file *os.File
}

// Acquire takes an exclusive advisory lock on path, creating the file if
// needed. The call blocks until the lock is available.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	return &Lock{file: f}, nil
}

// Release drops the lock. Safe to call once per Acquire.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}
	return closeErr
}

// WithLock runs fn while holding an exclusive lock on path
func WithLock(path string, fn func() error) error {
	l, err := Acquire(path)
	if err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
