package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"iconsort/internal/services"
)

// ErrLocked marks a partition held by another run.
var ErrLocked = errors.New("output partition locked")

// Lock is an exclusive advisory lock on one slug's output partition.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the partition lock without blocking. A lock held by another
// process is reported as a configuration error.
func Acquire(layout Layout) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(layout.LockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(layout.LockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.WithRemediation(
			services.Wrap(services.ErrConfiguration, "artifacts", "lock",
				fmt.Sprintf("another run is writing outputs for %s", layout.Slug), ErrLocked),
			"wait for the other run to finish or remove "+layout.LockPath+" if it crashed",
		)
	}
	return &Lock{path: layout.LockPath, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release unlocks. Safe on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
