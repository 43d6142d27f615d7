package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gofrs/flock"
	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/utils"
)

// dirLock keeps a second savesync process out of the data dir while the
// registries are open.
type dirLock struct {
	flock *flock.Flock
}

func newDirLock(path string) *dirLock {
	return &dirLock{flock: flock.New(path)}
}

func (l *dirLock) Lock() error {
	if err := utils.EnsureParent(l.flock.Path()); err != nil {
		return fmt.Errorf("%w: create lock directory: %w", apperr.ErrIO, err)
	}

	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("%w: lock data dir: %w", apperr.ErrIO, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", apperr.ErrLocked, l.flock.Path())
	}
	return nil
}

func (l *dirLock) Unlock() error {
	// only the holder removes the lock file
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("unlock data dir: %w", err)
	}
	if err := os.Remove(l.flock.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
