// SPDX-License-Identifier: MPL-2.0

//go:build linux

package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

// LockFileName is the lock file shared by every maptools process. An
// orphaned zero-byte file is harmless: the kernel drops the flock when the
// descriptor closes, including on crash.
const LockFileName = "maptools-engine.lock"

// errLockUnavailable exists for parity with lock_other.go; it is never
// returned on Linux.
var errLockUnavailable = errors.New("engine lock not available on this platform")

// engineLock is a blocking exclusive flock held for one copy, run and
// restore sequence.
type engineLock struct {
	file   *os.File
	logger *log.Logger
}

// acquireEngineLock blocks until the exclusive flock on the lock file in dir
// is held. An empty dir selects $XDG_RUNTIME_DIR, then os.TempDir().
func acquireEngineLock(dir string, logger *log.Logger) (*engineLock, error) {
	p := lockFilePathWith(dir, os.Getenv)

	f, err := os.OpenFile(p, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", p, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flock %s: %w", p, err)
	}
	return &engineLock{file: f, logger: logger}, nil
}

// Release drops the lock. Calling it more than once is a no-op.
func (l *engineLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.logger.Debug("engine lock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		l.logger.Debug("engine lock close failed", "error", err)
	}
	l.file = nil
}

func lockFilePathWith(dir string, getenv func(string) string) string {
	if dir == "" {
		dir = getenv("XDG_RUNTIME_DIR")
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, LockFileName)
}
