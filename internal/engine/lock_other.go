// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package engine

import (
	"errors"

	"github.com/charmbracelet/log"
)

// LockFileName is kept for parity with lock_linux.go.
const LockFileName = "maptools-engine.lock"

// errLockUnavailable makes the builder fall back to its in-process mutex.
var errLockUnavailable = errors.New("engine lock not available on this platform")

type engineLock struct{}

func acquireEngineLock(string, *log.Logger) (*engineLock, error) {
	return nil, errLockUnavailable
}

// Release is a no-op.
func (l *engineLock) Release() {}
