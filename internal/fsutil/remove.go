// SPDX-License-Identifier: MPL-2.0

package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultMaxAttempts is the removal attempt budget used when none is configured.
	DefaultMaxAttempts = 5
	// DefaultRetryDelay is the fixed pause between two removal attempts.
	DefaultRetryDelay = time.Second
)

// ErrFilesystemContention is the sentinel error wrapped by FilesystemContentionError.
var ErrFilesystemContention = errors.New("filesystem contention")

type (
	// FilesystemContentionError is returned when a path still exists after the
	// retry budget is exhausted. It is informational: teardown callers log it
	// and carry on.
	FilesystemContentionError struct {
		Path     string
		Attempts int
		Last     error
	}

	// Remover deletes files and directory trees, retrying on failure.
	// The zero value is not usable; construct with NewRemover.
	Remover struct {
		maxAttempts int
		delay       time.Duration
		logger      *log.Logger

		removeFn func(string) error
		statFn   func(string) (os.FileInfo, error)
		sleepFn  func(time.Duration)
	}
)

// Error implements the error interface.
func (e *FilesystemContentionError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("could not remove %s after %d attempt(s): %v", e.Path, e.Attempts, e.Last)
	}
	return fmt.Sprintf("could not remove %s after %d attempt(s)", e.Path, e.Attempts)
}

// Unwrap returns ErrFilesystemContention for errors.Is() compatibility.
func (e *FilesystemContentionError) Unwrap() error { return ErrFilesystemContention }

// NewRemover creates a Remover. Non-positive attempts fall back to
// DefaultMaxAttempts; a negative delay is treated as zero.
func NewRemover(maxAttempts int, delay time.Duration) *Remover {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if delay < 0 {
		delay = 0
	}
	return &Remover{
		maxAttempts: maxAttempts,
		delay:       delay,
		logger:      log.New(io.Discard),
		removeFn:    os.RemoveAll,
		statFn:      os.Lstat,
		sleepFn:     time.Sleep,
	}
}

// WithLogger returns the Remover with failed attempts reported to logger.
func (r *Remover) WithLogger(logger *log.Logger) *Remover {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// MaxAttempts returns the configured attempt budget.
func (r *Remover) MaxAttempts() int { return r.maxAttempts }

// Remove deletes path, which may be a file or a directory tree. A path that
// does not exist counts as already removed. Errors from individual attempts
// are swallowed; a *FilesystemContentionError is returned only when the path
// still exists once every attempt has been used.
func (r *Remover) Remove(path string) error {
	if path == "" {
		return nil
	}

	var last error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if !r.exists(path) {
			return nil
		}

		err := r.removeFn(path)
		if err == nil && !r.exists(path) {
			return nil
		}
		if err == nil {
			err = errors.New("path still present after removal")
		}
		last = err
		r.logger.Debug("removal attempt failed", "path", path, "attempt", attempt, "error", err)

		if attempt < r.maxAttempts && r.delay > 0 {
			r.sleepFn(r.delay)
		}
	}

	if !r.exists(path) {
		return nil
	}
	return &FilesystemContentionError{Path: path, Attempts: r.maxAttempts, Last: last}
}

// RemoveAll removes every path and returns the contention errors encountered.
// It always visits every path, in order.
func (r *Remover) RemoveAll(paths ...string) []error {
	var errs []error
	for _, p := range paths {
		if err := r.Remove(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (r *Remover) exists(path string) bool {
	_, err := r.statFn(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// RemoveWithRetry deletes path with the default retry delay and reports
// whether the path is gone. It never panics and never returns an error.
func RemoveWithRetry(path string, maxAttempts int) bool {
	return NewRemover(maxAttempts, DefaultRetryDelay).Remove(path) == nil
}
