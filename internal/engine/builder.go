// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"

	"maptools-cli/internal/audit"
	"maptools-cli/internal/clock"
	"maptools-cli/internal/fsutil"
)

const (
	// DefaultGameDir is the game content directory next to the executable.
	DefaultGameDir = "left4dead2"
	// DefaultTimeout bounds a single engine run.
	DefaultTimeout = 30 * time.Minute
	// HeapSize is passed to -heapsize; the engine's maximum.
	HeapSize = 2097151
)

// engineMu serializes rebuilds within the process. Every Builder shares it
// because engines share their maps directory regardless of configuration.
var engineMu sync.Mutex

type (
	// Config configures a Builder.
	Config struct {
		// EnginePath is the game executable. Required.
		EnginePath string
		// GameDir is the content directory next to the executable.
		// Defaults to DefaultGameDir.
		GameDir string
		// LaunchOptions are appended verbatim to the fixed arguments.
		LaunchOptions []string
		// Timeout bounds each engine run. Zero selects DefaultTimeout; a
		// negative value disables the bound.
		Timeout time.Duration
		// Runner launches the engine. Defaults to ExecRunner.
		Runner Runner
		// Logger receives diagnostics. Defaults to a discarding logger.
		Logger *log.Logger
		// Clock measures elapsed time. Defaults to clock.Real.
		Clock clock.Clock
		// Remover deletes working copies. Defaults to fsutil.NewRemover(0, 0).
		Remover *fsutil.Remover
		// LockDir overrides the directory holding the cross-process lock file.
		LockDir string
	}

	// Builder rebuilds levels with one configured engine.
	Builder struct {
		cfg Config
	}
)

// NewBuilder validates cfg and returns a Builder. An empty EnginePath yields
// a *MissingEngineConfigurationError.
func NewBuilder(cfg Config) (*Builder, error) {
	if strings.TrimSpace(cfg.EnginePath) == "" {
		return nil, &MissingEngineConfigurationError{}
	}
	// exec looks bare names up on PATH, so the path is pinned to the
	// working directory it was given in.
	abs, err := filepath.Abs(cfg.EnginePath)
	if err != nil {
		return nil, &MissingEngineConfigurationError{Path: cfg.EnginePath, Reason: err.Error()}
	}
	cfg.EnginePath = abs
	if cfg.GameDir == "" {
		cfg.GameDir = DefaultGameDir
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Remover == nil {
		cfg.Remover = fsutil.NewRemover(0, 0).WithLogger(cfg.Logger)
	}
	return &Builder{cfg: cfg}, nil
}

// CheckEngine verifies that the configured executable exists and is a
// regular file.
func (b *Builder) CheckEngine() error {
	info, err := os.Stat(b.cfg.EnginePath)
	if err != nil {
		return &MissingEngineConfigurationError{Path: b.cfg.EnginePath, Reason: err.Error()}
	}
	if info.IsDir() {
		return &MissingEngineConfigurationError{Path: b.cfg.EnginePath, Reason: "is a directory"}
	}
	return nil
}

// MapsDir returns the engine's maps directory.
func (b *Builder) MapsDir() string {
	return filepath.Join(filepath.Dir(b.cfg.EnginePath), b.cfg.GameDir, audit.MapsDir)
}

// WorkingPath returns where a level is copied before the engine runs.
func (b *Builder) WorkingPath(name string) string {
	return filepath.Join(b.MapsDir(), name+audit.LevelExt)
}

// Command returns the full argv used to rebuild the named level.
func (b *Builder) Command(name string) []string {
	argv := []string{
		b.cfg.EnginePath,
		"-steam", "-novid",
		"-hidden", "-nosound", "-noborder",
		"-heapsize", strconv.Itoa(HeapSize),
		"+map", name,
		"-stringtabledictionary", "-buildcubemaps",
	}
	return append(argv, b.cfg.LaunchOptions...)
}

// CommandPreview renders Command(name) as a single shell-quoted line.
func (b *Builder) CommandPreview(name string) string {
	argv := b.Command(name)
	parts := make([]string, len(argv))
	for i, a := range argv {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			q = strconv.Quote(a)
		}
		parts[i] = q
	}
	return strings.Join(parts, " ")
}

// Rebuild runs the engine on asset and reports the outcome. It blocks until
// no other rebuild holds the engine. Failures are reported on the Outcome;
// the working copy is removed on every path.
func (b *Builder) Rebuild(ctx context.Context, asset audit.MapAsset) Outcome {
	start := b.cfg.Clock.Now()
	logger := b.cfg.Logger.With("map", asset.Name)

	finish := func(status Status, reason string, size int64, err error) Outcome {
		o := Outcome{
			Asset:   asset,
			Status:  status,
			Reason:  reason,
			Size:    size,
			Elapsed: b.cfg.Clock.Since(start),
			Err:     err,
		}
		logger.Debug("rebuild finished", "status", status, "reason", reason, "elapsed", o.Elapsed)
		return o
	}

	engineMu.Lock()
	defer engineMu.Unlock()

	lock, err := acquireEngineLock(b.cfg.LockDir, logger)
	switch {
	case errors.Is(err, errLockUnavailable):
		logger.Debug("engine lock unavailable, relying on the in-process mutex")
	case err != nil:
		logger.Warn("engine lock acquisition failed, relying on the in-process mutex", "error", err)
	default:
		defer lock.Release()
	}

	if err := ctx.Err(); err != nil {
		return finish(StatusFailed, ReasonCancelled, asset.Size, err)
	}

	orig, err := os.Stat(asset.Path)
	if err != nil {
		return finish(StatusFailed, ReasonCopy, asset.Size, fmt.Errorf("failed to stat level: %w", err))
	}

	working := b.WorkingPath(asset.Name)
	if err := os.MkdirAll(filepath.Dir(working), 0o755); err != nil {
		return finish(StatusFailed, ReasonCopy, orig.Size(), fmt.Errorf("failed to create engine maps directory: %w", err))
	}
	if err := fsutil.CopyFile(asset.Path, working); err != nil {
		return finish(StatusFailed, ReasonCopy, orig.Size(), err)
	}
	defer func() {
		if err := b.cfg.Remover.Remove(working); err != nil {
			logger.Warn("failed to remove engine working copy", "error", err)
		}
	}()

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if b.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
	}
	defer cancel()

	logger.Info("launching engine", "command", b.CommandPreview(asset.Name))
	output, runErr := b.cfg.Runner.Run(runCtx, b.Command(asset.Name))
	if len(output) > 0 {
		logger.Debug("engine output", "output", string(output))
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return finish(StatusFailed, ReasonTimeout, orig.Size(),
			&ExternalProcessError{Path: b.cfg.EnginePath, Err: fmt.Errorf("no exit within %s", b.cfg.Timeout)})
	}
	if err := ctx.Err(); err != nil {
		return finish(StatusFailed, ReasonCancelled, orig.Size(), err)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			var procErr *ExternalProcessError
			if !errors.As(runErr, &procErr) {
				procErr = &ExternalProcessError{Path: b.cfg.EnginePath, Err: runErr}
			}
			return finish(StatusFailed, ReasonLaunch, orig.Size(), procErr)
		}
		// The engine routinely exits non-zero after a successful rebuild;
		// only the working copy's size decides.
		logger.Debug("engine exited with an error", "error", runErr)
	}

	rebuilt, err := os.Stat(working)
	if err != nil {
		return finish(StatusFailed, ReasonCopy, orig.Size(), fmt.Errorf("engine working copy vanished: %w", err))
	}
	if rebuilt.Size() == orig.Size() {
		return finish(StatusFailed, ReasonSizeUnchanged, orig.Size(), nil)
	}
	if err := fsutil.CopyFile(working, asset.Path); err != nil {
		return finish(StatusFailed, ReasonCopy, orig.Size(), fmt.Errorf("failed to restore rebuilt level: %w", err))
	}
	return finish(StatusRebuilt, "", rebuilt.Size(), nil)
}
