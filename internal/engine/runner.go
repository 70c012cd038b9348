// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"

	"maptools-cli/pkg/platform"
)

const (
	// maxCapturedOutput bounds how much engine output is kept for diagnostics.
	maxCapturedOutput = 64 << 10
	// killWaitDelay is how long Wait may block on inherited pipes after the
	// engine has been killed.
	killWaitDelay = 5 * time.Second
)

type (
	// Runner starts a process from argv, waits for it to exit and returns
	// its combined output. Implementations must return an error that is not
	// an *exec.ExitError when the process could not be started.
	Runner interface {
		Run(ctx context.Context, argv []string) ([]byte, error)
	}

	// ExecRunner runs the engine with os/exec. The process is detached into
	// its own process group (or, on Windows, started without a console
	// window) and the whole group is killed when ctx is done. Inside a
	// Flatpak or Snap sandbox the engine is spawned on the host.
	ExecRunner struct{}

	// cappedBuffer keeps the first max bytes written to it and drops the rest.
	cappedBuffer struct {
		mu        sync.Mutex
		buf       bytes.Buffer
		max       int
		truncated bool
	}
)

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	host := platform.HostCommand(argv)
	//nolint:gosec // G204: the engine path comes from the user
	cmd := exec.CommandContext(ctx, host[0], host[1:]...)
	out := &cappedBuffer{max: maxCapturedOutput}
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = killWaitDelay
	configureProcess(cmd)

	if err := cmd.Start(); err != nil {
		return nil, &ExternalProcessError{Path: argv[0], Err: err}
	}
	err := cmd.Wait()
	return out.Bytes(), err
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
			b.truncated = true
		} else {
			b.buf.Write(p)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := bytes.Clone(b.buf.Bytes())
	if b.truncated {
		out = append(out, "\n[output truncated]\n"...)
	}
	return out
}
