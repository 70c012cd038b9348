// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package engine

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the engine in its own process group so that
// cancellation reaches every child it spawned, not just the launcher.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
