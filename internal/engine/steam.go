// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// steamProcessNames are the client process names on the supported platforms.
var steamProcessNames = []string{"steam.exe", "steam", "steam_osx"}

// SteamRunning reports whether a Steam client process is running. The engine
// is launched with -steam and usually cannot rebuild dictionaries without it.
func SteamRunning(ctx context.Context) (bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list processes: %w", err)
	}
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if isSteamProcess(name) {
			return true, nil
		}
	}
	return false, nil
}

func isSteamProcess(name string) bool {
	name = strings.ToLower(name)
	for _, n := range steamProcessNames {
		if name == n {
			return true
		}
	}
	return false
}
