// SPDX-License-Identifier: MPL-2.0

package platform

import "path/filepath"

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// GameInstallDir is the game's directory below a Steam library's
// steamapps/common.
const GameInstallDir = "Left 4 Dead 2"

// EngineExecutableName returns the game executable's file name on goos.
func EngineExecutableName(goos string) string {
	switch goos {
	case Windows:
		return "left4dead2.exe"
	case Darwin:
		return "left4dead2_osx"
	default:
		return "hl2_linux"
	}
}

// EngineCandidates returns the executable paths of default Steam library
// locations on goos, most likely first. getenv and home resolve the
// per-user roots.
func EngineCandidates(goos string, getenv func(string) string, home string) []string {
	var libs []string
	switch goos {
	case Windows:
		for _, env := range []string{"ProgramFiles(x86)", "ProgramFiles"} {
			if dir := getenv(env); dir != "" {
				libs = append(libs, filepath.Join(dir, "Steam"))
			}
		}
	case Darwin:
		if home != "" {
			libs = append(libs, filepath.Join(home, "Library", "Application Support", "Steam"))
		}
	default:
		if home != "" {
			libs = append(libs,
				filepath.Join(home, ".steam", "steam"),
				filepath.Join(home, ".local", "share", "Steam"),
				filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"))
		}
	}

	exe := EngineExecutableName(goos)
	out := make([]string, len(libs))
	for i, lib := range libs {
		out[i] = filepath.Join(lib, "steamapps", "common", GameInstallDir, exe)
	}
	return out
}
