// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"testing"
)

func TestDetectSandboxFrom(t *testing.T) {
	t.Parallel()

	present := func(string) error { return nil }
	absent := func(string) error { return fs.ErrNotExist }
	env := func(v string) func(string) string {
		return func(string) string { return v }
	}

	tests := []struct {
		name  string
		env   func(string) string
		stat  func(string) error
		wants SandboxType
	}{
		{"none", env(""), absent, SandboxNone},
		{"flatpak", env(""), present, SandboxFlatpak},
		{"snap", env("maptools"), absent, SandboxSnap},
		{"flatpak wins", env("maptools"), present, SandboxFlatpak},
		{"stat error", env(""), func(string) error { return errors.New("EACCES") }, SandboxNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := detectSandboxFrom(tt.env, tt.stat); got != tt.wants {
				t.Errorf("detectSandboxFrom() = %q, want %q", got, tt.wants)
			}
		})
	}
}

func TestHostCommandFor(t *testing.T) {
	t.Parallel()

	argv := []string{"7z", "a", "-t7z", "out.7z", "in.vpk"}
	tests := []struct {
		st   SandboxType
		want []string
	}{
		{SandboxNone, argv},
		{SandboxFlatpak, append([]string{"flatpak-spawn", "--host"}, argv...)},
		{SandboxSnap, append([]string{"snap", "run", "--shell"}, argv...)},
	}
	for _, tt := range tests {
		if got := HostCommandFor(tt.st, argv); !slices.Equal(got, tt.want) {
			t.Errorf("HostCommandFor(%q) = %q, want %q", tt.st, got, tt.want)
		}
	}
	if len(argv) != 5 || argv[0] != "7z" {
		t.Error("HostCommandFor modified its input")
	}
}

func TestEngineCandidates(t *testing.T) {
	t.Parallel()

	getenv := func(k string) string {
		if k == "ProgramFiles(x86)" {
			return `C:\Program Files (x86)`
		}
		return ""
	}
	win := EngineCandidates(Windows, getenv, "")
	if len(win) != 1 || filepath.Base(win[0]) != "left4dead2.exe" {
		t.Errorf("EngineCandidates(windows) = %q", win)
	}

	linux := EngineCandidates(Linux, getenv, "/home/me")
	if len(linux) != 3 {
		t.Fatalf("EngineCandidates(linux) = %q", linux)
	}
	want := filepath.Join("/home/me", ".steam", "steam", "steamapps", "common", "Left 4 Dead 2", "hl2_linux")
	if linux[0] != want {
		t.Errorf("EngineCandidates(linux)[0] = %q, want %q", linux[0], want)
	}
	if got := EngineCandidates(Linux, getenv, ""); len(got) != 0 {
		t.Errorf("EngineCandidates without a home = %q", got)
	}
}
