// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"maptools-cli/internal/audit"
	"maptools-cli/internal/testutil"
)

// fixture lays out a fake engine install and a staged level.
type fixture struct {
	exe   string
	level string
	asset audit.MapAsset
}

func newFixture(t *testing.T, level []byte) fixture {
	t.Helper()
	root := t.TempDir()
	exe := testutil.WriteFile(t, root, "game/left4dead2.exe", []byte("MZ"))
	p := testutil.WriteFile(t, root, "stage/content/maps/c1m1_test.bsp", level)
	return fixture{
		exe:   exe,
		level: p,
		asset: audit.MapAsset{Path: p, Name: "c1m1_test", Size: int64(len(level))},
	}
}

func newTestBuilder(t *testing.T, exe string, runner Runner, opts ...func(*Config)) *Builder {
	t.Helper()
	cfg := Config{EnginePath: exe, Runner: runner, LockDir: t.TempDir()}
	for _, o := range opts {
		o(&cfg)
	}
	b, err := NewBuilder(cfg)
	if err != nil {
		t.Fatalf("NewBuilder() = %v", err)
	}
	return b
}

func TestNewBuilder_MissingEngine(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"", "   "} {
		_, err := NewBuilder(Config{EnginePath: p})
		if !errors.Is(err, ErrMissingEngineConfiguration) {
			t.Errorf("NewBuilder(%q) = %v, want ErrMissingEngineConfiguration", p, err)
		}
	}
}

func TestNewBuilder_RelativeEnginePath(t *testing.T) {
	t.Parallel()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "bin", "left4dead2.exe")

	b := newTestBuilder(t, filepath.Join("bin", "left4dead2.exe"), nil)
	if got := b.Command("c1m1")[0]; got != want {
		t.Errorf("Command()[0] = %q, want %q", got, want)
	}
	if got, wantMaps := b.MapsDir(), filepath.Join(wd, "bin", DefaultGameDir, "maps"); got != wantMaps {
		t.Errorf("MapsDir() = %q, want %q", got, wantMaps)
	}
}

func TestCheckEngine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := newTestBuilder(t, filepath.Join(dir, "missing.exe"), nil)
	var mec *MissingEngineConfigurationError
	if err := b.CheckEngine(); !errors.As(err, &mec) {
		t.Errorf("CheckEngine() = %v, want *MissingEngineConfigurationError", err)
	}

	b = newTestBuilder(t, dir, nil)
	if err := b.CheckEngine(); !errors.Is(err, ErrMissingEngineConfiguration) {
		t.Errorf("CheckEngine(dir) = %v, want ErrMissingEngineConfiguration", err)
	}
}

func TestCommand(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, "/games/l4d2/left4dead2.exe", nil, func(c *Config) {
		c.LaunchOptions = []string{"-windowed", "+sv_cheats 1"}
	})

	want := []string{
		"/games/l4d2/left4dead2.exe",
		"-steam", "-novid", "-hidden", "-nosound", "-noborder",
		"-heapsize", "2097151",
		"+map", "c5m1",
		"-stringtabledictionary", "-buildcubemaps",
		"-windowed", "+sv_cheats 1",
	}
	if got := b.Command("c5m1"); !slices.Equal(got, want) {
		t.Errorf("Command() = %q\nwant %q", got, want)
	}

	preview := b.CommandPreview("c5m1")
	if !strings.HasSuffix(preview, `-windowed '+sv_cheats 1'`) {
		t.Errorf("CommandPreview() = %q, want the spaced option quoted", preview)
	}
	if !strings.Contains(preview, "+map c5m1 -stringtabledictionary") {
		t.Errorf("CommandPreview() = %q", preview)
	}
}

func TestRebuild_SizeChanged(t *testing.T) {
	t.Parallel()

	level := testutil.LevelWithoutDictionary()
	f := newFixture(t, level)
	stub := &testutil.StubEngine{Grow: 16}
	b := newTestBuilder(t, f.exe, stub)

	o := b.Rebuild(t.Context(), f.asset)
	if o.Status != StatusRebuilt {
		t.Fatalf("Status = %v (%s, %v), want rebuilt", o.Status, o.Reason, o.Err)
	}
	if o.Size != int64(len(level)+16) {
		t.Errorf("Size = %d, want %d", o.Size, len(level)+16)
	}

	data, err := os.ReadFile(f.level)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != len(level)+16 {
		t.Errorf("original now %d bytes, want the rebuilt %d", len(data), len(level)+16)
	}
	if testutil.Exists(b.WorkingPath("c1m1_test")) {
		t.Error("working copy was not removed")
	}

	calls := stub.Calls()
	if len(calls) != 1 || !slices.Equal(calls[0], b.Command("c1m1_test")) {
		t.Errorf("engine calls = %q", calls)
	}
}

func TestRebuild_SizeUnchanged(t *testing.T) {
	t.Parallel()

	level := testutil.LevelWithoutDictionary()
	f := newFixture(t, level)
	b := newTestBuilder(t, f.exe, &testutil.StubEngine{})

	o := b.Rebuild(t.Context(), f.asset)
	if o.Status != StatusFailed || o.Reason != ReasonSizeUnchanged {
		t.Fatalf("outcome = %v/%q, want failed/%q", o.Status, o.Reason, ReasonSizeUnchanged)
	}
	data, err := os.ReadFile(f.level)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, level) {
		t.Error("original level was modified")
	}
	if testutil.Exists(b.WorkingPath("c1m1_test")) {
		t.Error("working copy was not removed")
	}
}

func TestRebuild_LaunchFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.LevelWithoutDictionary())
	missing := filepath.Join(filepath.Dir(f.exe), "not-installed.exe")
	b := newTestBuilder(t, missing, ExecRunner{})

	o := b.Rebuild(t.Context(), f.asset)
	if o.Status != StatusFailed || o.Reason != ReasonLaunch {
		t.Fatalf("outcome = %v/%q, want failed/%q", o.Status, o.Reason, ReasonLaunch)
	}
	if !errors.Is(o.Err, ErrExternalProcess) {
		t.Errorf("Err = %v, want ErrExternalProcess", o.Err)
	}
	if testutil.Exists(b.WorkingPath("c1m1_test")) {
		t.Error("working copy was not removed")
	}
}

type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, _ []string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRebuild_Timeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.LevelWithoutDictionary())
	b := newTestBuilder(t, f.exe, blockingRunner{}, func(c *Config) {
		c.Timeout = 20 * time.Millisecond
	})

	o := b.Rebuild(t.Context(), f.asset)
	if o.Status != StatusFailed || o.Reason != ReasonTimeout {
		t.Fatalf("outcome = %v/%q, want failed/%q", o.Status, o.Reason, ReasonTimeout)
	}
}

func TestRebuild_Cancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.LevelWithoutDictionary())
	stub := &testutil.StubEngine{Grow: 1}
	b := newTestBuilder(t, f.exe, stub)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	o := b.Rebuild(ctx, f.asset)
	if o.Status != StatusFailed || o.Reason != ReasonCancelled {
		t.Fatalf("outcome = %v/%q, want failed/%q", o.Status, o.Reason, ReasonCancelled)
	}
	if len(stub.Calls()) != 0 {
		t.Error("engine was launched for a cancelled rebuild")
	}
}

func TestCappedBuffer(t *testing.T) {
	t.Parallel()

	b := &cappedBuffer{max: 4}
	_, _ = b.Write([]byte("ab"))
	_, _ = b.Write([]byte("cdef"))
	_, _ = b.Write([]byte("gh"))
	got := string(b.Bytes())
	if !strings.HasPrefix(got, "abcd") || !strings.Contains(got, "truncated") {
		t.Errorf("Bytes() = %q", got)
	}
}

func TestIsSteamProcess(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]bool{
		"Steam.exe":          true,
		"steam":              true,
		"steamwebhelper.exe": false,
		"left4dead2.exe":     false,
	} {
		if got := isSteamProcess(name); got != want {
			t.Errorf("isSteamProcess(%q) = %v, want %v", name, got, want)
		}
	}
}
