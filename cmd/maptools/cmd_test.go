// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"maptools-cli/internal/audit"
	"maptools-cli/internal/clock"
	"maptools-cli/internal/config"
	"maptools-cli/internal/engine"
	"maptools-cli/internal/pipeline"
	"maptools-cli/internal/testutil"
	"maptools-cli/pkg/types"
)

type (
	// stubPrompter answers with fixed values and records what was asked.
	stubPrompter struct {
		confirm bool
		engine  string
		rename  string

		mu     sync.Mutex
		asked  []string
		levels []string
	}

	cliFixture struct {
		root   string
		exe    string
		input  string
		out    string
		config string
	}

	testApp struct {
		app    *App
		stdout *bytes.Buffer
		stderr *bytes.Buffer
		stub   *testutil.StubEngine
	}
)

func (p *stubPrompter) record(q string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, q)
}

func (p *stubPrompter) questions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.asked...)
}

func (p *stubPrompter) ConfirmRebuild(_ context.Context, asset audit.MapAsset) (bool, error) {
	p.record("confirm")
	p.mu.Lock()
	p.levels = append(p.levels, asset.Name)
	p.mu.Unlock()
	return p.confirm, nil
}

func (p *stubPrompter) EnginePath(context.Context, []string) (string, error) {
	p.record("engine")
	if p.engine == "" {
		return "", errNoTerminal
	}
	return p.engine, nil
}

func (p *stubPrompter) Rename(_ context.Context, current string, _ error) (string, error) {
	p.record("rename")
	if p.rename == "" {
		return current, nil
	}
	return p.rename, nil
}

// newCLIFixture writes a container with one level lacking the dictionary,
// a fake engine install and a default config file.
func newCLIFixture(t *testing.T) cliFixture {
	t.Helper()
	root := t.TempDir()
	f := cliFixture{
		root:   root,
		exe:    testutil.WriteFile(t, root, "game/left4dead2.exe", []byte("MZ")),
		out:    filepath.Join(root, "out"),
		config: filepath.Join(root, "cfg", "config.cue"),
	}
	f.input = testutil.BuildVPK(t, filepath.Join(root, "in", "mymap.vpk"), map[string][]byte{
		"maps/c1m1_test.bsp":        testutil.LevelWithoutDictionary(),
		"materials/walls/brick.vmt": []byte(`"LightmappedGeneric" {}`),
		"materials/walls/brick.vtf": []byte("VTF\x00texture"),
		"sound/ambient/wind.wav":    []byte("RIFFwave"),
		"addoninfo.txt":             []byte(`"AddonInfo" {}`),
	})
	if _, err := config.CreateDefaultConfig(config.LoadOptions{ConfigFilePath: f.config}, false); err != nil {
		t.Fatalf("CreateDefaultConfig() = %v", err)
	}
	return f
}

func (f cliFixture) loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.NewProvider().Load(t.Context(), config.LoadOptions{ConfigFilePath: f.config})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	return cfg
}

func newTestApp(t *testing.T, prompter Prompter) *testApp {
	t.Helper()
	ta := &testApp{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		stub:   &testutil.StubEngine{Grow: 16},
	}
	app, err := NewApp(Dependencies{
		Prompter: prompter,
		Clock:    clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		Stdout:   ta.stdout,
		Stderr:   ta.stderr,
		PipelineOptions: []pipeline.Option{
			pipeline.WithRunner(ta.stub),
			pipeline.WithSteamCheck(nil),
			pipeline.WithLockDir(t.TempDir()),
		},
	})
	if err != nil {
		t.Fatalf("NewApp() = %v", err)
	}
	ta.app = app
	return ta
}

func (ta *testApp) execute(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCommand(ta.app)
	root.SetArgs(args)
	root.SetOut(ta.stdout)
	root.SetErr(ta.stderr)
	return root.ExecuteContext(t.Context())
}

func exitCode(t *testing.T, err error) types.ExitCode {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error %v is not an *ExitError", err)
	}
	return exitErr.Code
}

func TestPackage_RebuildsAndSavesPreferences(t *testing.T) {
	t.Parallel()

	f := newCLIFixture(t)
	ta := newTestApp(t, &stubPrompter{})

	err := ta.execute(t, "package", f.input, "-o", f.out, "-f", "vpk", "-y",
		"--engine", f.exe, "--launch-options", `-windowed "+sv_cheats 1"`, "--config", f.config)
	if err != nil {
		t.Fatalf("package = %v\nstderr: %s", err, ta.stderr)
	}

	for _, name := range []string{"mymap_server.vpk", "mymap_client.vpk"} {
		if !testutil.Exists(filepath.Join(f.out, name)) {
			t.Errorf("%s was not written", name)
		}
	}
	server := testutil.ReadVPK(t, filepath.Join(f.out, "mymap_server.vpk"))
	if _, ok := server["materials/walls/brick.vtf"]; ok {
		t.Error("server package kept a texture")
	}

	out := ta.stdout.String()
	for _, want := range []string{"Rebuilding level", "all 1 levels with a missing dictionary were rebuilt", "mymap_server.vpk"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout lacks %q:\n%s", want, out)
		}
	}

	calls := ta.stub.Calls()
	if len(calls) != 1 {
		t.Fatalf("engine ran %d times, want 1", len(calls))
	}
	if got := calls[0][len(calls[0])-2:]; got[0] != "-windowed" || got[1] != "+sv_cheats 1" {
		t.Errorf("launch options = %q", calls[0])
	}

	cfg := f.loadConfig(t)
	if cfg.EnginePath != f.exe {
		t.Errorf("engine_path = %q, want %q", cfg.EnginePath, f.exe)
	}
	if cfg.OutputDir != f.out || cfg.LastInputDir != filepath.Dir(f.input) {
		t.Errorf("output_dir/last_input_dir = %q/%q", cfg.OutputDir, cfg.LastInputDir)
	}
	if cfg.ExportFormat != types.FormatVPK {
		t.Errorf("export_format = %q, want vpk", cfg.ExportFormat)
	}
	if cfg.LaunchOptions != `-windowed "+sv_cheats 1"` {
		t.Errorf("launch_options = %q", cfg.LaunchOptions)
	}
}

func TestPackage_AsksBeforeRebuilding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		confirm  bool
		wantCode types.ExitCode
	}{
		{name: "accepted", confirm: true},
		{name: "declined", confirm: false, wantCode: types.ExitCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newCLIFixture(t)
			p := &stubPrompter{confirm: tt.confirm}
			ta := newTestApp(t, p)

			err := ta.execute(t, "package", f.input, "-o", f.out, "-f", "vpk", "--engine", f.exe, "--config", f.config)
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("package = %v\nstderr: %s", err, ta.stderr)
				}
			} else {
				if got := exitCode(t, err); got != tt.wantCode {
					t.Fatalf("exit code = %d, want %d", got, tt.wantCode)
				}
				if !strings.Contains(ta.stderr.String(), "--auto-rebuild") {
					t.Errorf("stderr lacks the --auto-rebuild hint:\n%s", ta.stderr)
				}
				if testutil.Exists(filepath.Join(f.out, "mymap_server.vpk")) {
					t.Error("server package written after a declined rebuild")
				}
			}

			if got := p.questions(); len(got) != 1 || got[0] != "confirm" {
				t.Errorf("questions = %v, want [confirm]", got)
			}
		})
	}
}

func TestPackage_ResolvesEngineThroughPrompter(t *testing.T) {
	t.Parallel()

	f := newCLIFixture(t)
	p := &stubPrompter{engine: ""}
	ta := newTestApp(t, p)

	err := ta.execute(t, "package", f.input, "-o", f.out, "-f", "vpk", "-y", "--config", f.config)
	if got := exitCode(t, err); got != types.ExitFailure {
		t.Fatalf("exit code = %d, want %d", got, types.ExitFailure)
	}
	if !errors.Is(err, engine.ErrMissingEngineConfiguration) {
		t.Errorf("error = %v, want ErrMissingEngineConfiguration", err)
	}
	if !strings.Contains(ta.stderr.String(), "engine_path") {
		t.Errorf("stderr lacks the engine_path hint:\n%s", ta.stderr)
	}

	p.engine = f.exe
	ta = newTestApp(t, p)
	if err := ta.execute(t, "package", f.input, "-o", f.out, "-f", "vpk", "-y", "--config", f.config); err != nil {
		t.Fatalf("package = %v\nstderr: %s", err, ta.stderr)
	}
	if cfg := f.loadConfig(t); cfg.EnginePath != f.exe {
		t.Errorf("engine_path = %q, want the resolved %q", cfg.EnginePath, f.exe)
	}
}

func TestPackage_DryRun(t *testing.T) {
	t.Parallel()

	f := newCLIFixture(t)
	ta := newTestApp(t, &stubPrompter{})

	err := ta.execute(t, "package", f.input, "-o", f.out, "-f", "zip", "--engine", f.exe, "--dry-run", "--config", f.config)
	if err != nil {
		t.Fatalf("package --dry-run = %v\nstderr: %s", err, ta.stderr)
	}

	out := ta.stdout.String()
	for _, want := range []string{"c1m1_test.bsp", "+map c1m1_test", "mymap_server.zip", "mymap_client.zip", "2 files stripped"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout lacks %q:\n%s", want, out)
		}
	}
	if len(ta.stub.Calls()) != 0 {
		t.Error("dry run launched the engine")
	}
	if testutil.Exists(f.out) {
		t.Error("dry run created the output directory")
	}
}

func TestPackage_Report(t *testing.T) {
	t.Parallel()

	f := newCLIFixture(t)
	ta := newTestApp(t, &stubPrompter{})
	reportPath := filepath.Join(f.root, "run.toml")

	err := ta.execute(t, "package", f.input, "-o", f.out, "-f", "vpk", "-y", "--engine", f.exe,
		"--report", reportPath, "--config", f.config)
	if err != nil {
		t.Fatalf("package = %v\nstderr: %s", err, ta.stderr)
	}

	file, err := os.Open(reportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	defer file.Close()
	rep, err := pipeline.ReadReport(file)
	if err != nil {
		t.Fatalf("ReadReport() = %v", err)
	}
	if rep.Counts.Rebuilt != 1 || rep.Counts.Attempted != 1 {
		t.Errorf("counts = %+v", rep.Counts)
	}
	if rep.Outputs.Client == "" {
		t.Error("report has no client output")
	}
}

func TestPackage_RenamesNonPortableInput(t *testing.T) {
	t.Parallel()

	f := newCLIFixture(t)
	input := filepath.Join(f.root, "in", "my map (final).vpk")
	if err := os.Rename(f.input, input); err != nil {
		t.Fatal(err)
	}
	p := &stubPrompter{rename: "my_map_final"}
	ta := newTestApp(t, p)

	err := ta.execute(t, "package", input, "-o", f.out, "-f", "vpk", "-y", "--engine", f.exe, "--config", f.config)
	if err != nil {
		t.Fatalf("package = %v\nstderr: %s", err, ta.stderr)
	}
	if !testutil.Exists(filepath.Join(f.out, "my_map_final_server.vpk")) {
		t.Error("renamed server package was not written")
	}
}

func TestPackage_InvalidFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "format", args: []string{"-f", "tar"}, want: "vpk, zip, 7z, rar"},
		{name: "launch options", args: []string{"--launch-options", "windowed"}, want: "must start with '-' or '+'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newCLIFixture(t)
			ta := newTestApp(t, &stubPrompter{})
			args := append([]string{"package", f.input, "--config", f.config}, tt.args...)

			err := ta.execute(t, args...)
			if got := exitCode(t, err); got != types.ExitFailure {
				t.Fatalf("exit code = %d, want %d", got, types.ExitFailure)
			}
			if !strings.Contains(ta.stderr.String(), tt.want) {
				t.Errorf("stderr lacks %q:\n%s", tt.want, ta.stderr)
			}
		})
	}
}

func TestBuildJob(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.OutputDir = "/srv/out"
	cfg.EnginePath = "/games/l4d2/left4dead2"
	cfg.LaunchOptions = "-novid"
	cfg.AutoRebuild = true

	t.Run("config defaults", func(t *testing.T) {
		t.Parallel()

		job, err := buildJob(cfg, &packageFlags{}, func(string) bool { return false }, "in.vpk")
		if err != nil {
			t.Fatalf("buildJob() = %v", err)
		}
		if job.OutputDir != "/srv/out" || job.EnginePath != cfg.EnginePath || !job.AutoRebuild {
			t.Errorf("job = %+v", job)
		}
		if job.Format != types.FormatZip {
			t.Errorf("Format = %q, want zip", job.Format)
		}
		if len(job.LaunchOptions) != 1 || job.LaunchOptions[0] != "-novid" {
			t.Errorf("LaunchOptions = %q", job.LaunchOptions)
		}
		if !filepath.IsAbs(job.InputPath) {
			t.Errorf("InputPath %q is not absolute", job.InputPath)
		}
	})

	t.Run("flags win", func(t *testing.T) {
		t.Parallel()

		flags := &packageFlags{
			format:          "7z",
			checkDictionary: false,
			autoRebuild:     false,
			engine:          "/other/engine",
			launchOptions:   "",
			engineTimeout:   time.Minute,
		}
		given := map[string]bool{
			"format": true, "check-dictionary": true, "auto-rebuild": true,
			"engine": true, "launch-options": true, "engine-timeout": true,
		}
		job, err := buildJob(cfg, flags, func(name string) bool { return given[name] }, "in.vpk")
		if err != nil {
			t.Fatalf("buildJob() = %v", err)
		}
		if job.Format != types.FormatSevenZip || job.CheckDictionary || job.AutoRebuild {
			t.Errorf("job = %+v", job)
		}
		if job.EnginePath != "/other/engine" || job.EngineTimeout != time.Minute || len(job.LaunchOptions) != 0 {
			t.Errorf("job = %+v", job)
		}
	})

	t.Run("relative engine made absolute", func(t *testing.T) {
		t.Parallel()

		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		flags := &packageFlags{engine: "left4dead2.exe"}
		job, err := buildJob(cfg, flags, func(name string) bool { return name == "engine" }, "in.vpk")
		if err != nil {
			t.Fatalf("buildJob() = %v", err)
		}
		if want := filepath.Join(wd, "left4dead2.exe"); job.EnginePath != want {
			t.Errorf("EnginePath = %q, want %q", job.EnginePath, want)
		}
	})

	t.Run("path separator in name", func(t *testing.T) {
		t.Parallel()

		_, err := buildJob(cfg, &packageFlags{name: "a/b"}, func(string) bool { return false }, "in.vpk")
		if err == nil {
			t.Fatal("buildJob() accepted a name with a path separator")
		}
	})
}

func TestCheckOutputName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		job       pipeline.Job
		rename    string
		want      string
		wantAsked bool
	}{
		{name: "portable vpk", job: pipeline.Job{InputPath: "/in/mymap.vpk"}, want: ""},
		{name: "archive input", job: pipeline.Job{InputPath: "/in/my map.zip"}, want: ""},
		{name: "renamed", job: pipeline.Job{InputPath: "/in/my map (1).vpk"}, rename: "my_map", want: "my_map", wantAsked: true},
		{name: "kept", job: pipeline.Job{InputPath: "/in/my map (1).vpk"}, want: "", wantAsked: true},
		{name: "explicit name", job: pipeline.Job{InputPath: "/in/a.zip", OutputName: "con"}, rename: "console", want: "console", wantAsked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &stubPrompter{rename: tt.rename}
			got, err := checkOutputName(t.Context(), p, tt.job)
			if err != nil {
				t.Fatalf("checkOutputName() = %v", err)
			}
			if got != tt.want {
				t.Errorf("checkOutputName() = %q, want %q", got, tt.want)
			}
			if asked := len(p.questions()) > 0; asked != tt.wantAsked {
				t.Errorf("asked = %v, want %v", asked, tt.wantAsked)
			}
		})
	}
}

func TestAudit(t *testing.T) {
	t.Parallel()

	f := newCLIFixture(t)
	ta := newTestApp(t, &stubPrompter{})

	if err := ta.execute(t, "audit", f.input, "--config", f.config); err != nil {
		t.Fatalf("audit = %v\nstderr: %s", err, ta.stderr)
	}
	out := ta.stdout.String()
	for _, want := range []string{"missing", "c1m1_test.bsp", "1 of 1 level missing a dictionary"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout lacks %q:\n%s", want, out)
		}
	}
}

func TestInspect(t *testing.T) {
	t.Parallel()

	f := newCLIFixture(t)
	ta := newTestApp(t, &stubPrompter{})
	dest := filepath.Join(f.root, "extracted")

	if err := ta.execute(t, "inspect", f.input, "-x", dest, "--config", f.config); err != nil {
		t.Fatalf("inspect = %v\nstderr: %s", err, ta.stderr)
	}
	out := ta.stdout.String()
	for _, want := range []string{"materials/walls/brick.vtf", "5 entries", "2 entries marked '-'"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout lacks %q:\n%s", want, out)
		}
	}
	if !testutil.Exists(filepath.Join(dest, "maps", "c1m1_test.bsp")) {
		t.Error("--extract did not write the level")
	}
}

func TestInspect_Corrupt(t *testing.T) {
	t.Parallel()

	f := newCLIFixture(t)
	bad := testutil.WriteFile(t, f.root, "bad.vpk", []byte("not a container"))
	ta := newTestApp(t, &stubPrompter{})

	err := ta.execute(t, "inspect", bad, "--config", f.config)
	if got := exitCode(t, err); got != types.ExitFailure {
		t.Fatalf("exit code = %d, want %d", got, types.ExitFailure)
	}
	if !strings.Contains(ta.stderr.String(), "maptools inspect") {
		t.Errorf("stderr lacks the inspect hint:\n%s", ta.stderr)
	}
}
