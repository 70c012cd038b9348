// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"maptools-cli/internal/audit"
	"maptools-cli/internal/clock"
	"maptools-cli/internal/config"
	"maptools-cli/internal/pipeline"
	"maptools-cli/internal/tui"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer; every command handler receives an App and
	// reaches configuration, prompts and the pipeline through it.
	App struct {
		Config   config.Provider
		Prompter Prompter
		Clock    clock.Clock
		stdout   io.Writer
		stderr   io.Writer
		// pipelineOpts are appended after the defaults when a Controller is built.
		pipelineOpts []pipeline.Option
		flags        globalFlags
		// glamourStyle renders issue guidance; follows ui.color_scheme.
		glamourStyle string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config          config.Provider
		Prompter        Prompter
		Clock           clock.Clock
		Stdout          io.Writer
		Stderr          io.Writer
		PipelineOptions []pipeline.Option
	}

	// Prompter asks the user for decisions the pipeline cannot make alone.
	Prompter interface {
		// ConfirmRebuild asks whether deficient levels may be rebuilt.
		ConfirmRebuild(ctx context.Context, asset audit.MapAsset) (bool, error)
		// EnginePath asks for the game executable, offering candidates.
		EnginePath(ctx context.Context, candidates []string) (string, error)
		// Rename asks for a replacement output name.
		Rename(ctx context.Context, current string, reason error) (string, error)
	}

	globalFlags struct {
		verbose    bool
		configPath string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Prompter == nil {
		if tui.IsInteractive() {
			deps.Prompter = &huhPrompter{}
		} else {
			deps.Prompter = noPrompter{}
		}
	}

	return &App{
		Config:       deps.Config,
		Prompter:     deps.Prompter,
		Clock:        deps.Clock,
		stdout:       deps.Stdout,
		stderr:       deps.Stderr,
		pipelineOpts: deps.PipelineOptions,
		glamourStyle: string(config.ColorSchemeAuto),
	}, nil
}

// loadOptions returns the config load options selected by global flags.
func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.flags.configPath}
}

// loadConfig loads configuration and applies ui.verbose when --verbose was
// not given.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		return nil, err
	}
	if cfg.UI.Verbose {
		a.flags.verbose = true
	}
	a.glamourStyle = string(cfg.UI.ColorScheme)
	return cfg, nil
}

// logger returns the diagnostic logger. Diagnostics are only shown in
// verbose mode; user-facing progress is rendered from pipeline events.
func (a *App) logger() *log.Logger {
	if !a.flags.verbose {
		return log.New(io.Discard)
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix:          config.AppName,
		Level:           log.DebugLevel,
		ReportTimestamp: true,
	})
}

// newController builds a pipeline controller with the App's prompts.
func (a *App) newController(logger *log.Logger, resolver pipeline.EngineResolver) *pipeline.Controller {
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithClock(a.Clock),
		pipeline.WithAuthorizer(newAuthorizer(a.Prompter)),
		pipeline.WithEngineResolver(resolver),
	}
	return pipeline.New(append(opts, a.pipelineOpts...)...)
}
