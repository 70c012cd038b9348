// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"maptools-cli/internal/config"
	"maptools-cli/internal/ingest"
	"maptools-cli/internal/pipeline"
	"maptools-cli/pkg/types"
	"maptools-cli/pkg/vpk"
)

// packageFlags holds the flag values of `maptools package`. Flags that were
// not given fall back to the configuration.
type packageFlags struct {
	outputDir       string
	format          string
	checkDictionary bool
	autoRebuild     bool
	engine          string
	launchOptions   string
	name            string
	gameDir         string
	engineTimeout   time.Duration
	dryRun          bool
	report          string
}

// newPackageCommand creates the `maptools package` command.
func newPackageCommand(app *App) *cobra.Command {
	var flags packageFlags

	cmd := &cobra.Command{
		Use:   "package <input>",
		Short: "Build server (and client) packages from a VPK or archive",
		Long: `Build a server package from a VPK container or from a zip, 7z or rar
archive holding one or more containers.

Levels without a string table dictionary are rebuilt by the game first. When
at least one level was rebuilt, a client package with every file is written
next to the stripped server package.

Outputs are named <name>_server and <name>_client and are written to the
output directory (default: next to the input).`,
		Example: `  maptools package mymap.vpk
  maptools package campaign.zip -o ./dist -f 7z
  maptools package mymap.vpk -y --engine "C:\Steam\steamapps\common\Left 4 Dead 2\left4dead2.exe"
  maptools package mymap.vpk --launch-options "-windowed -w 1280 -h 720"
  maptools package mymap.vpk --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackage(cmd, app, &flags, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.outputDir, "output", "o", "", "output directory (default: next to the input)")
	f.StringVarP(&flags.format, "format", "f", "", "output format: vpk, zip, 7z or rar (default from config)")
	f.BoolVar(&flags.checkDictionary, "check-dictionary", true, "check levels for a string table dictionary and rebuild them")
	f.BoolVarP(&flags.autoRebuild, "auto-rebuild", "y", false, "rebuild levels without asking")
	f.StringVar(&flags.engine, "engine", "", "path to the game executable")
	f.StringVar(&flags.launchOptions, "launch-options", "", "extra engine arguments, e.g. -windowed \"+sv_cheats 1\"")
	f.StringVar(&flags.name, "name", "", "base name of the produced packages")
	f.StringVar(&flags.gameDir, "game-dir", config.DefaultGameDir, "game content directory next to the executable")
	f.DurationVar(&flags.engineTimeout, "engine-timeout", config.DefaultEngineTimeout, "time limit for one engine run")
	f.BoolVar(&flags.dryRun, "dry-run", false, "show what would be done without launching the game or writing packages")
	f.StringVar(&flags.report, "report", "", "write a TOML report of the run to this file")

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		formats := types.OutputFormats()
		out := make([]string, len(formats))
		for i, format := range formats {
			out[i] = format.String()
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.MarkFlagFilename("engine")
	_ = cmd.MarkFlagDirname("output")
	_ = cmd.MarkFlagFilename("report", "toml")

	return cmd
}

func runPackage(cmd *cobra.Command, app *App, flags *packageFlags, input string) error {
	ctx := cmd.Context()

	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail(err, "load configuration", app.flags.configPath)
	}

	job, err := buildJob(cfg, flags, cmd.Flags().Changed, input)
	if err != nil {
		return app.fail(err, "package", input)
	}

	if job.OutputName, err = checkOutputName(ctx, app.Prompter, job); err != nil {
		return app.fail(err, "package", input)
	}

	if flags.dryRun {
		if err := runDryRun(ctx, app, job); err != nil {
			return app.fail(err, "preview", input)
		}
		return nil
	}

	resolver := newEngineResolver(app.Prompter)
	progress := newProgressPrinter(app.stdout, app.flags.verbose)
	res, runErr := app.newController(app.logger(), resolver).Run(ctx, job, progress.Handle)

	launchOptions := cfg.LaunchOptions
	if cmd.Flags().Changed("launch-options") {
		launchOptions = flags.launchOptions
	}
	if err := savePreferences(app, cfg, job, launchOptions, resolver.Resolved()); err != nil {
		fmt.Fprintln(app.stderr, WarningStyle.Render("Warning: ")+"preferences not saved: "+err.Error())
	}

	if runErr != nil {
		return app.fail(runErr, "package", input)
	}

	printResult(app.stdout, res)

	if flags.report != "" {
		if err := pipeline.WriteReport(flags.report, job, res, app.Clock.Now()); err != nil {
			return app.fail(err, "write report", flags.report)
		}
		printOutput(app.stdout, "Report", flags.report)
	}
	return nil
}

// buildJob merges flags over cfg. changed reports whether a flag was given.
func buildJob(cfg *config.Config, flags *packageFlags, changed func(string) bool, input string) (pipeline.Job, error) {
	abs, err := filepath.Abs(input)
	if err != nil {
		return pipeline.Job{}, err
	}

	job := pipeline.Job{
		InputPath:       abs,
		OutputDir:       cfg.OutputDir,
		Format:          cfg.ExportFormat,
		CheckDictionary: cfg.CheckDictionary,
		AutoRebuild:     cfg.AutoRebuild,
		EnginePath:      cfg.EnginePath,
		OutputName:      strings.TrimSpace(flags.name),
		GameDir:         cfg.GameDir,
		EngineTimeout:   cfg.EngineTimeout,
		Retry:           pipeline.RetryPolicy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay},
	}

	if changed("output") {
		if job.OutputDir, err = filepath.Abs(flags.outputDir); err != nil {
			return pipeline.Job{}, err
		}
	}
	if changed("format") {
		if job.Format, err = types.ParseOutputFormat(flags.format); err != nil {
			return pipeline.Job{}, err
		}
	}
	if changed("check-dictionary") {
		job.CheckDictionary = flags.checkDictionary
	}
	if changed("auto-rebuild") {
		job.AutoRebuild = flags.autoRebuild
	}
	if changed("engine") {
		job.EnginePath = flags.engine
	}
	if changed("game-dir") {
		job.GameDir = flags.gameDir
	}
	if job.EnginePath != "" {
		if job.EnginePath, err = filepath.Abs(job.EnginePath); err != nil {
			return pipeline.Job{}, err
		}
	}
	if changed("engine-timeout") {
		job.EngineTimeout = flags.engineTimeout
	}

	rawOptions := cfg.LaunchOptions
	if changed("launch-options") {
		rawOptions = flags.launchOptions
	}
	if job.LaunchOptions, err = types.ParseLaunchOptions(rawOptions); err != nil {
		return pipeline.Job{}, err
	}

	return job, job.Validate()
}

// checkOutputName offers a rename when the predicted base name of a VPK
// input is not portable. Archive inputs are named after their content,
// which is only known once extracted; the pipeline warns about those.
func checkOutputName(ctx context.Context, p Prompter, job pipeline.Job) (string, error) {
	name := job.OutputName
	if name == "" {
		if !strings.EqualFold(filepath.Ext(job.InputPath), vpk.Ext) {
			return "", nil
		}
		name = ingest.BaseName(job.InputPath)
	}

	reason := types.PortableName(name).Validate()
	if reason == nil {
		return job.OutputName, nil
	}
	renamed, err := p.Rename(ctx, name, reason)
	if err != nil {
		return "", err
	}
	if renamed == name {
		return job.OutputName, nil
	}
	return renamed, nil
}

// savePreferences stores the choices of this run so the next one starts
// from them. Nothing is written when nothing changed.
func savePreferences(app *App, cfg *config.Config, job pipeline.Job, launchOptions, resolvedEngine string) error {
	next := *cfg
	next.LastInputDir = filepath.Dir(job.InputPath)
	next.OutputDir = job.OutputDir
	next.ExportFormat = job.Format
	if job.EnginePath != "" {
		next.EnginePath = job.EnginePath
	}
	if resolvedEngine != "" {
		next.EnginePath = resolvedEngine
	}
	next.LaunchOptions = strings.TrimSpace(launchOptions)
	if next == *cfg {
		return nil
	}
	return config.Save(&next, app.loadOptions())
}
