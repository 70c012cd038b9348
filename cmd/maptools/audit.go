// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"maptools-cli/internal/audit"
	"maptools-cli/internal/config"
	"maptools-cli/internal/engine"
	"maptools-cli/internal/fsutil"
	"maptools-cli/internal/ingest"
	"maptools-cli/internal/packager"
	"maptools-cli/internal/pipeline"
	"maptools-cli/internal/sanitize"
	"maptools-cli/pkg/platform"
)

// staged is an input decoded into a scratch directory.
type staged struct {
	ingest *ingest.Result
	report *audit.Report
	root   string
}

// newAuditCommand creates the `maptools audit` command.
func newAuditCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <input>",
		Short: "Report levels that lack a string table dictionary",
		Long: `Decode the input and report, for every level under maps/, whether it
carries a string table dictionary. Nothing is rebuilt or written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd.Context(), app, args[0])
		},
	}
}

func runAudit(ctx context.Context, app *App, input string) error {
	if _, err := app.loadConfig(ctx); err != nil {
		return app.fail(err, "load configuration", app.flags.configPath)
	}

	s, err := stageInput(ctx, app.logger(), input)
	if err != nil {
		return app.fail(err, "audit", input)
	}
	defer s.cleanup(app.logger())

	printStaged(app, s)

	deficient := len(s.report.Deficient())
	switch {
	case s.report.MapsDirMissing:
		fmt.Fprintln(app.stdout, WarningStyle.Render("! ")+"the package has no maps directory")
	case deficient == 0:
		fmt.Fprintln(app.stdout, SuccessStyle.Render("✓ ")+"no levels with a missing dictionary")
	default:
		fmt.Fprintf(app.stdout, "%s%d of %d %s missing a dictionary; run 'maptools package' to rebuild them\n",
			WarningStyle.Render("! "), deficient, len(s.report.Assets), plural(len(s.report.Assets), "level", "levels"))
	}
	return nil
}

// stageInput ingests input into a temporary directory and audits it.
func stageInput(ctx context.Context, logger *log.Logger, input string) (*staged, error) {
	root, err := os.MkdirTemp("", "maptools-audit-")
	if err != nil {
		return nil, err
	}
	s := &staged{root: root}

	s.ingest, err = ingest.New(logger.WithPrefix("ingest")).Ingest(ctx, input, root)
	if err != nil {
		s.cleanup(logger)
		return nil, err
	}
	s.report, err = audit.Scan(ctx, s.ingest.ContentDir)
	if err != nil {
		s.cleanup(logger)
		return nil, err
	}
	return s, nil
}

func (s *staged) cleanup(logger *log.Logger) {
	if err := fsutil.NewRemover(0, 0).WithLogger(logger).Remove(s.root); err != nil {
		logger.Warn("failed to remove scratch directory", "path", s.root, "error", err)
	}
}

// printStaged lists the containers and levels of s.
func printStaged(app *App, s *staged) {
	fmt.Fprintf(app.stdout, "%s %s (%s)\n", TitleStyle.Render("Input:"), s.ingest.EffectiveInput, s.ingest.Kind)
	if len(s.ingest.Containers) > 1 {
		for _, c := range s.ingest.Containers {
			fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("container"), filepath.Base(c))
		}
	}
	for _, p := range s.ingest.Overwritten {
		fmt.Fprintf(app.stdout, "  %s %s\n", WarningStyle.Render("replaced "), p)
	}

	fmt.Fprintln(app.stdout)
	fmt.Fprintln(app.stdout, TitleStyle.Render("Levels:"))
	if len(s.report.Assets) == 0 {
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none)"))
	}
	for _, a := range s.report.Assets {
		status := SuccessStyle.Render("ok     ")
		if !a.HasDictionary {
			status = WarningStyle.Render("missing")
		}
		fmt.Fprintf(app.stdout, "  %s %s%s %s\n", status, a.Name, audit.LevelExt,
			SubtitleStyle.Render(humanize.IBytes(uint64(a.Size))))
	}
	fmt.Fprintln(app.stdout)
}

// runDryRun stages job's input and prints the plan without launching the
// engine or writing packages.
func runDryRun(ctx context.Context, app *App, job pipeline.Job) error {
	logger := app.logger()
	s, err := stageInput(ctx, logger, job.InputPath)
	if err != nil {
		return err
	}
	defer s.cleanup(logger)

	printStaged(app, s)

	base := s.ingest.BaseName
	if job.OutputName != "" {
		base = job.OutputName
	}
	outDir := job.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(job.InputPath)
	}

	deficient := s.report.Deficient()
	if job.CheckDictionary && len(deficient) > 0 {
		enginePath := job.EnginePath
		if enginePath == "" {
			enginePath = platform.EngineExecutableName(runtime.GOOS)
		}
		b, err := engine.NewBuilder(engine.Config{
			EnginePath:    enginePath,
			GameDir:       job.GameDir,
			LaunchOptions: job.LaunchOptions,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(app.stdout, TitleStyle.Render("Rebuild commands:"))
		for _, a := range deficient {
			fmt.Fprintln(app.stdout, CmdStyle.Render(indent(b.CommandPreview(a.Name), "  ")))
		}
		fmt.Fprintln(app.stdout)
	}

	stripped, err := countStripped(s.ingest.ContentDir)
	if err != nil {
		return err
	}

	format := job.Format
	if format == "" {
		format = config.DefaultConfig().ExportFormat
	}
	fmt.Fprintln(app.stdout, TitleStyle.Render("Outputs:"))
	server := filepath.Join(outDir, pipeline.ServerContainerName(base))
	fmt.Fprintf(app.stdout, "  %s %s\n", CmdStyle.Render(packager.WrapperPath(server, format)),
		SubtitleStyle.Render(fmt.Sprintf("(%d %s stripped)", stripped, plural(stripped, "file", "files"))))
	if job.CheckDictionary && len(deficient) > 0 {
		client := filepath.Join(outDir, pipeline.ClientContainerName(base))
		fmt.Fprintf(app.stdout, "  %s %s\n", CmdStyle.Render(packager.WrapperPath(client, format)),
			SubtitleStyle.Render("(if a rebuild succeeds)"))
	}
	return nil
}

// countStripped counts the files the sanitizer would remove below root.
func countStripped(root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && sanitize.ShouldRemove(d.Name()) {
			n++
		}
		return nil
	})
	return n, err
}
