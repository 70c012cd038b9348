// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for maptools.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "maptools",
		Short: "Prepare custom campaign packages for dedicated servers",
		Long: TitleStyle.Render("maptools") + SubtitleStyle.Render(" - Prepare custom campaign packages for dedicated servers") + `

maptools turns a VPK add-on (or a zip, 7z or rar archive holding one) into a
server package with development-only files removed. Levels that lack a
string table dictionary are rebuilt by the game itself first; when any level
was rebuilt a client package is produced as well.

` + SubtitleStyle.Render("Examples:") + `
  maptools package mymap.vpk             Package with the configured defaults
  maptools package mymap.zip -f vpk -y   Rebuild without asking, output a bare VPK
  maptools audit mymap.vpk               Report levels lacking a dictionary
  maptools inspect mymap.vpk             List the container's entries
  maptools config show                   Show current configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.flags.configPath, "config", "", "config file (default is <config dir>/maptools/config.cue)")

	rootCmd.AddCommand(
		newPackageCommand(app),
		newAuditCommand(app),
		newInspectCommand(app),
		newConfigCommand(app),
		newDocsCommand(app),
		newCompletionCommand(),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the CLI and runs it. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// errorHandler skips errors that commands already rendered.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
