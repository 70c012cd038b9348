// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"maptools-cli/internal/config"
	"maptools-cli/internal/engine"
	"maptools-cli/internal/fsutil"
	"maptools-cli/internal/ingest"
	"maptools-cli/internal/issue"
	"maptools-cli/internal/packager"
	"maptools-cli/internal/pipeline"
	"maptools-cli/pkg/types"
	"maptools-cli/pkg/vpk"
)

// describeError turns an error from a command into user guidance and the
// process exit code. operation and resource describe what was attempted.
func describeError(err error, operation, resource string) (*issue.ActionableError, types.ExitCode) {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae, types.ExitFailure
	}

	ctx := issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		Wrap(err)
	code := types.ExitFailure

	switch {
	case errors.Is(err, pipeline.ErrUserCancelled):
		ctx.WithIssue(issue.RebuildDeclinedId).
			WithSuggestions(
				"Pass --auto-rebuild (-y) to rebuild levels without asking",
				"Pass --check-dictionary=false to package without the audit")
		code = types.ExitCancelled
	case errors.Is(err, context.Canceled):
		ctx.WithSuggestion("The run was interrupted; partial outputs were removed")
		code = types.ExitCancelled
	case errors.Is(err, ingest.ErrInputFormat):
		ctx.WithIssue(issue.InputFormatId).
			WithSuggestion("Pass a .vpk container or a zip, 7z or rar archive holding one")
	case errors.Is(err, ingest.ErrNoContainerFound):
		ctx.WithIssue(issue.NoContainerFoundId).
			WithSuggestion("Make sure the archive contains at least one .vpk file")
	case errors.Is(err, vpk.ErrCorruptContainer):
		ctx.WithIssue(issue.CorruptContainerId).
			WithSuggestions(
				fmt.Sprintf("Run 'maptools inspect %s' to check the container", resource),
				"Export the package again from the authoring tool")
	case errors.Is(err, engine.ErrMissingEngineConfiguration):
		ctx.WithIssue(issue.MissingEngineId).
			WithSuggestions(
				"Pass --engine <path to the game executable>",
				"Or store it once: maptools config set engine_path <path>")
	case errors.Is(err, engine.ErrExternalProcess):
		ctx.WithIssue(issue.EngineLaunchFailedId).
			WithSuggestion("Check that the game starts on its own and that Steam is running")
	case errors.Is(err, packager.ErrToolNotFound):
		ctx.WithIssue(issue.ArchiverNotFoundId).
			WithSuggestions(
				"Install 7-Zip (7z) or WinRAR (rar) and make sure it is on PATH",
				"Or choose another format: -f zip")
	case errors.Is(err, fsutil.ErrFilesystemContention):
		ctx.WithIssue(issue.FilesystemContentionId).
			WithSuggestion("Close programs that may hold files open in the output directory, then retry")
	case errors.Is(err, fs.ErrPermission):
		ctx.WithIssue(issue.PermissionDeniedId).
			WithSuggestion("Choose a writable output directory with -o")
	case errors.Is(err, config.ErrInvalidConfig):
		ctx.WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Run 'maptools config show' to review the configuration")
	case errors.Is(err, types.ErrInvalidLaunchOption):
		ctx.WithSuggestion("Every launch option must start with '-' or '+', e.g. -windowed \"+sv_cheats 1\"")
	case errors.Is(err, types.ErrInvalidOutputFormat):
		ctx.WithSuggestion("Use one of: vpk, zip, 7z, rar")
	}

	return ctx.Build(), code
}

// renderError prints err with its suggestions. In verbose mode the catalog
// entry of the failure class is rendered below it.
func renderError(w io.Writer, ae *issue.ActionableError, verbose bool, style string) {
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(verbose))

	if !verbose {
		return
	}
	if entry := ae.CatalogIssue(); entry != nil {
		rendered, err := entry.Render(style)
		if err != nil {
			fmt.Fprintln(w, VerboseStyle.Render("(failed to render issue guidance: "+err.Error()+")"))
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// fail renders err and returns the ExitError that ends the command.
func (a *App) fail(err error, operation, resource string) error {
	ae, code := describeError(err, operation, resource)
	renderError(a.stderr, ae, a.flags.verbose, a.glamourStyle)
	return &ExitError{Code: code, Err: err}
}
