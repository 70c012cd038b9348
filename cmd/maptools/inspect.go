// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"maptools-cli/internal/sanitize"
	"maptools-cli/pkg/vpk"
)

// newInspectCommand creates the `maptools inspect` command.
func newInspectCommand(app *App) *cobra.Command {
	var extractDir string

	cmd := &cobra.Command{
		Use:   "inspect <file.vpk>",
		Short: "List the entries of a VPK container",
		Long: `List every entry of a VPK container with its size. Entries the server
package would drop are marked. With --extract the entries are also written
to a directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.loadConfig(cmd.Context()); err != nil {
				return app.fail(err, "load configuration", app.flags.configPath)
			}

			a, err := vpk.Open(args[0])
			if err != nil {
				return app.fail(err, "inspect", args[0])
			}
			printArchive(app, args[0], a)

			if extractDir != "" {
				if err := os.MkdirAll(extractDir, 0o755); err != nil {
					return app.fail(err, "extract", extractDir)
				}
				if err := a.Extract(extractDir); err != nil {
					return app.fail(err, "extract", extractDir)
				}
				fmt.Fprintf(app.stdout, "%s extracted %d %s to %s\n", SuccessStyle.Render("✓"),
					a.Len(), plural(a.Len(), "entry", "entries"), CmdStyle.Render(extractDir))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&extractDir, "extract", "x", "", "also extract the entries to this directory")
	_ = cmd.MarkFlagDirname("extract")

	return cmd
}

func printArchive(app *App, file string, a *vpk.Archive) {
	stripped := 0
	for _, e := range a.Entries() {
		marker := "  "
		if sanitize.ShouldRemove(path.Base(e.Path)) {
			marker = WarningStyle.Render("- ")
			stripped++
		}
		fmt.Fprintf(app.stdout, "%s%10s  %s\n", marker, humanize.IBytes(uint64(len(e.Data))), e.Path)
	}
	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s %s: %d %s, %s\n", TitleStyle.Render("Total"), file,
		a.Len(), plural(a.Len(), "entry", "entries"), humanize.IBytes(uint64(a.Size())))
	if stripped > 0 {
		fmt.Fprintf(app.stdout, "%s %d %s marked '-' are dropped from server packages\n",
			SubtitleStyle.Render("•"), stripped, plural(stripped, "entry", "entries"))
	}
}
