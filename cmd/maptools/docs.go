// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"maptools-cli/internal/issue"
)

//go:embed usage.md
var usageGuide string

// newDocsCommand creates the `maptools docs` command.
func newDocsCommand(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:       "docs [usage|issues]",
		Short:     "Show the usage guide or the troubleshooting catalog",
		ValidArgs: []string{"usage", "issues"},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.loadConfig(cmd.Context()); err != nil {
				return app.fail(err, "load configuration", app.flags.configPath)
			}

			topic := "usage"
			if len(args) == 1 {
				topic = args[0]
			}

			md := usageGuide
			if topic == "issues" {
				md = issueCatalog()
			}
			if raw {
				fmt.Fprint(app.stdout, md)
				return nil
			}

			out, err := glamour.Render(md, app.glamourStyle)
			if err != nil {
				return app.fail(err, "render "+topic, "")
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print Markdown without rendering")
	return cmd
}

// issueCatalog joins every catalog entry into one document.
func issueCatalog() string {
	var sb strings.Builder
	for i, entry := range issue.Values() {
		if i > 0 {
			sb.WriteString("\n\n---\n")
		}
		sb.WriteString(string(entry.MarkdownMsg()))
		for _, link := range append(entry.DocLinks(), entry.ExtLinks()...) {
			fmt.Fprintf(&sb, "\n- <%s>", link)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}
