// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"maptools-cli/internal/engine"
	"maptools-cli/internal/pipeline"
)

// stageTitles are the headings printed when the job enters a state.
var stageTitles = map[pipeline.State]string{
	pipeline.StateIngesting:       "Reading input",
	pipeline.StateAuditing:        "Checking levels for a string table dictionary",
	pipeline.StateRebuilding:      "Rebuilding level",
	pipeline.StateClientPackaging: "Building client package",
	pipeline.StateSanitizing:      "Removing development files",
	pipeline.StateServerPackaging: "Building server package",
	pipeline.StateCompressing:     "Compressing packages",
}

// progressPrinter renders pipeline events as a running log.
type progressPrinter struct {
	w       io.Writer
	verbose bool
	percent int
}

func newProgressPrinter(w io.Writer, verbose bool) *progressPrinter {
	return &progressPrinter{w: w, verbose: verbose}
}

// Handle renders one event.
func (p *progressPrinter) Handle(ev pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventProgress:
		p.percent = ev.Percent
	case pipeline.EventState:
		title, ok := stageTitles[ev.State]
		if !ok {
			return
		}
		fmt.Fprintf(p.w, "%s %s\n", CmdStyle.Render(fmt.Sprintf("[%3d%%]", p.percent)), TitleStyle.Render(title))
	case pipeline.EventAuthorization:
		if ev.Asset != nil {
			fmt.Fprintln(p.w, WarningStyle.Render("       "+ev.Asset.Name+" needs a rebuild; waiting for confirmation"))
		}
	case pipeline.EventLog:
		p.logLine(ev.Level, ev.Message)
	}
}

func (p *progressPrinter) logLine(level log.Level, msg string) {
	switch level {
	case log.DebugLevel:
		if p.verbose {
			fmt.Fprintln(p.w, VerboseStyle.Render("       "+msg))
		}
	case log.WarnLevel:
		fmt.Fprintln(p.w, WarningStyle.Render("       "+msg))
	case log.ErrorLevel:
		fmt.Fprintln(p.w, ErrorStyle.Render("       "+msg))
	default:
		fmt.Fprintln(p.w, "       "+msg)
	}
}

// printResult writes the summary of a finished job.
func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintln(w)
	summary := res.Summary()
	if res.Partial() {
		fmt.Fprintln(w, WarningStyle.Render("! ")+summary)
	} else {
		fmt.Fprintln(w, SuccessStyle.Render("✓ ")+summary)
	}

	for _, o := range res.Outcomes {
		switch o.Status {
		case engine.StatusRebuilt:
			fmt.Fprintf(w, "  %s %s %s\n", SuccessStyle.Render("rebuilt"), o.Asset.Name,
				SubtitleStyle.Render(fmt.Sprintf("(%s, %s)", humanize.IBytes(uint64(o.Size)), o.Elapsed)))
		default:
			fmt.Fprintf(w, "  %s %s %s\n", ErrorStyle.Render("failed "), o.Asset.Name,
				SubtitleStyle.Render("("+o.Reason+")"))
		}
	}

	fmt.Fprintln(w)
	printOutput(w, "Server package", res.ServerOutputPath)
	if res.ClientOutputPath != "" {
		printOutput(w, "Client package", res.ClientOutputPath)
	}
	if len(res.Removed) > 0 {
		fmt.Fprintf(w, "%s %d development files stripped from the server package\n",
			SubtitleStyle.Render("•"), len(res.Removed))
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("%d %s:", len(res.Warnings), plural(len(res.Warnings), "warning", "warnings"))))
		for _, msg := range res.Warnings {
			fmt.Fprintln(w, "  - "+msg)
		}
	}
}

func printOutput(w io.Writer, label, path string) {
	size := ""
	if info, err := os.Stat(path); err == nil {
		size = " " + SubtitleStyle.Render("("+humanize.IBytes(uint64(info.Size()))+")")
	}
	fmt.Fprintf(w, "%s %s: %s%s\n", SuccessStyle.Render("✓"), label, CmdStyle.Render(path), size)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
