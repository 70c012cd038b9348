// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"context"

	"github.com/charmbracelet/huh"
)

// ChooseOptions configures the single-select Choose component.
type ChooseOptions struct {
	// Title is the title/prompt displayed above the options.
	Title string
	// Options is the list of string options to choose from.
	Options []string
	// Height limits the number of visible options (0 for auto).
	Height int
	// Config holds common TUI configuration.
	Config Config
}

// Choose asks the user to pick one of opts.Options. With no options it
// returns "" without prompting.
func Choose(ctx context.Context, opts ChooseOptions) (string, error) {
	if len(opts.Options) == 0 {
		return "", nil
	}
	result := opts.Options[0]
	if err := run(ctx, newForm(opts.Config, newSelectField(opts, &result))); err != nil {
		return "", err
	}
	return result, nil
}

func newSelectField(opts ChooseOptions, result *string) *huh.Select[string] {
	sel := huh.NewSelect[string]().
		Title(opts.Title).
		Options(huh.NewOptions(opts.Options...)...).
		Value(result)
	if opts.Height > 0 {
		sel = sel.Height(opts.Height)
	}
	return sel
}
