// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/huh"
)

// InputOptions configures the Input component.
type InputOptions struct {
	// Title is the title/prompt displayed above the input.
	Title string
	// Description provides additional context below the title.
	Description string
	// Placeholder is the placeholder text shown when input is empty.
	Placeholder string
	// Value is the initial value of the input.
	Value string
	// Validate rejects a value with a message shown under the field.
	Validate func(string) error
	// Config holds common TUI configuration.
	Config Config
}

// Input reads one line of text. Surrounding whitespace is trimmed.
func Input(ctx context.Context, opts InputOptions) (string, error) {
	result := opts.Value
	if err := run(ctx, newForm(opts.Config, newInputField(opts, &result))); err != nil {
		return "", err
	}
	return strings.TrimSpace(result), nil
}

func newInputField(opts InputOptions, result *string) *huh.Input {
	in := huh.NewInput().
		Title(opts.Title).
		Description(opts.Description).
		Placeholder(opts.Placeholder).
		Value(result)
	if opts.Validate != nil {
		validate := opts.Validate
		in = in.Validate(func(s string) error { return validate(strings.TrimSpace(s)) })
	}
	return in
}
