// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"maptools-cli/internal/audit"
	"maptools-cli/internal/pipeline"
	"maptools-cli/internal/tui"
	"maptools-cli/pkg/platform"
	"maptools-cli/pkg/types"
)

const otherEngineOption = "Other location..."

// errNoTerminal is returned when a question needs an answer and nobody can
// be asked.
var errNoTerminal = errors.New("no terminal available to ask; set engine_path or pass --engine")

type (
	// huhPrompter asks through terminal forms.
	huhPrompter struct {
		// mu keeps prompts from overlapping.
		mu sync.Mutex
	}

	// noPrompter answers without asking: rebuilds are declined, the first
	// engine candidate is taken and names are kept.
	noPrompter struct{}

	// engineResolver locates the game executable when the job has none and
	// remembers the answer so it can be persisted.
	engineResolver struct {
		prompter   Prompter
		candidates func() []string

		mu       sync.Mutex
		resolved string
	}
)

func newAuthorizer(p Prompter) pipeline.Authorizer {
	return pipeline.AuthorizerFunc(p.ConfirmRebuild)
}

// ConfirmRebuild implements Prompter.
func (p *huhPrompter) ConfirmRebuild(ctx context.Context, asset audit.MapAsset) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ok, err := tui.Confirm(ctx, tui.ConfirmOptions{
		Title: fmt.Sprintf("Rebuild %s%s?", asset.Name, audit.LevelExt),
		Description: "The level has no string table dictionary. The game will be started to rebuild it;\n" +
			"accepting also rebuilds the remaining levels without asking.",
		Affirmative: "Rebuild",
		Negative:    "Cancel",
		Default:     true,
		Config:      tui.DefaultConfig(),
	})
	if errors.Is(err, tui.ErrCancelled) {
		return false, nil
	}
	return ok, err
}

// EnginePath implements Prompter.
func (p *huhPrompter) EnginePath(ctx context.Context, candidates []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg := tui.DefaultConfig()
	if len(candidates) > 0 {
		choice, err := tui.Choose(ctx, tui.ChooseOptions{
			Title:   "Select the game executable",
			Options: append(append([]string(nil), candidates...), otherEngineOption),
			Config:  cfg,
		})
		if err != nil {
			return "", err
		}
		if choice != otherEngineOption {
			return choice, nil
		}
	}

	return tui.Input(ctx, tui.InputOptions{
		Title:       "Path to the game executable",
		Description: "Used to rebuild levels that lack a string table dictionary.",
		Placeholder: platform.EngineExecutableName(runtime.GOOS),
		Validate:    checkEngineFile,
		Config:      cfg,
	})
}

// Rename implements Prompter.
func (p *huhPrompter) Rename(ctx context.Context, current string, reason error) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name, err := tui.Input(ctx, tui.InputOptions{
		Title:       "Output name",
		Description: reason.Error() + "\nPick a name servers can load, or keep it to continue anyway.",
		Value:       current,
		Validate: func(s string) error {
			if s == current {
				return nil
			}
			return types.PortableName(s).Validate()
		},
		Config: tui.DefaultConfig(),
	})
	if errors.Is(err, tui.ErrCancelled) {
		return current, nil
	}
	return name, err
}

// ConfirmRebuild implements Prompter.
func (noPrompter) ConfirmRebuild(context.Context, audit.MapAsset) (bool, error) {
	return false, nil
}

// EnginePath implements Prompter.
func (noPrompter) EnginePath(_ context.Context, candidates []string) (string, error) {
	if len(candidates) > 0 {
		return candidates[0], nil
	}
	return "", errNoTerminal
}

// Rename implements Prompter.
func (noPrompter) Rename(_ context.Context, current string, _ error) (string, error) {
	return current, nil
}

func newEngineResolver(p Prompter) *engineResolver {
	return &engineResolver{prompter: p, candidates: installedEngines}
}

// ResolveEngine implements pipeline.EngineResolver.
func (r *engineResolver) ResolveEngine(ctx context.Context) (string, error) {
	path, err := r.prompter.EnginePath(ctx, r.candidates())
	if err != nil {
		return "", err
	}
	if err := checkEngineFile(path); err != nil {
		return "", err
	}

	r.mu.Lock()
	r.resolved = path
	r.mu.Unlock()
	return path, nil
}

// Resolved returns the path handed to the pipeline, or "".
func (r *engineResolver) Resolved() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}

// installedEngines returns the well-known engine locations that exist.
func installedEngines() []string {
	home, _ := os.UserHomeDir()
	var found []string
	for _, c := range platform.EngineCandidates(runtime.GOOS, os.Getenv, home) {
		if checkEngineFile(c) == nil {
			found = append(found, c)
		}
	}
	return found
}

func checkEngineFile(path string) error {
	if path == "" {
		return errors.New("path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
