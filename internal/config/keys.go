// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/viper"
)

// ErrUnknownKey is returned by Set for keys outside the schema.
var ErrUnknownKey = errors.New("unknown config key")

var keys = []string{
	"last_input_dir",
	"engine_path",
	"output_dir",
	"launch_options",
	"export_format",
	"game_dir",
	"check_dictionary",
	"auto_rebuild",
	"engine_timeout",
	"retry.attempts",
	"retry.delay",
	"ui.verbose",
	"ui.color_scheme",
}

// Keys returns every settable dotted key.
func Keys() []string { return slices.Clone(keys) }

// Map returns cfg as nested maps keyed like the config file.
func (c *Config) Map() map[string]any {
	return map[string]any{
		"last_input_dir":   c.LastInputDir,
		"engine_path":      c.EnginePath,
		"output_dir":       c.OutputDir,
		"launch_options":   c.LaunchOptions,
		"export_format":    string(c.ExportFormat),
		"game_dir":         c.GameDir,
		"check_dictionary": c.CheckDictionary,
		"auto_rebuild":     c.AutoRebuild,
		"engine_timeout":   c.EngineTimeout.String(),
		"retry": map[string]any{
			"attempts": c.Retry.Attempts,
			"delay":    c.Retry.Delay.String(),
		},
		"ui": map[string]any{
			"verbose":      c.UI.Verbose,
			"color_scheme": string(c.UI.ColorScheme),
		},
	}
}

// Set returns a copy of cfg with key set to the string value, converted to
// the field's type and validated.
func Set(cfg *Config, key, value string) (*Config, error) {
	if !slices.Contains(keys, key) {
		return nil, fmt.Errorf("%w %q (valid: %v)", ErrUnknownKey, key, keys)
	}

	v := viper.New()
	if err := v.MergeConfigMap(cfg.Map()); err != nil {
		return nil, fmt.Errorf("failed to stage config: %w", err)
	}
	v.Set(key, value)

	out, err := decodeViper(v)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
	return out, nil
}
