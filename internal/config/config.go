// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"maptools-cli/internal/fsutil"
	"maptools-cli/internal/issue"
	"maptools-cli/pkg/platform"
)

const (
	// AppName is the application name.
	AppName = "maptools"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. MAPTOOLS_ENGINE_PATH.
	EnvPrefix = "MAPTOOLS"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the maptools configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Path returns the config file that Load and Save use for opts.
func Path(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}
	dir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// newViper returns a Viper instance holding the defaults and wired to the
// MAPTOOLS_* environment overrides.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("last_input_dir", defaults.LastInputDir)
	v.SetDefault("engine_path", defaults.EnginePath)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("launch_options", defaults.LaunchOptions)
	v.SetDefault("export_format", string(defaults.ExportFormat))
	v.SetDefault("game_dir", defaults.GameDir)
	v.SetDefault("check_dictionary", defaults.CheckDictionary)
	v.SetDefault("auto_rebuild", defaults.AutoRebuild)
	v.SetDefault("engine_timeout", defaults.EngineTimeout)
	v.SetDefault("retry.attempts", defaults.Retry.Attempts)
	v.SetDefault("retry.delay", defaults.Retry.Delay)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. It returns the config and the file it was read from,
// which is empty when only defaults and the environment applied.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	path, err := Path(opts)
	if err != nil {
		return nil, "", err
	}

	resolvedPath := ""
	switch {
	case fileExists(path):
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", loadError(path, err)
		}
		resolvedPath = path
	case opts.ConfigFilePath != "":
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'maptools config init' to create a default configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}

	cfg, err := decodeViper(v)
	if err != nil {
		return nil, "", loadError(resolvedPath, err)
	}
	return cfg, resolvedPath, nil
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("See 'maptools config --help' for configuration options").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

// decodeViper unmarshals v and validates the result.
func decodeViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper validates the CUE file at path against #Config and merges
// its values into v, above the defaults and below the environment.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := decodeCUE(configSchema, data, "#Config", path)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration unless a file already
// exists at the resolved path, or force is set. It returns the path.
func CreateDefaultConfig(opts LoadOptions, force bool) (string, error) {
	path, err := Path(opts)
	if err != nil {
		return "", err
	}
	if fileExists(path) && !force {
		return path, nil
	}
	return path, writeConfig(path, DefaultConfig())
}

// Save writes cfg to the resolved config file.
func Save(cfg *Config, opts LoadOptions) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	path, err := Path(opts)
	if err != nil {
		return err
	}
	return writeConfig(path, cfg)
}

func writeConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, GenerateCUE(cfg))
		return err
	}); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// maptools configuration\n")
	sb.WriteString("// Run 'maptools config --help' for the meaning of each field.\n\n")

	fmt.Fprintf(&sb, "last_input_dir: %q\n", cfg.LastInputDir)
	fmt.Fprintf(&sb, "engine_path: %q\n", cfg.EnginePath)
	fmt.Fprintf(&sb, "output_dir: %q\n", cfg.OutputDir)
	fmt.Fprintf(&sb, "launch_options: %q\n", cfg.LaunchOptions)
	fmt.Fprintf(&sb, "export_format: %q\n", cfg.ExportFormat)
	fmt.Fprintf(&sb, "game_dir: %q\n", cfg.GameDir)
	fmt.Fprintf(&sb, "check_dictionary: %v\n", cfg.CheckDictionary)
	fmt.Fprintf(&sb, "auto_rebuild: %v\n", cfg.AutoRebuild)
	fmt.Fprintf(&sb, "engine_timeout: %q\n", cfg.EngineTimeout)

	sb.WriteString("\nretry: {\n")
	fmt.Fprintf(&sb, "\tattempts: %d\n", cfg.Retry.Attempts)
	fmt.Fprintf(&sb, "\tdelay: %q\n", cfg.Retry.Delay)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")

	return sb.String()
}
