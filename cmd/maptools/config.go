// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"maptools-cli/internal/config"
)

// newConfigCommand creates the `maptools config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage maptools configuration",
		Long: `Manage maptools configuration.

Configuration is stored in:
  - Linux: ~/.config/maptools/config.cue
  - macOS: ~/Library/Application Support/maptools/config.cue
  - Windows: %APPDATA%\maptools\config.cue

Every key can be overridden with a MAPTOOLS_ environment variable, dots
replaced by underscores (e.g. MAPTOOLS_RETRY_ATTEMPTS=3).

'maptools package' stores the input directory, output directory, format,
engine path and launch options of each run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path(app.loadOptions())
			if err != nil {
				return app.fail(err, "resolve configuration path", "")
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Valid keys:\n  " + strings.Join(config.Keys(), "\n  "),
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.Keys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveDefault
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), app, args[0], args[1])
		},
	})

	var dumpFormat string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE or TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpConfig(cmd.Context(), app, dumpFormat)
		},
	}
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "cue", "output format: cue or toml")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail(err, "load configuration", app.flags.configPath)
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.stdout)

	source, err := config.Source(ctx, app.loadOptions())
	if err == nil && source != "" {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Config file"), source)
	} else {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(app.stdout)

	values := cfg.Map()
	for _, key := range config.Keys() {
		v := fmt.Sprint(lookupKey(values, key))
		if v == "" {
			v = SubtitleStyle.Render("(not set)")
		} else {
			v = valueStyle.Render(v)
		}
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render(key), v)
	}
	return nil
}

func initConfig(app *App, force bool) error {
	path, err := config.Path(app.loadOptions())
	if err != nil {
		return app.fail(err, "resolve configuration path", "")
	}
	existed := fileExistsCheck(path)

	if _, err := config.CreateDefaultConfig(app.loadOptions(), force); err != nil {
		return app.fail(err, "create configuration", path)
	}

	if existed && !force {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s (use --force to overwrite)\n",
			WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

// pathKeys are stored absolute so the saved file works from any directory.
var pathKeys = map[string]bool{
	"engine_path":    true,
	"output_dir":     true,
	"last_input_dir": true,
}

func setConfigValue(ctx context.Context, app *App, key, value string) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail(err, "load configuration", app.flags.configPath)
	}

	if pathKeys[key] && value != "" {
		if value, err = filepath.Abs(value); err != nil {
			return app.fail(err, "set "+key, value)
		}
	}

	updated, err := config.Set(cfg, key, value)
	if err != nil {
		return app.fail(err, "set "+key, "")
	}
	if err := config.Save(updated, app.loadOptions()); err != nil {
		return app.fail(err, "save configuration", app.flags.configPath)
	}

	fmt.Fprintf(app.stdout, "%s %s = %v\n", SuccessStyle.Render("✓"), key, lookupKey(updated.Map(), key))
	return nil
}

func dumpConfig(ctx context.Context, app *App, format string) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail(err, "load configuration", app.flags.configPath)
	}

	switch format {
	case "cue":
		fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	case "toml":
		enc := toml.NewEncoder(app.stdout)
		enc.SetIndentTables(true)
		if err := enc.Encode(cfg.Map()); err != nil {
			return app.fail(err, "encode configuration", "")
		}
	default:
		return app.fail(fmt.Errorf("unknown format %q (valid: cue, toml)", format), "dump configuration", "")
	}
	return nil
}

// lookupKey resolves a dotted key in the nested map returned by Config.Map.
func lookupKey(m map[string]any, key string) any {
	head, rest, nested := strings.Cut(key, ".")
	v, ok := m[head]
	if !ok {
		return nil
	}
	if !nested {
		return v
	}
	sub, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return lookupKey(sub, rest)
}

func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
