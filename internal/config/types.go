// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"maptools-cli/pkg/types"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultGameDir is the content directory next to the game executable.
	DefaultGameDir = "left4dead2"
	// DefaultEngineTimeout bounds a single engine run.
	DefaultEngineTimeout = 30 * time.Minute
	// DefaultRetryAttempts is the teardown retry budget.
	DefaultRetryAttempts = 5
	// DefaultRetryDelay separates teardown attempts.
	DefaultRetryDelay = time.Second
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidRetryConfig is the sentinel error wrapped by InvalidRetryConfigError.
	ErrInvalidRetryConfig = errors.New("invalid retry config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidRetryConfigError is returned when a RetryConfig has invalid fields.
	InvalidRetryConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields. It
	// collects field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the persisted preferences.
	Config struct {
		// LastInputDir is where the previous input was picked from.
		LastInputDir string `json:"last_input_dir" mapstructure:"last_input_dir"`
		// EnginePath is the game executable used for dictionary rebuilds.
		EnginePath string `json:"engine_path" mapstructure:"engine_path"`
		// OutputDir receives packages. Empty means next to the input.
		OutputDir string `json:"output_dir" mapstructure:"output_dir"`
		// LaunchOptions are extra engine arguments, shell-quoted.
		LaunchOptions string `json:"launch_options" mapstructure:"launch_options"`
		// ExportFormat is the default output wrapper.
		ExportFormat types.OutputFormat `json:"export_format" mapstructure:"export_format"`
		// GameDir is the content directory next to the executable.
		GameDir string `json:"game_dir" mapstructure:"game_dir"`
		// CheckDictionary enables the level audit.
		CheckDictionary bool `json:"check_dictionary" mapstructure:"check_dictionary"`
		// AutoRebuild rebuilds deficient levels without asking.
		AutoRebuild bool `json:"auto_rebuild" mapstructure:"auto_rebuild"`
		// EngineTimeout bounds each engine run.
		EngineTimeout time.Duration `json:"engine_timeout" mapstructure:"engine_timeout"`
		Retry         RetryConfig   `json:"retry" mapstructure:"retry"`
		UI            UIConfig      `json:"ui" mapstructure:"ui"`
	}

	// RetryConfig configures staging teardown.
	RetryConfig struct {
		Attempts int           `json:"attempts" mapstructure:"attempts"`
		Delay    time.Duration `json:"delay" mapstructure:"delay"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and rendered issue guidance.
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ExportFormat:    types.DefaultOutputFormat,
		GameDir:         DefaultGameDir,
		CheckDictionary: true,
		EngineTimeout:   DefaultEngineTimeout,
		Retry: RetryConfig{
			Attempts: DefaultRetryAttempts,
			Delay:    DefaultRetryDelay,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// ParsedLaunchOptions splits LaunchOptions into validated arguments.
func (c Config) ParsedLaunchOptions() ([]string, error) {
	return types.ParseLaunchOptions(c.LaunchOptions)
}

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if err := c.ExportFormat.Validate(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.GameDir) == "" {
		errs = append(errs, errors.New("game_dir must not be empty"))
	}
	if c.EngineTimeout < 0 {
		errs = append(errs, fmt.Errorf("engine_timeout %s must not be negative", c.EngineTimeout))
	}
	if _, err := c.ParsedLaunchOptions(); err != nil {
		errs = append(errs, err)
	}
	if valid, fieldErrs := c.Retry.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate returns the IsValid errors as a single error.
func (c Config) Validate() error {
	if valid, errs := c.IsValid(); !valid {
		return errors.Join(errs...)
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, fe := range e.FieldErrors {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// IsValid returns whether the RetryConfig has valid fields.
func (c RetryConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Attempts < 1 {
		errs = append(errs, fmt.Errorf("retry.attempts %d must be at least 1", c.Attempts))
	}
	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("retry.delay %s must not be negative", c.Delay))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidRetryConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidRetryConfigError.
func (e *InvalidRetryConfigError) Error() string {
	return fmt.Sprintf("invalid retry config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidRetryConfig for errors.Is() compatibility.
func (e *InvalidRetryConfigError) Unwrap() error { return ErrInvalidRetryConfig }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}
