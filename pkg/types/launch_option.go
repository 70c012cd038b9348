// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/shell"
)

// ErrInvalidLaunchOption is the sentinel error wrapped by InvalidLaunchOptionError.
var ErrInvalidLaunchOption = errors.New("invalid launch option")

type (
	// LaunchOption is one extra engine argument. It must start with '-'
	// (a switch) or '+' (a console command).
	LaunchOption string

	// InvalidLaunchOptionError is returned for an option without a leading
	// '-' or '+', or for an option string that cannot be split.
	InvalidLaunchOptionError struct {
		Value  LaunchOption
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidLaunchOptionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid launch option %q: %s", string(e.Value), e.Reason)
	}
	return fmt.Sprintf("invalid launch option %q: must start with '-' or '+'", string(e.Value))
}

// Unwrap returns ErrInvalidLaunchOption for errors.Is() compatibility.
func (e *InvalidLaunchOptionError) Unwrap() error { return ErrInvalidLaunchOption }

// Validate returns an error if o does not start with '-' or '+'.
func (o LaunchOption) Validate() error {
	if !strings.HasPrefix(string(o), "-") && !strings.HasPrefix(string(o), "+") {
		return &InvalidLaunchOptionError{Value: o}
	}
	return nil
}

// ParseLaunchOptions splits s into options with shell quoting rules, so
// `-windowed "+exec my.cfg"` yields two options. Variable expansion is disabled.
// Every option is validated; the first invalid one is reported.
func ParseLaunchOptions(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields, err := shell.Fields(s, func(string) string { return "" })
	if err != nil {
		return nil, &InvalidLaunchOptionError{Value: LaunchOption(s), Reason: err.Error()}
	}
	for _, f := range fields {
		if err := LaunchOption(f).Validate(); err != nil {
			return nil, err
		}
	}
	return fields, nil
}
