// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEngineConfiguration is the sentinel error wrapped by
	// MissingEngineConfigurationError.
	ErrMissingEngineConfiguration = errors.New("engine is not configured")
	// ErrExternalProcess is the sentinel error wrapped by ExternalProcessError.
	ErrExternalProcess = errors.New("engine process failed")
)

type (
	// MissingEngineConfigurationError is returned when a rebuild is required
	// but no usable engine executable is configured.
	MissingEngineConfigurationError struct {
		Path   string
		Reason string
	}

	// ExternalProcessError records an engine launch that never produced a
	// running process, or a run that ended abnormally.
	ExternalProcessError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *MissingEngineConfigurationError) Error() string {
	switch {
	case e.Path == "":
		return "no engine executable configured"
	case e.Reason != "":
		return fmt.Sprintf("engine executable %s is unusable: %s", e.Path, e.Reason)
	default:
		return fmt.Sprintf("engine executable %s is unusable", e.Path)
	}
}

// Unwrap returns ErrMissingEngineConfiguration for errors.Is() compatibility.
func (e *MissingEngineConfigurationError) Unwrap() error { return ErrMissingEngineConfiguration }

// Error implements the error interface.
func (e *ExternalProcessError) Error() string {
	return fmt.Sprintf("failed to run engine %s: %v", e.Path, e.Err)
}

// Unwrap exposes ErrExternalProcess and the underlying cause.
func (e *ExternalProcessError) Unwrap() []error {
	return []error{ErrExternalProcess, e.Err}
}
