// SPDX-License-Identifier: MPL-2.0

package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrInputFormat is the sentinel error wrapped by InputFormatError and
	// NoContainerFoundError.
	ErrInputFormat = errors.New("unsupported input format")
	// ErrNoContainerFound is returned when an archive holds no VPK container.
	ErrNoContainerFound = errors.New("no container found")
)

type (
	// InputFormatError is returned when the input is neither a VPK container
	// nor a supported archive.
	InputFormatError struct {
		Path   string
		Reason string
	}

	// NoContainerFoundError is returned when an archive was extracted but no
	// VPK container was found inside it.
	NoContainerFoundError struct {
		Archive string
	}
)

// Error implements the error interface.
func (e *InputFormatError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported input %s (expected .vpk, .zip, .7z or .rar)", e.Path)
	}
	return fmt.Sprintf("unsupported input %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrInputFormat for errors.Is() compatibility.
func (e *InputFormatError) Unwrap() error { return ErrInputFormat }

// Error implements the error interface.
func (e *NoContainerFoundError) Error() string {
	return fmt.Sprintf("no .vpk container found inside %s", e.Archive)
}

// Unwrap exposes both ErrNoContainerFound and ErrInputFormat.
func (e *NoContainerFoundError) Unwrap() []error {
	return []error{ErrNoContainerFound, ErrInputFormat}
}
