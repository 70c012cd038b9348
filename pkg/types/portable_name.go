// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"

	"maptools-cli/pkg/platform"
)

// ErrNonPortableName is the sentinel error wrapped by NonPortableNameError.
var ErrNonPortableName = errors.New("non-portable name")

var portableNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-. ]+$`)

type (
	// PortableName is an output base name. Game servers and the engine's own
	// file handling only cope reliably with ASCII letters, digits, '_', '-',
	// '.' and spaces.
	PortableName string

	// NonPortableNameError is returned for a name outside the portable set.
	NonPortableNameError struct {
		Value PortableName
		// Reserved is set when the name is a Windows device name.
		Reserved bool
	}
)

// Error implements the error interface.
func (e *NonPortableNameError) Error() string {
	if e.Reserved {
		return fmt.Sprintf("name %q is reserved on Windows", string(e.Value))
	}
	return fmt.Sprintf("name %q contains characters outside [A-Za-z0-9_-. ]", string(e.Value))
}

// Unwrap returns ErrNonPortableName for errors.Is() compatibility.
func (e *NonPortableNameError) Unwrap() error { return ErrNonPortableName }

// Validate returns an error if n is empty, contains non-portable characters
// or is a Windows reserved device name.
func (n PortableName) Validate() error {
	if !portableNamePattern.MatchString(string(n)) {
		return &NonPortableNameError{Value: n}
	}
	if platform.IsWindowsReservedName(string(n)) {
		return &NonPortableNameError{Value: n, Reserved: true}
	}
	return nil
}

// String returns the name.
func (n PortableName) String() string { return string(n) }
