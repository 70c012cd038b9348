// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// FormatVPK leaves the container unwrapped.
	FormatVPK OutputFormat = "vpk"
	// FormatZip wraps the container in a zip archive.
	FormatZip OutputFormat = "zip"
	// FormatSevenZip wraps the container in a 7z archive.
	FormatSevenZip OutputFormat = "7z"
	// FormatRar wraps the container in a rar archive.
	FormatRar OutputFormat = "rar"

	// DefaultOutputFormat is used when nothing else is configured.
	DefaultOutputFormat = FormatZip
)

// ErrInvalidOutputFormat is the sentinel error wrapped by InvalidOutputFormatError.
var ErrInvalidOutputFormat = errors.New("invalid output format")

type (
	// OutputFormat is the distribution format of a produced package.
	OutputFormat string

	// InvalidOutputFormatError is returned for an unknown OutputFormat.
	InvalidOutputFormatError struct {
		Value OutputFormat
	}
)

// OutputFormats lists every supported format in presentation order.
func OutputFormats() []OutputFormat {
	return []OutputFormat{FormatVPK, FormatZip, FormatSevenZip, FormatRar}
}

// ParseOutputFormat parses s case-insensitively; a leading dot is accepted.
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

// Error implements the error interface.
func (e *InvalidOutputFormatError) Error() string {
	return fmt.Sprintf("invalid output format %q (expected one of vpk, zip, 7z, rar)", string(e.Value))
}

// Unwrap returns ErrInvalidOutputFormat for errors.Is() compatibility.
func (e *InvalidOutputFormatError) Unwrap() error { return ErrInvalidOutputFormat }

// Validate returns an error if f is not a supported format.
func (f OutputFormat) Validate() error {
	switch f {
	case FormatVPK, FormatZip, FormatSevenZip, FormatRar:
		return nil
	default:
		return &InvalidOutputFormatError{Value: f}
	}
}

// IsArchive reports whether the format wraps the container.
func (f OutputFormat) IsArchive() bool { return f != FormatVPK }

// Ext returns the file extension including the dot.
func (f OutputFormat) Ext() string { return "." + string(f) }

// String returns the format name.
func (f OutputFormat) String() string { return string(f) }
