// SPDX-License-Identifier: MPL-2.0

// Package types defines the validated value types shared by the pipeline,
// the configuration layer and the CLI: output formats, engine launch
// options, portable output names and process exit codes.
//
// Each type validates itself and reports failures through a typed error
// that unwraps to a package sentinel, so callers can match with errors.Is.
package types
