// SPDX-License-Identifier: MPL-2.0

// Package tui provides the interactive prompts used by the CLI.
//
// The components wrap charmbracelet/huh forms. When stdin is not a terminal
// or ACCESSIBLE is set they fall back to huh's line-based accessible mode and
// write to stderr so prompts survive pipes and command substitution.
package tui
