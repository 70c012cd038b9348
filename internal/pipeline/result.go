// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"

	"maptools-cli/internal/engine"
)

// Result is the outcome of a successful job. A job that rebuilt only some
// of its deficient levels still succeeds; compare Rebuilt with Attempted.
type Result struct {
	JobID            string
	BaseName         string
	ServerOutputPath string
	// ClientOutputPath is empty unless at least one level was rebuilt.
	ClientOutputPath string
	// Levels is the number of levels audited.
	Levels         int
	MapsDirMissing bool
	// DictionaryChecked is false when the audit was disabled.
	DictionaryChecked bool
	Attempted         int
	Rebuilt           int
	Outcomes          []engine.Outcome
	// Removed lists the files stripped from the server package.
	Removed  []string
	Warnings []string
}

// Summary returns the closing line of a job log.
func (r *Result) Summary() string {
	switch {
	case !r.DictionaryChecked:
		return "dictionary check skipped"
	case r.Attempted == 0:
		return "no levels with a missing dictionary"
	case r.Rebuilt == r.Attempted:
		return fmt.Sprintf("all %d levels with a missing dictionary were rebuilt", r.Attempted)
	default:
		return fmt.Sprintf("rebuilt %d of %d levels with a missing dictionary, %d failed",
			r.Rebuilt, r.Attempted, r.Attempted-r.Rebuilt)
	}
}

// Partial reports whether some rebuilds failed.
func (r *Result) Partial() bool { return r.Rebuilt < r.Attempted }
