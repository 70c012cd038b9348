// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"time"

	"maptools-cli/internal/audit"
)

// Status is the per-level result of a rebuild.
type Status int

const (
	// StatusSkipped means no rebuild was attempted.
	StatusSkipped Status = iota
	// StatusRebuilt means the engine rewrote the level and the original was replaced.
	StatusRebuilt
	// StatusFailed means the level is unchanged.
	StatusFailed
)

// Failure reasons recorded on Outcome.Reason.
const (
	ReasonSizeUnchanged = "size unchanged"
	ReasonTimeout       = "timeout"
	ReasonLaunch        = "launch failed"
	ReasonCopy          = "copy failed"
	ReasonCancelled     = "cancelled"
)

// Outcome is the tagged per-asset result of Rebuild. Failures are carried
// here rather than returned, so one failed level never aborts the others.
type Outcome struct {
	Asset  audit.MapAsset
	Status Status
	Reason string
	// Size is the level's byte length after the attempt.
	Size    int64
	Elapsed time.Duration
	Err     error
}

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusRebuilt:
		return "rebuilt"
	case StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}
