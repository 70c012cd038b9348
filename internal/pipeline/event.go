// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"maptools-cli/internal/audit"
)

// EventKind discriminates Event.
type EventKind int

const (
	// EventProgress carries Percent.
	EventProgress EventKind = iota
	// EventLog carries a timestamped human-readable Message and its Level.
	EventLog
	// EventState carries the State just entered.
	EventState
	// EventAuthorization announces that the job waits for a rebuild
	// decision on Asset. It is informational; the decision itself travels
	// through the Authorizer.
	EventAuthorization
	// EventDone is the last event of every job. It carries Result or Err.
	EventDone
)

// Event is one message from a running job.
type Event struct {
	Kind    EventKind
	Time    time.Time
	Percent int
	Message string
	Level   log.Level
	State   State
	Asset   *audit.MapAsset
	Result  *Result
	Err     error
}

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventLog:
		return "log"
	case EventState:
		return "state"
	case EventAuthorization:
		return "authorization"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}
