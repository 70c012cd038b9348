// SPDX-License-Identifier: MPL-2.0

package pipeline

// State is a stage of the job state machine.
type State int

const (
	// StatePending is the state before the job starts.
	StatePending State = iota
	StateIngesting
	StateAuditing
	// StateRebuilding is entered once per deficient level.
	StateRebuilding
	// StateClientPackaging only runs when at least one level was rebuilt.
	StateClientPackaging
	StateSanitizing
	StateServerPackaging
	// StateCompressing only runs for archive output formats.
	StateCompressing
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StatePending:         "pending",
	StateIngesting:       "ingesting",
	StateAuditing:        "auditing",
	StateRebuilding:      "rebuilding",
	StateClientPackaging: "client-packaging",
	StateSanitizing:      "sanitizing",
	StateServerPackaging: "server-packaging",
	StateCompressing:     "compressing",
	StateDone:            "done",
	StateFailed:          "failed",
}

// String returns the kebab-case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// IsTerminal reports whether s ends the job.
func (s State) IsTerminal() bool { return s == StateDone || s == StateFailed }
