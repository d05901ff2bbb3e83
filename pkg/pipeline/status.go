package pipeline

import (
	"encoding/json"
	"fmt"
)

// RunStatus represents the state of one pipeline invocation.
type RunStatus string

const (
	// RunStatusNotStarted indicates Run has not been called yet.
	RunStatusNotStarted RunStatus = "not_started"

	// RunStatusRunning indicates steps are being evaluated.
	RunStatusRunning RunStatus = "running"

	// RunStatusCompleted indicates every step's predicate holds.
	RunStatusCompleted RunStatus = "completed"

	// RunStatusHalted indicates a step failed and the run stopped at it.
	// Halted is never persisted; the next invocation resumes from state.
	RunStatusHalted RunStatus = "halted"
)

// IsTerminal returns true if the run status represents a final state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusHalted
}

// Validate checks if the run status is valid.
func (s RunStatus) Validate() error {
	switch s {
	case RunStatusNotStarted, RunStatusRunning, RunStatusCompleted, RunStatusHalted:
		return nil
	default:
		return fmt.Errorf("invalid run status: %s", s)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s RunStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *RunStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = RunStatus(str)
	return s.Validate()
}

// DisplayState is the per-step state shown in progress and summary views.
type DisplayState string

const (
	// DisplayDone indicates the step's completion predicate holds.
	DisplayDone DisplayState = "done"

	// DisplayActive indicates the step is the one currently executing.
	DisplayActive DisplayState = "active"

	// DisplayPending indicates the step has not completed.
	DisplayPending DisplayState = "pending"
)

// Validate checks if the display state is valid.
func (s DisplayState) Validate() error {
	switch s {
	case DisplayDone, DisplayActive, DisplayPending:
		return nil
	default:
		return fmt.Errorf("invalid display state: %s", s)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s DisplayState) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *DisplayState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = DisplayState(str)
	return s.Validate()
}
