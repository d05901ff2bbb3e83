package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a setup error. The kind decides how the runner reports
// the failure and which exit code it uses; it never triggers a retry.
type ErrorKind string

const (
	// KindCorruptState indicates the durable state exists but cannot be parsed.
	KindCorruptState ErrorKind = "corrupt_state"

	// KindPersistFailure indicates a state update could not be written durably.
	KindPersistFailure ErrorKind = "persist_failure"

	// KindToolMissing indicates a required local tool is not installed.
	KindToolMissing ErrorKind = "tool_missing"

	// KindExternalCommandFailed indicates an external program exited non-zero
	// or could not be started.
	KindExternalCommandFailed ErrorKind = "external_command_failed"

	// KindUserAborted indicates the operator cancelled a prompt or the run.
	KindUserAborted ErrorKind = "user_aborted"

	// KindPreconditionUnmet indicates a step's inputs or environment are not
	// in the state the step requires.
	KindPreconditionUnmet ErrorKind = "precondition_unmet"
)

// IsStepKind reports whether the kind is raised by step actions (as opposed
// to the state store).
func (k ErrorKind) IsStepKind() bool {
	switch k {
	case KindToolMissing, KindExternalCommandFailed, KindUserAborted, KindPreconditionUnmet:
		return true
	default:
		return false
	}
}

// Validate checks if the kind is known.
func (k ErrorKind) Validate() error {
	switch k {
	case KindCorruptState, KindPersistFailure, KindToolMissing,
		KindExternalCommandFailed, KindUserAborted, KindPreconditionUnmet:
		return nil
	default:
		return fmt.Errorf("invalid error kind: %s", k)
	}
}

// SetupError is a classified error raised by the state store or a step.
// nolint:revive // SetupError is intentionally named to distinguish from standard errors
type SetupError struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Step is the name of the step that raised the error, if any.
	Step string `json:"step,omitempty"`

	// Path is the file involved, if any (state file, .env file).
	Path string `json:"path,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Step != "" {
		msg = fmt.Sprintf("%s (step=%s)", msg, e.Step)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (path=%s)", msg, e.Path)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *SetupError) Unwrap() error {
	return e.Err
}

// Is matches another *SetupError of the same kind, so errors.Is(err,
// &SetupError{Kind: KindToolMissing}) works as a kind test.
func (e *SetupError) Is(target error) bool {
	t, ok := target.(*SetupError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithStep adds step context to an error.
func (e *SetupError) WithStep(name string) *SetupError {
	e.Step = name
	return e
}

// WithPath adds file context to an error.
func (e *SetupError) WithPath(path string) *SetupError {
	e.Path = path
	return e
}

// WithDetail adds a detail field to the error context.
func (e *SetupError) WithDetail(key string, value interface{}) *SetupError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewCorruptStateError reports a state document that exists but cannot be parsed.
func NewCorruptStateError(path string, err error) *SetupError {
	return &SetupError{
		Kind:    KindCorruptState,
		Message: "state store is not valid JSON",
		Path:    path,
		Err:     err,
	}
}

// NewPersistFailure reports a state write that did not complete.
func NewPersistFailure(path string, err error) *SetupError {
	return &SetupError{
		Kind:    KindPersistFailure,
		Message: "state update could not be written",
		Path:    path,
		Err:     err,
	}
}

// NewStepError creates an error raised by a step action.
func NewStepError(kind ErrorKind, message string, err error) *SetupError {
	return &SetupError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ToolMissing creates a KindToolMissing error for the named tool.
func ToolMissing(tool string) *SetupError {
	return NewStepError(KindToolMissing, fmt.Sprintf("%s is not installed", tool), nil).
		WithDetail("tool", tool)
}

// CommandFailed creates a KindExternalCommandFailed error.
func CommandFailed(message string, err error) *SetupError {
	return NewStepError(KindExternalCommandFailed, message, err)
}

// UserAborted creates a KindUserAborted error.
func UserAborted(message string, err error) *SetupError {
	return NewStepError(KindUserAborted, message, err)
}

// PreconditionUnmet creates a KindPreconditionUnmet error.
func PreconditionUnmet(message string, err error) *SetupError {
	return NewStepError(KindPreconditionUnmet, message, err)
}

// KindOf returns the kind of the first *SetupError in the chain, or "" when
// the chain holds none.
func KindOf(err error) ErrorKind {
	var e *SetupError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsCorruptState returns true if the error is classified as corrupt state.
func IsCorruptState(err error) bool {
	return KindOf(err) == KindCorruptState
}

// IsPersistFailure returns true if the error is classified as a persist failure.
func IsPersistFailure(err error) bool {
	return KindOf(err) == KindPersistFailure
}

// IsStepError returns true if the error was raised by a step action.
func IsStepError(err error) bool {
	return KindOf(err).IsStepKind()
}

// IsUserAborted returns true if the operator cancelled.
func IsUserAborted(err error) bool {
	return KindOf(err) == KindUserAborted
}

// StepFailure wraps the error that halted a run with the position of the
// failing step.
type StepFailure struct {
	Step  string
	Index int
	Err   error
}

// Error implements the error interface.
func (f *StepFailure) Error() string {
	return fmt.Sprintf("step %q failed: %v", f.Step, f.Err)
}

// Unwrap returns the underlying error.
func (f *StepFailure) Unwrap() error {
	return f.Err
}

// ErrCompletionNotRecorded is returned when a step reports success but its
// completion predicate is still false afterwards.
var ErrCompletionNotRecorded = errors.New("step reported success without recording completion")
