package stores

import (
	"context"
	"time"
)

// RunStatus represents the recorded outcome of a setup run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusHalted    RunStatus = "halted"
)

// StepOutcome represents what happened to a step during a run
type StepOutcome string

const (
	StepOutcomeStarted   StepOutcome = "started"
	StepOutcomeSkipped   StepOutcome = "skipped"
	StepOutcomeSucceeded StepOutcome = "succeeded"
	StepOutcomeFailed    StepOutcome = "failed"
)

// Run represents one invocation of the setup pipeline
type Run struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	StatePath   string     `json:"state_path"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedStep  *string    `json:"failed_step,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Metadata    string     `json:"metadata"` // JSON blob
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// StepEvent is an append-only record of a step transition within a run
type StepEvent struct {
	ID         int64       `json:"id"`
	RunID      string      `json:"run_id"`
	Step       string      `json:"step"`
	Outcome    StepOutcome `json:"outcome"`
	ErrorKind  *string     `json:"error_kind,omitempty"`
	Message    *string     `json:"message,omitempty"`
	DurationMs int64       `json:"duration_ms"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Store defines the interface for the run history
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, id string, status RunStatus, failedStep, errMsg *string, completedAt time.Time) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Step event operations
	AppendStepEvent(ctx context.Context, event *StepEvent) error
	ListStepEvents(ctx context.Context, runID string) ([]*StepEvent, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
