package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/madhurthareja/vibe/pkg/pipeline"
	"github.com/madhurthareja/vibe/pkg/stores"
)

// HistoryObserver journals pipeline runs into a history store. Write
// failures are logged and otherwise ignored; the history never fails a run.
// Writes ignore cancellation of the run context so an aborted run is still
// recorded.
type HistoryObserver struct {
	pipeline.BaseObserver
	store     stores.Store
	logger    *Logger
	statePath string
	metadata  map[string]string
	now       func() time.Time
}

// NewHistoryObserver creates an observer writing to store.
func NewHistoryObserver(store stores.Store, logger *Logger, statePath string, metadata map[string]string) *HistoryObserver {
	if logger == nil {
		logger = NopLogger()
	}
	return &HistoryObserver{
		store:     store,
		logger:    logger.NewComponentLogger("history"),
		statePath: statePath,
		metadata:  metadata,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunStarted implements pipeline.Observer.
func (h *HistoryObserver) RunStarted(ctx context.Context, runID string, steps []pipeline.Step) {
	meta := map[string]any{"steps": len(steps)}
	for k, v := range h.metadata {
		meta[k] = v
	}
	if traceID := TraceID(ctx); traceID != "" {
		meta["trace_id"] = traceID
	}
	data, _ := json.Marshal(meta)

	err := h.store.CreateRun(context.WithoutCancel(ctx), &stores.Run{
		ID:        runID,
		Status:    stores.RunStatusRunning,
		StatePath: h.statePath,
		StartedAt: h.now(),
		Metadata:  string(data),
	})
	h.check(err, runID, "Failed to record run start")
}

// StepSkipped implements pipeline.Observer.
func (h *HistoryObserver) StepSkipped(ctx context.Context, runID string, step pipeline.Step) {
	h.append(ctx, &stores.StepEvent{RunID: runID, Step: step.Name(), Outcome: stores.StepOutcomeSkipped})
}

// StepStarted implements pipeline.Observer.
func (h *HistoryObserver) StepStarted(ctx context.Context, runID string, step pipeline.Step) {
	h.append(ctx, &stores.StepEvent{RunID: runID, Step: step.Name(), Outcome: stores.StepOutcomeStarted})
}

// StepFinished implements pipeline.Observer.
func (h *HistoryObserver) StepFinished(ctx context.Context, runID string, step pipeline.Step, elapsed time.Duration, err error) {
	event := &stores.StepEvent{
		RunID:      runID,
		Step:       step.Name(),
		Outcome:    stores.StepOutcomeSucceeded,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		event.Outcome = stores.StepOutcomeFailed
		msg := err.Error()
		event.Message = &msg
		if kind := pipeline.KindOf(err); kind != "" {
			k := string(kind)
			event.ErrorKind = &k
		}
	}
	h.append(ctx, event)
}

// RunFinished implements pipeline.Observer.
func (h *HistoryObserver) RunFinished(ctx context.Context, result *pipeline.Result) {
	status := stores.RunStatusCompleted
	var failedStep, errMsg *string
	if result.Status == pipeline.RunStatusHalted {
		status = stores.RunStatusHalted
		failedStep = &result.FailedStep
		errMsg = &result.Error
	}

	finished := result.FinishedAt.UTC()
	if finished.IsZero() {
		finished = h.now()
	}
	err := h.store.FinishRun(context.WithoutCancel(ctx), result.RunID, status, failedStep, errMsg, finished)
	h.check(err, result.RunID, "Failed to record run result")
}

func (h *HistoryObserver) append(ctx context.Context, event *stores.StepEvent) {
	event.Timestamp = h.now()
	h.check(h.store.AppendStepEvent(context.WithoutCancel(ctx), event), event.RunID, "Failed to record step event")
}

func (h *HistoryObserver) check(err error, runID, msg string) {
	if err != nil {
		h.logger.WithRunID(runID).WithError(err).Warn(msg)
	}
}
