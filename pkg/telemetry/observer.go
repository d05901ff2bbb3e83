package telemetry

import (
	"context"
	"time"

	"github.com/madhurthareja/vibe/pkg/pipeline"
)

// RunObserver feeds pipeline lifecycle events into logs and metrics.
type RunObserver struct {
	pipeline.BaseObserver
	logger  *Logger
	metrics *Metrics
	steps   []pipeline.Step
	done    int
}

// NewRunObserver creates an observer. Either argument may be nil.
func NewRunObserver(logger *Logger, metrics *Metrics) *RunObserver {
	if logger == nil {
		logger = NopLogger()
	}
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &RunObserver{
		logger:  logger.NewComponentLogger("observer"),
		metrics: metrics,
	}
}

// RunStarted implements pipeline.Observer.
func (o *RunObserver) RunStarted(_ context.Context, runID string, steps []pipeline.Step) {
	o.steps = steps
	o.done = 0
	o.metrics.RecordRunStarted()
	o.logger.WithRunID(runID).Debug("Run started")
}

// StepSkipped implements pipeline.Observer.
func (o *RunObserver) StepSkipped(_ context.Context, _ string, step pipeline.Step) {
	o.done++
	o.metrics.RecordStep(step.Name(), "skipped", 0)
}

// StepFinished implements pipeline.Observer.
func (o *RunObserver) StepFinished(_ context.Context, runID string, step pipeline.Step, elapsed time.Duration, err error) {
	if err != nil {
		o.metrics.RecordStep(step.Name(), "failed", elapsed)
		o.metrics.RecordStepError(step.Name(), string(pipeline.KindOf(err)))
		o.logger.WithRunID(runID).WithStep(step.Name()).WithError(err).Debug("Step failed")
		return
	}
	o.done++
	o.metrics.RecordStep(step.Name(), "succeeded", elapsed)
}

// RunFinished implements pipeline.Observer.
func (o *RunObserver) RunFinished(_ context.Context, result *pipeline.Result) {
	o.metrics.RecordRunFinished(string(result.Status), result.Duration(), o.done)
	o.logger.WithRunID(result.RunID).
		WithField("status", string(result.Status)).
		WithField("executed", len(result.Executed)).
		Debug("Run finished")
}
