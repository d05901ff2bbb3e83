package pipeline

import (
	"context"
	"time"
)

// Reporter renders pipeline progress. The pipeline calls it synchronously
// from the goroutine running the steps.
type Reporter interface {
	// Progress is called before each executed step and once at the end.
	Progress(rows []StepProgress)

	// Instructions is called before a step that carries instructions.
	Instructions(step Step, text string)

	// StepFailed is called when a step halts the run.
	StepFailed(step Step, err error)

	// Finished is called once with the final result.
	Finished(result *Result, rows []StepProgress)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Progress([]StepProgress) {}
func (NopReporter) Instructions(Step, string) {}
func (NopReporter) StepFailed(Step, error) {}
func (NopReporter) Finished(*Result, []StepProgress) {}

// Observer receives lifecycle callbacks for runs and steps. Observers feed
// metrics and the run history; they must not fail the run.
type Observer interface {
	RunStarted(ctx context.Context, runID string, steps []Step)
	StepSkipped(ctx context.Context, runID string, step Step)
	StepStarted(ctx context.Context, runID string, step Step)
	StepFinished(ctx context.Context, runID string, step Step, elapsed time.Duration, err error)
	RunFinished(ctx context.Context, result *Result)
}

// BaseObserver implements Observer with no-ops, for embedding.
type BaseObserver struct{}

func (BaseObserver) RunStarted(context.Context, string, []Step) {}
func (BaseObserver) StepSkipped(context.Context, string, Step) {}
func (BaseObserver) StepStarted(context.Context, string, Step) {}
func (BaseObserver) StepFinished(context.Context, string, Step, time.Duration, error) {}
func (BaseObserver) RunFinished(context.Context, *Result) {}

type observers []Observer

func (o observers) runStarted(ctx context.Context, runID string, steps []Step) {
	for _, obs := range o {
		obs.RunStarted(ctx, runID, steps)
	}
}

func (o observers) stepSkipped(ctx context.Context, runID string, step Step) {
	for _, obs := range o {
		obs.StepSkipped(ctx, runID, step)
	}
}

func (o observers) stepStarted(ctx context.Context, runID string, step Step) {
	for _, obs := range o {
		obs.StepStarted(ctx, runID, step)
	}
}

func (o observers) stepFinished(ctx context.Context, runID string, step Step, elapsed time.Duration, err error) {
	for _, obs := range o {
		obs.StepFinished(ctx, runID, step, elapsed, err)
	}
}

func (o observers) runFinished(ctx context.Context, result *Result) {
	for _, obs := range o {
		obs.RunFinished(ctx, result)
	}
}
