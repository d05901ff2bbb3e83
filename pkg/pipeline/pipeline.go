package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/madhurthareja/vibe/pkg/pipeline"

// Result is the outcome of one Run.
type Result struct {
	RunID       string    `json:"run_id"`
	Status      RunStatus `json:"status"`
	Executed    []string  `json:"executed"`
	Skipped     []string  `json:"skipped"`
	FailedStep  string    `json:"failed_step,omitempty"`
	FailedIndex int       `json:"failed_index"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`

	// Err is the error that halted the run, a *StepFailure.
	Err error `json:"-"`
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Pipeline runs an ordered list of steps against one State. A Pipeline is
// single use: build a new one per invocation.
type Pipeline struct {
	steps     []Step
	state     *State
	reporter  Reporter
	observers observers
	logger    zerolog.Logger
	tracer    trace.Tracer
	runID     string
	now       func() time.Time

	status RunStatus
	cursor int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReporter sets the progress renderer.
func WithReporter(r Reporter) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.reporter = r
		}
	}
}

// WithObserver adds lifecycle observers.
func WithObserver(obs ...Observer) Option {
	return func(p *Pipeline) {
		for _, o := range obs {
			if o != nil {
				p.observers = append(p.observers, o)
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithTracer sets the tracer used for run and step spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a pipeline. Step names must be non-empty and unique.
func New(steps []Step, st *State, opts ...Option) (*Pipeline, error) {
	if st == nil {
		return nil, fmt.Errorf("state is required")
	}
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	p := &Pipeline{
		steps:    append([]Step(nil), steps...),
		state:    st,
		reporter: NopReporter{},
		logger:   zerolog.Nop(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		status:   RunStatusNotStarted,
		cursor:   -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runID == "" {
		p.runID = uuid.New().String()
	}
	return p, nil
}

// RunID returns the identifier of this invocation.
func (p *Pipeline) RunID() string { return p.runID }

// Steps returns the steps in execution order.
func (p *Pipeline) Steps() []Step { return append([]Step(nil), p.steps...) }

// Status returns the current run status.
func (p *Pipeline) Status() RunStatus { return p.status }

// Cursor returns the index of the step being evaluated, or -1.
func (p *Pipeline) Cursor() int { return p.cursor }

// Progress renders the current projection with current as the active step.
func (p *Pipeline) Progress(current string) []StepProgress {
	return Progress(p.steps, p.state, current)
}

// Run evaluates every step in order. Complete steps are skipped; pending
// steps are executed. The first failure halts the run and is returned as a
// *StepFailure; the result is returned in every case.
//
// State is reloaded from storage before each predicate check, so edits made
// between runs, or by a step's external collaborators, are honoured.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.status != RunStatusNotStarted {
		return nil, fmt.Errorf("pipeline %s already ran", p.runID)
	}

	res := &Result{
		RunID:       p.runID,
		Status:      RunStatusRunning,
		Executed:    []string{},
		Skipped:     []string{},
		FailedIndex: -1,
		StartedAt:   p.now(),
	}
	p.status = RunStatusRunning

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run_id", p.runID),
			attribute.Int("steps", len(p.steps)),
		))
	defer span.End()

	log := p.logger.With().Str("run_id", p.runID).Logger()
	log.Info().Int("steps", len(p.steps)).Str("state", p.state.Location()).Msg("Starting setup pipeline")
	p.observers.runStarted(ctx, p.runID, p.steps)

	for i, step := range p.steps {
		p.cursor = i
		stepLog := log.With().Str("step", step.Name()).Int("index", i).Logger()

		if err := p.state.Reload(); err != nil {
			return p.halt(ctx, span, res, i, step, err)
		}

		if !step.ShouldRun(p.state) {
			stepLog.Debug().Msg("Step already complete, skipping")
			res.Skipped = append(res.Skipped, step.Name())
			p.observers.stepSkipped(ctx, p.runID, step)
			continue
		}

		if err := ctx.Err(); err != nil {
			return p.halt(ctx, span, res, i, step, UserAborted("run cancelled", err))
		}

		p.reporter.Progress(Progress(p.steps, p.state, step.Name()))
		if text := step.Instructions(); text != "" {
			p.reporter.Instructions(step, text)
		}

		stepLog.Info().Msg("Running step")
		p.observers.stepStarted(ctx, p.runID, step)

		started := p.now()
		err := p.runStep(ctx, step)
		elapsed := p.now().Sub(started)
		p.observers.stepFinished(ctx, p.runID, step, elapsed, err)

		if err != nil {
			stepLog.Error().Err(err).Dur("duration", elapsed).Msg("Step failed")
			return p.halt(ctx, span, res, i, step, err)
		}

		stepLog.Info().Dur("duration", elapsed).Msg("Step completed")
		res.Executed = append(res.Executed, step.Name())
	}

	p.cursor = -1
	p.status = RunStatusCompleted
	res.Status = RunStatusCompleted
	res.FinishedAt = p.now()

	span.SetStatus(codes.Ok, "")
	log.Info().
		Int("executed", len(res.Executed)).
		Int("skipped", len(res.Skipped)).
		Dur("duration", res.Duration()).
		Msg("Setup pipeline completed")

	p.reporter.Finished(res, Progress(p.steps, p.state, ""))
	p.observers.runFinished(ctx, res)
	return res, nil
}

// runStep executes the action and checks that it recorded completion.
func (p *Pipeline) runStep(ctx context.Context, step Step) error {
	ctx, span := p.tracer.Start(ctx, "pipeline.step",
		trace.WithAttributes(
			attribute.String("run_id", p.runID),
			attribute.String("step", step.Name()),
		))
	defer span.End()

	err := step.Run(ctx, p.state)
	if err == nil {
		// The action may have written through the store only; read back what
		// is durable before trusting the predicate.
		if rerr := p.state.Reload(); rerr != nil {
			err = rerr
		} else if step.ShouldRun(p.state) {
			err = PreconditionUnmet("completion predicate still false after run", ErrCompletionNotRecorded)
		}
	}

	if err != nil {
		var se *SetupError
		if errors.As(err, &se) && se.Step == "" {
			se.Step = step.Name()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (p *Pipeline) halt(ctx context.Context, span trace.Span, res *Result, index int, step Step, err error) (*Result, error) {
	failure := &StepFailure{Step: step.Name(), Index: index, Err: err}

	p.status = RunStatusHalted
	res.Status = RunStatusHalted
	res.FailedStep = step.Name()
	res.FailedIndex = index
	res.Err = failure
	res.Error = failure.Error()
	res.FinishedAt = p.now()

	span.RecordError(failure)
	span.SetStatus(codes.Error, failure.Error())

	p.reporter.StepFailed(step, err)
	p.reporter.Finished(res, Progress(p.steps, p.state, ""))
	p.observers.runFinished(ctx, res)
	return res, failure
}
