package pipeline

import (
	"context"
	"fmt"
)

// Step is one named, idempotent unit of provisioning work.
//
// Run must record completion in the state (usually via MarkComplete) before
// returning nil; the pipeline never marks a step complete on its behalf.
// ShouldRun is the inverse of the completion predicate and must not have
// side effects.
type Step interface {
	// Name is the stable identity key into the state.
	Name() string

	// Description is a one-line human-readable summary.
	Description() string

	// Instructions is optional guidance shown before the action runs.
	Instructions() string

	// ShouldRun reports whether the step still has work to do.
	ShouldRun(st *State) bool

	// Run performs the action.
	Run(ctx context.Context, st *State) error
}

// Definition carries the descriptive half of a step and the default
// completion predicate. Concrete steps embed it and implement Run.
type Definition struct {
	StepName        string
	StepDescription string
	StepInstruction string
}

// Name implements Step.
func (d Definition) Name() string { return d.StepName }

// Description implements Step.
func (d Definition) Description() string { return d.StepDescription }

// Instructions implements Step.
func (d Definition) Instructions() string { return d.StepInstruction }

// ShouldRun is the default predicate: run unless the step's key is truthy.
// It cannot tell "never attempted" from "recorded as false"; steps that care
// override it.
func (d Definition) ShouldRun(st *State) bool {
	return !st.Bool(d.StepName)
}

// MarkComplete records name as complete together with any auxiliary facts,
// in one durable write.
func MarkComplete(st *State, name string, extra map[string]any) error {
	values := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		values[k] = v
	}
	values[name] = true
	return st.UpdateMany(values)
}

// Action is the side-effecting body of a Func step.
type Action func(ctx context.Context, st *State) error

// Predicate decides whether a Func step should run.
type Predicate func(st *State) bool

// Func is a step assembled from closures. The action only performs the
// work; Func records completion after it succeeds.
type Func struct {
	Definition
	action    Action
	predicate Predicate
}

// FuncOption configures a Func step.
type FuncOption func(*Func)

// WithInstructions attaches pre-run guidance.
func WithInstructions(text string) FuncOption {
	return func(f *Func) { f.StepInstruction = text }
}

// WithPredicate replaces the default "key is falsy" predicate.
func WithPredicate(p Predicate) FuncOption {
	return func(f *Func) { f.predicate = p }
}

// NewFunc creates a step named name running action.
func NewFunc(name, description string, action Action, opts ...FuncOption) *Func {
	f := &Func{
		Definition: Definition{StepName: name, StepDescription: description},
		action:     action,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ShouldRun implements Step.
func (f *Func) ShouldRun(st *State) bool {
	if f.predicate != nil {
		return f.predicate(st)
	}
	return f.Definition.ShouldRun(st)
}

// Run implements Step.
func (f *Func) Run(ctx context.Context, st *State) error {
	if f.action != nil {
		if err := f.action(ctx, st); err != nil {
			return err
		}
	}
	return MarkComplete(st, f.StepName, nil)
}

func validateSteps(steps []Step) error {
	seen := make(map[string]struct{}, len(steps))
	for i, s := range steps {
		if s == nil {
			return fmt.Errorf("step %d is nil", i)
		}
		name := s.Name()
		if name == "" {
			return fmt.Errorf("step %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate step name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
