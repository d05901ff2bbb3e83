// Package pipeline is the resumable setup engine: a durable key/value State,
// the Step contract, and the Pipeline that drives steps in order.
//
// # Model
//
// A Step is a named unit of provisioning work with a completion predicate
// (ShouldRun) and an action (Run). The State records which steps completed,
// plus auxiliary facts such as the operator's choices. The Pipeline walks the
// steps in declaration order, skips every step whose predicate already holds,
// executes the rest, and halts at the first failure.
//
//	st, err := pipeline.LoadFile(pipeline.DefaultStateFile)
//	p, err := pipeline.New(steps, st, pipeline.WithReporter(renderer))
//	res, err := p.Run(ctx)
//
// Because completed steps are skipped, re-running after a failure resumes
// at the failed step. That re-run is the only recovery mechanism; nothing is
// retried automatically.
//
// # Durability
//
// Each State mutation re-reads storage, applies the change and writes the
// whole document before returning. A failed write leaves memory unchanged
// and returns a KindPersistFailure error. The Pipeline reloads the State
// before every predicate check.
//
// # Errors
//
// Errors are *SetupError values classified by ErrorKind: KindCorruptState,
// KindPersistFailure, and the step kinds KindToolMissing,
// KindExternalCommandFailed, KindUserAborted and KindPreconditionUnmet. The
// error that halts a run is wrapped in a *StepFailure naming the step.
//
// # Rendering
//
// The package performs no terminal I/O. Progress goes to an injected
// Reporter; lifecycle hooks go to Observers. Progress and Summarize are pure
// projections usable without running anything.
package pipeline
