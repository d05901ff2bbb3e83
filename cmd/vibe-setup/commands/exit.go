package commands

import (
	"errors"

	"github.com/madhurthareja/vibe/pkg/pipeline"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitHalted  = 1
	ExitState   = 2
	ExitAborted = 130
)

// reportedError marks an error the command already showed to the operator.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// Reported reports whether err was already rendered.
func Reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch pipeline.KindOf(err) {
	case pipeline.KindCorruptState, pipeline.KindPersistFailure:
		return ExitState
	case pipeline.KindUserAborted:
		return ExitAborted
	default:
		return ExitHalted
	}
}
