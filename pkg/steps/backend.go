package steps

import (
	"context"
	"errors"

	"github.com/madhurthareja/vibe/pkg/pipeline"
	"github.com/madhurthareja/vibe/pkg/shell"
)

type packagesStep struct {
	pipeline.Definition
	env  *Env
	cmds *commands
}

func newPackagesStep(env *Env, cmds *commands) *packagesStep {
	return &packagesStep{
		Definition: pipeline.Definition{
			StepName:        Packages,
			StepDescription: "Install backend dependencies",
		},
		env:  env,
		cmds: cmds,
	}
}

// Run installs the backend dependencies.
func (s *packagesStep) Run(ctx context.Context, st *pipeline.State) error {
	if err := runInBackend(ctx, s.env, s.cmds.install, "Installing backend dependencies...", "dependency installation"); err != nil {
		return err
	}
	return pipeline.MarkComplete(st, s.StepName, nil)
}

type testsStep struct {
	pipeline.Definition
	env  *Env
	cmds *commands
}

func newTestsStep(env *Env, cmds *commands) *testsStep {
	return &testsStep{
		Definition: pipeline.Definition{
			StepName:        Tests,
			StepDescription: "Run backend tests",
		},
		env:  env,
		cmds: cmds,
	}
}

// Run runs the backend test suite.
func (s *testsStep) Run(ctx context.Context, st *pipeline.State) error {
	err := runInBackend(ctx, s.env, s.cmds.test, "Running backend tests...", "backend tests")
	if err != nil {
		var se *pipeline.SetupError
		if errors.As(err, &se) && se.Kind == pipeline.KindExternalCommandFailed && se.Details["exit_code"] != nil {
			se.Message = "tests failed; fix and re-run setup"
		}
		return err
	}
	return pipeline.MarkComplete(st, s.StepName, nil)
}

// runInBackend runs cmd in the backend directory behind a spinner.
func runInBackend(ctx context.Context, env *Env, cmd shell.Command, msg, what string) error {
	cmd, err := inBackend(env, cmd)
	if err != nil {
		return err
	}
	if _, err := shell.Require(env.Runner, cmd.Name); err != nil {
		return err
	}

	log := env.Logger.With().Str("command", cmd.String()).Str("dir", cmd.Dir).Logger()
	log.Debug().Msg("Running backend command")

	var res *shell.Result
	runErr := env.Spin(ctx, msg, func(ctx context.Context) error {
		var err error
		res, err = env.Runner.Run(ctx, cmd)
		return err
	})
	if err := shell.Check(res, runErr, what); err != nil {
		return err
	}
	log.Debug().Dur("duration", res.Duration).Msg("Backend command finished")
	return nil
}
