package steps

import (
	"context"
	"strings"

	"github.com/madhurthareja/vibe/pkg/pipeline"
	"github.com/madhurthareja/vibe/pkg/shell"
)

// noAccountsMarker is what `firebase login:list` prints when logged out.
const noAccountsMarker = "No authorized accounts"

// EmulatorInstructions is shown before `firebase init emulators`.
const EmulatorInstructions = `Please choose ONLY the following emulators when prompted:

✔ Authentication Emulator
✔ Functions Emulator
✔ Emulator UI [optional but recommended]`

type firebaseLoginStep struct {
	pipeline.Definition
	env  *Env
	cmds *commands
}

func newFirebaseLoginStep(env *Env, cmds *commands) *firebaseLoginStep {
	return &firebaseLoginStep{
		Definition: pipeline.Definition{
			StepName:        FirebaseLogin,
			StepDescription: "Ensure the Firebase CLI is logged in",
		},
		env:  env,
		cmds: cmds,
	}
}

// Run lists the logged-in accounts and starts an interactive login when
// there are none.
func (s *firebaseLoginStep) Run(ctx context.Context, st *pipeline.State) error {
	if _, err := shell.Require(s.env.Runner, s.cmds.loginList.Name); err != nil {
		return err
	}

	res, err := s.env.Runner.Run(ctx, s.cmds.loginList)
	if err != nil {
		return shell.Check(res, err, "firebase account listing")
	}

	if strings.Contains(res.Output(), noAccountsMarker) || res.ExitCode != 0 {
		s.env.Logger.Info().Int("exit_code", res.ExitCode).Msg("No Firebase account, starting login")

		login := s.cmds.login
		login.Interactive = true
		res, err := s.env.Runner.Run(ctx, login)
		if err := shell.Check(res, err, "firebase login"); err != nil {
			return err
		}
	}

	return pipeline.MarkComplete(st, s.StepName, nil)
}

type emulatorsStep struct {
	pipeline.Definition
	env  *Env
	cmds *commands
}

func newEmulatorsStep(env *Env, cmds *commands) *emulatorsStep {
	return &emulatorsStep{
		Definition: pipeline.Definition{
			StepName:        Emulators,
			StepDescription: "Initialize Firebase emulators",
			StepInstruction: EmulatorInstructions,
		},
		env:  env,
		cmds: cmds,
	}
}

// Run starts the interactive emulator initialisation in the backend
// directory.
func (s *emulatorsStep) Run(ctx context.Context, st *pipeline.State) error {
	cmd, err := inBackend(s.env, s.cmds.initEmulate)
	if err != nil {
		return err
	}
	if _, err := shell.Require(s.env.Runner, cmd.Name); err != nil {
		return err
	}

	cmd.Interactive = true
	res, err := s.env.Runner.Run(ctx, cmd)
	if err := shell.Check(res, err, "firebase init emulators"); err != nil {
		return err
	}
	return pipeline.MarkComplete(st, s.StepName, nil)
}
