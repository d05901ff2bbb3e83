// Package steps holds the concrete provisioning steps of the vibe-setup
// wizard, in the order they run.
package steps

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/madhurthareja/vibe/pkg/config"
	"github.com/madhurthareja/vibe/pkg/pipeline"
	"github.com/madhurthareja/vibe/pkg/shell"
	"github.com/madhurthareja/vibe/pkg/ui"
)

// Step names, which are also the state keys recording completion.
const (
	Welcome       = "welcome"
	Toolchain     = "toolchain"
	FirebaseLogin = "firebase_login"
	Emulators     = "emulators"
	EnvFile       = "env"
	Packages      = "packages"
	Tests         = "tests"
)

// NodeVersion is the state key holding the detected Node.js version.
const NodeVersion = "node_version"

// Names lists the step names in execution order.
var Names = []string{Welcome, Toolchain, FirebaseLogin, Emulators, EnvFile, Packages, Tests}

// Facts lists the auxiliary state keys each step records besides its own.
var Facts = map[string][]string{
	Welcome:   {config.AnswerEnvironment, config.AnswerSetupType},
	Toolchain: {NodeVersion},
}

// SpinFunc runs fn while telling the operator msg is in progress.
type SpinFunc func(ctx context.Context, msg string, fn func(ctx context.Context) error) error

// Env carries the collaborators the steps act through.
type Env struct {
	Runner     shell.Runner
	Prompter   ui.Prompter
	Commands   config.Commands
	BackendDir string
	Logger     zerolog.Logger

	// Spin wraps long non-interactive commands. Defaults to ui.RunWithSpinner.
	Spin SpinFunc
}

// commands are the parsed command lines.
type commands struct {
	node, npm, pnpm, firebase                  string
	installPNPM, loginList, login, initEmulate shell.Command
	install, test                              shell.Command
}

func parseCommands(c config.Commands) (*commands, error) {
	out := &commands{}
	for _, p := range []struct {
		line string
		name *string
	}{
		{c.Node, &out.node},
		{c.NPM, &out.npm},
		{c.PNPM, &out.pnpm},
		{c.Firebase, &out.firebase},
	} {
		cmd, err := shell.Parse(p.line)
		if err != nil {
			return nil, err
		}
		*p.name = cmd.Name
	}
	for _, p := range []struct {
		line string
		cmd  *shell.Command
	}{
		{c.InstallPNPM, &out.installPNPM},
		{c.LoginList, &out.loginList},
		{c.Login, &out.login},
		{c.InitEmulators, &out.initEmulate},
		{c.Install, &out.install},
		{c.Test, &out.test},
	} {
		cmd, err := shell.Parse(p.line)
		if err != nil {
			return nil, err
		}
		*p.cmd = cmd
	}
	return out, nil
}

// Build returns the wizard's steps in execution order.
func Build(env Env) ([]pipeline.Step, error) {
	if env.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if env.Prompter == nil {
		return nil, fmt.Errorf("prompter is required")
	}
	if env.BackendDir == "" {
		return nil, fmt.Errorf("backend directory is required")
	}
	if env.Spin == nil {
		env.Spin = ui.RunWithSpinner
	}

	cmds, err := parseCommands(env.Commands)
	if err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	return []pipeline.Step{
		newWelcomeStep(&env),
		newToolchainStep(&env, cmds),
		newFirebaseLoginStep(&env, cmds),
		newEmulatorsStep(&env, cmds),
		newEnvFileStep(&env),
		newPackagesStep(&env, cmds),
		newTestsStep(&env, cmds),
	}, nil
}

// promptError classifies a failed prompt.
func promptError(what string, err error) error {
	var noInteraction *ui.ErrNoInteraction
	switch {
	case errors.Is(err, ui.ErrCancelled):
		return pipeline.UserAborted(what+" was cancelled", err)
	case errors.As(err, &noInteraction):
		return pipeline.PreconditionUnmet(what+" needs an answer", err)
	default:
		return pipeline.PreconditionUnmet(what+" failed", err)
	}
}

// inBackend returns cmd set to run in the backend directory, which must
// exist.
func inBackend(env *Env, cmd shell.Command) (shell.Command, error) {
	info, err := os.Stat(env.BackendDir)
	if err != nil || !info.IsDir() {
		return cmd, pipeline.PreconditionUnmet("backend directory not found", err).WithPath(env.BackendDir)
	}
	cmd.Dir = env.BackendDir
	return cmd, nil
}
