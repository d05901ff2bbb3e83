package steps

import (
	"context"
	"strings"

	"github.com/madhurthareja/vibe/pkg/pipeline"
	"github.com/madhurthareja/vibe/pkg/shell"
)

type toolchainStep struct {
	pipeline.Definition
	env  *Env
	cmds *commands
}

func newToolchainStep(env *Env, cmds *commands) *toolchainStep {
	return &toolchainStep{
		Definition: pipeline.Definition{
			StepName:        Toolchain,
			StepDescription: "Verify Node.js, npm and pnpm are installed",
		},
		env:  env,
		cmds: cmds,
	}
}

// Run requires node and npm, and installs pnpm globally when it is absent.
func (s *toolchainStep) Run(ctx context.Context, st *pipeline.State) error {
	log := s.env.Logger.With().Str("step", s.StepName).Logger()

	if _, err := shell.Require(s.env.Runner, s.cmds.node); err != nil {
		return err
	}
	if _, err := shell.Require(s.env.Runner, s.cmds.npm); err != nil {
		return err
	}

	if _, err := s.env.Runner.LookPath(s.cmds.pnpm); err != nil {
		log.Info().Str("command", s.cmds.installPNPM.String()).Msg("pnpm not found, installing")

		var res *shell.Result
		runErr := s.env.Spin(ctx, "Installing pnpm...", func(ctx context.Context) error {
			var err error
			res, err = s.env.Runner.Run(ctx, s.cmds.installPNPM)
			return err
		})
		if err := shell.Check(res, runErr, "pnpm installation"); err != nil {
			return err
		}
		if _, err := s.env.Runner.LookPath(s.cmds.pnpm); err != nil {
			return pipeline.ToolMissing(s.cmds.pnpm).
				WithDetail("reason", "installed but not on PATH; open a new shell and re-run")
		}
	}

	extra := map[string]any{}
	if res, err := s.env.Runner.Run(ctx, shell.Command{Name: s.cmds.node, Args: []string{"--version"}}); err == nil && res.ExitCode == 0 {
		if v := strings.TrimSpace(res.Stdout); v != "" {
			extra[NodeVersion] = v
		}
	}
	return pipeline.MarkComplete(st, s.StepName, extra)
}
