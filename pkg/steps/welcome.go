package steps

import (
	"context"

	"github.com/madhurthareja/vibe/pkg/config"
	"github.com/madhurthareja/vibe/pkg/pipeline"
	"github.com/madhurthareja/vibe/pkg/ui"
)

// Choices offered by the welcome step.
var (
	Environments = []string{"Development", "Production"}
	SetupTypes   = []string{"Backend", "Frontend", "Both"}
)

type welcomeStep struct {
	pipeline.Definition
	env *Env
}

func newWelcomeStep(env *Env) *welcomeStep {
	return &welcomeStep{
		Definition: pipeline.Definition{
			StepName:        Welcome,
			StepDescription: "Select environment and setup type",
		},
		env: env,
	}
}

// Run asks for the environment and setup type and records both with the
// step's completion in one write.
func (s *welcomeStep) Run(_ context.Context, st *pipeline.State) error {
	environment, err := s.env.Prompter.Select(ui.Question{
		Key:     config.AnswerEnvironment,
		Text:    "Choose environment:",
		Choices: Environments,
		Default: Environments[0],
		Hint:    "set answers.environment or VIBE_ENVIRONMENT",
	})
	if err != nil {
		return promptError("environment selection", err)
	}

	setupType, err := s.env.Prompter.Select(ui.Question{
		Key:     config.AnswerSetupType,
		Text:    "What do you want to set up?",
		Choices: SetupTypes,
		Default: SetupTypes[0],
		Hint:    "set answers.setup_type or VIBE_SETUP_TYPE",
	})
	if err != nil {
		return promptError("setup type selection", err)
	}

	s.env.Logger.Debug().Str("environment", environment).Str("setup_type", setupType).Msg("Welcome answers recorded")
	return pipeline.MarkComplete(st, s.StepName, map[string]any{
		config.AnswerEnvironment: environment,
		config.AnswerSetupType:   setupType,
	})
}
