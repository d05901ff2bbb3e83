package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/madhurthareja/vibe/pkg/config"
	"github.com/madhurthareja/vibe/pkg/ui"
)

var (
	// Global flags
	configPath    string
	verbose       bool
	noInteraction bool
	stateFile     string
	backendDir    string

	version = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, ver, commit, buildDate string) error {
	version = ver
	rootCmd := newRootCommand(ver, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(ver, commit, buildDate string) *cobra.Command {
	var showSummary bool

	rootCmd := &cobra.Command{
		Use:   "vibe-setup",
		Short: "ViBe setup wizard",
		Long: `vibe-setup prepares a development machine for the ViBe backend.

It runs an ordered list of steps (toolchain check, Firebase login, emulator
setup, .env creation, dependency install, tests) and records each completed
step in a state file. Re-running after a failure resumes at the failed step;
completed steps are never repeated.`,
		Example: `  # Run the setup, resuming where the last run stopped
  vibe-setup

  # Show what has been completed so far
  vibe-setup --summary

  # Run unattended with answers from the environment
  VIBE_ENVIRONMENT=Development VIBE_SETUP_TYPE=Backend \
  VIBE_MONGO_URI=mongodb://localhost:27017/vibe vibe-setup --no-interaction`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", ver, commit, buildDate),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			ui.ConfigureInteraction(noInteraction)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if showSummary {
				return runSummary(cmd, cfg, false)
			}
			return runSetup(cmd.Context(), cmd, cfg)
		},
	}

	rootCmd.Flags().BoolVar(&showSummary, "summary", false, "show the recorded state and exit")

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default $VIBE_SETUP_CONFIG or ./vibe-setup.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noInteraction, "no-interaction", false, "never prompt; fail when an answer is missing")
	rootCmd.PersistentFlags().StringVar(&stateFile, "state-file", "", "state file path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&backendDir, "backend-dir", "", "backend directory (overrides config)")

	// Add subcommands
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newSummaryCommand())
	rootCmd.AddCommand(newResetCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

// loadConfig loads the config file and applies the global flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if stateFile != "" {
		cfg.StateFile = stateFile
	}
	if backendDir != "" {
		cfg.BackendDir = backendDir
	}
	if noInteraction {
		cfg.NonInteractive = true
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	cfg.Telemetry.ServiceVersion = version
	ui.ConfigureInteraction(cfg.NonInteractive)
	return cfg, nil
}
