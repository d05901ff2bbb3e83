package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/madhurthareja/vibe/pkg/config"
	"github.com/madhurthareja/vibe/pkg/pipeline"
	"github.com/madhurthareja/vibe/pkg/shell"
	"github.com/madhurthareja/vibe/pkg/steps"
	"github.com/madhurthareja/vibe/pkg/stores"
	"github.com/madhurthareja/vibe/pkg/telemetry"
	"github.com/madhurthareja/vibe/pkg/ui"
)

const progressTitle = "ViBe Setup Progress"

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the setup, resuming after the last completed step",
		Long: `Run every setup step that has not completed yet, in order.

Completed steps are read from the state file and skipped. The run stops at
the first failing step; fix the problem and run again to resume there.`,
		Example: `  # Run the setup
  vibe-setup run

  # Use a different backend checkout
  vibe-setup run --backend-dir ../vibe/backend`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runSetup(cmd.Context(), cmd, cfg)
		},
	}
	return cmd
}

// runSetup wires the collaborators and runs the pipeline once.
func runSetup(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()
	ctx = tel.WithContext(ctx)
	logger := tel.Logger.NewComponentLogger("setup")

	st, err := pipeline.LoadFile(cfg.StateFile)
	if err != nil {
		fmt.Fprintln(out, ui.ErrorMsg("%v", err))
		fmt.Fprintln(out, "  "+ui.Muted("Fix or remove the state file, or run `vibe-setup reset`, then re-run."))
		return reported(err)
	}

	runner := shell.NewExecRunner(tel.Logger.NewComponentLogger("shell").Zerolog())

	var fallback ui.Prompter
	if !cfg.NonInteractive {
		fallback = ui.NewTerminalPrompter()
	}
	prompter := ui.NewPresetPrompter(cfg.Answers.Map(), fallback)

	list, err := steps.Build(steps.Env{
		Runner:     runner,
		Prompter:   prompter,
		Commands:   cfg.Commands,
		BackendDir: cfg.BackendDir,
		Logger:     tel.Logger.NewComponentLogger("steps").Zerolog(),
	})
	if err != nil {
		return err
	}

	observers := []pipeline.Observer{telemetry.NewRunObserver(tel.Logger, tel.Metrics)}
	if store := openHistory(ctx, cfg, logger); store != nil {
		defer store.Close()
		observers = append(observers, telemetry.NewHistoryObserver(store, tel.Logger, cfg.StateFile, map[string]string{
			"version":     version,
			"backend_dir": cfg.BackendDir,
		}))
	}

	p, err := pipeline.New(list, st,
		pipeline.WithReporter(ui.NewRenderer(out, progressTitle)),
		pipeline.WithObserver(observers...),
		pipeline.WithLogger(tel.Logger.Zerolog()),
		pipeline.WithTracer(tel.Tracer.Tracer()),
	)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx)
	if err != nil {
		return reported(err)
	}
	if len(res.Executed) > 0 && res.Status == pipeline.RunStatusCompleted {
		printNextSteps(out, cfg)
	}
	return nil
}

// openHistory opens the run journal. Failures are logged and the run goes
// on without history.
func openHistory(ctx context.Context, cfg *config.Config, logger *telemetry.Logger) stores.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.History.Path})
	if err != nil {
		logger.WithError(err).Warn("Run history unavailable")
		return nil
	}
	if err := store.Init(ctx); err != nil {
		logger.WithError(err).Warn("Run history unavailable")
		return nil
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		logger.WithError(err).Warn("Run history unavailable")
		return nil
	}
	return store
}

func printNextSteps(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, ui.InfoMsg("All tests passed! Backend setup complete."))
	fmt.Fprintln(w, ui.InfoMsg("Run %s inside %s to start the server.", ui.Accent(cfg.Commands.Dev), ui.Bold(cfg.BackendDir)))
}
