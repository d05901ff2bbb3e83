package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/madhurthareja/vibe/pkg/config"
	"github.com/madhurthareja/vibe/pkg/pipeline"
	"github.com/madhurthareja/vibe/pkg/shell"
	"github.com/madhurthareja/vibe/pkg/steps"
	"github.com/madhurthareja/vibe/pkg/ui"
)

func newSummaryCommand() *cobra.Command {
	var (
		jsonOutput bool
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the recorded setup state",
		Long: `Show every entry of the state file and which steps are complete.
Nothing is executed.

With --watch the summary is redrawn whenever the state file changes, which is
useful next to a running setup in another terminal.`,
		Example: `  # Show the state
  vibe-setup summary

  # Machine-readable output
  vibe-setup summary --json

  # Follow a running setup
  vibe-setup summary --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if watch {
				return watchSummary(cmd, cfg, jsonOutput)
			}
			return runSummary(cmd, cfg, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "redraw when the state file changes")

	return cmd
}

// describeSteps builds the step list for display only; nothing is run.
func describeSteps(cfg *config.Config) ([]pipeline.Step, error) {
	return steps.Build(steps.Env{
		Runner:     shell.NewExecRunner(zerolog.Nop()),
		Prompter:   ui.NewPresetPrompter(nil, nil),
		Commands:   cfg.Commands,
		BackendDir: cfg.BackendDir,
		Logger:     zerolog.Nop(),
	})
}

func runSummary(cmd *cobra.Command, cfg *config.Config, jsonOutput bool) error {
	list, err := describeSteps(cfg)
	if err != nil {
		return err
	}
	return renderSummary(cmd.OutOrStdout(), cfg.StateFile, list, jsonOutput)
}

func renderSummary(w io.Writer, path string, list []pipeline.Step, jsonOutput bool) error {
	st, err := pipeline.LoadFile(path)
	if err != nil {
		return err
	}
	sum := pipeline.Summarize(st, list)
	if jsonOutput {
		return ui.RenderSummaryJSON(w, sum)
	}
	ui.RenderSummary(w, sum)
	return nil
}

// watchSummary redraws the summary on every change to the state file until
// the command context is cancelled. The parent directory is watched because
// state writes replace the file by rename.
func watchSummary(cmd *cobra.Command, cfg *config.Config, jsonOutput bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	list, err := describeSteps(cfg)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(cfg.StateFile)
	if err != nil {
		return fmt.Errorf("failed to resolve state file: %w", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	redraw := func() {
		if err := renderSummary(out, cfg.StateFile, list, jsonOutput); err != nil {
			fmt.Fprintln(out, ui.ErrorMsg("%v", err))
		}
	}
	redraw()

	// Writes arrive as bursts of events; redraw once they settle.
	const settle = 100 * time.Millisecond
	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			log.Debug().Str("event", event.Op.String()).Msg("State file changed")
			timer.Reset(settle)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		case <-timer.C:
			fmt.Fprintln(out)
			redraw()
		}
	}
}
