package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/madhurthareja/vibe/pkg/stores"
	"github.com/madhurthareja/vibe/pkg/ui"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit      int
		runID      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past setup runs",
		Long: `List the recorded setup runs, newest first, or the step events of one
run. Runs are recorded in the history database when history is enabled.`,
		Example: `  # Last 10 runs
  vibe-setup history

  # Step events of one run
  vibe-setup history --run 3f2c9a1e-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if _, err := os.Stat(cfg.History.Path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, ui.Muted("No runs recorded yet."))
				return nil
			}

			store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.History.Path})
			if err != nil {
				return fmt.Errorf("failed to create store: %w", err)
			}
			if err := store.Init(ctx); err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			if runID != "" {
				run, err := store.GetRun(ctx, runID)
				if err != nil {
					return err
				}
				events, err := store.ListStepEvents(ctx, runID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, map[string]any{"run": run, "events": events})
				}
				renderRun(out, run, events)
				return nil
			}

			runs, err := store.ListRuns(ctx, limit, 0)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, runs)
			}
			renderRuns(out, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the step events of this run")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	return cmd
}

func renderRuns(w io.Writer, runs []*stores.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, ui.Muted("No runs recorded yet."))
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			runStatusLabel(r.Status),
			r.StartedAt.Local().Format(time.DateTime),
			formatDuration(r.Duration()),
			deref(r.FailedStep),
		})
	}
	fmt.Fprintln(w, ui.Table([]string{"Run", "Status", "Started", "Duration", "Failed step"}, rows))
}

func renderRun(w io.Writer, run *stores.Run, events []*stores.StepEvent) {
	fmt.Fprint(w, ui.KeyValues("",
		ui.KV("Run", run.ID),
		ui.KV("Status", runStatusLabel(run.Status)),
		ui.KV("State file", run.StatePath),
		ui.KV("Started", run.StartedAt.Local().Format(time.DateTime)),
		ui.KV("Duration", formatDuration(run.Duration())),
	))
	if run.Error != nil {
		fmt.Fprintln(w, ui.ErrorMsg("%s", *run.Error))
	}

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.Timestamp.Local().Format(time.TimeOnly),
			e.Step,
			string(e.Outcome),
			strconv.FormatInt(e.DurationMs, 10) + "ms",
			deref(e.ErrorKind),
			deref(e.Message),
		})
	}
	fmt.Fprintln(w, ui.Table([]string{"Time", "Step", "Outcome", "Duration", "Kind", "Message"}, rows))
}

func runStatusLabel(s stores.RunStatus) string {
	switch s {
	case stores.RunStatusCompleted:
		return ui.Success(string(s))
	case stores.RunStatusHalted:
		return ui.Warn(string(s))
	default:
		return ui.Muted(string(s))
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
