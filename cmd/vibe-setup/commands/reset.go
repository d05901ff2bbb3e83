package commands

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/madhurthareja/vibe/pkg/pipeline"
	"github.com/madhurthareja/vibe/pkg/steps"
	"github.com/madhurthareja/vibe/pkg/ui"
)

func newResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset [step...]",
		Short: "Forget completed steps so they run again",
		Long: `Remove steps from the state file so the next run repeats them.

With step names only those steps (and the facts they recorded) are removed.
Without arguments the whole state file is deleted. Nothing is undone on the
machine itself.`,
		Example: `  # Re-run the tests on the next run
  vibe-setup reset tests

  # Start over from scratch without a confirmation prompt
  vibe-setup reset --yes`,
		ValidArgs: steps.Names,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			for _, name := range args {
				if !slices.Contains(steps.Names, name) {
					return fmt.Errorf("unknown step %q (known: %v)", name, steps.Names)
				}
			}

			question := "Delete the whole setup state?"
			if len(args) > 0 {
				question = fmt.Sprintf("Forget %d completed step(s)?", len(args))
			}
			if !yes {
				ok, err := ui.NewTerminalPrompter().Confirm(ui.Question{
					Key:  "reset",
					Text: question,
					Hint: "pass --yes to confirm",
				})
				if errors.Is(err, ui.ErrCancelled) {
					return pipeline.UserAborted("reset cancelled", err)
				}
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, ui.Muted("Nothing changed."))
					return nil
				}
			}

			if len(args) == 0 {
				if err := os.Remove(cfg.StateFile); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("failed to remove state file: %w", err)
				}
				log.Info().Str("path", cfg.StateFile).Msg("State file removed")
				fmt.Fprintln(out, ui.SuccessMsg("Removed %s. The next run starts from the beginning.", cfg.StateFile))
				return nil
			}

			st, err := pipeline.LoadFile(cfg.StateFile)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(args))
			for _, name := range args {
				keys = append(keys, name)
				keys = append(keys, steps.Facts[name]...)
			}
			if err := st.Delete(keys...); err != nil {
				return err
			}
			log.Info().Strs("keys", keys).Msg("State keys removed")
			fmt.Fprintln(out, ui.SuccessMsg("Reset %v. They will run again next time.", args))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}
