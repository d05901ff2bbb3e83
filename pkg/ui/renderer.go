package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/madhurthareja/vibe/pkg/pipeline"
)

// Renderer draws pipeline progress as a table. It implements
// pipeline.Reporter.
type Renderer struct {
	out   io.Writer
	title string
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(out io.Writer, title string) *Renderer {
	return &Renderer{out: out, title: title}
}

// Progress implements pipeline.Reporter.
func (r *Renderer) Progress(rows []pipeline.StepProgress) {
	if r.title != "" {
		fmt.Fprintln(r.out, Bold(r.title))
	}
	fmt.Fprintln(r.out, ProgressTable(rows))
}

// Instructions implements pipeline.Reporter.
func (r *Renderer) Instructions(step pipeline.Step, text string) {
	fmt.Fprintln(r.out, Panel(step.Description(), text))
}

// StepFailed implements pipeline.Reporter.
func (r *Renderer) StepFailed(step pipeline.Step, err error) {
	fmt.Fprintln(r.out, ErrorMsg("%s failed: %s", Bold(step.Name()), describe(err)))
	if hint := hintFor(err); hint != "" {
		fmt.Fprintln(r.out, "  "+Muted(hint))
	}
	var se *pipeline.SetupError
	if errors.As(err, &se) {
		if out, ok := se.Details["output"].(string); ok && out != "" {
			fmt.Fprintln(r.out, Muted(indent(out, "  │ ")))
		}
	}
}

// Finished implements pipeline.Reporter.
func (r *Renderer) Finished(result *pipeline.Result, rows []pipeline.StepProgress) {
	fmt.Fprintln(r.out, ProgressTable(rows))
	switch result.Status {
	case pipeline.RunStatusCompleted:
		if len(result.Executed) == 0 {
			fmt.Fprintln(r.out, SuccessMsg("Everything is already set up."))
			return
		}
		fmt.Fprintln(r.out, SuccessMsg("Setup complete in %s.", result.Duration().Round(time.Millisecond)))
	case pipeline.RunStatusHalted:
		fmt.Fprintln(r.out, WarnMsg("Setup stopped at %s. Fix the problem and re-run to resume from there.", Bold(result.FailedStep)))
	}
}

// ProgressTable renders one row per step with its display state.
func ProgressTable(rows []pipeline.StepProgress) string {
	cells := make([][]string, 0, len(rows))
	for i, row := range rows {
		cells = append(cells, []string{
			strconv.Itoa(i + 1),
			row.Name,
			row.Description,
			stateLabel(row.State),
		})
	}
	return Table([]string{"#", "Step", "Description", "Status"}, cells)
}

func stateLabel(s pipeline.DisplayState) string {
	switch s {
	case pipeline.DisplayDone:
		return Success("✓ done")
	case pipeline.DisplayActive:
		return ActiveStyle.Render("▶ running")
	default:
		return Muted("○ pending")
	}
}

// RenderSummary writes the state document and, when present, the per-step
// projection.
func RenderSummary(w io.Writer, sum pipeline.Summary) {
	fmt.Fprintln(w, Bold("Setup state")+" "+Muted(sum.Location))
	if len(sum.Entries) == 0 {
		fmt.Fprintln(w, Muted("  (empty)"))
	} else {
		pairs := make([]Pair, 0, len(sum.Entries))
		for _, e := range sum.Entries {
			pairs = append(pairs, KV(e.Key, formatValue(e.Value)))
		}
		fmt.Fprint(w, KeyValues("  ", pairs...))
	}

	if len(sum.Steps) == 0 {
		return
	}
	fmt.Fprintln(w, ProgressTable(sum.Steps))
	if sum.Complete() {
		fmt.Fprintln(w, SuccessMsg("All %d steps complete.", len(sum.Steps)))
	} else {
		fmt.Fprintln(w, InfoMsg("%d of %d steps complete.", sum.Done(), len(sum.Steps)))
	}
}

// RenderSummaryJSON writes the summary as indented JSON.
func RenderSummaryJSON(w io.Writer, sum pipeline.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sum); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case bool:
		if val {
			return Success("true")
		}
		return ErrorStyle.Render("false")
	case string:
		return val
	case nil:
		return Muted("null")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func describe(err error) string {
	var se *pipeline.SetupError
	if errors.As(err, &se) {
		msg := se.Message
		if se.Err != nil {
			msg += ": " + se.Err.Error()
		}
		return msg
	}
	var sf *pipeline.StepFailure
	if errors.As(err, &sf) {
		return sf.Err.Error()
	}
	return err.Error()
}

func hintFor(err error) string {
	switch pipeline.KindOf(err) {
	case pipeline.KindToolMissing:
		var se *pipeline.SetupError
		if errors.As(err, &se) {
			if tool, ok := se.Details["tool"].(string); ok {
				return fmt.Sprintf("Install %s and make sure it is on your PATH.", tool)
			}
		}
		return "Install the missing tool and make sure it is on your PATH."
	case pipeline.KindCorruptState:
		return "Fix or delete the state file, or run `vibe-setup reset`."
	case pipeline.KindPersistFailure:
		return "Check that the state file's directory is writable."
	case pipeline.KindUserAborted:
		return "Re-run setup when you are ready."
	default:
		return ""
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
