package pipeline

// StepProgress is the display row for one step.
type StepProgress struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	State       DisplayState `json:"state"`
}

// Progress projects the state onto the step list. It is pure: Done when the
// completion predicate holds, Active for the step named current that is not
// done, Pending otherwise. Pass current "" for a view with no active step.
func Progress(steps []Step, st *State, current string) []StepProgress {
	rows := make([]StepProgress, 0, len(steps))
	for _, s := range steps {
		row := StepProgress{
			Name:        s.Name(),
			Description: s.Description(),
			State:       DisplayPending,
		}
		switch {
		case !s.ShouldRun(st):
			row.State = DisplayDone
		case current != "" && s.Name() == current:
			row.State = DisplayActive
		}
		rows = append(rows, row)
	}
	return rows
}

// Entry is one key/value pair of the state document.
type Entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Summary is a read-only rendering of the state, optionally cross-referenced
// against a step list.
type Summary struct {
	Location string         `json:"location"`
	Entries  []Entry        `json:"entries"`
	Steps    []StepProgress `json:"steps,omitempty"`
}

// Summarize renders every entry in key order and, when steps is non-empty,
// the per-step projection with no active step.
func Summarize(st *State, steps []Step) Summary {
	keys := st.Keys()
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: st.Get(k, nil)})
	}
	sum := Summary{
		Location: st.Location(),
		Entries:  entries,
	}
	if len(steps) > 0 {
		sum.Steps = Progress(steps, st, "")
	}
	return sum
}

// Done returns how many steps are complete.
func (s Summary) Done() int {
	n := 0
	for _, row := range s.Steps {
		if row.State == DisplayDone {
			n++
		}
	}
	return n
}

// Complete reports whether every step is done.
func (s Summary) Complete() bool {
	return len(s.Steps) > 0 && s.Done() == len(s.Steps)
}
