package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Question is one thing the operator is asked. Key is a stable identifier
// used to answer it from configuration instead of the terminal.
type Question struct {
	Key         string
	Text        string
	Choices     []string
	Default     string
	Placeholder string
	Hint        string
}

// Prompter asks the operator questions.
type Prompter interface {
	// Select returns one of q.Choices.
	Select(q Question) (string, error)

	// Input returns free text.
	Input(q Question) (string, error)

	// Confirm returns a yes/no answer.
	Confirm(q Question) (bool, error)
}

// TerminalPrompter asks on the terminal with bubbletea programs.
type TerminalPrompter struct {
	out io.Writer
}

// NewTerminalPrompter creates a prompter drawing on stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{out: os.Stderr}
}

func (p *TerminalPrompter) run(m tea.Model) error {
	if _, err := tea.NewProgram(m, tea.WithOutput(p.out)).Run(); err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}

// Select implements Prompter.
func (p *TerminalPrompter) Select(q Question) (string, error) {
	if len(q.Choices) == 0 {
		return "", fmt.Errorf("question %q has no choices", q.Key)
	}
	if err := RequireInteraction(q.Hint); err != nil {
		return "", fmt.Errorf("selection required: %w", err)
	}

	m := newSelectModel(q)
	if err := p.run(m); err != nil {
		return "", err
	}
	if m.cancelled {
		return "", ErrCancelled
	}
	return q.Choices[m.cursor], nil
}

// Input implements Prompter.
func (p *TerminalPrompter) Input(q Question) (string, error) {
	if err := RequireInteraction(q.Hint); err != nil {
		return "", fmt.Errorf("input required: %w", err)
	}

	ti := textinput.New()
	ti.Placeholder = q.Placeholder
	ti.SetValue(q.Default)
	ti.Focus()
	ti.PromptStyle = AccentStyle
	ti.TextStyle = lipgloss.NewStyle()

	m := &inputModel{label: q.Text, textInput: ti}
	if err := p.run(m); err != nil {
		return "", err
	}
	if m.cancelled {
		return "", ErrCancelled
	}
	return strings.TrimSpace(m.textInput.Value()), nil
}

// Confirm implements Prompter.
func (p *TerminalPrompter) Confirm(q Question) (bool, error) {
	if err := RequireInteraction(q.Hint); err != nil {
		return false, fmt.Errorf("confirmation required: %w", err)
	}

	m := &confirmModel{question: q.Text}
	if err := p.run(m); err != nil {
		return false, err
	}
	if m.cancelled {
		return false, ErrCancelled
	}
	return m.confirmed, nil
}

// selectModel is a bubbletea model for picking one choice.
type selectModel struct {
	question  string
	choices   []string
	cursor    int
	cancelled bool
	chosen    bool
}

func newSelectModel(q Question) *selectModel {
	m := &selectModel{question: q.Text, choices: q.Choices}
	for i, c := range q.Choices {
		if c == q.Default {
			m.cursor = i
		}
	}
	return m
}

func (m *selectModel) Init() tea.Cmd { return nil }

func (m *selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k", "shift+tab":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "tab":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.chosen = true
		return m, tea.Quit
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	default:
		// Digits pick directly: "1" is the first choice.
		if s := key.String(); len(s) == 1 && s[0] >= '1' && int(s[0]-'1') < len(m.choices) {
			m.cursor = int(s[0] - '1')
			m.chosen = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *selectModel) View() string {
	if m.cancelled {
		return ""
	}
	if m.chosen {
		return AccentStyle.Render("?") + " " + m.question + " " + Success(m.choices[m.cursor]) + "\n"
	}

	var sb strings.Builder
	sb.WriteString(AccentStyle.Render("?") + " " + m.question + "\n")
	for i, c := range m.choices {
		if i == m.cursor {
			sb.WriteString(AccentStyle.Render("❯ " + c))
		} else {
			sb.WriteString("  " + c)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(Muted("↑/↓ to move, enter to select") + "\n")
	return sb.String()
}

// inputModel is a bubbletea model for text input.
type inputModel struct {
	label     string
	textInput textinput.Model
	cancelled bool
	submitted bool
}

func (m *inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.submitted = true
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *inputModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	return AccentStyle.Render("?") + " " + m.label + "\n" + m.textInput.View() + "\n"
}

// confirmModel is a bubbletea model for yes/no confirmation.
type confirmModel struct {
	question  string
	confirmed bool
	cancelled bool
	answered  bool
}

func (m *confirmModel) Init() tea.Cmd { return nil }

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y":
			m.confirmed = true
			m.answered = true
			return m, tea.Quit
		case "n", "N", "enter":
			m.answered = true
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *confirmModel) View() string {
	if m.answered || m.cancelled {
		return ""
	}
	return AccentStyle.Render("?") + " " + m.question + " " + MutedStyle.Render("[y/N]") + " "
}

// PresetPrompter answers from a fixed map keyed by Question.Key and defers
// to Fallback for anything it does not know. A nil Fallback reports
// *ErrNoInteraction.
type PresetPrompter struct {
	Answers  map[string]string
	Fallback Prompter
}

// NewPresetPrompter creates a PresetPrompter. Empty answers are ignored.
func NewPresetPrompter(answers map[string]string, fallback Prompter) *PresetPrompter {
	clean := make(map[string]string, len(answers))
	for k, v := range answers {
		if v = strings.TrimSpace(v); v != "" {
			clean[k] = v
		}
	}
	return &PresetPrompter{Answers: clean, Fallback: fallback}
}

// Select implements Prompter. A preset answer must be one of the choices,
// compared case-insensitively.
func (p *PresetPrompter) Select(q Question) (string, error) {
	if v, ok := p.Answers[q.Key]; ok {
		for _, c := range q.Choices {
			if strings.EqualFold(c, v) {
				return c, nil
			}
		}
		return "", fmt.Errorf("preset answer %q for %s is not one of %s", v, q.Key, strings.Join(q.Choices, ", "))
	}
	if p.Fallback == nil {
		return "", &ErrNoInteraction{Hint: q.Hint}
	}
	return p.Fallback.Select(q)
}

// Input implements Prompter.
func (p *PresetPrompter) Input(q Question) (string, error) {
	if v, ok := p.Answers[q.Key]; ok {
		return v, nil
	}
	if p.Fallback == nil {
		return "", &ErrNoInteraction{Hint: q.Hint}
	}
	return p.Fallback.Input(q)
}

// Confirm implements Prompter.
func (p *PresetPrompter) Confirm(q Question) (bool, error) {
	if v, ok := p.Answers[q.Key]; ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		default:
			return false, nil
		}
	}
	if p.Fallback == nil {
		return false, &ErrNoInteraction{Hint: q.Hint}
	}
	return p.Fallback.Confirm(q)
}
