package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	envNoInteraction = "NO_INTERACTION"
	envCI            = "CI"
	envTerm          = "TERM"
)

// ErrCancelled is returned when the operator dismisses a prompt.
var ErrCancelled = errors.New("cancelled by user")

// ErrNoInteraction is returned when a prompt is needed but the terminal is
// not interactive. Hint tells the operator how to supply the answer instead.
type ErrNoInteraction struct {
	Hint string
}

func (e *ErrNoInteraction) Error() string {
	if e.Hint == "" {
		return "terminal is not interactive"
	}
	return fmt.Sprintf("terminal is not interactive (%s)", e.Hint)
}

type interactionConfig struct {
	initialized bool
	interactive bool
}

var interactionState struct {
	mu  sync.RWMutex
	cfg interactionConfig
}

// ConfigureInteraction decides once per process whether prompts and colour
// are allowed, and sets the lipgloss colour profile accordingly.
func ConfigureInteraction(noInteraction bool) {
	interactive := detectInteractiveMode(noInteraction)

	interactionState.mu.Lock()
	interactionState.cfg = interactionConfig{
		initialized: true,
		interactive: interactive,
	}
	interactionState.mu.Unlock()

	if interactive {
		lipgloss.SetColorProfile(termenv.ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// IsInteractive reports whether the operator can answer prompts.
func IsInteractive() bool {
	interactionState.mu.RLock()
	if interactionState.cfg.initialized {
		interactive := interactionState.cfg.interactive
		interactionState.mu.RUnlock()
		return interactive
	}
	interactionState.mu.RUnlock()

	ConfigureInteraction(false)

	interactionState.mu.RLock()
	defer interactionState.mu.RUnlock()
	return interactionState.cfg.interactive
}

// RequireInteraction returns *ErrNoInteraction when prompting is impossible.
func RequireInteraction(hint string) error {
	if IsInteractive() {
		return nil
	}
	return &ErrNoInteraction{Hint: hint}
}

func detectInteractiveMode(noInteraction bool) bool {
	if noInteraction {
		return false
	}
	if EnvTruthy(envNoInteraction) || EnvTruthy(envCI) {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envTerm)), "dumb") {
		return false
	}
	return stdinIsTerminal() && stderrIsTerminal()
}

func stderrIsTerminal() bool {
	return isCharDevice(os.Stderr)
}

func stdinIsTerminal() bool {
	return isCharDevice(os.Stdin)
}

func isCharDevice(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// EnvTruthy reports whether the environment variable holds 1/true/yes/on.
func EnvTruthy(key string) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
