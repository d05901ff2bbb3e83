// Package shell runs the external programs setup steps depend on.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Command describes one external program invocation.
type Command struct {
	// Name is the program to execute, resolved through PATH.
	Name string

	// Args are passed verbatim; no shell is involved.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env adds KEY=VALUE pairs on top of the inherited environment.
	Env map[string]string

	// Interactive attaches the terminal instead of capturing output. Used for
	// programs that prompt the operator (firebase login, firebase init).
	Interactive bool
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the outcome of a finished process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Output returns stdout and stderr joined, as the operator would have seen it.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	default:
		return r.Stdout + "\n" + r.Stderr
	}
}

// Runner executes external programs.
//
// Run returns a Result for every process that started, including ones that
// exited non-zero; the error is reserved for processes that could not be
// started or were killed by ctx.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger zerolog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewExecRunner creates a runner attached to the process's terminal for
// interactive commands.
func NewExecRunner(logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("command is required")
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		env := os.Environ()
		for k, v := range c.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	if c.Interactive {
		cmd.Stdin = r.stdin
		cmd.Stdout = r.stdout
		cmd.Stderr = r.stderr
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	log := r.logger.With().Str("command", c.String()).Str("dir", c.Dir).Logger()
	log.Debug().Bool("interactive", c.Interactive).Msg("Executing command")

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Duration: time.Since(start),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Debug().Err(err).Msg("Command interrupted")
			return result, fmt.Errorf("%s interrupted: %w", c.Name, ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, fmt.Errorf("failed to execute %s: %w", c.Name, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	log.Debug().
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Msg("Command finished")
	return result, nil
}
