package shell

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/madhurthareja/vibe/pkg/pipeline"
)

// Parse splits a configured command line such as "pnpm run test:ci" into a
// Command. Quotes and escapes follow POSIX shell rules; no expansion happens.
func Parse(line string) (Command, error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return Command{}, fmt.Errorf("failed to parse command %q: %w", line, err)
	}
	if len(words) == 0 {
		return Command{}, fmt.Errorf("command %q is empty", line)
	}
	return Command{Name: CLI(words[0]), Args: words[1:]}, nil
}

// MustParse is like Parse but panics on error. Intended for literals.
func MustParse(line string) Command {
	c, err := Parse(line)
	if err != nil {
		panic(err)
	}
	return c
}

// CLI returns the executable name for a Node-ecosystem CLI. On Windows npm,
// pnpm and firebase are installed as .cmd shims.
func CLI(name string) string {
	return cliFor(runtime.GOOS, name)
}

func cliFor(goos, name string) string {
	if goos != "windows" || strings.ContainsAny(name, `/\.`) {
		return name
	}
	switch name {
	case "npm", "npx", "pnpm", "firebase":
		return name + ".cmd"
	default:
		return name
	}
}

// Check turns a Run outcome into a step error. what names the action for the
// operator, e.g. "pnpm install".
func Check(res *Result, err error, what string) error {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return pipeline.UserAborted(what+" was interrupted", err)
		}
		return pipeline.CommandFailed(what+" could not be started", err)
	}
	if res != nil && res.ExitCode != 0 {
		return pipeline.CommandFailed(fmt.Sprintf("%s exited with status %d", what, res.ExitCode), nil).
			WithDetail("exit_code", res.ExitCode).
			WithDetail("output", tail(res.Output(), 20))
	}
	return nil
}

// Require returns a ToolMissing error unless name resolves on PATH.
func Require(r Runner, name string) (string, error) {
	path, err := r.LookPath(name)
	if err != nil {
		return "", pipeline.ToolMissing(name)
	}
	return path, nil
}

func tail(s string, lines int) string {
	s = strings.TrimRight(s, "\n")
	parts := strings.Split(s, "\n")
	if len(parts) <= lines {
		return s
	}
	return strings.Join(parts[len(parts)-lines:], "\n")
}
