package shell

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Fake is an in-memory Runner for tests. Responses are keyed by the command
// line as rendered by Command.String.
type Fake struct {
	mu        sync.Mutex
	tools     map[string]string
	responses map[string]FakeResponse
	hooks     map[string]func(Command)
	calls     []Command
}

// FakeResponse is the canned outcome for one command line.
type FakeResponse struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

// NewFake creates a Fake where the given tools resolve on PATH.
func NewFake(tools ...string) *Fake {
	f := &Fake{
		tools:     make(map[string]string),
		responses: make(map[string]FakeResponse),
		hooks:     make(map[string]func(Command)),
	}
	for _, t := range tools {
		f.AddTool(t)
	}
	return f
}

// AddTool makes name resolvable.
func (f *Fake) AddTool(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tools[name] = "/usr/bin/" + name
}

// On sets the response for a command line.
func (f *Fake) On(line string, resp FakeResponse) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = resp
	return f
}

// OnRun registers a side effect executed when line runs, e.g. creating a
// file the real program would have written.
func (f *Fake) OnRun(line string, hook func(Command)) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[line] = hook
	return f
}

// LookPath implements Runner.
func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.tools[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// Run implements Runner. Unknown command lines succeed with no output.
func (f *Fake) Run(ctx context.Context, c Command) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	resp := f.responses[c.String()]
	hook := f.hooks[c.String()]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s interrupted: %w", c.Name, err)
	}
	if hook != nil {
		hook(c)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &Result{ExitCode: resp.ExitCode, Stdout: resp.Stdout, Stderr: resp.Stderr}, nil
}

// Calls returns the commands run so far.
func (f *Fake) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// Lines returns the command lines run so far.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Ran reports whether a command line starting with prefix was run.
func (f *Fake) Ran(prefix string) bool {
	for _, line := range f.Lines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
