package execx

import (
	"context"
	"strings"
)

// FakeRunner implements Runner with canned responses for testing.
// Commands with no matching response succeed with empty output.
type FakeRunner struct {
	calls     []Command
	responses []fakeResponse
}

type fakeResponse struct {
	prefix string
	output string
	code   int
	err    error
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On registers the output and exit code for commands whose rendered line starts with prefix.
// The first registered match wins.
func (f *FakeRunner) On(prefix, output string, code int) *FakeRunner {
	f.responses = append(f.responses, fakeResponse{prefix: prefix, output: output, code: code})
	return f
}

// OnError registers a start failure for commands starting with prefix.
func (f *FakeRunner) OnError(prefix string, err error) *FakeRunner {
	f.responses = append(f.responses, fakeResponse{prefix: prefix, err: err})
	return f
}

// Run records c and returns the registered response.
func (f *FakeRunner) Run(ctx context.Context, c Command) (Result, error) {
	f.calls = append(f.calls, c)
	line := c.String()
	for _, r := range f.responses {
		if !strings.HasPrefix(line, r.prefix) {
			continue
		}
		if r.err != nil {
			return Result{}, r.err
		}
		res := Result{Output: r.output, ExitCode: r.code}
		if r.code != 0 {
			return res, &ExitError{Command: c, Code: r.code, Output: r.output}
		}
		return res, nil
	}
	return Result{}, nil
}

// Calls returns every command passed to Run.
func (f *FakeRunner) Calls() []Command {
	return f.calls
}

// Lines returns the rendered form of every command passed to Run.
func (f *FakeRunner) Lines() []string {
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = c.String()
	}
	return lines
}

// Ran reports whether any recorded command line starts with prefix.
func (f *FakeRunner) Ran(prefix string) bool {
	for _, line := range f.Lines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
