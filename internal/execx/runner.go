// Package execx runs external tools on behalf of the installer.
//
// Every shell-out in the program goes through Runner so that the working
// directory is explicit, output is captured for diagnostics, and dry-run mode
// can replace mutating commands with an echo.
package execx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Command describes one external invocation.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Stdin is fed to the process. It is rendered as a here-string.
	Stdin string

	// Mutating marks commands that change system state; dry-run echoes them instead.
	Mutating bool
}

// New returns a read-only command.
func New(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Mutate returns a command that dry-run mode will not execute.
func Mutate(name string, args ...string) Command {
	return Command{Name: name, Args: args, Mutating: true}
}

// In returns a copy of c that runs in dir.
func (c Command) In(dir string) Command {
	c.Dir = dir
	return c
}

// Argv returns the name followed by the arguments.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command as a shell line.
func (c Command) String() string {
	if c.Stdin == "" {
		return Join(c.Argv())
	}
	return Join(c.Argv()) + " <<< " + Quote(strings.TrimSuffix(c.Stdin, "\n"))
}

// WithStdin returns a copy of c that reads input on standard input.
func (c Command) WithStdin(input string) Command {
	c.Stdin = input
	return c
}

// Result is the captured outcome of a command.
type Result struct {
	Output   string
	ExitCode int
}

// ExitError reports a command that started but exited non-zero.
type ExitError struct {
	Command Command
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, c Command) (Result, error)
}

// OSRunner runs commands as child processes with combined output capture.
type OSRunner struct {
	log *zap.Logger
}

// NewOSRunner returns a Runner backed by os/exec.
func NewOSRunner(log *zap.Logger) *OSRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &OSRunner{log: log}
}

// Run executes c and waits for it to finish.
func (r *OSRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	r.log.Debug("exec", zap.String("cmd", c.String()), zap.String("dir", c.Dir))

	output, err := cmd.CombinedOutput()
	res := Result{Output: string(output)}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			r.log.Debug("exec failed",
				zap.String("cmd", c.String()),
				zap.Int("code", res.ExitCode),
				zap.String("output", strings.TrimSpace(res.Output)))
			return res, &ExitError{Command: c, Code: res.ExitCode, Output: res.Output}
		}
		return res, fmt.Errorf("failed to run %s: %w", c.Name, err)
	}

	return res, nil
}

// DryRunner echoes mutating commands and delegates everything else.
type DryRunner struct {
	next Runner
	out  io.Writer
}

// NewDryRunner wraps next so that mutating commands are printed to out instead of run.
func NewDryRunner(next Runner, out io.Writer) *DryRunner {
	return &DryRunner{next: next, out: out}
}

// Run prints c when it is mutating, otherwise runs it through the wrapped Runner.
func (r *DryRunner) Run(ctx context.Context, c Command) (Result, error) {
	if !c.Mutating {
		return r.next.Run(ctx, c)
	}
	if c.Dir != "" {
		fmt.Fprintf(r.out, "[dry-run] (cd %s && %s)\n", Quote(c.Dir), c)
	} else {
		fmt.Fprintf(r.out, "[dry-run] %s\n", c)
	}
	return Result{}, nil
}

// OutputOf returns the captured output carried by err, if any.
func OutputOf(err error) string {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Output
	}
	return ""
}
