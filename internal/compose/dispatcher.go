// Package compose runs compose against each selected stack.
//
// Stacks are processed one at a time in selection order. A failure in one
// stack is recorded and the batch moves on. When the engine refuses access,
// the dispatcher retries inside an activated group session and then, after
// confirmation, with sudo.
package compose

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/blackwell-systems/stack-installer/internal/console"
	"github.com/blackwell-systems/stack-installer/internal/engine"
	"github.com/blackwell-systems/stack-installer/internal/execx"
	"github.com/blackwell-systems/stack-installer/internal/stacks"
)

// Options control the dispatcher for a whole run.
type Options struct {
	// Group is the engine's access-control group used for the sg retry.
	Group string

	// Override replaces compose resolution with an explicit argv prefix.
	Override []string

	// LookPath resolves binaries on PATH. Nil uses exec.LookPath.
	LookPath engine.LookPathFunc
}

// Dispatcher runs compose for a batch of stacks.
type Dispatcher struct {
	runner  execx.Runner
	confirm console.Confirmer
	printer *console.Printer
	opts    Options

	lookPath engine.LookPathFunc
	diagnose func() []string

	resolved   []string
	resolveErr error
	didResolve bool
}

// New returns a Dispatcher. runner should already be wrapped for dry-run if requested.
func New(runner execx.Runner, confirm console.Confirmer, printer *console.Printer, opts Options) *Dispatcher {
	if opts.Group == "" {
		opts.Group = "docker"
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	d := &Dispatcher{
		runner:   runner,
		confirm:  confirm,
		printer:  printer,
		opts:     opts,
		lookPath: opts.LookPath,
	}
	d.diagnose = func() []string { return SocketDiagnostics(opts.Group) }
	return d
}

// RunAll applies action to every stack in order and never stops early.
func (d *Dispatcher) RunAll(ctx context.Context, list []stacks.Stack, action Action) Summary {
	summary := Summary{Action: action}
	for _, s := range list {
		if err := ctx.Err(); err != nil {
			summary.add(Result{Stack: s, Outcome: Failed, Err: err})
			continue
		}
		summary.add(d.Run(ctx, s, action))
	}
	return summary
}

// Run applies action to a single stack.
func (d *Dispatcher) Run(ctx context.Context, s stacks.Stack, action Action) Result {
	d.printer.Info("==> %s", s.Name)

	if !s.HasDescriptor() {
		err := fmt.Errorf("%w in %s (expected %s)", ErrDescriptorMissing, s.Path, strings.Join(stacks.DescriptorNames, " or "))
		d.printer.Error("%s: skipped: %v", s.Name, err)
		return Result{Stack: s, Outcome: Skipped, Err: err}
	}

	base, err := d.Resolve(ctx)
	if err != nil {
		d.printer.Error("%s: %v", s.Name, err)
		return Result{Stack: s, Outcome: Failed, Err: err}
	}

	argv := append(append([]string{}, base...), "-f", s.Descriptor)
	argv = append(argv, action.Args()...)
	cmd := execx.Mutate(argv[0], argv[1:]...).In(s.Path)
	res := Result{Stack: s, Command: cmd.String()}

	out, err := d.runner.Run(ctx, cmd)
	res.Output = out.Output
	if err == nil {
		res.Outcome = Succeeded
		d.printer.Success("%s: %s done", s.Name, action)
		return res
	}

	// Only a command that ran and exited non-zero can be a daemon refusal.
	var exitErr *execx.ExitError
	if errors.As(err, &exitErr) && execx.Classify(out.Output) == execx.FailurePermission {
		remedy, rerr := d.remedy(ctx, cmd)
		if rerr == nil {
			res.Outcome = Succeeded
			res.Remedy = remedy
			d.printer.Success("%s: %s done (via %s)", s.Name, action, remedy)
			return res
		}
		res.Outcome = Failed
		res.Err = rerr
		d.printer.Error("%s: %v", s.Name, rerr)
		d.printer.Block(res.Output)
		return res
	}

	res.Outcome = Failed
	res.Err = fmt.Errorf("%w: %v", ErrCommandFailed, err)
	d.printer.Error("%s: %v", s.Name, res.Err)
	d.printer.Block(res.Output)
	return res
}

// Resolve finds the compose invocation once per run.
// The integrated plugin form is preferred over the standalone binary.
func (d *Dispatcher) Resolve(ctx context.Context) ([]string, error) {
	if d.didResolve {
		return d.resolved, d.resolveErr
	}
	d.didResolve = true
	d.resolved, d.resolveErr = d.resolve(ctx)
	return d.resolved, d.resolveErr
}

func (d *Dispatcher) resolve(ctx context.Context) ([]string, error) {
	if len(d.opts.Override) > 0 {
		if _, err := d.lookPath(d.opts.Override[0]); err != nil {
			return nil, fmt.Errorf("%w: configured compose command %q not found in PATH", ErrComposeUnavailable, d.opts.Override[0])
		}
		return d.opts.Override, nil
	}

	if _, err := d.lookPath(engine.Binary); err == nil {
		if _, err := d.runner.Run(ctx, execx.New(engine.Binary, "compose", "version")); err == nil {
			return []string{engine.Binary, "compose"}, nil
		}
	}
	if _, err := d.lookPath("docker-compose"); err == nil {
		return []string{"docker-compose"}, nil
	}
	return nil, fmt.Errorf("%w: neither 'docker compose' nor 'docker-compose' is installed", ErrComposeUnavailable)
}

// remedy retries a permission-denied command in a fresh group session, then with sudo.
func (d *Dispatcher) remedy(ctx context.Context, cmd execx.Command) (Remedy, error) {
	d.printer.Warn("permission denied talking to the Docker daemon")
	for _, line := range d.diagnose() {
		d.printer.Plain("    %s", line)
	}

	if _, err := d.lookPath("sg"); err == nil {
		d.printer.Step("Retrying with the %s group activated...", d.opts.Group)
		sg := execx.Command{
			Name:     "sg",
			Args:     []string{d.opts.Group, "-c", cmd.String()},
			Dir:      cmd.Dir,
			Mutating: true,
		}
		if _, err := d.runner.Run(ctx, sg); err == nil {
			return RemedyGroup, nil
		}
	}

	ok, err := d.confirm.Confirm("Retry with sudo?")
	if err != nil {
		return RemedyNone, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if !ok {
		return RemedyNone, fmt.Errorf("%w (sudo retry declined)", ErrPermissionDenied)
	}

	d.printer.Step("Retrying with sudo...")
	sudo := execx.Command{Name: "sudo", Args: cmd.Argv(), Dir: cmd.Dir, Mutating: true}
	if _, err := d.runner.Run(ctx, sudo); err != nil {
		var exitErr *execx.ExitError
		if errors.As(err, &exitErr) {
			return RemedyNone, fmt.Errorf("%w (sudo retry exited %d)", ErrPermissionDenied, exitErr.Code)
		}
		return RemedyNone, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return RemedySudo, nil
}
