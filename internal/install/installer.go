// Package install brings a container engine onto the host when probing finds none.
//
// macOS installs Docker Desktop through Homebrew casks. Debian and Ubuntu install
// Docker Engine from the vendor APT repository and manage it through systemd.
// Every mutating command goes through execx.Runner, so dry-run mode prints the
// whole plan without touching the system.
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/blackwell-systems/stack-installer/internal/clock"
	"github.com/blackwell-systems/stack-installer/internal/console"
	"github.com/blackwell-systems/stack-installer/internal/engine"
	"github.com/blackwell-systems/stack-installer/internal/execx"
)

var (
	// ErrMissingDependency indicates a prerequisite tool (such as Homebrew) is absent.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrUserDeclined indicates the operator refused a confirmation prompt.
	ErrUserDeclined = errors.New("declined by user")

	// ErrUnsupportedPlatform indicates no installation path exists for this host.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrServiceFailed indicates the service manager reports the engine unit as failed.
	ErrServiceFailed = errors.New("engine service failed")
)

// Options control installer behavior. They are fixed for the whole run.
type Options struct {
	DryRun       bool
	ReadyTimeout time.Duration
	PollInterval time.Duration

	// Group is the engine's access-control group, normally "docker".
	Group string
}

// Installer remediates a missing or stopped engine.
type Installer struct {
	runner  execx.Runner
	prober  engine.StatusSource
	confirm console.Confirmer
	printer *console.Printer
	opts    Options

	clock    clock.Clock
	lookPath engine.LookPathFunc
	euid     func() int
	getenv   func(string) string
}

// New returns an Installer. runner should already be wrapped for dry-run when opts.DryRun is set.
func New(runner execx.Runner, prober engine.StatusSource, confirm console.Confirmer, printer *console.Printer, opts Options) *Installer {
	if opts.Group == "" {
		opts.Group = "docker"
	}
	return &Installer{
		runner:   runner,
		prober:   prober,
		confirm:  confirm,
		printer:  printer,
		opts:     opts,
		clock:    &clock.RealClock{},
		lookPath: exec.LookPath,
		euid:     unix.Geteuid,
		getenv:   os.Getenv,
	}
}

// Ensure makes the engine available on platform, given its last probed status.
// A daemon that only refuses this user is left alone; the dispatcher remedies that per stack.
func (i *Installer) Ensure(ctx context.Context, platform engine.Platform, status engine.Status) error {
	if status.Running() {
		return nil
	}

	switch {
	case platform.IsMac():
		return i.ensureMac(ctx)
	case platform.IsLinux():
		if !platform.APT {
			return fmt.Errorf("%w: %s has no apt-get; only Debian and Ubuntu hosts can be provisioned", ErrUnsupportedPlatform, platform)
		}
		return i.ensureLinux(ctx, platform)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform.Family)
	}
}

func (i *Installer) ensureMac(ctx context.Context) error {
	if _, err := i.lookPath("brew"); err != nil {
		return fmt.Errorf("%w: Homebrew is required to install Docker Desktop; install it from https://brew.sh and re-run", ErrMissingDependency)
	}

	if _, err := i.runner.Run(ctx, execx.New("brew", "list", "--cask", "docker")); err == nil {
		i.printer.Success("Docker Desktop is already installed")
	} else {
		if err := i.ask("Docker Desktop is not installed. Install it with Homebrew?"); err != nil {
			return err
		}
		i.printer.Step("Installing Docker Desktop...")
		if err := i.run(ctx, execx.Mutate("brew", "install", "--cask", "docker")); err != nil {
			return err
		}
	}

	i.printer.Step("Launching Docker Desktop...")
	if err := i.run(ctx, execx.Mutate("open", "-a", "Docker")); err != nil {
		return err
	}
	if i.opts.DryRun {
		return nil
	}
	return i.waitReady(ctx, nil)
}

func (i *Installer) ensureLinux(ctx context.Context, platform engine.Platform) error {
	if i.hasServiceUnit(ctx) {
		i.printer.Info("docker.service is installed but the daemon is not answering")
		if err := i.ask("Start the Docker service?"); err != nil {
			return err
		}
		i.printer.Step("Starting docker.service...")
		if err := i.run(ctx, i.privileged(execx.Mutate("systemctl", "start", "docker"))); err != nil {
			return err
		}
		if i.opts.DryRun {
			return nil
		}
		return i.waitReady(ctx, i.checkUnitFailed)
	}

	if err := i.ask(fmt.Sprintf("Docker Engine is not installed. Install it from download.docker.com for %s?", platform)); err != nil {
		return err
	}

	steps, err := i.aptSteps(ctx, platform)
	if err != nil {
		return err
	}
	for _, s := range steps {
		i.printer.Step(s.desc)
		if err := i.run(ctx, s.cmd); err != nil {
			return err
		}
	}

	i.addUserToGroup(ctx)

	if i.opts.DryRun {
		return nil
	}
	return i.waitReady(ctx, i.checkUnitFailed)
}

func (i *Installer) hasServiceUnit(ctx context.Context) bool {
	if _, err := i.lookPath("systemctl"); err != nil {
		return false
	}
	res, err := i.runner.Run(ctx, execx.New("systemctl", "list-unit-files", "docker.service"))
	if err != nil {
		return false
	}
	return strings.Contains(res.Output, "docker.service")
}

// checkUnitFailed surfaces journal lines and aborts the wait when systemd gave up on the unit.
func (i *Installer) checkUnitFailed(ctx context.Context) error {
	// is-failed exits non-zero for healthy units; the state word is what matters
	res, _ := i.runner.Run(ctx, execx.New("systemctl", "is-failed", "docker"))
	if strings.TrimSpace(res.Output) != "failed" {
		return nil
	}

	i.printer.Error("docker.service failed to start; recent log lines:")
	logs, _ := i.runner.Run(ctx, i.privileged(execx.New("journalctl", "-u", "docker", "-n", "20", "--no-pager")))
	i.printer.Block(logs.Output)
	return fmt.Errorf("%w: systemctl reports docker.service as failed", ErrServiceFailed)
}

func (i *Installer) waitReady(ctx context.Context, check func(context.Context) error) error {
	i.printer.Step("Waiting for the Docker daemon (up to %s)...", i.timeout())
	err := engine.WaitReady(ctx, i.prober, i.clock, engine.WaitOptions{
		Timeout:  i.timeout(),
		Interval: i.opts.PollInterval,
		Check:    check,
		OnPoll: func(status engine.Status, waited time.Duration) {
			if waited > 0 && int(waited.Seconds())%10 == 0 {
				i.printer.Plain("  still waiting (%s): %s", waited, status.State)
			}
		},
	})
	if err != nil {
		return err
	}
	i.printer.Success("Docker daemon is up")
	return nil
}

func (i *Installer) timeout() time.Duration {
	if i.opts.ReadyTimeout <= 0 {
		return engine.DefaultReadyTimeout
	}
	return i.opts.ReadyTimeout
}

func (i *Installer) ask(question string) error {
	ok, err := i.confirm.Confirm(question)
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !ok {
		return ErrUserDeclined
	}
	return nil
}

func (i *Installer) run(ctx context.Context, c execx.Command) error {
	if _, err := i.runner.Run(ctx, c); err != nil {
		if out := strings.TrimSpace(execx.OutputOf(err)); out != "" {
			return fmt.Errorf("%s failed: %w\n%s", c, err, out)
		}
		return fmt.Errorf("%s failed: %w", c, err)
	}
	return nil
}

// privileged prefixes c with sudo unless already running as root.
func (i *Installer) privileged(c execx.Command) execx.Command {
	if i.euid() == 0 {
		return c
	}
	c.Args = c.Argv()
	c.Name = "sudo"
	return c
}

// targetUser is the account that should gain engine access: the sudo caller if any.
func (i *Installer) targetUser() string {
	if u := i.getenv("SUDO_USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return i.getenv("USER")
}
