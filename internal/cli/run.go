package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/stack-installer/internal/compose"
	"github.com/blackwell-systems/stack-installer/internal/engine"
	"github.com/blackwell-systems/stack-installer/internal/install"
	"github.com/blackwell-systems/stack-installer/internal/report"
	"github.com/blackwell-systems/stack-installer/internal/stacks"
)

// runStacks is the shared flow behind the root command and down:
// engine check, stack discovery, selection, dispatch, summary.
func runStacks(cmd *cobra.Command, action compose.Action) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	startedAt := time.Now()

	if a.cfg.DryRun {
		a.printer.Info("Dry run: mutating commands are printed, not executed")
	}

	if err := a.ensureEngine(cmd, action); err != nil {
		return err
	}

	list, err := stacks.List(a.cfg.StacksDir)
	if err != nil {
		return err
	}

	sel, err := a.selectStacks(list)
	if errors.Is(err, stacks.ErrQuit) {
		a.printer.Info("Quit, nothing to do.")
		return nil
	}
	if err != nil {
		return err
	}
	for _, w := range sel.Warnings {
		a.printer.Warn("%s", w)
	}
	if sel.Empty() {
		a.printer.Info("No stacks selected, nothing to do.")
		return nil
	}

	override, err := a.cfg.ComposeOverride()
	if err != nil {
		return err
	}
	d := compose.New(a.runner, a.prompter, a.printer, compose.Options{
		Group:    a.cfg.EngineGroup,
		Override: override,
		LookPath: lookPath,
	})
	summary := d.RunAll(ctx, sel.Stacks, action)
	a.printSummary(summary)

	if a.cfg.ReportFile != "" {
		if err := report.Save(report.FromSummary(summary, a.cfg.DryRun, startedAt), a.cfg.ReportFile); err != nil {
			a.printer.Warn("Failed to write report: %v", err)
		} else {
			a.printer.Info("Report written to %s", a.cfg.ReportFile)
		}
	}

	if code := summary.ExitCode(); code != 0 {
		return &ExitError{Code: code, Err: fmt.Errorf("%d of %d stacks failed", summary.Failed, len(summary.Results))}
	}
	return nil
}

// ensureEngine probes the engine and, for up, installs or starts it when needed.
func (a *app) ensureEngine(cmd *cobra.Command, action compose.Action) error {
	ctx := cmd.Context()
	status := a.prober.Probe(ctx)
	a.log.Debug("engine probed", zap.Stringer("state", status.State), zap.String("reason", status.Reason))

	if status.Usable() {
		a.printer.Success("Docker engine is ready")
		return nil
	}
	if status.State == engine.StatePermissionDenied {
		a.printer.Warn("Docker engine is running but refuses this user: %s", status.Reason)
		a.printer.Plain("  Permission remedies will be tried per stack.")
		return nil
	}

	a.printer.Warn("Docker engine is %s: %s", status.State, status.Reason)
	if action != compose.ActionUp {
		return nil
	}

	platform, err := detectPlatform()
	if err != nil {
		return err
	}
	inst := install.New(a.runner, a.prober, a.prompter, a.printer, install.Options{
		DryRun:       a.cfg.DryRun,
		ReadyTimeout: a.cfg.ReadyTimeout,
		PollInterval: a.cfg.PollInterval,
		Group:        a.cfg.EngineGroup,
	})
	if err := inst.Ensure(ctx, platform, status); err != nil {
		return fmt.Errorf("docker engine unavailable: %w", err)
	}
	return nil
}

func (a *app) selectStacks(list []stacks.Stack) (stacks.Selection, error) {
	if a.cfg.AutoAll {
		a.printer.Info("Selecting all %d stacks in %s", len(list), a.cfg.StacksDir)
		return stacks.All(list), nil
	}
	a.printer.Info("Stacks in %s:", a.cfg.StacksDir)
	return stacks.PromptSelection(a.prompter, a.printer.Out(), list)
}

func (a *app) printSummary(summary compose.Summary) {
	a.printer.Plain("")
	a.printer.Info("Summary (%s): %d succeeded, %d failed", summary.Action, summary.Succeeded, summary.Failed)
	for _, res := range summary.Results {
		switch {
		case res.Outcome == compose.Succeeded && res.Remedy != compose.RemedyNone:
			a.printer.Success("%s (via %s)", res.Stack.Name, res.Remedy)
		case res.Outcome == compose.Succeeded:
			a.printer.Success("%s", res.Stack.Name)
		default:
			a.printer.Error("%s: %s: %v", res.Stack.Name, res.Outcome, res.Err)
		}
	}
}
