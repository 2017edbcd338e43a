package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/stack-installer/internal/engine"
	"github.com/blackwell-systems/stack-installer/internal/stacks"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine status and discovered stacks",
	Long:  `Probe the Docker engine and list the stacks found in the stacks directory.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		status := a.prober.Probe(cmd.Context())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Engine:  %s\n", engineStatusText(status))
		fmt.Fprintf(out, "Stacks:  %s\n\n", a.cfg.StacksDir)

		list, err := stacks.List(a.cfg.StacksDir)
		if errors.Is(err, stacks.ErrNoStacks) {
			a.printer.Warn("no stacks found")
			return nil
		}
		if err != nil {
			return err
		}

		a.printer.Info("Stack                Descriptor")
		a.printer.Info("────────────────────────────────────────")
		for _, s := range list {
			printStackStatus(out, s)
		}
		return nil
	},
}

func engineStatusText(status engine.Status) string {
	var text string
	switch status.State {
	case engine.StateReady:
		text = color.GreenString("✓ READY")
	case engine.StatePermissionDenied:
		text = color.YellowString("⚠ PERMISSION DENIED")
	case engine.StateMissing:
		text = color.RedString("✗ NOT INSTALLED")
	case engine.StateUnreachable:
		text = color.RedString("✗ UNREACHABLE")
	default:
		text = color.RedString("✗ UNKNOWN")
	}
	if status.Reason != "" && status.State != engine.StateReady {
		text += " (" + status.Reason + ")"
	}
	return text
}

func printStackStatus(w io.Writer, s stacks.Stack) {
	descriptor := color.RedString("✗ missing")
	if s.HasDescriptor() {
		descriptor = color.GreenString("✓ %s", filepath.Base(s.Descriptor))
	}
	fmt.Fprintf(w, "%-20s %s\n", s.Name, descriptor)
}
