// Package cli wires the stack-installer commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/blackwell-systems/stack-installer/internal/compose"
)

// ExitError carries a process exit status out of a command.
// An empty message means the command already reported the problem.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an Execute error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func usageError(err error) error {
	return &ExitError{Code: 2, Err: err}
}

var rootCmd = &cobra.Command{
	Use:   "stack-installer",
	Short: "Install Docker if needed and bring up compose stacks",
	Long: `Make sure a working Docker engine is present (installing it on macOS via
Homebrew or on Debian/Ubuntu via apt if needed), then let the operator pick
stacks from the stacks directory and run 'docker compose up -d' on each.

Each stack is a sub-directory containing docker-compose.yml or
docker-compose.yaml. By default the stacks directory is 'stacks/' next to the
executable.`,
	Example: `  stack-installer
  stack-installer --all --yes
  stack-installer --dry-run --stacks-dir ~/deploy/stacks`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return usageError(fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath()))
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStacks(cmd, compose.ActionUp)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("all", "a", false, "Select every stack without prompting")
	flags.BoolP("yes", "y", false, "Answer yes to every confirmation")
	flags.BoolP("dry-run", "n", false, "Print mutating commands instead of running them")
	flags.String("stacks-dir", "", "Directory containing one sub-directory per stack (default: stacks/ next to the executable)")
	flags.Duration("timeout", 0, "How long to wait for the engine after install or start (default 3m0s)")
	flags.String("report", "", "Write a run report to this file (.yaml or .json)")
	flags.String("log-level", "", "Debug log level: debug, info, warn, error (default warn)")

	bindFlags(flags)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// bindFlags binds the persistent flags to viper keys of the same name.
func bindFlags(flags *pflag.FlagSet) {
	for _, name := range []string{"all", "yes", "dry-run", "stacks-dir", "timeout", "report", "log-level"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute(version string) error {
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}
