package cli

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/stack-installer/internal/compose"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop selected stacks",
	Long: `Select stacks the same way as the root command and run 'compose down'
on each. The engine is probed but never installed or started.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStacks(cmd, compose.ActionDown)
	},
}
