package main

import (
	"fmt"
	"os"

	"github.com/blackwell-systems/stack-installer/internal/cli"
	"github.com/blackwell-systems/stack-installer/internal/config"
	"github.com/blackwell-systems/stack-installer/internal/console"
)

var version = "dev"

func main() {
	// Initialize configuration
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}

	// Execute root command
	if err := cli.Execute(version); err != nil {
		if msg := err.Error(); msg != "" {
			console.Stdio().Error("%s", msg)
		}
		code := cli.ExitCode(err)
		if code == 2 {
			fmt.Fprintln(os.Stderr, "Run 'stack-installer --help' for usage.")
		}
		os.Exit(code)
	}
}
