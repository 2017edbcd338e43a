package cli

import (
	"os/exec"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/stack-installer/internal/config"
	"github.com/blackwell-systems/stack-installer/internal/console"
	"github.com/blackwell-systems/stack-installer/internal/engine"
	"github.com/blackwell-systems/stack-installer/internal/execx"
	"github.com/blackwell-systems/stack-installer/internal/logging"
)

// Seams replaced in tests.
var (
	newRunner = func(log *zap.Logger) execx.Runner { return execx.NewOSRunner(log) }
	newProber = func(runner execx.Runner) engine.StatusSource { return engine.NewProber(runner) }

	detectPlatform = engine.DetectPlatform
	lookPath       = exec.LookPath
)

// app holds the collaborators shared by every command for one invocation.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	printer  *console.Printer
	prompter *console.Prompter
	runner   execx.Runner
	prober   engine.StatusSource
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	printer := console.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	log, err := logging.New(cfg.LogLevel, printer.Err())
	if err != nil {
		return nil, err
	}

	runner := newRunner(log)
	if cfg.DryRun {
		runner = execx.NewDryRunner(runner, cmd.OutOrStdout())
	}

	return &app{
		cfg:      cfg,
		log:      log,
		printer:  printer,
		prompter: console.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.AssumeYes),
		runner:   runner,
		prober:   newProber(runner),
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}
