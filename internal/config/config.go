// Package config provides configuration management for the stack-installer CLI.
//
// It implements the disciplined Viper pattern where Viper stays contained
// in this package and the rest of the codebase receives an explicit Config struct.
// Configuration sources are resolved in this order: flags > env > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/blackwell-systems/stack-installer/internal/logging"
)

// Config is the explicit configuration struct.
// It is built once per run and never mutated afterwards.
type Config struct {
	AutoAll   bool
	AssumeYes bool
	DryRun    bool

	StacksDir    string
	ReadyTimeout time.Duration
	PollInterval time.Duration

	// ComposeCommand, when set, replaces compose auto-detection (e.g. "podman-compose").
	ComposeCommand string
	EngineGroup    string

	LogLevel   string
	ReportFile string
}

// Init initializes viper with defaults and config file paths
func Init() error {
	// Set config file name and type
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Add config file search paths
	viper.AddConfigPath("$HOME/.stack-installer")
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("all", false)
	viper.SetDefault("yes", false)
	viper.SetDefault("dry-run", false)
	viper.SetDefault("stacks-dir", "")
	viper.SetDefault("timeout", 180*time.Second)
	viper.SetDefault("poll-interval", 2*time.Second)
	viper.SetDefault("compose-command", "")
	viper.SetDefault("group", "docker")
	viper.SetDefault("log-level", "warn")
	viper.SetDefault("report", "")

	// Bind environment variables with prefix
	viper.SetEnvPrefix("STACK_INSTALLER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return nil
}

// Load reads from all sources and returns explicit Config
func Load() (*Config, error) {
	stacksDir, err := resolveStacksDir(viper.GetString("stacks-dir"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AutoAll:        viper.GetBool("all"),
		AssumeYes:      viper.GetBool("yes"),
		DryRun:         viper.GetBool("dry-run"),
		StacksDir:      stacksDir,
		ReadyTimeout:   viper.GetDuration("timeout"),
		PollInterval:   viper.GetDuration("poll-interval"),
		ComposeCommand: viper.GetString("compose-command"),
		EngineGroup:    viper.GetString("group"),
		LogLevel:       viper.GetString("log-level"),
		ReportFile:     viper.GetString("report"),
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures config is sane
func (c *Config) Validate() error {
	if c.StacksDir == "" {
		return fmt.Errorf("stacks-dir must not be empty")
	}

	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("invalid timeout: %s (must be positive)", c.ReadyTimeout)
	}

	if c.PollInterval <= 0 || c.PollInterval > c.ReadyTimeout {
		return fmt.Errorf("invalid poll-interval: %s (must be positive and at most the timeout)", c.PollInterval)
	}

	if c.EngineGroup == "" {
		return fmt.Errorf("group must not be empty")
	}

	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log-level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if _, err := c.ComposeOverride(); err != nil {
		return err
	}

	return nil
}

// ComposeOverride splits ComposeCommand into argv words. Nil means auto-detect.
func (c *Config) ComposeOverride() ([]string, error) {
	if strings.TrimSpace(c.ComposeCommand) == "" {
		return nil, nil
	}
	words, err := shellwords.Parse(c.ComposeCommand)
	if err != nil {
		return nil, fmt.Errorf("invalid compose-command %q: %w", c.ComposeCommand, err)
	}
	if len(words) == 0 {
		return nil, nil
	}
	return words, nil
}

// DefaultStacksDir is the "stacks" directory next to the running executable.
func DefaultStacksDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "stacks"), nil
}

func resolveStacksDir(raw string) (string, error) {
	if raw == "" {
		return DefaultStacksDir()
	}
	expanded, err := homedir.Expand(raw)
	if err != nil {
		return "", fmt.Errorf("invalid stacks-dir %q: %w", raw, err)
	}
	return filepath.Abs(expanded)
}

// Display shows current config (for stack-installer config)
func Display() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = "(not found)"
	}

	compose := cfg.ComposeCommand
	if compose == "" {
		compose = "(auto: docker compose, then docker-compose)"
	}
	report := cfg.ReportFile
	if report == "" {
		report = "(none)"
	}

	return fmt.Sprintf(`Configuration:
  stacks-dir:         %s
  all:                %t
  yes:                %t
  dry-run:            %t
  compose-command:    %s
  group:              %s
  log-level:          %s
  report:             %s

Engine readiness:
  timeout:            %s
  poll-interval:      %s

Sources:
  Config file:        %s
  Environment:        STACK_INSTALLER_*
  Flags:              (per command)
`,
		cfg.StacksDir,
		cfg.AutoAll,
		cfg.AssumeYes,
		cfg.DryRun,
		compose,
		cfg.EngineGroup,
		cfg.LogLevel,
		report,
		cfg.ReadyTimeout,
		cfg.PollInterval,
		configFile,
	), nil
}
