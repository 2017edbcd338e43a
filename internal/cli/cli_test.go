package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/blackwell-systems/stack-installer/internal/config"
	"github.com/blackwell-systems/stack-installer/internal/engine"
	"github.com/blackwell-systems/stack-installer/internal/execx"
	"github.com/blackwell-systems/stack-installer/internal/install"
	"github.com/blackwell-systems/stack-installer/internal/report"
	"github.com/blackwell-systems/stack-installer/internal/stacks"
)

type fakeProber struct {
	status engine.Status
	probes int
}

func (f *fakeProber) Probe(ctx context.Context) engine.Status {
	f.probes++
	return f.status
}

type harness struct {
	runner *execx.FakeRunner
	prober *fakeProber
	dir    string
}

// newHarness swaps every seam for a fake and creates alpha and beta stacks,
// both with descriptors, plus any extra names without one.
func newHarness(t *testing.T, bare ...string) *harness {
	t.Helper()
	h := &harness{
		runner: execx.NewFakeRunner(),
		prober: &fakeProber{status: engine.Status{State: engine.StateReady}},
		dir:    t.TempDir(),
	}

	for _, name := range []string{"alpha", "beta"} {
		if err := os.MkdirAll(filepath.Join(h.dir, name), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(h.dir, name, "docker-compose.yml"), []byte("services: {}\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range bare {
		if err := os.MkdirAll(filepath.Join(h.dir, name), 0755); err != nil {
			t.Fatal(err)
		}
	}

	origRunner, origProber, origDetect, origLook := newRunner, newProber, detectPlatform, lookPath
	t.Cleanup(func() {
		newRunner, newProber, detectPlatform, lookPath = origRunner, origProber, origDetect, origLook
	})
	newRunner = func(*zap.Logger) execx.Runner { return h.runner }
	newProber = func(execx.Runner) engine.StatusSource { return h.prober }
	detectPlatform = func() (engine.Platform, error) { return engine.Platform{Family: "plan9"}, nil }
	lookPath = func(name string) (string, error) {
		if name == "docker" {
			return "/usr/bin/docker", nil
		}
		return "", errors.New("not found")
	}
	return h
}

func resetFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// execute runs the root command in a clean viper and flag state.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	testChdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	if err := config.Init(); err != nil {
		t.Fatalf("config.Init() error = %v", err)
	}

	resetFlags(rootCmd.PersistentFlags())
	resetFlags(rootCmd.Flags())
	for _, c := range rootCmd.Commands() {
		resetFlags(c.Flags())
	}
	bindFlags(rootCmd.PersistentFlags())

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestHelp(t *testing.T) {
	newHarness(t)
	stdout, _, err := execute(t, "", "--help")
	if err != nil {
		t.Fatalf("--help error = %v", err)
	}
	for _, want := range []string{"--all", "--yes", "--dry-run", "--stacks-dir", "status", "down"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"--bogus"}},
		{name: "unknown shorthand", args: []string{"-z"}},
		{name: "unknown command", args: []string{"deploy"}},
		{name: "bad flag value", args: []string{"--timeout", "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, _, err := execute(t, "", tt.args...)
			if code := ExitCode(err); code != 2 {
				t.Errorf("ExitCode(%v) = %d, want 2", err, code)
			}
			if len(h.runner.Calls()) != 0 {
				t.Errorf("no commands should run, got %v", h.runner.Lines())
			}
		})
	}
}

func TestConfigErrorsAreFatal(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "timeout from environment", env: map[string]string{"STACK_INSTALLER_TIMEOUT": "soon"}},
		{name: "log level from environment", env: map[string]string{"STACK_INSTALLER_LOG_LEVEL": "chatty"}},
		{name: "log level from flag", args: []string{"--log-level", "chatty"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, _, err := execute(t, "", append([]string{"--all", "--stacks-dir", h.dir}, tt.args...)...)
			if err == nil {
				t.Fatal("expected a configuration error")
			}
			if code := ExitCode(err); code != 1 {
				t.Errorf("ExitCode(%v) = %d, want 1", err, code)
			}
			if len(h.runner.Calls()) != 0 {
				t.Errorf("no commands should run, got %v", h.runner.Lines())
			}
		})
	}
}

func TestUp_AllDryRun(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := execute(t, "", "--all", "--dry-run", "--stacks-dir", h.dir)
	if err != nil {
		t.Fatalf("error = %v", err)
	}

	if got := strings.Count(stdout, "[dry-run] (cd "); got != 2 {
		t.Errorf("dry-run lines = %d, want 2:\n%s", got, stdout)
	}
	if !strings.Contains(stdout, "docker-compose.yml up -d") {
		t.Errorf("missing up command:\n%s", stdout)
	}
	// Only the read-only compose version check reaches the runner.
	if lines := h.runner.Lines(); len(lines) != 1 || lines[0] != "docker compose version" {
		t.Errorf("runner calls = %v", lines)
	}
}

func TestUp_InteractiveSelection(t *testing.T) {
	tests := []struct {
		name      string
		stdin     string
		wantAlpha bool
		wantBeta  bool
		wantOut   string
	}{
		{name: "second only", stdin: "2\n", wantBeta: true, wantOut: "1 succeeded, 0 failed"},
		{name: "reverse range", stdin: "2-1\n", wantAlpha: true, wantBeta: true, wantOut: "2 succeeded"},
		{name: "all keyword", stdin: "all\n", wantAlpha: true, wantBeta: true},
		{name: "quit", stdin: "q\n", wantOut: "Quit"},
		{name: "empty line", stdin: "\n", wantOut: "No stacks selected"},
		{name: "no input", stdin: "", wantOut: "No stacks selected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			stdout, _, err := execute(t, tt.stdin, "--stacks-dir", h.dir)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if !strings.Contains(stdout, "1) alpha") {
				t.Errorf("menu not shown:\n%s", stdout)
			}
			if got := h.runner.Ran("docker compose -f " + filepath.Join(h.dir, "alpha")); got != tt.wantAlpha {
				t.Errorf("alpha ran = %v, want %v", got, tt.wantAlpha)
			}
			if got := h.runner.Ran("docker compose -f " + filepath.Join(h.dir, "beta")); got != tt.wantBeta {
				t.Errorf("beta ran = %v, want %v", got, tt.wantBeta)
			}
			if tt.wantOut != "" && !strings.Contains(stdout, tt.wantOut) {
				t.Errorf("stdout missing %q:\n%s", tt.wantOut, stdout)
			}
		})
	}
}

func TestUp_SelectionWarnings(t *testing.T) {
	h := newHarness(t)
	_, stderr, err := execute(t, "1,9,x\n", "--stacks-dir", h.dir)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if strings.Count(stderr, "⚠") < 2 {
		t.Errorf("expected warnings for 9 and x:\n%s", stderr)
	}
}

func TestUp_FailuresSetExitCode(t *testing.T) {
	h := newHarness(t, "gamma")
	h.runner.On("docker compose -f "+filepath.Join(h.dir, "beta"), "pull access denied for nope", 1)

	stdout, stderr, err := execute(t, "", "--all", "--stacks-dir", h.dir)
	if code := ExitCode(err); code != 1 {
		t.Fatalf("ExitCode = %d, want 1 (err %v)", code, err)
	}
	if !strings.Contains(err.Error(), "2 of 3 stacks failed") {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(stdout, "1 succeeded, 2 failed") {
		t.Errorf("summary missing:\n%s", stdout)
	}
	if !strings.Contains(stderr, "pull access denied") || !strings.Contains(stderr, "gamma: skipped") {
		t.Errorf("stderr missing failure details:\n%s", stderr)
	}
}

func TestUp_Report(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "out", "run.json")

	if _, _, err := execute(t, "", "--all", "--stacks-dir", h.dir, "--report", path); err != nil {
		t.Fatalf("error = %v", err)
	}
	r, err := report.Load(path)
	if err != nil {
		t.Fatalf("report.Load() error = %v", err)
	}
	if r.Action != "up" || r.Succeeded != 2 || len(r.Stacks) != 2 {
		t.Errorf("report = %+v", r)
	}
}

func TestUp_EngineUnavailable(t *testing.T) {
	h := newHarness(t)
	h.prober.status = engine.Status{State: engine.StateMissing, Reason: "docker CLI not found in PATH"}

	_, stderr, err := execute(t, "", "--all", "--stacks-dir", h.dir)
	if !errors.Is(err, install.ErrUnsupportedPlatform) {
		t.Fatalf("error = %v, want ErrUnsupportedPlatform", err)
	}
	if ExitCode(err) != 1 {
		t.Errorf("ExitCode = %d, want 1", ExitCode(err))
	}
	if !strings.Contains(stderr, "not installed") && !strings.Contains(stderr, "docker CLI not found") {
		t.Errorf("stderr missing engine warning:\n%s", stderr)
	}
	if h.runner.Ran("docker compose -f") {
		t.Error("no stack should run without an engine")
	}
}

func TestUp_PermissionDeniedContinues(t *testing.T) {
	h := newHarness(t)
	h.prober.status = engine.Status{State: engine.StatePermissionDenied, Reason: "permission denied"}

	if _, _, err := execute(t, "", "--all", "--stacks-dir", h.dir); err != nil {
		t.Fatalf("error = %v", err)
	}
	if !h.runner.Ran("docker compose -f") {
		t.Error("stacks should still be dispatched")
	}
}

func TestUp_StacksDirErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		newHarness(t)
		_, _, err := execute(t, "", "--all", "--stacks-dir", filepath.Join(t.TempDir(), "absent"))
		if !errors.Is(err, stacks.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
	t.Run("empty", func(t *testing.T) {
		newHarness(t)
		_, _, err := execute(t, "", "--all", "--stacks-dir", t.TempDir())
		if !errors.Is(err, stacks.ErrNoStacks) {
			t.Errorf("error = %v, want ErrNoStacks", err)
		}
	})
}

func TestUp_EnvironmentConfig(t *testing.T) {
	h := newHarness(t)
	t.Setenv("STACK_INSTALLER_STACKS_DIR", h.dir)
	t.Setenv("STACK_INSTALLER_ALL", "true")
	t.Setenv("STACK_INSTALLER_COMPOSE_COMMAND", "podman-compose")
	lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }

	if _, _, err := execute(t, ""); err != nil {
		t.Fatalf("error = %v", err)
	}
	if !h.runner.Ran("podman-compose -f " + filepath.Join(h.dir, "alpha")) {
		t.Errorf("override not used: %v", h.runner.Lines())
	}
}

func TestDown(t *testing.T) {
	h := newHarness(t)
	h.prober.status = engine.Status{State: engine.StateUnreachable, Reason: "connection refused"}

	if _, _, err := execute(t, "", "down", "--all", "--stacks-dir", h.dir); err != nil {
		t.Fatalf("error = %v", err)
	}
	want := "docker compose -f " + filepath.Join(h.dir, "alpha", "docker-compose.yml") + " down"
	if !h.runner.Ran(want) {
		t.Errorf("runner calls = %v, want %q", h.runner.Lines(), want)
	}
	if h.runner.Ran("sudo") || h.runner.Ran("brew") {
		t.Error("down must not install or start the engine")
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t, "gamma")
	stdout, _, err := execute(t, "", "status", "--stacks-dir", h.dir)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	for _, want := range []string{"READY", "alpha", "docker-compose.yml", "gamma", "missing"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("status missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfigCommand(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := execute(t, "", "config", "--stacks-dir", h.dir, "--yes")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(stdout, h.dir) || !strings.Contains(stdout, "yes:                true") {
		t.Errorf("config output:\n%s", stdout)
	}
}

func TestVersion(t *testing.T) {
	newHarness(t)
	rootCmd.Version = "1.2.3"
	t.Cleanup(func() { rootCmd.Version = "" })

	stdout, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(stdout, "stack-installer version 1.2.3") {
		t.Errorf("version output = %q", stdout)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain", err: errors.New("boom"), want: 1},
		{name: "usage", err: usageError(errors.New("bad flag")), want: 2},
		{name: "wrapped", err: errors.Join(errors.New("ctx"), &ExitError{Code: 1}), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

// testChdir changes the working directory for the duration of the test and
// restores it on cleanup, mirroring testing.T.Chdir from newer Go releases.
func testChdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q) error = %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("Chdir(%q) error = %v", prev, err)
		}
	})
}
