package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/docker/docker/client"

	"github.com/blackwell-systems/stack-installer/internal/execx"
)

// Binary is the engine CLI looked up on PATH.
const Binary = "docker"

const pingTimeout = 5 * time.Second

// Pinger performs the lightweight daemon status query.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LookPathFunc resolves a binary on PATH.
type LookPathFunc func(name string) (string, error)

// contextHostFormat extracts the engine endpoint of the CLI's current context.
const contextHostFormat = "{{.Endpoints.docker.Host}}"

// APIPinger pings the daemon through the Docker Engine API at the endpoint
// the docker CLI would use: DOCKER_HOST when set, otherwise the current
// context (DOCKER_CONTEXT or the one selected in ~/.docker/config.json).
type APIPinger struct {
	runner execx.Runner
	getenv func(string) string
}

// NewAPIPinger returns an APIPinger that asks the CLI for its context through runner.
func NewAPIPinger(runner execx.Runner) *APIPinger {
	return &APIPinger{runner: runner, getenv: os.Getenv}
}

// Host returns the endpoint of the CLI's current context.
// Empty means the client defaults apply.
func (p *APIPinger) Host(ctx context.Context) string {
	if p.getenv("DOCKER_HOST") != "" || p.runner == nil {
		return ""
	}
	res, err := p.runner.Run(ctx, execx.New(Binary, "context", "inspect", "--format", contextHostFormat))
	if err != nil {
		return ""
	}
	host := strings.TrimSpace(res.Output)
	if host == "<no value>" {
		return ""
	}
	return host
}

// Ping opens a client, negotiates the API version and pings the daemon.
func (p *APIPinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	host := p.Host(ctx)
	if strings.HasPrefix(host, "ssh://") {
		return p.serverVersion(ctx)
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return fmt.Errorf("failed to create docker client: %w", err)
	}
	defer cli.Close()

	if _, err := cli.Ping(ctx); err != nil {
		return err
	}
	return nil
}

// serverVersion asks the CLI itself for the server version. Used for ssh
// contexts, which the API client cannot dial.
func (p *APIPinger) serverVersion(ctx context.Context) error {
	res, err := p.runner.Run(ctx, execx.New(Binary, "version", "--format", "{{.Server.Version}}"))
	if err == nil {
		return nil
	}
	if out := strings.TrimSpace(res.Output); out != "" {
		return errors.New(out)
	}
	return err
}

// Prober checks whether the engine is installed and reachable.
type Prober struct {
	lookPath LookPathFunc
	pinger   Pinger
}

// NewProber returns a Prober using the real PATH and the Engine API endpoint
// that the docker CLI resolves through runner.
func NewProber(runner execx.Runner) *Prober {
	return NewProberWith(exec.LookPath, NewAPIPinger(runner))
}

// NewProberWith returns a Prober with injected dependencies.
func NewProberWith(lookPath LookPathFunc, pinger Pinger) *Prober {
	return &Prober{lookPath: lookPath, pinger: pinger}
}

// Probe reports the engine state. It never mutates anything.
func (p *Prober) Probe(ctx context.Context) Status {
	if _, err := p.lookPath(Binary); err != nil {
		return Status{State: StateMissing, Reason: fmt.Sprintf("%s not found in PATH", Binary)}
	}

	err := p.pinger.Ping(ctx)
	if err == nil {
		return Status{State: StateReady}
	}

	reason := strings.TrimSpace(err.Error())
	if errors.Is(err, context.Canceled) {
		return Status{State: StateUnknown, Reason: reason}
	}
	if execx.Classify(reason) == execx.FailurePermission {
		return Status{State: StatePermissionDenied, Reason: reason}
	}
	return Status{State: StateUnreachable, Reason: reason}
}
