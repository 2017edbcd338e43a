package install

import (
	"context"
	"fmt"
	"strings"

	"github.com/blackwell-systems/stack-installer/internal/engine"
	"github.com/blackwell-systems/stack-installer/internal/execx"
)

const (
	keyringDir  = "/etc/apt/keyrings"
	keyringPath = keyringDir + "/docker.asc"
	sourcesPath = "/etc/apt/sources.list.d/docker.list"
	repoBaseURL = "https://download.docker.com/linux/"
)

var prerequisitePackages = []string{"ca-certificates", "curl", "gnupg"}

var enginePackages = []string{
	"docker-ce",
	"docker-ce-cli",
	"containerd.io",
	"docker-buildx-plugin",
	"docker-compose-plugin",
}

type step struct {
	desc string
	cmd  execx.Command
}

// aptSteps builds the Docker Engine installation sequence for a Debian-family host.
func (i *Installer) aptSteps(ctx context.Context, platform engine.Platform) ([]step, error) {
	arch, err := i.dpkgArch(ctx)
	if err != nil {
		return nil, err
	}
	repo := repoBaseURL + platform.Distro()
	codename := platform.Codename
	if codename == "" {
		return nil, fmt.Errorf("%w: cannot determine release codename for %s", ErrUnsupportedPlatform, platform)
	}
	line := fmt.Sprintf("deb [arch=%s signed-by=%s] %s %s stable", arch, keyringPath, repo, codename)

	sudo := i.privileged
	return []step{
		{"Updating package index...", sudo(execx.Mutate("apt-get", "update"))},
		{"Installing prerequisites...", sudo(execx.Mutate("apt-get", append([]string{"install", "-y"}, prerequisitePackages...)...))},
		{"Creating keyring directory...", sudo(execx.Mutate("install", "-m", "0755", "-d", keyringDir))},
		{"Fetching Docker signing key...", sudo(execx.Mutate("curl", "-fsSL", repo+"/gpg", "-o", keyringPath))},
		{"Setting key permissions...", sudo(execx.Mutate("chmod", "a+r", keyringPath))},
		{"Registering Docker repository...", sudo(execx.Mutate("tee", sourcesPath).WithStdin(line + "\n"))},
		{"Updating package index...", sudo(execx.Mutate("apt-get", "update"))},
		{"Installing Docker Engine and compose plugin...", sudo(execx.Mutate("apt-get", append([]string{"install", "-y"}, enginePackages...)...))},
		{"Enabling docker.service...", sudo(execx.Mutate("systemctl", "enable", "--now", "docker"))},
	}, nil
}

func (i *Installer) dpkgArch(ctx context.Context) (string, error) {
	res, err := i.runner.Run(ctx, execx.New("dpkg", "--print-architecture"))
	if err != nil {
		return "", fmt.Errorf("failed to determine architecture: %w", err)
	}
	arch := strings.TrimSpace(res.Output)
	if arch == "" {
		return "", fmt.Errorf("failed to determine architecture: dpkg printed nothing")
	}
	return arch, nil
}

// addUserToGroup grants engine access to the invoking user. Membership only applies to
// new login sessions, so the current run may keep hitting permission errors.
func (i *Installer) addUserToGroup(ctx context.Context) {
	name := i.targetUser()
	if name == "" || name == "root" {
		return
	}
	i.printer.Step("Adding %s to the %s group...", name, i.opts.Group)
	if err := i.run(ctx, i.privileged(execx.Mutate("usermod", "-aG", i.opts.Group, name))); err != nil {
		i.printer.Warn("could not add %s to %s: %v", name, i.opts.Group, err)
		return
	}
	i.printer.Info("Group membership takes effect at your next login; this run will retry with the group activated if needed.")
}
