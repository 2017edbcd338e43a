package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
)

// OSReleasePath is where Linux distributions describe themselves.
const OSReleasePath = "/etc/os-release"

// Platform describes the host operating system as far as installation is concerned.
type Platform struct {
	// Family is runtime.GOOS: "darwin", "linux", or anything else.
	Family string

	// ID, IDLike and Codename come from /etc/os-release on Linux.
	ID       string
	IDLike   []string
	Codename string

	// APT is true when apt-get is on PATH.
	APT bool
}

// IsMac reports whether the host is macOS.
func (p Platform) IsMac() bool { return p.Family == "darwin" }

// IsLinux reports whether the host is Linux.
func (p Platform) IsLinux() bool { return p.Family == "linux" }

// Distro returns the Docker repository flavor for the host: "debian" or "ubuntu".
// Derivatives resolve through ID_LIKE; anything unrecognized falls back to ubuntu.
func (p Platform) Distro() string {
	if p.ID == "ubuntu" || p.ID == "debian" {
		return p.ID
	}
	for _, like := range p.IDLike {
		if like == "ubuntu" {
			return "ubuntu"
		}
	}
	for _, like := range p.IDLike {
		if like == "debian" {
			return "debian"
		}
	}
	return "ubuntu"
}

func (p Platform) String() string {
	if p.ID == "" {
		return p.Family
	}
	if p.Codename == "" {
		return fmt.Sprintf("%s (%s)", p.Family, p.ID)
	}
	return fmt.Sprintf("%s (%s %s)", p.Family, p.ID, p.Codename)
}

// DetectPlatform inspects the running host.
func DetectPlatform() (Platform, error) {
	return detectPlatform(runtime.GOOS, OSReleasePath, exec.LookPath)
}

func detectPlatform(goos, osRelease string, lookPath LookPathFunc) (Platform, error) {
	p := Platform{Family: goos}
	if goos != "linux" {
		return p, nil
	}

	if _, err := lookPath("apt-get"); err == nil {
		p.APT = true
	}

	fields, err := godotenv.Read(osRelease)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("failed to read %s: %w", osRelease, err)
	}

	p.ID = strings.ToLower(fields["ID"])
	p.IDLike = strings.Fields(strings.ToLower(fields["ID_LIKE"]))
	// Ubuntu derivatives carry their own VERSION_CODENAME; the upstream one is what the repository knows.
	p.Codename = fields["UBUNTU_CODENAME"]
	if p.Codename == "" {
		p.Codename = fields["VERSION_CODENAME"]
	}
	return p, nil
}
