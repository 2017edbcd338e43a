package compose

import (
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultSocket is the engine socket used when DOCKER_HOST does not name one.
const DefaultSocket = "/var/run/docker.sock"

// SocketPath returns the unix socket the engine CLI talks to.
func SocketPath() string {
	host := os.Getenv("DOCKER_HOST")
	if path, ok := strings.CutPrefix(host, "unix://"); ok && path != "" {
		return path
	}
	return DefaultSocket
}

// SocketDiagnostics describes socket ownership and the current user's group membership.
func SocketDiagnostics(group string) []string {
	path := SocketPath()

	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return []string{fmt.Sprintf("socket %s: %v", path, err)}
	}

	owner := strconv.FormatUint(uint64(st.Uid), 10)
	if u, err := user.LookupId(owner); err == nil {
		owner = u.Username
	}
	gid := strconv.FormatUint(uint64(st.Gid), 10)
	groupName := gid
	if g, err := user.LookupGroupId(gid); err == nil {
		groupName = g.Name
	}
	mode := fs.FileMode(uint32(st.Mode) & 0o777)

	lines := []string{fmt.Sprintf("socket %s: owner %s:%s mode %s", path, owner, groupName, mode)}

	current, err := user.Current()
	if err != nil {
		return lines
	}
	member := false
	if ids, err := current.GroupIds(); err == nil {
		for _, id := range ids {
			if id == gid {
				member = true
				break
			}
		}
	}
	if member {
		lines = append(lines, fmt.Sprintf("user %s is in group %s", current.Username, groupName))
	} else {
		lines = append(lines, fmt.Sprintf("user %s is not in group %s for this session; new logins pick up membership added with usermod -aG %s", current.Username, groupName, group))
	}
	return lines
}
