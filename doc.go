// Package stackinstaller brings a host from "nothing installed" to "selected
// compose stacks running".
//
// # Overview
//
// The stack-installer CLI:
//   - Probes the Docker engine and installs or starts it when needed
//     (Homebrew cask on macOS, Docker's apt repository on Debian and Ubuntu)
//   - Lists stacks: sub-directories of the stacks directory holding a
//     docker-compose.yml or docker-compose.yaml
//   - Lets the operator pick stacks with expressions like "1,3-5", "all" or "q"
//   - Runs compose up -d for each selected stack, retrying permission failures
//     with the docker group activated and then, after confirmation, with sudo
//
// # Installation
//
//	go install github.com/blackwell-systems/stack-installer/cmd/stack-installer@latest
//
// # Quick Start
//
//	stack-installer
//	stack-installer --all --yes
//	stack-installer --dry-run
//	stack-installer status
//	stack-installer down --all
//
// # Configuration
//
// Settings resolve as flags, then STACK_INSTALLER_* environment variables, then
// $HOME/.stack-installer/config.yaml or ./config.yaml, then defaults. Run
// "stack-installer config" to see the effective values.
//
// # Exit codes
//
//	0  success, quit at the prompt, or nothing selected
//	1  fatal error or at least one stack failed
//	2  usage error
package stackinstaller
