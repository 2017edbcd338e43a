// Package engine probes the container engine on the local machine.
//
// Probing is read-only: it looks for the engine CLI on PATH and pings the
// daemon through the Engine API. The resulting State decides whether the
// installer must act and which remediation path applies.
package engine

// State is the observed condition of the container engine.
type State int

const (
	StateUnknown State = iota
	// StateReady means the CLI is present and the daemon answered.
	StateReady
	// StateMissing means the engine CLI is not on PATH.
	StateMissing
	// StatePermissionDenied means the daemon exists but this user may not talk to it.
	StatePermissionDenied
	// StateUnreachable means the daemon did not answer for another reason, usually not started.
	StateUnreachable
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateMissing:
		return "missing"
	case StatePermissionDenied:
		return "permission denied"
	case StateUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Status is the result of a probe.
type Status struct {
	State  State
	Reason string
}

// Usable reports whether stacks can be started without installing anything.
func (s Status) Usable() bool {
	return s.State == StateReady
}

// Running reports whether a daemon appears to be up, even if this user lacks access.
func (s Status) Running() bool {
	return s.State == StateReady || s.State == StatePermissionDenied
}
