package execx

import "strings"

// FailureClass buckets a failed command by its diagnostic text.
type FailureClass int

const (
	FailureOther FailureClass = iota
	FailurePermission
)

func (c FailureClass) String() string {
	if c == FailurePermission {
		return "permission"
	}
	return "other"
}

// Classify inspects command output for the engine's permission-denied marker.
// This text match is the only place the heuristic lives.
func Classify(output string) FailureClass {
	if strings.Contains(strings.ToLower(output), "permission denied") {
		return FailurePermission
	}
	return FailureOther
}
