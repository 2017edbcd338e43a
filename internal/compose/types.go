package compose

import (
	"errors"

	"github.com/blackwell-systems/stack-installer/internal/stacks"
)

var (
	// ErrDescriptorMissing indicates the stack has no compose descriptor.
	ErrDescriptorMissing = errors.New("no compose descriptor")

	// ErrComposeUnavailable indicates neither compose form could be resolved.
	ErrComposeUnavailable = errors.New("compose is not available")

	// ErrPermissionDenied indicates the engine refused access and every remedy failed.
	ErrPermissionDenied = errors.New("permission denied talking to the engine")

	// ErrCommandFailed indicates compose exited non-zero for another reason.
	ErrCommandFailed = errors.New("compose command failed")
)

// Action is the compose operation applied to each stack.
type Action int

const (
	// ActionUp brings services up in the background.
	ActionUp Action = iota
	// ActionDown stops and removes services.
	ActionDown
)

// Args returns the compose sub-command arguments.
func (a Action) Args() []string {
	if a == ActionDown {
		return []string{"down"}
	}
	return []string{"up", "-d"}
}

func (a Action) String() string {
	if a == ActionDown {
		return "down"
	}
	return "up"
}

// Outcome is the per-stack result class.
type Outcome int

const (
	Succeeded Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Remedy records which permission workaround made a command succeed.
type Remedy int

const (
	RemedyNone Remedy = iota
	RemedyGroup
	RemedySudo
)

func (r Remedy) String() string {
	switch r {
	case RemedyGroup:
		return "group"
	case RemedySudo:
		return "sudo"
	default:
		return "none"
	}
}

// Result is the outcome for one stack.
type Result struct {
	Stack   stacks.Stack
	Outcome Outcome
	Remedy  Remedy

	// Command is the rendered compose invocation, empty if none was built.
	Command string

	// Output is the captured output of the first attempt.
	Output string

	Err error
}

// Counted reports whether the result counts toward the failure total.
// Skips count: a selected stack that could not be started is a failure.
func (r Result) Counted() bool {
	return r.Outcome != Succeeded
}

// Summary aggregates a batch.
type Summary struct {
	Action    Action
	Results   []Result
	Succeeded int
	Failed    int
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	if r.Counted() {
		s.Failed++
	} else {
		s.Succeeded++
	}
}

// ExitCode is 0 when no stack failed and 1 otherwise.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}
