package stacks

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrQuit indicates the operator asked to quit at the selection prompt.
// It is a neutral outcome, not a failure.
var ErrQuit = errors.New("quit requested")

// Selection is the ordered, de-duplicated set of stacks the operator chose.
type Selection struct {
	Stacks []Stack

	// Warnings describe tokens that were skipped.
	Warnings []string
}

// Empty reports whether nothing was selected.
func (s Selection) Empty() bool {
	return len(s.Stacks) == 0
}

// All returns a selection of every stack in listing order.
func All(stacks []Stack) Selection {
	return Selection{Stacks: append([]Stack(nil), stacks...)}
}

// ParseSelection turns an operator expression into a selection over stacks.
//
// The expression is a comma-separated list of 1-based indices and inclusive
// ranges ("2", "1-3", "4-2"). Any token "0", "a" or "all" selects everything.
// "q" quits with ErrQuit. Unusable tokens and out-of-range indices are skipped
// with a warning. Order follows first occurrence.
func ParseSelection(input string, stacks []Stack) (Selection, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "q" || trimmed == "Q" {
		return Selection{}, ErrQuit
	}
	if trimmed == "" {
		return Selection{}, nil
	}

	tokens := strings.Split(trimmed, ",")
	for _, tok := range tokens {
		if isAllToken(strings.TrimSpace(tok)) {
			return All(stacks), nil
		}
	}

	var sel Selection
	n := len(stacks)
	seen := make(map[int]bool, n)
	add := func(idx int) {
		if seen[idx] {
			return
		}
		seen[idx] = true
		sel.Stacks = append(sel.Stacks, stacks[idx-1])
	}

	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}

		if idx, ok := parseIndex(tok); ok {
			if idx < 1 || idx > n {
				sel.Warnings = append(sel.Warnings, fmt.Sprintf("%d is out of range (1-%d), skipped", idx, n))
				continue
			}
			add(idx)
			continue
		}

		if lo, hi, ok := parseRange(tok); ok {
			if lo > hi {
				lo, hi = hi, lo
			}
			if hi < 1 || lo > n {
				sel.Warnings = append(sel.Warnings, fmt.Sprintf("range %s is outside 1-%d, skipped", tok, n))
				continue
			}
			for idx := max(lo, 1); idx <= min(hi, n); idx++ {
				add(idx)
			}
			continue
		}

		sel.Warnings = append(sel.Warnings, fmt.Sprintf("%q is not a number or range, skipped", tok))
	}

	return sel, nil
}

func isAllToken(tok string) bool {
	switch strings.ToLower(tok) {
	case "0", "a", "all":
		return true
	}
	return false
}

func parseIndex(tok string) (int, bool) {
	if !isDigits(tok) {
		return 0, false
	}
	idx, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return idx, true
}

func parseRange(tok string) (int, int, bool) {
	left, right, found := strings.Cut(tok, "-")
	if !found {
		return 0, 0, false
	}
	lo, ok := parseIndex(strings.TrimSpace(left))
	if !ok {
		return 0, 0, false
	}
	hi, ok := parseIndex(strings.TrimSpace(right))
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// WriteMenu prints the numbered stack list shown before the selection prompt.
func WriteMenu(w io.Writer, stacks []Stack) {
	width := len(strconv.Itoa(len(stacks)))
	for i, s := range stacks {
		note := ""
		if !s.HasDescriptor() {
			note = "  (no docker-compose.yml)"
		}
		fmt.Fprintf(w, "  %*d) %s%s\n", width, i+1, s.Name, note)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Enter numbers (e.g. 1,3-5), 0 or 'all' for everything, 'q' to quit.")
}

// LineReader reads one line of operator input after showing prompt.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// PromptSelection shows the menu on w, reads one line and parses it.
// End of input with nothing typed is an empty selection.
func PromptSelection(lines LineReader, w io.Writer, stacks []Stack) (Selection, error) {
	WriteMenu(w, stacks)
	line, err := lines.ReadLine("Selection: ")
	if err != nil && !errors.Is(err, io.EOF) {
		return Selection{}, fmt.Errorf("failed to read selection: %w", err)
	}
	return ParseSelection(line, stacks)
}
