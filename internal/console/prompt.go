package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Prompter reads operator answers from a single buffered input.
// Selection and confirmation share it so buffered input is never lost.
type Prompter struct {
	raw       io.Reader
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

// NewPrompter returns a Prompter reading from in and writing questions to out.
// With assumeYes every confirmation is answered yes without reading input.
func NewPrompter(in io.Reader, out io.Writer, assumeYes bool) *Prompter {
	return &Prompter{raw: in, in: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

// Interactive reports whether input comes from a terminal.
// Readers that are not files, such as test buffers, count as interactive.
func (p *Prompter) Interactive() bool {
	f, ok := p.raw.(*os.File)
	if !ok {
		return true
	}
	return term.IsTerminal(int(f.Fd()))
}

// ReadLine prints prompt and returns one trimmed line. EOF with no data yields io.EOF.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks question and returns true only for an explicit yes.
// Without a terminal and without assumeYes the answer is no.
func (p *Prompter) Confirm(question string) (bool, error) {
	if p.assumeYes {
		fmt.Fprintf(p.out, "%s [y/N] y (--yes)\n", question)
		return true, nil
	}
	if !p.Interactive() {
		fmt.Fprintf(p.out, "%s [y/N] n (no terminal; pass --yes to confirm)\n", question)
		return false, nil
	}

	answer, err := p.ReadLine(question + " [y/N] ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// StaticConfirmer answers every question the same way. Useful in tests.
type StaticConfirmer struct {
	Answer    bool
	Questions []string
}

// Confirm records question and returns the fixed answer.
func (s *StaticConfirmer) Confirm(question string) (bool, error) {
	s.Questions = append(s.Questions, question)
	return s.Answer, nil
}
