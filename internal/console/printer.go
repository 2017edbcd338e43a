// Package console renders operator-facing output.
//
// Progress goes to the out stream and errors to the err stream so the two can be
// redirected independently. fatih/color disables escape codes automatically when
// the process is not attached to a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

// Printer writes progress and diagnostics for a single run.
type Printer struct {
	out io.Writer
	err io.Writer
}

// New returns a Printer writing progress to out and errors to errOut.
func New(out, errOut io.Writer) *Printer {
	return &Printer{out: out, err: errOut}
}

// Stdio returns a Printer bound to the process stdout and stderr.
func Stdio() *Printer {
	return New(os.Stdout, os.Stderr)
}

// Out returns the progress stream.
func (p *Printer) Out() io.Writer { return p.out }

// Err returns the error stream.
func (p *Printer) Err() io.Writer { return p.err }

// Info prints a cyan progress line.
func (p *Printer) Info(format string, args ...interface{}) {
	_, _ = infoColor.Fprintf(p.out, format+"\n", args...)
}

// Step prints a "→" prefixed progress line.
func (p *Printer) Step(format string, args ...interface{}) {
	_, _ = infoColor.Fprintf(p.out, "→ "+format+"\n", args...)
}

// Success prints a green line with a checkmark.
func (p *Printer) Success(format string, args ...interface{}) {
	_, _ = successColor.Fprintf(p.out, "✓ "+format+"\n", args...)
}

// Warn prints a yellow warning line to the error stream.
func (p *Printer) Warn(format string, args ...interface{}) {
	_, _ = warningColor.Fprintf(p.err, "⚠ "+format+"\n", args...)
}

// Error prints a red line to the error stream.
func (p *Printer) Error(format string, args ...interface{}) {
	_, _ = errorColor.Fprintf(p.err, "✗ "+format+"\n", args...)
}

// Plain prints an uncolored line.
func (p *Printer) Plain(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

// Block writes captured command output to the error stream, indented and dimmed.
// Without color the text is written unmodified.
func (p *Printer) Block(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if color.NoColor {
		_, _ = io.WriteString(p.err, text)
		if !strings.HasSuffix(text, "\n") {
			_, _ = io.WriteString(p.err, "\n")
		}
		return
	}
	text = strings.TrimRight(text, "\n")
	for _, line := range strings.Split(text, "\n") {
		_, _ = dimColor.Fprintf(p.err, "    %s\n", line)
	}
}
