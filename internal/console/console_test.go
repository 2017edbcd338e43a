package console

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withColor(t *testing.T, enabled bool) {
	t.Helper()
	orig := color.NoColor
	color.NoColor = !enabled
	t.Cleanup(func() { color.NoColor = orig })
}

func TestPrinter_Streams(t *testing.T) {
	withColor(t, true)
	var out, errOut bytes.Buffer
	p := New(&out, &errOut)

	p.Info("starting %s", "alpha")
	p.Success("done")
	p.Warn("careful")
	p.Error("broken")
	p.Block("line one\nline two\n")

	if !strings.Contains(out.String(), "starting alpha") || !strings.Contains(out.String(), "✓ done") {
		t.Errorf("progress stream = %q", out.String())
	}
	for _, want := range []string{"⚠ careful", "✗ broken", "    line one", "    line two"} {
		if !strings.Contains(errOut.String(), want) {
			t.Errorf("error stream missing %q: %q", want, errOut.String())
		}
	}
	if strings.Contains(out.String(), "broken") {
		t.Error("errors must not reach the progress stream")
	}
}

func TestPrinter_BlockVerbatimWithoutColor(t *testing.T) {
	withColor(t, false)

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "kept as is", text: "Error: pull access denied\n  retrying\n", want: "Error: pull access denied\n  retrying\n"},
		{name: "newline added", text: "no trailing newline", want: "no trailing newline\n"},
		{name: "blank skipped", text: "\n\n", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errOut bytes.Buffer
			New(&bytes.Buffer{}, &errOut).Block(tt.text)
			if errOut.String() != tt.want {
				t.Errorf("Block() wrote %q, want %q", errOut.String(), tt.want)
			}
		})
	}
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		assumeYes bool
		want      bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full yes upper case", input: "YES\n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "empty defaults to no", input: "\n", want: false},
		{name: "eof is no", input: "", want: false},
		{name: "assume yes ignores input", input: "n\n", assumeYes: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out, tt.assumeYes)
			got, err := p.Confirm("Install Docker?")
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "Install Docker? [y/N]") {
				t.Errorf("question not printed: %q", out.String())
			}
		})
	}
}

func TestPrompter_SharedBuffer(t *testing.T) {
	p := NewPrompter(strings.NewReader("1,3\ny\n"), io.Discard, false)

	line, err := p.ReadLine("Select: ")
	if err != nil || line != "1,3" {
		t.Fatalf("ReadLine() = %q, %v", line, err)
	}
	ok, err := p.Confirm("Continue?")
	if err != nil || !ok {
		t.Errorf("Confirm() = %v, %v; buffered answer was lost", ok, err)
	}
	if _, err := p.ReadLine("again: "); !errors.Is(err, io.EOF) {
		t.Errorf("ReadLine() at end error = %v, want io.EOF", err)
	}
}

func TestPrompter_ReadLineWithoutNewline(t *testing.T) {
	p := NewPrompter(strings.NewReader("all"), io.Discard, false)
	line, err := p.ReadLine("Select: ")
	if err != nil || line != "all" {
		t.Errorf("ReadLine() = %q, %v", line, err)
	}
}
