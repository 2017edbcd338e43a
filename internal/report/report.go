// Package report writes a summary of one run to disk.
//
// The format follows the file extension: .json writes JSON, .yaml, .yml and
// anything else write YAML. Reports describe a single run and are never read
// back to drive later selections.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/stack-installer/internal/compose"
)

// Report represents the report file structure
type Report struct {
	Action    string        `yaml:"action" json:"action"`
	DryRun    bool          `yaml:"dryRun" json:"dryRun"`
	StartedAt time.Time     `yaml:"startedAt" json:"startedAt"`
	Succeeded int           `yaml:"succeeded" json:"succeeded"`
	Failed    int           `yaml:"failed" json:"failed"`
	Stacks    []StackReport `yaml:"stacks" json:"stacks"`
}

// StackReport is the outcome for one stack
type StackReport struct {
	Name    string `yaml:"name" json:"name"`
	Path    string `yaml:"path" json:"path"`
	Outcome string `yaml:"outcome" json:"outcome"`
	Remedy  string `yaml:"remedy,omitempty" json:"remedy,omitempty"`
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
	Error   string `yaml:"error,omitempty" json:"error,omitempty"`
}

// FromSummary converts a dispatcher summary into a Report
func FromSummary(summary compose.Summary, dryRun bool, startedAt time.Time) *Report {
	r := &Report{
		Action:    summary.Action.String(),
		DryRun:    dryRun,
		StartedAt: startedAt.UTC(),
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Stacks:    make([]StackReport, 0, len(summary.Results)),
	}
	for _, res := range summary.Results {
		sr := StackReport{
			Name:    res.Stack.Name,
			Path:    res.Stack.Path,
			Outcome: res.Outcome.String(),
			Command: res.Command,
		}
		if res.Remedy != compose.RemedyNone {
			sr.Remedy = res.Remedy.String()
		}
		if res.Err != nil {
			sr.Error = res.Err.Error()
		}
		r.Stacks = append(r.Stacks, sr)
	}
	return r
}

// Load loads and parses a report file (supports .yaml, .yml, and .json)
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	var r Report
	if isJSON(path) {
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to parse report JSON: %w", err)
		}
		return &r, nil
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report YAML: %w", err)
	}
	return &r, nil
}

// Save writes the report to path (format determined by file extension)
func Save(r *Report, path string) error {
	var data []byte
	var err error

	if isJSON(path) {
		data, err = json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report JSON: %w", err)
		}
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal report YAML: %w", err)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	return nil
}

func isJSON(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".json"
}
