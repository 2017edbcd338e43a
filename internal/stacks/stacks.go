// Package stacks discovers deployable stacks and parses operator selections.
//
// A stack is an immediate sub-directory of the stacks directory. It is
// deployable when it holds a compose descriptor under one of the accepted
// file names.
package stacks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DescriptorNames are the accepted compose descriptor file names, in order of preference.
var DescriptorNames = []string{"docker-compose.yml", "docker-compose.yaml"}

var (
	// ErrNotFound indicates the stacks directory does not exist.
	ErrNotFound = errors.New("stacks directory not found")

	// ErrNoStacks indicates the stacks directory has no sub-directories.
	ErrNoStacks = errors.New("no stacks found")
)

// Stack is one deployable unit.
type Stack struct {
	// Name is the base name of the directory.
	Name string

	// Path is the absolute directory path.
	Path string

	// Descriptor is the absolute path of the compose file, or empty when there is none.
	Descriptor string
}

// HasDescriptor reports whether a compose descriptor was found.
func (s Stack) HasDescriptor() bool {
	return s.Descriptor != ""
}

// List returns the immediate sub-directories of parentDir sorted by path.
// Hidden directories are skipped. An empty result is ErrNoStacks.
func List(parentDir string) ([]Stack, error) {
	abs, err := filepath.Abs(parentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", parentDir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, abs)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, abs)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", abs, err)
	}

	var out []Stack
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(abs, e.Name())
		if !isDir(e, path) {
			continue
		}
		out = append(out, Stack{
			Name:       e.Name(),
			Path:       path,
			Descriptor: FindDescriptor(path),
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoStacks, abs)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// FindDescriptor returns the first accepted descriptor present in dir, or "".
func FindDescriptor(dir string) string {
	for _, name := range DescriptorNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// isDir follows symlinks so linked stack directories are listed too.
func isDir(e fs.DirEntry, path string) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
