// Package system provides abstractions for OS process execution so the
// VirtualBox front end can be driven by tests without a hypervisor.
package system

import (
	"context"
	"fmt"
	"strings"
)

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run runs a command to completion and returns its standard output.
	// A non-zero exit is reported as a *CommandError carrying stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// Start starts a command in the background. The returned Process must
	// be waited on to release its resources.
	Start(ctx context.Context, name string, args ...string) (Process, error)

	// LookPath searches for an executable the way exec.LookPath does.
	LookPath(file string) (string, error)
}

// Process is a command started by CommandExecutor.Start.
type Process interface {
	// Pid returns the OS process id, or 0 when unknown.
	Pid() int

	// Wait blocks until the process exits.
	Wait() error
}

// CommandError describes a command that ran but did not succeed.
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s %s: %v", e.Name, firstArg(e.Args), e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Name, firstArg(e.Args), msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

var defaultExecutor CommandExecutor = &osExecutor{}

// DefaultExecutor returns the default CommandExecutor implementation.
func DefaultExecutor() CommandExecutor {
	return defaultExecutor
}

// SetDefaultExecutor sets the default CommandExecutor (useful for testing).
func SetDefaultExecutor(exec CommandExecutor) {
	defaultExecutor = exec
}

// ResetDefaults restores the default OS implementation.
func ResetDefaults() {
	defaultExecutor = &osExecutor{}
}
