package vbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMachineNotFound is returned by FindMachine for unknown machines.
	ErrMachineNotFound = errors.New("machine not found")

	// ErrClosed is returned by a Service used after Close.
	ErrClosed = errors.New("service connection closed")
)

// MachineState is the raw VirtualBox machine state (VMState).
type MachineState string

const (
	StatePoweredOff MachineState = "poweroff"
	StateAborted    MachineState = "aborted"
	StateSaved      MachineState = "saved"
	StatePaused     MachineState = "paused"
	StateStarting   MachineState = "starting"
	StateRestoring  MachineState = "restoring"
	StateRunning    MachineState = "running"
	StateStopping   MachineState = "stopping"
	StateSaving     MachineState = "saving"
	StateUnknown    MachineState = "unknown"
)

// Status is the coarse server status shown to the user.
type Status string

const (
	StatusPoweredOff Status = "powered-off"
	StatusStarting   Status = "starting"
	StatusRunning    Status = "running"
	StatusStopping   Status = "stopping"
)

// Status collapses a machine state into a server status.
func (s MachineState) Status() Status {
	switch s {
	case StateRunning:
		return StatusRunning
	case StateStarting, StateRestoring:
		return StatusStarting
	case StateStopping, StateSaving:
		return StatusStopping
	default:
		return StatusPoweredOff
	}
}

// SessionType selects how the machine's console is launched.
type SessionType string

const (
	SessionGUI      SessionType = "gui"
	SessionHeadless SessionType = "headless"
	SessionSeparate SessionType = "separate"
)

// ParseSessionType validates a session type name.
func ParseSessionType(s string) (SessionType, error) {
	switch st := SessionType(strings.ToLower(s)); st {
	case SessionGUI, SessionHeadless, SessionSeparate:
		return st, nil
	case "":
		return SessionGUI, nil
	default:
		return "", fmt.Errorf("unknown session type %q (want gui, headless or separate)", s)
	}
}

// Machine is a handle to a registered virtual machine.
type Machine struct {
	Name  string
	UUID  string
	State MachineState
}

// ref returns the identifier used on the command line.
func (m Machine) ref() string {
	if m.UUID != "" {
		return m.UUID
	}
	return m.Name
}

// Session is a control-service session used for one console launch.
type Session struct {
	ID     string
	closed bool
}

// Close releases the session. It is safe to call more than once.
func (s *Session) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed
}

// Progress is an in-flight asynchronous operation.
type Progress interface {
	// Wait blocks until the operation completes or ctx is done.
	Wait(ctx context.Context) error
}

// Service is the VirtualBox control service.
type Service interface {
	// FindMachine resolves a machine by name or UUID.
	FindMachine(ctx context.Context, nameOrID string) (Machine, error)

	// CreateSession allocates a session for a launch.
	CreateSession(ctx context.Context) (*Session, error)

	// LaunchConsole starts the machine's process within session.
	LaunchConsole(ctx context.Context, m Machine, s *Session, typ SessionType) (Progress, error)

	// MachineState queries the current state of the machine.
	MachineState(ctx context.Context, m Machine) (MachineState, error)

	// PowerButton sends an ACPI power button press to the machine.
	PowerButton(ctx context.Context, m Machine) error

	// Close releases the connection to the service.
	Close() error
}

// Dialer opens a connection to the control service.
type Dialer func(ctx context.Context) (Service, error)
