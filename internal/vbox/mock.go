package vbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockService is a mock implementation of Service for testing
type MockService struct {
	mu sync.RWMutex

	// Machines maps lower-cased names and UUIDs to machines.
	Machines map[string]*Machine

	// States overrides the state returned by MachineState, consumed in
	// order; the last entry repeats.
	States []MachineState

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// LaunchErr is returned by the Progress of LaunchConsole.
	LaunchErr error

	// LaunchHold, when non-nil, blocks Progress.Wait until closed.
	LaunchHold chan struct{}

	// CallLog records all method calls for verification
	CallLog []MockCall

	// Sessions records every session handed out.
	Sessions []*Session

	closeCount int
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockService creates a new mock service
func NewMockService() *MockService {
	return &MockService{
		Machines: make(map[string]*Machine),
		Errors:   make(map[string]error),
		CallLog:  make([]MockCall, 0),
	}
}

// Dialer returns a Dialer handing out this mock.
func (m *MockService) Dialer() Dialer {
	return func(ctx context.Context) (Service, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.record("Dial")
		if err, ok := m.Errors["Dial"]; ok {
			return nil, err
		}
		return m, nil
	}
}

func (m *MockService) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// AddMachine registers a machine under its name and UUID.
func (m *MockService) AddMachine(name, id string, state MachineState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	machine := &Machine{Name: name, UUID: id, State: state}
	m.Machines[strings.ToLower(name)] = machine
	if id != "" {
		m.Machines[strings.ToLower(id)] = machine
	}
}

// SetError sets an error to be returned for a specific operation
func (m *MockService) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// SetStates queues states for MachineState.
func (m *MockService) SetStates(states ...MachineState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.States = states
}

// GetCallsFor returns all calls for a specific method
func (m *MockService) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// Methods returns the recorded method names in call order.
func (m *MockService) Methods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.CallLog))
	for i, call := range m.CallLog {
		names[i] = call.Method
	}
	return names
}

// CloseCount returns how many times Close was called.
func (m *MockService) CloseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closeCount
}

func (m *MockService) FindMachine(ctx context.Context, nameOrID string) (Machine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FindMachine", nameOrID)

	if err, ok := m.Errors["FindMachine"]; ok {
		return Machine{}, err
	}

	machine, ok := m.Machines[strings.ToLower(nameOrID)]
	if !ok {
		return Machine{}, fmt.Errorf("%w: %s", ErrMachineNotFound, nameOrID)
	}
	return *machine, nil
}

func (m *MockService) CreateSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateSession")

	if err, ok := m.Errors["CreateSession"]; ok {
		return nil, err
	}

	s := &Session{ID: fmt.Sprintf("session-%d", len(m.Sessions)+1)}
	m.Sessions = append(m.Sessions, s)
	return s, nil
}

func (m *MockService) LaunchConsole(ctx context.Context, machine Machine, s *Session, typ SessionType) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("LaunchConsole", machine.Name, s.ID, typ)

	if err, ok := m.Errors["LaunchConsole"]; ok {
		return nil, err
	}

	if stored, ok := m.Machines[strings.ToLower(machine.Name)]; ok && m.LaunchErr == nil {
		stored.State = StateRunning
	}
	return &mockProgress{err: m.LaunchErr, hold: m.LaunchHold}, nil
}

func (m *MockService) MachineState(ctx context.Context, machine Machine) (MachineState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("MachineState", machine.Name)

	if err, ok := m.Errors["MachineState"]; ok {
		return StateUnknown, err
	}

	if len(m.States) > 0 {
		state := m.States[0]
		if len(m.States) > 1 {
			m.States = m.States[1:]
		}
		return state, nil
	}

	if stored, ok := m.Machines[strings.ToLower(machine.Name)]; ok {
		return stored.State, nil
	}
	return StateUnknown, fmt.Errorf("%w: %s", ErrMachineNotFound, machine.Name)
}

func (m *MockService) PowerButton(ctx context.Context, machine Machine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("PowerButton", machine.Name)

	if err, ok := m.Errors["PowerButton"]; ok {
		return err
	}

	if stored, ok := m.Machines[strings.ToLower(machine.Name)]; ok {
		stored.State = StatePoweredOff
	}
	return nil
}

func (m *MockService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Close")
	m.closeCount++
	return nil
}

type mockProgress struct {
	err  error
	hold chan struct{}
}

func (p *mockProgress) Wait(ctx context.Context) error {
	if p.hold != nil {
		select {
		case <-p.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}
