package system

import (
	"context"
	"fmt"
	"sync"
)

// MockExecutor implements CommandExecutor for testing.
type MockExecutor struct {
	mu sync.Mutex

	// Commands records all executed commands for verification.
	Commands []MockCommand

	// Responses maps command patterns to responses.
	// Key format: "command arg1" or "command".
	Responses map[string]MockResponse

	// Sequences maps command patterns to responses consumed in order.
	// The last response repeats once the others are used up.
	Sequences map[string][]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse

	// StartErr is returned by Start before any process is created.
	StartErr error

	// ProcessHold is handed to every started process; see MockProcess.
	ProcessHold chan struct{}

	// Processes records every process returned by Start.
	Processes []*MockProcess

	// Paths maps executable names to LookPath results. Unknown names
	// resolve to themselves unless LookPathErr is set.
	Paths       map[string]string
	LookPathErr error
}

// MockCommand records an executed command.
type MockCommand struct {
	Name       string
	Args       []string
	Background bool
}

// MockResponse defines the response for a command.
type MockResponse struct {
	Output []byte
	Err    error
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Commands:  make([]MockCommand, 0),
		Responses: make(map[string]MockResponse),
		Sequences: make(map[string][]MockResponse),
		Paths:     make(map[string]string),
	}
}

// AddResponse adds a response for a specific command pattern.
func (m *MockExecutor) AddResponse(pattern string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[pattern] = MockResponse{Output: output, Err: err}
}

// AddSequence queues responses for a command pattern.
func (m *MockExecutor) AddSequence(pattern string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sequences[pattern] = append(m.Sequences[pattern], responses...)
}

// respond must be called with mu held.
func (m *MockExecutor) respond(name string, args []string) MockResponse {
	keys := []string{name}
	if len(args) > 0 {
		keys = []string{name + " " + args[0], name}
	}

	for _, key := range keys {
		if seq, ok := m.Sequences[key]; ok && len(seq) > 0 {
			resp := seq[0]
			if len(seq) > 1 {
				m.Sequences[key] = seq[1:]
			}
			return resp
		}
		if resp, ok := m.Responses[key]; ok {
			return resp
		}
	}

	return m.DefaultResponse
}

func (m *MockExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Commands = append(m.Commands, MockCommand{Name: name, Args: args})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := m.respond(name, args)
	return resp.Output, resp.Err
}

func (m *MockExecutor) Start(ctx context.Context, name string, args ...string) (Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Commands = append(m.Commands, MockCommand{Name: name, Args: args, Background: true})

	if m.StartErr != nil {
		return nil, m.StartErr
	}

	resp := m.respond(name, args)
	proc := &MockProcess{ctx: ctx, err: resp.Err, pid: 4000 + len(m.Commands), Hold: m.ProcessHold}
	m.Processes = append(m.Processes, proc)
	return proc, nil
}

func (m *MockExecutor) LookPath(file string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LookPathErr != nil {
		return "", m.LookPathErr
	}
	if p, ok := m.Paths[file]; ok {
		if p == "" {
			return "", fmt.Errorf("exec: %q: executable file not found in $PATH", file)
		}
		return p, nil
	}
	return file, nil
}

// LastCommand returns the most recently executed command.
func (m *MockExecutor) LastCommand() (MockCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return MockCommand{}, false
	}
	return m.Commands[len(m.Commands)-1], true
}

// CommandsFor returns the recorded commands whose first argument is sub.
func (m *MockExecutor) CommandsFor(sub string) []MockCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cmds []MockCommand
	for _, c := range m.Commands {
		if len(c.Args) > 0 && c.Args[0] == sub {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

// Reset clears all recorded commands.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = make([]MockCommand, 0)
}

// MockProcess is the Process returned by MockExecutor.Start.
// Hold, when non-nil, blocks Wait until it is closed or the start
// context is done.
type MockProcess struct {
	ctx  context.Context
	err  error
	pid  int
	Hold chan struct{}
}

func (p *MockProcess) Pid() int {
	return p.pid
}

// Killed reports whether the context the process was started with has
// ended, which kills a real process.
func (p *MockProcess) Killed() bool {
	return p.ctx.Err() != nil
}

func (p *MockProcess) Wait() error {
	if p.Hold != nil {
		select {
		case <-p.Hold:
		case <-p.ctx.Done():
			return p.ctx.Err()
		}
	}
	return p.err
}
