package vbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/devel79ctl/internal/logging"
	"github.com/firefly-engineering/devel79ctl/internal/system"
)

// DefaultBinary is the VBoxManage executable name searched in PATH.
const DefaultBinary = "VBoxManage"

// Options configures the VBoxManage service.
type Options struct {
	// Binary is an explicit VBoxManage path. Empty means search.
	Binary string

	// Executor runs VBoxManage. Defaults to system.DefaultExecutor().
	Executor system.CommandExecutor
}

// Manage implements Service on top of the VBoxManage front end.
type Manage struct {
	binary string
	exec   system.CommandExecutor

	mu     sync.Mutex
	closed bool
}

// NewDialer returns a Dialer that connects through VBoxManage.
func NewDialer(opts Options) Dialer {
	return func(ctx context.Context) (Service, error) {
		return Dial(ctx, opts)
	}
}

// Dial locates VBoxManage and checks that it answers.
func Dial(ctx context.Context, opts Options) (*Manage, error) {
	exec := opts.Executor
	if exec == nil {
		exec = system.DefaultExecutor()
	}

	binary, err := locate(exec, opts.Binary)
	if err != nil {
		return nil, err
	}

	m := &Manage{binary: binary, exec: exec}

	out, err := m.run(ctx, "--version")
	if err != nil {
		return nil, fmt.Errorf("VBoxManage is not usable: %w", err)
	}
	logging.Debug("connected to VirtualBox", "binary", binary, "version", strings.TrimSpace(string(out)))
	return m, nil
}

// locate resolves the VBoxManage binary: explicit path, PATH, then the
// usual install locations.
func locate(exec system.CommandExecutor, explicit string) (string, error) {
	if explicit != "" {
		path, err := exec.LookPath(explicit)
		if err != nil {
			return "", fmt.Errorf("VBoxManage not found at %s: %w", explicit, err)
		}
		return path, nil
	}

	if path, err := exec.LookPath(DefaultBinary); err == nil {
		return path, nil
	}

	for _, candidate := range installCandidates() {
		if path, err := exec.LookPath(candidate); err == nil {
			logging.Debug("found VBoxManage outside PATH", "path", path)
			return path, nil
		}
	}

	return "", fmt.Errorf("VBoxManage not found in PATH or the VirtualBox install directory")
}

func installCandidates() []string {
	switch goruntime.GOOS {
	case "windows":
		var dirs []string
		for _, env := range []string{"VBOX_MSI_INSTALL_PATH", "VBOX_INSTALL_PATH"} {
			if dir := os.Getenv(env); dir != "" {
				dirs = append(dirs, filepath.Join(dir, "VBoxManage.exe"))
			}
		}
		return append(dirs, `C:\Program Files\Oracle\VirtualBox\VBoxManage.exe`)
	case "darwin":
		return []string{"/Applications/VirtualBox.app/Contents/MacOS/VBoxManage", "/usr/local/bin/VBoxManage"}
	default:
		return []string{"/usr/bin/VBoxManage", "/usr/local/bin/VBoxManage", "/usr/lib/virtualbox/VBoxManage"}
	}
}

func (m *Manage) run(ctx context.Context, args ...string) ([]byte, error) {
	logging.Debug("running VBoxManage", "command", shellquote.Join(append([]string{m.binary}, args...)...))
	return m.exec.Run(ctx, m.binary, args...)
}

func (m *Manage) checkOpen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// FindMachine resolves a machine by name or UUID.
func (m *Manage) FindMachine(ctx context.Context, nameOrID string) (Machine, error) {
	if err := m.checkOpen(); err != nil {
		return Machine{}, err
	}

	info, err := m.showVMInfo(ctx, nameOrID)
	if err != nil {
		return Machine{}, err
	}

	machine := Machine{
		Name:  info["name"],
		UUID:  info["UUID"],
		State: MachineState(info["VMState"]),
	}
	logging.Debug("machine resolved", "machine", machine.Name, "uuid", machine.UUID, "state", machine.State)
	return machine, nil
}

func (m *Manage) showVMInfo(ctx context.Context, ref string) (map[string]string, error) {
	out, err := m.run(ctx, "showvminfo", ref, "--machinereadable")
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrMachineNotFound, ref)
		}
		return nil, err
	}
	return ParseMachineReadable(out), nil
}

// isNotFound recognises the VBoxManage messages for unknown machines.
func isNotFound(err error) bool {
	var ce *system.CommandError
	if !errors.As(err, &ce) {
		return false
	}
	return strings.Contains(ce.Stderr, "Could not find a registered machine") ||
		strings.Contains(ce.Stderr, "VBOX_E_OBJECT_NOT_FOUND")
}

// CreateSession allocates a session. VBoxManage opens its own session per
// invocation, so this only checks the front end is still present.
func (m *Manage) CreateSession(ctx context.Context) (*Session, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if _, err := m.exec.LookPath(m.binary); err != nil {
		return nil, fmt.Errorf("VBoxManage disappeared: %w", err)
	}
	return &Session{ID: uuid.NewString()}, nil
}

// LaunchConsole runs "startvm" in the background. The returned Progress
// completes when VBoxManage reports the machine as started. If Wait gives
// up first, the startvm process is killed.
func (m *Manage) LaunchConsole(ctx context.Context, machine Machine, s *Session, typ SessionType) (Progress, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if s == nil || s.Closed() {
		return nil, fmt.Errorf("session is not open")
	}
	if typ == "" {
		typ = SessionGUI
	}

	args := []string{"startvm", machine.ref(), "--type", string(typ)}
	logging.Debug("launching machine", "session", s.ID,
		"command", shellquote.Join(append([]string{m.binary}, args...)...))

	procCtx, cancel := context.WithCancel(ctx)
	proc, err := m.exec.Start(procCtx, m.binary, args...)
	if err != nil {
		cancel()
		return nil, err
	}
	return newProcessProgress(proc, cancel), nil
}

// MachineState queries the current VMState.
func (m *Manage) MachineState(ctx context.Context, machine Machine) (MachineState, error) {
	if err := m.checkOpen(); err != nil {
		return StateUnknown, err
	}

	info, err := m.showVMInfo(ctx, machine.ref())
	if err != nil {
		return StateUnknown, err
	}

	state, ok := info["VMState"]
	if !ok || state == "" {
		return StateUnknown, nil
	}
	return MachineState(state), nil
}

// PowerButton presses the virtual ACPI power button.
func (m *Manage) PowerButton(ctx context.Context, machine Machine) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	_, err := m.run(ctx, "controlvm", machine.ref(), "acpipowerbutton")
	return err
}

// Close marks the connection released. Later calls fail with ErrClosed.
func (m *Manage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// processProgress adapts a background process to Progress. cancel kills
// the process.
type processProgress struct {
	proc   system.Process
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
	err    error
}

func newProcessProgress(proc system.Process, cancel context.CancelFunc) *processProgress {
	return &processProgress{proc: proc, cancel: cancel, done: make(chan struct{})}
}

// Wait waits for the process to exit. When ctx ends first the process is
// killed and reaped before Wait returns ctx.Err().
func (p *processProgress) Wait(ctx context.Context) error {
	p.once.Do(func() {
		go func() {
			p.err = p.proc.Wait()
			p.cancel()
			close(p.done)
		}()
	})

	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		p.cancel()
		<-p.done
		return ctx.Err()
	}
}

// ParseMachineReadable parses "showvminfo --machinereadable" output into
// a map. Quotes around keys and values are removed. A quoted value may
// span several lines; its continuation lines belong to the value and are
// never read as keys.
func ParseMachineReadable(out []byte) map[string]string {
	info := make(map[string]string)

	var (
		openKey string
		openVal []string
	)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")

		if openVal != nil {
			openVal = append(openVal, line)
			if closesQuote(line) {
				info[openKey] = unquote(strings.Join(openVal, "\n"))
				openKey, openVal = "", nil
			}
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = unquote(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if strings.HasPrefix(value, `"`) && !closesQuote(value[1:]) {
			openKey, openVal = key, []string{value}
			continue
		}
		if key == "" {
			continue
		}
		info[key] = unquote(value)
	}
	if openVal != nil && openKey != "" {
		info[openKey] = strings.TrimPrefix(strings.Join(openVal, "\n"), `"`)
	}
	return info
}

// closesQuote reports whether s ends with a double quote that is not
// escaped by a backslash.
func closesQuote(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, `"`) {
		return false
	}
	backslashes := 0
	for i := len(s) - 2; i >= 0 && s[i] == '\\'; i-- {
		backslashes++
	}
	return backslashes%2 == 0
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
