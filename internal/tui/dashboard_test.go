package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/health"
	"github.com/firefly-engineering/devel79ctl/internal/vbox"
)

type fakeActions struct {
	state    vbox.MachineState
	startErr error
	started  int
	stopped  int

	// entered, when set, makes Start signal it and block until ctx ends.
	entered chan struct{}
	exited  bool
}

func (f *fakeActions) Start(ctx context.Context) error {
	f.started++
	if f.entered != nil {
		close(f.entered)
		<-ctx.Done()
		f.exited = true
		return ctx.Err()
	}
	if f.startErr != nil {
		return f.startErr
	}
	f.state = vbox.StateRunning
	return nil
}

func (f *fakeActions) Stop(ctx context.Context, wait bool) error {
	f.stopped++
	f.state = vbox.StatePoweredOff
	return nil
}

func (f *fakeActions) State(ctx context.Context) (vbox.MachineState, error) {
	return f.state, nil
}

func testInfo() Info {
	return Info{Name: "Devel79 Server", Machine: "devel79", Interval: time.Second}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// update applies msg and returns the resulting dashboard model and cmd.
func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func TestNewDashboard_DefaultInterval(t *testing.T) {
	m := NewDashboard(context.Background(), Info{Name: "x"}, &fakeActions{})
	if m.info.Interval != 15*time.Second {
		t.Errorf("Interval = %v, want 15s", m.info.Interval)
	}
	if m.Init() == nil {
		t.Error("Init should schedule the first check")
	}
}

func TestDashboard_CheckResult(t *testing.T) {
	m := NewDashboard(context.Background(), testInfo(), &fakeActions{})

	if !strings.Contains(m.View(), "checking") {
		t.Error("View before first check should say checking")
	}

	result := &health.CheckResult{State: vbox.StateRunning, Running: true, CheckedAt: time.Now()}
	m, _ = update(t, m, checkMsg{result: result})

	if m.status != health.StatusUnreachable {
		t.Errorf("status = %q, want unreachable", m.status)
	}
	view := m.View()
	for _, want := range []string{"Devel79 Server", "devel79", "unreachable", "running"} {
		if !strings.Contains(view, want) {
			t.Errorf("View should contain %q", want)
		}
	}
}

func TestDashboard_StartAction(t *testing.T) {
	actions := &fakeActions{state: vbox.StatePoweredOff}
	m := NewDashboard(context.Background(), testInfo(), actions)

	m, cmd := update(t, m, keyPress('s'))
	if m.busy != "start" {
		t.Fatalf("busy = %q, want start", m.busy)
	}
	if cmd == nil {
		t.Fatal("start should return a command")
	}

	// A second press while busy is ignored.
	m, again := update(t, m, keyPress('s'))
	if again != nil {
		t.Error("second start while busy should be ignored")
	}

	msg := cmd()
	if actions.started != 1 {
		t.Errorf("started = %d, want 1", actions.started)
	}

	m, cmd = update(t, m, msg)
	if m.busy != "" {
		t.Errorf("busy = %q after completion", m.busy)
	}
	if !m.checking || cmd == nil {
		t.Error("completion should trigger a check")
	}
	if !strings.Contains(strings.Join(m.activity, "\n"), "successfully started") {
		t.Errorf("activity = %v", m.activity)
	}
}

func TestDashboard_StartFailure(t *testing.T) {
	actions := &fakeActions{startErr: errors.SessionCreation(fmt.Errorf("locked"))}
	m := NewDashboard(context.Background(), testInfo(), actions)

	m, cmd := update(t, m, keyPress('s'))
	m, _ = update(t, m, cmd())

	if !strings.Contains(strings.Join(m.activity, "\n"), "Error while creating session.") {
		t.Errorf("activity = %v", m.activity)
	}
}

func TestDashboard_StopAction(t *testing.T) {
	actions := &fakeActions{state: vbox.StateRunning}
	m := NewDashboard(context.Background(), testInfo(), actions)

	m, cmd := update(t, m, keyPress('x'))
	if m.busy != "stop" {
		t.Fatalf("busy = %q, want stop", m.busy)
	}
	m, _ = update(t, m, cmd())

	if actions.stopped != 1 {
		t.Errorf("stopped = %d, want 1", actions.stopped)
	}
	if !strings.Contains(strings.Join(m.activity, "\n"), "successfully stopped") {
		t.Errorf("activity = %v", m.activity)
	}
}

func TestDashboard_TickSkippedWhileBusy(t *testing.T) {
	m := NewDashboard(context.Background(), testInfo(), &fakeActions{})
	m.busy = "start"

	m, cmd := update(t, m, tickMsg(time.Now()))
	if m.checking {
		t.Error("tick while busy must not start a check")
	}
	if cmd == nil {
		t.Error("tick should be rescheduled")
	}

	m.busy = ""
	m, _ = update(t, m, tickMsg(time.Now()))
	if !m.checking {
		t.Error("tick while idle should start a check")
	}
}

func TestDashboard_Quit(t *testing.T) {
	m := NewDashboard(context.Background(), testInfo(), &fakeActions{})

	m, cmd := update(t, m, keyPress('q'))
	if !m.quitting {
		t.Error("q should quit")
	}
	if cmd == nil {
		t.Error("q should return tea.Quit")
	}
	if m.View() != "" {
		t.Error("View should be empty after quitting")
	}
}

func TestDashboard_QuitWhileBusy(t *testing.T) {
	actions := &fakeActions{state: vbox.StatePoweredOff, entered: make(chan struct{})}
	m := NewDashboard(context.Background(), testInfo(), actions)

	m, cmd := update(t, m, keyPress('s'))
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	<-actions.entered

	m, quit := update(t, m, keyPress('q'))
	if quit != nil {
		t.Error("q while starting must not quit yet")
	}
	if m.quitting || !m.quitPending {
		t.Errorf("quitting = %v, quitPending = %v", m.quitting, m.quitPending)
	}

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("start was not cancelled by quit")
	}

	m, quit = update(t, m, msg)
	if !m.quitting || quit == nil {
		t.Fatal("dashboard should quit once start returns")
	}
	if _, ok := quit().(tea.QuitMsg); !ok {
		t.Error("expected tea.Quit after start returned")
	}
}

func TestDashboard_QuitWhileChecking(t *testing.T) {
	m := NewDashboard(context.Background(), testInfo(), &fakeActions{})
	m.checking = true

	m, cmd := update(t, m, keyPress('q'))
	if cmd != nil || m.quitting {
		t.Fatal("q during a check should wait for it")
	}

	m, cmd = update(t, m, tickMsg(time.Now()))
	if cmd != nil {
		t.Error("tick after quit must not schedule work")
	}

	result := &health.CheckResult{State: vbox.StateRunning, CheckedAt: time.Now()}
	m, cmd = update(t, m, checkMsg{result: result})
	if !m.quitting || cmd == nil {
		t.Error("dashboard should quit once the check returns")
	}
}

func TestDashboard_CloseWaitsForAction(t *testing.T) {
	actions := &fakeActions{state: vbox.StatePoweredOff, entered: make(chan struct{})}
	m := NewDashboard(context.Background(), testInfo(), actions)

	m, cmd := update(t, m, keyPress('s'))
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	<-actions.entered

	m.Close()
	if !actions.exited {
		t.Fatal("Close returned before start finished")
	}

	select {
	case msg := <-done:
		if am, ok := msg.(actionMsg); !ok || am.err == nil {
			t.Errorf("start result = %#v, want cancelled action", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("start result never delivered")
	}

	if msg := m.run("start")(); msg != nil {
		t.Errorf("run after Close = %#v, want nil", msg)
	}
	if msg := m.check()(); msg != nil {
		t.Errorf("check after Close = %#v, want nil", msg)
	}
	if actions.started != 1 {
		t.Errorf("started = %d, want 1", actions.started)
	}
}

func TestDashboard_ActivityBounded(t *testing.T) {
	m := NewDashboard(context.Background(), testInfo(), &fakeActions{})
	for i := 0; i < maxActivity+3; i++ {
		m.note(fmt.Sprintf("line %d", i))
	}
	if len(m.activity) != maxActivity {
		t.Errorf("activity has %d lines, want %d", len(m.activity), maxActivity)
	}
	if !strings.Contains(m.activity[len(m.activity)-1], fmt.Sprintf("line %d", maxActivity+2)) {
		t.Error("newest line should be kept")
	}
}

func TestStatusIcon(t *testing.T) {
	tests := map[health.Status]string{
		health.StatusHealthy:       "✓",
		health.StatusUnreachable:   "⚠",
		health.StatusTransitioning: "◐",
		health.StatusStopped:       "●",
		health.StatusUnknown:       "?",
	}
	for status, want := range tests {
		if got := StatusIcon(status); got != want {
			t.Errorf("StatusIcon(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	info := Info{Name: "Devel79 Server", Machine: "devel79", Address: "192.168.56.1"}
	out := RenderStatus(info, &health.CheckResult{State: vbox.StatePoweredOff})

	for _, want := range []string{"Devel79 Server", "devel79", "192.168.56.1", "stopped", "poweroff", "no"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderStatus should contain %q:\n%s", want, out)
		}
	}
}
