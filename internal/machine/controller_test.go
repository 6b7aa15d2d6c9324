package machine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/testutil"
	"github.com/firefly-engineering/devel79ctl/internal/vbox"
)

const testUUID = testutil.TestUUID

func newConnected(t *testing.T, opts ...Option) (*Controller, *vbox.MockService) {
	t.Helper()
	svc := vbox.NewMockService()
	svc.AddMachine("devel79", testUUID, vbox.StatePoweredOff)

	c := New(svc.Dialer(), opts...)
	if err := c.Connect(context.Background(), "devel79"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return c, svc
}

func TestConnect(t *testing.T) {
	c, svc := newConnected(t)

	if c.Phase() != PhaseConnected {
		t.Errorf("Phase() = %v, want connected", c.Phase())
	}
	if c.Name() != "devel79" {
		t.Errorf("Name() = %q", c.Name())
	}
	if c.Machine().UUID != testUUID {
		t.Errorf("Machine().UUID = %q", c.Machine().UUID)
	}
	if c.ErrorMessage() != "" {
		t.Errorf("ErrorMessage() = %q, want empty", c.ErrorMessage())
	}
	if svc.CloseCount() != 0 {
		t.Error("service should stay open after a successful connect")
	}
}

func TestConnect_ServiceUnavailable(t *testing.T) {
	svc := vbox.NewMockService()
	svc.SetError("Dial", fmt.Errorf("VBoxSVC not running"))

	c := New(svc.Dialer())
	err := c.Connect(context.Background(), "devel79")

	if errors.KindOf(err) != errors.KindServiceUnavailable {
		t.Errorf("kind = %v, want service-unavailable", errors.KindOf(err))
	}
	if c.ErrorMessage() != "Error while connecting to VirtualBox." {
		t.Errorf("ErrorMessage() = %q", c.ErrorMessage())
	}
	if c.Phase() != PhaseUninitialized {
		t.Errorf("Phase() = %v, want uninitialized", c.Phase())
	}
}

func TestConnect_MachineNotFound(t *testing.T) {
	svc := vbox.NewMockService()

	c := New(svc.Dialer())
	err := c.Connect(context.Background(), "nope")

	if errors.GetExitCode(err) != errors.ExitMachineNotFound {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitMachineNotFound)
	}
	if c.ErrorMessage() != "Machine 'nope' not found." {
		t.Errorf("ErrorMessage() = %q", c.ErrorMessage())
	}
	if svc.CloseCount() != 1 {
		t.Errorf("service closed %d times, want 1", svc.CloseCount())
	}
	if c.Phase() != PhaseUninitialized {
		t.Errorf("Phase() = %v, want uninitialized", c.Phase())
	}
}

func TestConnect_FindFails(t *testing.T) {
	svc := vbox.NewMockService()
	svc.SetError("FindMachine", fmt.Errorf("rpc failure"))

	c := New(svc.Dialer())
	err := c.Connect(context.Background(), "devel79")

	if errors.KindOf(err) != errors.KindServiceUnavailable {
		t.Errorf("kind = %v, want service-unavailable", errors.KindOf(err))
	}
	if svc.CloseCount() != 1 {
		t.Errorf("service closed %d times, want 1", svc.CloseCount())
	}
}

func TestConnect_Twice(t *testing.T) {
	c, svc := newConnected(t)

	err := c.Connect(context.Background(), "devel79")
	if errors.GetExitCode(err) != errors.ExitUsage {
		t.Errorf("exit code = %d, want usage", errors.GetExitCode(err))
	}
	if len(svc.GetCallsFor("Dial")) != 1 {
		t.Error("second Connect must not dial again")
	}
}

func TestConnect_AfterDisconnect(t *testing.T) {
	c, _ := newConnected(t)
	c.Disconnect()

	if err := c.Connect(context.Background(), "devel79"); err == nil {
		t.Error("Connect after Disconnect should fail")
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	c, svc := newConnected(t)

	for i := 0; i < 3; i++ {
		if err := c.Disconnect(); err != nil {
			t.Fatalf("Disconnect() #%d error = %v", i+1, err)
		}
	}

	if svc.CloseCount() != 1 {
		t.Errorf("service closed %d times, want 1", svc.CloseCount())
	}
	if c.Phase() != PhaseDisconnected {
		t.Errorf("Phase() = %v, want disconnected", c.Phase())
	}
}

func TestDisconnect_NeverConnected(t *testing.T) {
	svc := vbox.NewMockService()
	c := New(svc.Dialer())

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if c.Phase() != PhaseDisconnected {
		t.Errorf("Phase() = %v, want disconnected", c.Phase())
	}
	if len(svc.CallLog) != 0 {
		t.Errorf("unexpected calls: %v", svc.Methods())
	}
}

func TestStartInteractive(t *testing.T) {
	c, svc := newConnected(t, WithSessionType(vbox.SessionHeadless))

	if err := c.StartInteractive(context.Background()); err != nil {
		t.Fatalf("StartInteractive() error = %v", err)
	}

	want := []string{"Dial", "FindMachine", "CreateSession", "LaunchConsole"}
	if got := svc.Methods(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", got, want)
	}

	launch := svc.GetCallsFor("LaunchConsole")[0]
	if launch.Args[2] != vbox.SessionHeadless {
		t.Errorf("session type = %v, want headless", launch.Args[2])
	}
	if !svc.Sessions[0].Closed() {
		t.Error("session should be closed after launch")
	}
	if c.Phase() != PhaseConnected {
		t.Errorf("Phase() = %v, start must not change phase", c.Phase())
	}
}

func TestStartInteractive_NotConnected(t *testing.T) {
	svc := vbox.NewMockService()
	c := New(svc.Dialer())

	err := c.StartInteractive(context.Background())
	if errors.GetExitCode(err) != errors.ExitUsage {
		t.Errorf("exit code = %d, want usage", errors.GetExitCode(err))
	}

	c.Disconnect()
	err = c.StartInteractive(context.Background())
	if errors.GetExitCode(err) != errors.ExitUsage {
		t.Errorf("after disconnect: exit code = %d, want usage", errors.GetExitCode(err))
	}
}

func TestStartInteractive_Failures(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*vbox.MockService)
		wantKind    errors.Kind
		wantMessage string
		wantSession bool
	}{
		{
			name: "identity",
			setup: func(s *vbox.MockService) {
				s.AddMachine("devel79", "not-a-uuid", vbox.StatePoweredOff)
			},
			wantKind:    errors.KindIdentity,
			wantMessage: "Error while retrieving machine identity.",
		},
		{
			name: "session",
			setup: func(s *vbox.MockService) {
				s.SetError("CreateSession", fmt.Errorf("no session"))
			},
			wantKind:    errors.KindSessionCreation,
			wantMessage: "Error while creating session.",
		},
		{
			name: "launch",
			setup: func(s *vbox.MockService) {
				s.SetError("LaunchConsole", fmt.Errorf("no console"))
			},
			wantKind:    errors.KindLaunch,
			wantMessage: "Error while launching machine 'devel79'.",
			wantSession: true,
		},
		{
			name: "progress",
			setup: func(s *vbox.MockService) {
				s.LaunchErr = fmt.Errorf("VT-x unavailable")
			},
			wantKind:    errors.KindLaunch,
			wantMessage: "Error while launching machine 'devel79'.",
			wantSession: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := vbox.NewMockService()
			svc.AddMachine("devel79", testUUID, vbox.StatePoweredOff)
			tt.setup(svc)

			c := New(svc.Dialer())
			if err := c.Connect(context.Background(), "devel79"); err != nil {
				t.Fatalf("Connect() error = %v", err)
			}

			err := c.StartInteractive(context.Background())
			if errors.KindOf(err) != tt.wantKind {
				t.Errorf("kind = %v, want %v (err %v)", errors.KindOf(err), tt.wantKind, err)
			}
			if c.ErrorMessage() != tt.wantMessage {
				t.Errorf("ErrorMessage() = %q, want %q", c.ErrorMessage(), tt.wantMessage)
			}
			if c.Phase() != PhaseConnected {
				t.Errorf("Phase() = %v, failed start must leave controller connected", c.Phase())
			}
			if tt.wantSession {
				if len(svc.Sessions) != 1 || !svc.Sessions[0].Closed() {
					t.Error("session should be created and closed")
				}
			}
		})
	}
}

func TestStartInteractive_Timeout(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)

	c, svc := newConnected(t, WithLaunchTimeout(20*time.Millisecond))
	svc.LaunchHold = hold

	err := c.StartInteractive(context.Background())
	if errors.GetExitCode(err) != errors.ExitTimeout {
		t.Errorf("exit code = %d, want timeout (err %v)", errors.GetExitCode(err), err)
	}
	if !svc.Sessions[0].Closed() {
		t.Error("session should be closed after a timeout")
	}
}

func TestStartInteractive_Cancelled(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)

	c, svc := newConnected(t)
	svc.LaunchHold = hold

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := c.StartInteractive(ctx)
	if errors.KindOf(err) != errors.KindLaunch {
		t.Errorf("kind = %v, want launch (err %v)", errors.KindOf(err), err)
	}
}

func TestStop(t *testing.T) {
	c, svc := newConnected(t)

	if err := c.Stop(context.Background(), false); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(svc.GetCallsFor("PowerButton")) != 1 {
		t.Error("expected one power button press")
	}
	if len(svc.GetCallsFor("MachineState")) != 0 {
		t.Error("Stop without wait should not poll")
	}
}

func TestStop_Wait(t *testing.T) {
	c, svc := newConnected(t, WithStatePollInterval(time.Millisecond))
	svc.SetStates(vbox.StateRunning, vbox.StateStopping, vbox.StatePoweredOff)

	if err := c.Stop(context.Background(), true); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if n := len(svc.GetCallsFor("MachineState")); n != 3 {
		t.Errorf("polled %d times, want 3", n)
	}
}

func TestStop_WaitTimeout(t *testing.T) {
	c, svc := newConnected(t,
		WithStatePollInterval(time.Millisecond),
		WithStopTimeout(20*time.Millisecond))
	svc.SetStates(vbox.StateRunning)

	err := c.Stop(context.Background(), true)
	if errors.GetExitCode(err) != errors.ExitTimeout {
		t.Errorf("exit code = %d, want timeout (err %v)", errors.GetExitCode(err), err)
	}
}

func TestStop_PowerButtonFails(t *testing.T) {
	c, svc := newConnected(t)
	svc.SetError("PowerButton", fmt.Errorf("not running"))

	err := c.Stop(context.Background(), false)
	if errors.KindOf(err) != errors.KindStop {
		t.Errorf("kind = %v, want stop", errors.KindOf(err))
	}
	if c.ErrorMessage() != "Error while stopping machine 'devel79'." {
		t.Errorf("ErrorMessage() = %q", c.ErrorMessage())
	}
}

func TestState(t *testing.T) {
	c, svc := newConnected(t)

	state, err := c.State(context.Background())
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state != vbox.StatePoweredOff {
		t.Errorf("State() = %q, want poweroff", state)
	}

	if err := c.StartInteractive(context.Background()); err != nil {
		t.Fatalf("StartInteractive() error = %v", err)
	}
	state, _ = c.State(context.Background())
	if state.Status() != vbox.StatusRunning {
		t.Errorf("status after start = %q, want running", state.Status())
	}

	svc.SetError("MachineState", fmt.Errorf("gone"))
	if _, err := c.State(context.Background()); err == nil {
		t.Error("expected error from failing state query")
	}
}

func TestState_NotConnected(t *testing.T) {
	c := New(vbox.NewMockService().Dialer())

	state, err := c.State(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if state != vbox.StateUnknown {
		t.Errorf("State() = %q, want unknown", state)
	}
}

func TestPhaseString(t *testing.T) {
	tests := map[Phase]string{
		PhaseUninitialized: "uninitialized",
		PhaseConnected:     "connected",
		PhaseDisconnected:  "disconnected",
		Phase(9):           "phase(9)",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}
