package machine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/logging"
	"github.com/firefly-engineering/devel79ctl/internal/vbox"
)

// DefaultStatePollInterval is how often Stop re-reads the machine state
// while waiting for it to power off.
const DefaultStatePollInterval = time.Second

// Phase is the lifecycle phase of a Controller.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseConnected
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Controller is a facade over the control service holding at most one
// machine. It is not safe for concurrent use.
type Controller struct {
	dial          vbox.Dialer
	sessionType   vbox.SessionType
	launchTimeout time.Duration
	stopTimeout   time.Duration
	pollInterval  time.Duration

	phase     Phase
	service   vbox.Service
	machine   vbox.Machine
	machineID string
	lastError string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLaunchTimeout bounds the wait for a console launch. Zero waits
// until the service answers or the context is cancelled.
func WithLaunchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.launchTimeout = d
	}
}

// WithStopTimeout bounds the wait for power-off in Stop.
func WithStopTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.stopTimeout = d
	}
}

// WithSessionType sets how the console is launched.
func WithSessionType(t vbox.SessionType) Option {
	return func(c *Controller) {
		c.sessionType = t
	}
}

// WithStatePollInterval sets how often Stop polls the machine state.
func WithStatePollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// New creates a Controller that reaches the control service through dial.
func New(dial vbox.Dialer, opts ...Option) *Controller {
	c := &Controller{
		dial:         dial,
		sessionType:  vbox.SessionGUI,
		pollInterval: DefaultStatePollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Name returns the resolved machine name, or the requested id before a
// successful Connect.
func (c *Controller) Name() string {
	if c.machine.Name != "" {
		return c.machine.Name
	}
	return c.machineID
}

// Machine returns the machine handle. It is zero unless connected.
func (c *Controller) Machine() vbox.Machine {
	return c.machine
}

// ErrorMessage returns the message of the most recent failure.
func (c *Controller) ErrorMessage() string {
	return c.lastError
}

func (c *Controller) fail(err error) error {
	c.lastError = errors.UserMessage(err)
	logging.Debug("machine operation failed", "machine", c.Name(), "error", err)
	return err
}

// Connect opens the control service and resolves machineID.
func (c *Controller) Connect(ctx context.Context, machineID string) error {
	if c.phase != PhaseUninitialized {
		return c.fail(errors.AlreadyConnected())
	}
	c.machineID = machineID

	service, err := c.dial(ctx)
	if err != nil {
		return c.fail(errors.ServiceUnavailable(err))
	}

	machine, err := service.FindMachine(ctx, machineID)
	if err != nil {
		if cerr := service.Close(); cerr != nil {
			logging.Debug("closing control service", "error", cerr)
		}
		if errors.Is(err, vbox.ErrMachineNotFound) {
			return c.fail(errors.MachineNotFound(machineID))
		}
		return c.fail(errors.ServiceUnavailable(err))
	}

	c.service = service
	c.machine = machine
	c.phase = PhaseConnected
	logging.Debug("connected to machine", "machine", machine.Name, "uuid", machine.UUID, "state", machine.State)
	return nil
}

// Disconnect releases the machine and the service connection. Only the
// first call releases anything.
func (c *Controller) Disconnect() error {
	if c.phase == PhaseDisconnected {
		return nil
	}
	c.phase = PhaseDisconnected

	if c.service == nil {
		return nil
	}
	service := c.service
	c.service = nil
	c.machine = vbox.Machine{}

	logging.Debug("disconnecting from VirtualBox", "machine", c.machineID)
	return service.Close()
}

// StartInteractive launches the machine's console and waits until the
// service reports the launch finished. The session is closed on return.
func (c *Controller) StartInteractive(ctx context.Context) error {
	if c.phase != PhaseConnected {
		return c.fail(errors.NotConnected("start machine"))
	}

	if _, err := uuid.Parse(c.machine.UUID); err != nil {
		return c.fail(errors.Identity(err))
	}

	session, err := c.service.CreateSession(ctx)
	if err != nil {
		return c.fail(errors.SessionCreation(err))
	}
	defer func() {
		if err := session.Close(); err != nil {
			logging.Debug("closing session", "session", session.ID, "error", err)
		}
	}()

	progress, err := c.service.LaunchConsole(ctx, c.machine, session, c.sessionType)
	if err != nil {
		return c.fail(errors.Launch(c.machine.Name, err))
	}

	waitCtx := ctx
	if c.launchTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.launchTimeout)
		defer cancel()
	}

	if err := progress.Wait(waitCtx); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return c.fail(errors.Timeout("machine launch", c.launchTimeout))
		}
		return c.fail(errors.Launch(c.machine.Name, err))
	}

	logging.Debug("machine launched", "machine", c.machine.Name, "session", session.ID, "type", c.sessionType)
	return nil
}

// Stop presses the machine's power button. With wait set it blocks until
// the machine reports powered off.
func (c *Controller) Stop(ctx context.Context, wait bool) error {
	if c.phase != PhaseConnected {
		return c.fail(errors.NotConnected("stop machine"))
	}

	if err := c.service.PowerButton(ctx, c.machine); err != nil {
		return c.fail(errors.Stop(c.machine.Name, err))
	}
	logging.Debug("power button pressed", "machine", c.machine.Name)

	if !wait {
		return nil
	}

	waitCtx := ctx
	if c.stopTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.stopTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		state, err := c.service.MachineState(waitCtx, c.machine)
		if err != nil && waitCtx.Err() == nil {
			return c.fail(errors.Stop(c.machine.Name, err))
		}
		if err == nil && state.Status() == vbox.StatusPoweredOff {
			return nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() == nil {
				return c.fail(errors.Timeout("machine power-off", c.stopTimeout))
			}
			return c.fail(errors.Stop(c.machine.Name, ctx.Err()))
		case <-ticker.C:
		}
	}
}

// State queries the machine's current state from the service.
func (c *Controller) State(ctx context.Context) (vbox.MachineState, error) {
	if c.phase != PhaseConnected {
		return vbox.StateUnknown, c.fail(errors.NotConnected("query machine state"))
	}

	state, err := c.service.MachineState(ctx, c.machine)
	if err != nil {
		return vbox.StateUnknown, c.fail(errors.ServiceUnavailable(err))
	}
	return state, nil
}
