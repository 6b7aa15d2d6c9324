package app

import (
	"context"
	"sync"

	"github.com/firefly-engineering/devel79ctl/internal/audit"
	"github.com/firefly-engineering/devel79ctl/internal/config"
	"github.com/firefly-engineering/devel79ctl/internal/dirwatch"
	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/logging"
	"github.com/firefly-engineering/devel79ctl/internal/machine"
	"github.com/firefly-engineering/devel79ctl/internal/monitor"
	"github.com/firefly-engineering/devel79ctl/internal/vbox"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded server configuration
	Config *config.Configuration

	// Controller owns the connection to the machine
	Controller *machine.Controller

	// Events records lifecycle events; nil disables recording
	Events *audit.Logger

	dialer     vbox.Dialer
	ctrlOpts   []machine.Option
	closeOnce  sync.Once
	closeError error
}

// Option is a function that configures the App
type Option func(*App)

// WithDialer sets the control service dialer
func WithDialer(d vbox.Dialer) Option {
	return func(a *App) {
		a.dialer = d
	}
}

// WithController sets a prebuilt controller
func WithController(c *machine.Controller) Option {
	return func(a *App) {
		a.Controller = c
	}
}

// WithControllerOptions adds options for the controller built by New
func WithControllerOptions(opts ...machine.Option) Option {
	return func(a *App) {
		a.ctrlOpts = append(a.ctrlOpts, opts...)
	}
}

// WithEvents sets the event log
func WithEvents(l *audit.Logger) Option {
	return func(a *App) {
		a.Events = l
	}
}

// New creates a new App for cfg with the given options.
// Without WithDialer the controller talks to VBoxManage.
func New(cfg *config.Configuration, opts ...Option) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{Config: cfg}

	for _, opt := range opts {
		opt(a)
	}

	if a.Controller == nil {
		if a.dialer == nil {
			a.dialer = vbox.NewDialer(vbox.Options{Binary: cfg.VBoxManage})
		}
		sessionType, err := vbox.ParseSessionType(cfg.SessionType)
		if err != nil {
			logging.Debug("invalid session type, using default", "error", err)
			sessionType = vbox.SessionGUI
		}
		ctrlOpts := append([]machine.Option{machine.WithSessionType(sessionType)}, a.ctrlOpts...)
		a.Controller = machine.New(a.dialer, ctrlOpts...)
	}

	return a
}

// Name returns the display name of the server
func (a *App) Name() string {
	return a.Config.DisplayName
}

// Open connects to the configured machine and, with runServer, starts it.
func (a *App) Open(ctx context.Context, runServer bool) error {
	if err := a.Connect(ctx); err != nil {
		return err
	}
	if runServer {
		return a.Start(ctx)
	}
	return nil
}

// Connect connects the controller to the configured machine.
func (a *App) Connect(ctx context.Context) error {
	if err := a.Controller.Connect(ctx, a.Config.MachineID); err != nil {
		a.record(audit.EventError, errors.UserMessage(err))
		return err
	}
	a.record(audit.EventConnect, "uuid="+a.Controller.Machine().UUID)
	return nil
}

// Start launches the machine's console session.
func (a *App) Start(ctx context.Context) error {
	if err := a.Controller.StartInteractive(ctx); err != nil {
		a.record(audit.EventError, errors.UserMessage(err))
		return err
	}
	a.record(audit.EventStart, "")
	return nil
}

// Stop presses the machine's power button, optionally waiting for it to
// power off.
func (a *App) Stop(ctx context.Context, wait bool) error {
	if err := a.Controller.Stop(ctx, wait); err != nil {
		a.record(audit.EventError, errors.UserMessage(err))
		return err
	}
	a.record(audit.EventStop, "")
	return nil
}

// State queries the machine state.
func (a *App) State(ctx context.Context) (vbox.MachineState, error) {
	return a.Controller.State(ctx)
}

// Monitor builds a watch loop for the configured machine polling every
// checktime seconds.
func (a *App) Monitor(opts ...monitor.Option) *monitor.Monitor {
	base := []monitor.Option{
		monitor.WithTarget(a.Config.MachineID, a.Config.ManagementAddress, 0),
	}
	if a.Events != nil {
		base = append(base, monitor.WithAuditLogger(a.Events))
	}
	return monitor.New(a.Config.PollInterval(), a.Controller, append(base, opts...)...)
}

// Watcher builds the watcher for the configured watch directories.
func (a *App) Watcher(opts ...dirwatch.Option) *dirwatch.Watcher {
	base := []dirwatch.Option{dirwatch.WithMachine(a.Config.MachineID)}
	if a.Events != nil {
		base = append(base, dirwatch.WithAuditLogger(a.Events))
	}
	return dirwatch.New(a.Config.Watches, append(base, opts...)...)
}

// Close disconnects from the machine. Only the first call disconnects;
// later calls return the first result.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.closeError = a.Controller.Disconnect()
	})
	return a.closeError
}

func (a *App) record(t audit.EventType, details string) {
	if a.Events == nil {
		return
	}
	if err := a.Events.LogEvent(t, a.Config.MachineID, details); err != nil {
		logging.Debug("failed to record event", "type", t, "error", err)
	}
}
