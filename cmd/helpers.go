package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firefly-engineering/devel79ctl/internal/app"
	"github.com/firefly-engineering/devel79ctl/internal/audit"
	"github.com/firefly-engineering/devel79ctl/internal/config"
	"github.com/firefly-engineering/devel79ctl/internal/dirwatch"
	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/health"
	"github.com/firefly-engineering/devel79ctl/internal/machine"
	"github.com/firefly-engineering/devel79ctl/internal/monitor"
	"github.com/firefly-engineering/devel79ctl/internal/tui"
	"github.com/firefly-engineering/devel79ctl/internal/vbox"
)

// Replaced in tests.
var (
	dialer    vbox.Dialer
	stateDir  = config.DefaultStateDir
	statePoll = machine.DefaultStatePollInterval

	// replaceProcess execs argv in place of the current process.
	replaceProcess = func(argv []string) error {
		return syscall.Exec(argv[0], argv, os.Environ())
	}

	// signalContext returns a context cancelled on SIGINT or SIGTERM.
	signalContext = func() (context.Context, context.CancelFunc) {
		return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	}
)

// loadConfig loads the configuration named by --config.
func loadConfig() (*config.Configuration, error) {
	return config.Load(configPath)
}

// newApp builds the application context for cfg.
func newApp(cfg *config.Configuration, opts ...machine.Option) *app.App {
	appOpts := []app.Option{
		app.WithEvents(audit.NewLogger(stateDir())),
		app.WithControllerOptions(machine.WithStatePollInterval(statePoll)),
		app.WithControllerOptions(opts...),
	}
	if dialer != nil {
		appOpts = append(appOpts, app.WithDialer(dialer))
	}
	return app.New(cfg, appOpts...)
}

// openApp builds the application context and connects to the machine.
// The returned App must be closed by the caller.
func openApp(ctx context.Context, cfg *config.Configuration, opts ...machine.Option) (*app.App, error) {
	a := newApp(cfg, opts...)
	if err := a.Connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// startServer launches the machine and reports the outcome. Failures are
// reported, not returned, so the caller keeps watching.
func startServer(ctx context.Context, a *app.App) {
	logInfo("Starting %s...", a.Name())
	if err := a.Start(ctx); err != nil {
		if ctx.Err() == nil {
			logError("%s failed to start: %s", a.Name(), errors.UserMessage(err))
		}
		return
	}
	logSuccess("%s successfully started...", a.Name())
}

// watch polls the machine until ctx is cancelled. interval 0 uses the
// configured checktime.
func watch(ctx context.Context, a *app.App, interval time.Duration, restart bool) error {
	files := a.Watcher(dirwatch.OnFile(reportFile))
	defer files.Stop()

	opts := []monitor.Option{
		monitor.WithInterval(interval),
		monitor.OnChange(func(c monitor.Change) {
			reportChange(a.Config, c)
			followServer(ctx, files, c.Result.Running)
		}),
	}
	if restart {
		opts = append(opts, monitor.WithRestart(a.Start))
	}

	err := a.Monitor(opts...).Run(ctx)
	if done(ctx, err) {
		logInfo("Stopped watching %s", a.Name())
		return nil
	}
	return err
}

// reportChange prints a status transition the way the tray reported it.
func reportChange(cfg *config.Configuration, c monitor.Change) {
	icon := tui.StatusIcon(c.To)
	switch c.To {
	case health.StatusHealthy:
		logSuccess("%s %s", icon, c.Result.Message(cfg.MachineID, cfg.ManagementAddress))
	case health.StatusUnreachable:
		logWarning("%s %s", icon, c.Result.Message(cfg.MachineID, cfg.ManagementAddress))
	case health.StatusTransitioning:
		logInfo("%s %s is %s...", icon, cfg.DisplayName, c.Result.State)
	case health.StatusStopped:
		if c.From == "" {
			logInfo("%s %s isn't running", icon, cfg.DisplayName)
		} else {
			logWarning("%s %s isn't running...", icon, cfg.DisplayName)
		}
	default:
		logError("%s %s", icon, c.Result.Message(cfg.MachineID, cfg.ManagementAddress))
	}
}

// followServer watches the configured directories while the server runs.
func followServer(ctx context.Context, files *dirwatch.Watcher, running bool) {
	if files.Len() == 0 || running == files.Active() {
		return
	}
	if !running {
		files.Stop()
		return
	}
	if err := files.Start(ctx); err != nil {
		logWarning("%s", errors.UserMessage(err))
	}
}

func reportFile(e dirwatch.Event) {
	logInfo("%s", e.Message())
}

// dashboardInfo describes the configured server for the dashboard.
func dashboardInfo(cfg *config.Configuration) tui.Info {
	return tui.Info{
		Name:     cfg.DisplayName,
		Machine:  cfg.MachineID,
		Address:  cfg.ManagementAddress,
		Port:     health.DefaultPort,
		Interval: cfg.PollInterval(),
	}
}
