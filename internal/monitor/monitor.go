// Package monitor provides background health monitoring for the server.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/firefly-engineering/devel79ctl/internal/audit"
	"github.com/firefly-engineering/devel79ctl/internal/health"
	"github.com/firefly-engineering/devel79ctl/internal/logging"
)

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = 15 * time.Second

// Change describes a transition between two health statuses. From is
// empty for the first check.
type Change struct {
	Machine string
	From    health.Status
	To      health.Status
	Result  *health.CheckResult

	// Since is when the previous status was first observed.
	Since time.Time
}

func (c Change) String() string {
	if c.From == "" {
		return string(c.To)
	}
	return fmt.Sprintf("%s -> %s", c.From, c.To)
}

// Monitor periodically checks the health of the server.
type Monitor struct {
	interval time.Duration
	querier  health.StateQuerier
	machine  string
	address  string
	port     int

	auditLog *audit.Logger
	onChange func(Change)
	restart  func(ctx context.Context) error

	last  health.Status
	since time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithTarget sets the machine name used in events and the management
// address probed on every check.
func WithTarget(machine, address string, port int) Option {
	return func(m *Monitor) {
		m.machine = machine
		m.address = address
		m.port = port
	}
}

// WithInterval overrides the check interval. Non-positive values are
// ignored.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithAuditLogger sets the audit logger for recording state changes.
func WithAuditLogger(logger *audit.Logger) Option {
	return func(m *Monitor) {
		m.auditLog = logger
	}
}

// OnChange registers a callback invoked on every status transition,
// including the first check.
func OnChange(fn func(Change)) Option {
	return func(m *Monitor) {
		m.onChange = fn
	}
}

// WithRestart enables restarting the machine when it is found stopped.
func WithRestart(start func(ctx context.Context) error) Option {
	return func(m *Monitor) {
		m.restart = start
	}
}

// New creates a new Monitor. A non-positive interval selects
// DefaultInterval.
func New(interval time.Duration, querier health.StateQuerier, opts ...Option) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	m := &Monitor{
		interval: interval,
		querier:  querier,
		port:     health.DefaultPort,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the last observed status and when it was first seen.
func (m *Monitor) Status() (health.Status, time.Time) {
	return m.last, m.since
}

// Run starts the monitoring loop. It blocks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	logging.Debug("starting health monitor", "interval", m.interval, "machine", m.machine, "restart", m.restart != nil)

	// Run an immediate check, then loop on interval.
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Debug("health monitor stopping")
			return ctx.Err()
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check performs one health check and reports a transition if the
// status differs from the previous check.
func (m *Monitor) Check(ctx context.Context) *health.CheckResult {
	result := health.Check(ctx, m.querier, m.address, m.port)
	status := result.Summary()

	if status != m.last {
		change := Change{
			Machine: m.machine,
			From:    m.last,
			To:      status,
			Result:  result,
			Since:   m.since,
		}
		m.last = status
		m.since = result.CheckedAt

		logging.Debug("server status changed", "machine", m.machine, "change", change.String())
		m.record(audit.EventState, change.String())
		if m.onChange != nil {
			m.onChange(change)
		}
	}

	if m.restart != nil && status == health.StatusStopped && ctx.Err() == nil {
		logging.UserInfo("Restarting %s (status: %s)", m.machine, status)
		if err := m.restart(ctx); err != nil {
			logging.Warn("restart failed", "machine", m.machine, "error", err)
			m.record(audit.EventError, "restart failed: "+err.Error())
		} else {
			m.record(audit.EventStart, "restart")
		}
	}

	return result
}

func (m *Monitor) record(t audit.EventType, details string) {
	if m.auditLog == nil {
		return
	}
	if err := m.auditLog.LogEvent(t, m.machine, details); err != nil {
		logging.Debug("failed to record event", "type", t, "error", err)
	}
}
