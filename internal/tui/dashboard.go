package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/health"
	"github.com/firefly-engineering/devel79ctl/internal/vbox"
)

// maxActivity is how many activity lines the dashboard keeps.
const maxActivity = 5

// Actions are the machine operations the dashboard can trigger.
type Actions interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context, wait bool) error
	State(ctx context.Context) (vbox.MachineState, error)
}

// Info describes the server shown on the dashboard.
type Info struct {
	Name     string
	Machine  string
	Address  string
	Port     int
	Interval time.Duration
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type keyMap struct {
	Start   key.Binding
	Stop    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
	Stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

type checkMsg struct {
	result *health.CheckResult
}

type actionMsg struct {
	action string
	err    error
}

// gate serializes controller calls with shutdown. Calls made after
// close are skipped, and close waits for a call in flight.
type gate struct {
	mu     sync.Mutex
	closed bool
}

func (g *gate) do(fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	fn()
	return true
}

func (g *gate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// Model is the bubbletea model for the server dashboard
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	gate    *gate
	info    Info
	actions Actions

	spinner  spinner.Model
	help     help.Model
	busy     string
	checking bool

	result   *health.CheckResult
	status   health.Status
	since    time.Time
	activity []string

	// quitPending is set when quit was asked for while a call was in
	// flight; the dashboard exits once it returns.
	quitPending bool
	quitting    bool
	width       int
}

// NewDashboard creates a dashboard model for the server.
func NewDashboard(ctx context.Context, info Info, actions Actions) Model {
	if info.Interval <= 0 {
		info.Interval = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		ctx:     ctx,
		cancel:  cancel,
		gate:    &gate{},
		info:    info,
		actions: actions,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("39"))),
		),
		help: help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.check(), m.tick(), m.spinner.Tick)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.info.Interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) check() tea.Cmd {
	ctx, g, actions, info := m.ctx, m.gate, m.actions, m.info
	return func() tea.Msg {
		var result *health.CheckResult
		if !g.do(func() { result = health.Check(ctx, actions, info.Address, info.Port) }) {
			return nil
		}
		return checkMsg{result: result}
	}
}

func (m Model) run(action string) tea.Cmd {
	ctx, g, actions := m.ctx, m.gate, m.actions
	return func() tea.Msg {
		var err error
		ran := g.do(func() {
			switch action {
			case "start":
				err = actions.Start(ctx)
			case "stop":
				err = actions.Stop(ctx, true)
			}
		})
		if !ran {
			return nil
		}
		return actionMsg{action: action, err: err}
	}
}

// Close cancels any call in flight and waits for it to return. Calls
// issued afterwards are dropped, so the caller may release the
// controller once Close returns.
func (m Model) Close() {
	m.cancel()
	m.gate.close()
}

// finish quits once a pending quit has no call left in flight.
func (m Model) finish() (tea.Model, tea.Cmd) {
	if m.quitPending && m.idle() {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// idle reports whether no controller call is in flight.
func (m Model) idle() bool {
	return m.busy == "" && !m.checking
}

func (m *Model) note(line string) {
	stamp := time.Now().Format("15:04:05")
	m.activity = append(m.activity, dimStyle.Render(stamp)+" "+line)
	if len(m.activity) > maxActivity {
		m.activity = m.activity[len(m.activity)-maxActivity:]
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			if !m.idle() {
				if !m.quitPending {
					m.quitPending = true
					if m.busy != "" {
						m.note("Cancelling " + m.busy + " before quitting...")
					}
					m.cancel()
				}
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Start):
			if !m.idle() {
				return m, nil
			}
			m.busy = "start"
			m.note("Starting " + m.info.Name + "...")
			return m, m.run("start")

		case key.Matches(msg, keys.Stop):
			if !m.idle() {
				return m, nil
			}
			m.busy = "stop"
			m.note("Stopping " + m.info.Name + "...")
			return m, m.run("stop")

		case key.Matches(msg, keys.Refresh):
			if !m.idle() {
				return m, nil
			}
			m.checking = true
			return m, m.check()
		}

	case tickMsg:
		if m.quitPending {
			return m, nil
		}
		// Skip the check while an action owns the controller.
		if !m.idle() {
			return m, m.tick()
		}
		m.checking = true
		return m, tea.Batch(m.check(), m.tick())

	case checkMsg:
		m.checking = false
		m.result = msg.result
		if status := msg.result.Summary(); status != m.status {
			m.status = status
			m.since = msg.result.CheckedAt
		}
		return m.finish()

	case actionMsg:
		m.busy = ""
		if msg.err != nil {
			m.note(errStyle.Render("✗ ") + errors.UserMessage(msg.err))
		} else if msg.action == "start" {
			m.note(okStyle.Render("✓ ") + m.info.Name + " successfully started...")
		} else {
			m.note(okStyle.Render("✓ ") + m.info.Name + " was successfully stopped...")
		}
		if m.quitPending {
			return m.finish()
		}
		m.checking = true
		return m, m.check()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.info.Name))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}

	row("Machine", m.info.Machine)
	row("Address", m.info.Address)

	if m.result == nil {
		row("Status", m.spinner.View()+" checking...")
	} else {
		status := StatusIcon(m.status) + " " + styleFor(m.status).Render(string(m.status))
		if !m.since.IsZero() {
			status += dimStyle.Render(" for " + health.FormatDuration(time.Since(m.since)))
		}
		row("Status", status)
		row("State", string(m.result.State))
		row("Reachable", yesNo(m.result.Reachable))
		row("Checked", m.result.CheckedAt.Format("15:04:05")+dimStyle.Render(fmt.Sprintf(" (every %s)", m.info.Interval)))
	}

	if m.busy != "" {
		b.WriteString("\n" + m.spinner.View() + " " + m.busy + " in progress\n")
	}

	if len(m.activity) > 0 {
		b.WriteString("\n")
		for _, line := range m.activity {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString(helpStyle.Render(m.help.View(keys)))
	return b.String()
}

// StatusIcon returns the marker shown next to a health status.
func StatusIcon(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return "✓"
	case health.StatusUnreachable:
		return "⚠"
	case health.StatusTransitioning:
		return "◐"
	case health.StatusUnknown:
		return "?"
	default:
		return "●"
	}
}

func styleFor(s health.Status) lipgloss.Style {
	switch s {
	case health.StatusHealthy:
		return okStyle
	case health.StatusUnreachable, health.StatusTransitioning:
		return warnStyle
	default:
		return errStyle
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// RenderStatus renders a one-shot status block for non-interactive output.
func RenderStatus(info Info, result *health.CheckResult) string {
	var b strings.Builder
	status := result.Summary()

	b.WriteString(titleStyle.Render(info.Name))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Machine") + info.Machine + "\n")
	b.WriteString(labelStyle.Render("Address") + info.Address + "\n")
	b.WriteString(labelStyle.Render("Status") + StatusIcon(status) + " " + styleFor(status).Render(string(status)) + "\n")
	b.WriteString(labelStyle.Render("State") + string(result.State) + "\n")
	b.WriteString(labelStyle.Render("Reachable") + yesNo(result.Reachable) + "\n")
	return b.String()
}

// RunDashboard runs the interactive dashboard until the user quits or
// ctx is cancelled. It returns only after any controller call started
// from the dashboard has returned.
func RunDashboard(ctx context.Context, info Info, actions Actions) error {
	m := NewDashboard(ctx, info, actions)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
