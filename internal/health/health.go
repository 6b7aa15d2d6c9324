package health

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/firefly-engineering/devel79ctl/internal/logging"
	"github.com/firefly-engineering/devel79ctl/internal/vbox"
)

// Status represents the health status of the server
type Status string

const (
	StatusHealthy       Status = "healthy"
	StatusUnreachable   Status = "unreachable"
	StatusTransitioning Status = "transitioning"
	StatusStopped       Status = "stopped"
	StatusUnknown       Status = "unknown"

	// DefaultPort is the port probed on the management address.
	DefaultPort = 22
)

// ProbeTimeout bounds a single reachability probe.
var ProbeTimeout = 2 * time.Second

// StateQuerier reports the current machine state.
type StateQuerier interface {
	State(ctx context.Context) (vbox.MachineState, error)
}

// CheckResult contains the results of health checks
type CheckResult struct {
	State     vbox.MachineState
	Running   bool
	Reachable bool
	Err       error
	CheckedAt time.Time
}

// CheckAddress reports whether address:port accepts TCP connections.
func CheckAddress(ctx context.Context, address string, port int) bool {
	if address == "" {
		return false
	}
	if port <= 0 {
		port = DefaultPort
	}

	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		logging.Debug("management address probe failed", "address", address, "port", port, "error", err)
		return false
	}
	conn.Close()
	return true
}

// Check queries the machine state and probes the management address.
// The address is probed whatever the state, so a server answering while
// VirtualBox reports it stopped is still visible.
func Check(ctx context.Context, q StateQuerier, address string, port int) *CheckResult {
	result := &CheckResult{State: vbox.StateUnknown, CheckedAt: time.Now()}

	if q != nil {
		state, err := q.State(ctx)
		if err != nil {
			result.Err = err
		} else {
			result.State = state
			result.Running = state.Status() == vbox.StatusRunning
		}
	}

	result.Reachable = CheckAddress(ctx, address, port)
	return result
}

// Summary returns a summary health status.
func (r *CheckResult) Summary() Status {
	switch {
	case r.Err != nil:
		return StatusUnknown
	case r.Running && r.Reachable:
		return StatusHealthy
	case r.Running:
		return StatusUnreachable
	}

	switch r.State.Status() {
	case vbox.StatusStarting, vbox.StatusStopping:
		return StatusTransitioning
	default:
		return StatusStopped
	}
}

// Message describes the result the way the server test reports it.
func (r *CheckResult) Message(machine, address string) string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("The state of virtual machine \"%s\" could not be read: %v", machine, r.Err)
	case !r.Running && !r.Reachable:
		return fmt.Sprintf("The virtual machine \"%s\" isn't running and the VirtualBox host adapter \"%s\" is unreachable!", machine, address)
	case !r.Reachable:
		return fmt.Sprintf("The virtual machine \"%s\" is running, but the VirtualBox host adapter \"%s\" is unreachable!", machine, address)
	case !r.Running:
		return fmt.Sprintf("The virtual machine \"%s\" isn't running, but the VirtualBox host adapter \"%s\" answers!", machine, address)
	default:
		return fmt.Sprintf("The virtual machine \"%s\" is running and the VirtualBox host adapter \"%s\" answers!", machine, address)
	}
}

// FormatDuration renders d compactly, e.g. "45m" or "2h 30m".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
