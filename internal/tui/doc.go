// Package tui provides the terminal dashboard for devel79ctl.
//
// The dashboard uses the Bubble Tea framework to show the server's
// machine state and management address reachability, refreshed every
// checktime seconds:
//
//	info := tui.Info{Name: cfg.DisplayName, Machine: cfg.MachineID, Address: cfg.ManagementAddress, Interval: cfg.PollInterval()}
//	err := tui.RunDashboard(ctx, info, application)
//
// # Keys
//
//   - s: start the machine
//   - x: stop the machine and wait for power-off
//   - r: refresh now
//   - q: quit
//
// Start, stop and checks run as commands off the UI loop. Only one of
// them is in flight at a time; periodic checks are skipped while an
// action runs.
package tui
