// Package vbox is the boundary to the VirtualBox control service.
//
// The Service interface mirrors the handful of calls the tray program made
// through the VirtualBox API: resolve a machine, create a session, launch
// the machine's console and wait on the resulting progress handle. Callers
// must use them in that order.
//
// # VBoxManage
//
// Manage implements Service by driving the VBoxManage front end through a
// system.CommandExecutor:
//
//	Dial          VBoxManage --version
//	FindMachine   VBoxManage showvminfo <machine> --machinereadable
//	LaunchConsole VBoxManage startvm <uuid> --type gui|headless|separate
//	PowerButton   VBoxManage controlvm <uuid> acpipowerbutton
//
// The progress of a launch is the startvm process itself: VBoxManage exits
// once the machine has finished powering on.
//
// # Mock Service
//
// NewMockService returns an in-memory Service for tests that records every
// call and can be primed with machines, states and per-operation errors.
package vbox
