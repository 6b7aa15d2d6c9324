// Package health checks whether the development server is usable.
//
// A check combines the machine state reported by VirtualBox with a TCP
// probe of the management address on the host-only network.
//
// # Health Status
//
// Server health is represented by Status:
//
//	StatusHealthy       - machine running, management address reachable
//	StatusUnreachable   - machine running but the address does not answer
//	StatusTransitioning - machine starting or stopping
//	StatusStopped       - machine not running
//	StatusUnknown       - the state query failed
//
// # Check Functions
//
//	result := health.Check(ctx, controller, "192.168.56.1", health.DefaultPort)
//	// result.State, .Running, .Reachable
//
//	status := result.Summary()
//	msg := result.Message("devel79", "192.168.56.1")
package health
