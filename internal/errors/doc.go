// Package errors provides typed errors with exit codes for devel79ctl.
//
// # Error Types
//
// Error is the base error type. It carries an exit code, a Kind that names
// the failing step and the user-facing message shown for it:
//
//	type Error struct {
//	    Code    int    // Exit code
//	    Kind    Kind   // Failure category
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess            = 0 // Success
//	ExitGeneralError       = 1 // General/unknown errors
//	ExitConfigIO           = 2 // Configuration file missing or unreadable
//	ExitServiceUnavailable = 3 // VirtualBox cannot be reached
//	ExitMachineNotFound    = 4 // Named machine is not registered
//	ExitSessionCreation    = 5 // Session object could not be created
//	ExitLaunch             = 6 // Machine process could not be launched
//	ExitUsage              = 7 // Operation invoked in the wrong state
//	ExitTimeout            = 8 // Operation did not finish in time
//	ExitCommand            = 9 // SSH client or configured command failed
//
// # Error Constructors
//
//	errors.ConfigIO("/opt/devel79/devel79.conf", err)
//	errors.ServiceUnavailable(err)
//	errors.MachineNotFound("devel79")
//	errors.Launch("devel79", err)
//
// # Messages
//
// Message holds the text the tray program used to show in its error box,
// e.g. "Machine 'devel79' not found.". UserMessage returns it for any error
// in a chain; Error() appends the cause for logs.
package errors
