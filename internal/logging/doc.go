// Package logging provides logging utilities for devel79ctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("resolving machine", "machine", id)
//	logging.Warn("invalid checktime", "value", value, "default", def)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Starting %s...", name)
//	logging.UserSuccess("%s started", name)
//	logging.UserWarning("%s is not reachable at %s", name, addr)
//	logging.UserError("%s", errors.UserMessage(err))
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
