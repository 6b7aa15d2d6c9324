package errors

import (
	"errors"
	"fmt"
	"time"
)

// Exit codes for devel79ctl
const (
	ExitSuccess            = 0
	ExitGeneralError       = 1
	ExitConfigIO           = 2
	ExitServiceUnavailable = 3
	ExitMachineNotFound    = 4
	ExitSessionCreation    = 5
	ExitLaunch             = 6
	ExitUsage              = 7
	ExitTimeout            = 8
	ExitCommand            = 9
)

// Kind classifies an Error by the step that failed.
type Kind string

const (
	KindGeneral            Kind = "general"
	KindConfigIO           Kind = "config-io"
	KindServiceUnavailable Kind = "service-unavailable"
	KindMachineNotFound    Kind = "machine-not-found"
	KindIdentity           Kind = "identity"
	KindSessionCreation    Kind = "session-creation"
	KindLaunch             Kind = "launch"
	KindStop               Kind = "stop"
	KindUsage              Kind = "usage"
	KindTimeout            Kind = "timeout"
	KindCommand            Kind = "command"
	KindSSH                Kind = "ssh"
)

// Error is the base error type for devel79ctl
type Error struct {
	Code    int
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *Error) ExitCode() int {
	return e.Code
}

// New creates a new Error
func New(code int, kind Kind, message string) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap wraps an existing error with an Error
func Wrap(code int, kind Kind, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// ConfigIO returns an error for a configuration file that cannot be opened
func ConfigIO(path string, cause error) *Error {
	return Wrap(ExitConfigIO, KindConfigIO,
		fmt.Sprintf("Error while opening configuration file: '%s'.", path), cause)
}

// ServiceUnavailable returns an error for an unreachable control service
func ServiceUnavailable(cause error) *Error {
	return Wrap(ExitServiceUnavailable, KindServiceUnavailable, "Error while connecting to VirtualBox.", cause)
}

// MachineNotFound returns an error for a machine the service does not know
func MachineNotFound(machine string) *Error {
	return New(ExitMachineNotFound, KindMachineNotFound, fmt.Sprintf("Machine '%s' not found.", machine))
}

// Identity returns an error for a machine whose identity cannot be read
func Identity(cause error) *Error {
	return Wrap(ExitLaunch, KindIdentity, "Error while retrieving machine identity.", cause)
}

// SessionCreation returns an error for a failed session allocation
func SessionCreation(cause error) *Error {
	return Wrap(ExitSessionCreation, KindSessionCreation, "Error while creating session.", cause)
}

// Launch returns an error for a failed machine launch
func Launch(machine string, cause error) *Error {
	return Wrap(ExitLaunch, KindLaunch, fmt.Sprintf("Error while launching machine '%s'.", machine), cause)
}

// Stop returns an error for a failed power-button request
func Stop(machine string, cause error) *Error {
	return Wrap(ExitGeneralError, KindStop, fmt.Sprintf("Error while stopping machine '%s'.", machine), cause)
}

// Timeout returns an error for an operation that exceeded its deadline
func Timeout(op string, after time.Duration) *Error {
	return New(ExitTimeout, KindTimeout, fmt.Sprintf("Timed out after %s while waiting for %s.", after, op))
}

// NotConnected returns a usage error for operations that need a connection
func NotConnected(op string) *Error {
	return New(ExitUsage, KindUsage, fmt.Sprintf("Cannot %s: not connected to a machine.", op))
}

// AlreadyConnected returns a usage error for a repeated Connect
func AlreadyConnected() *Error {
	return New(ExitUsage, KindUsage, "Already connected to VirtualBox.")
}

// CommandFailed returns an error for a configured command that failed
func CommandFailed(name string, cause error) *Error {
	return Wrap(ExitCommand, KindCommand, fmt.Sprintf("Error while running command '%s'.", name), cause)
}

// SSHError returns an error for an SSH client that could not be run
func SSHError(message string, cause error) *Error {
	return Wrap(ExitCommand, KindSSH, message, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *Error {
	return New(ExitGeneralError, KindGeneral, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return ExitGeneralError
}

// KindOf returns the Kind of the first Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneral
}

// UserMessage returns the user-facing message of the first Error in
// err's chain, falling back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
