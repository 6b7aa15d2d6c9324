package logging

import (
	"fmt"
	"io"
	"os"
)

// Destinations for user-facing output. Commands redirect them to the
// cobra command's writers so tests can capture what the user sees.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// SetUserOutput redirects user-facing output. Nil writers restore the
// process defaults.
func SetUserOutput(stdout, stderr io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	Stdout = stdout
	Stderr = stderr
}

// UserInfo prints an info message to stdout.
func UserInfo(format string, args ...interface{}) {
	fmt.Fprintf(Stdout, "ℹ "+format+"\n", args...)
}

// UserSuccess prints a success message to stdout.
func UserSuccess(format string, args ...interface{}) {
	fmt.Fprintf(Stdout, "✓ "+format+"\n", args...)
}

// UserWarning prints a warning message to stderr.
func UserWarning(format string, args ...interface{}) {
	fmt.Fprintf(Stderr, "⚠ "+format+"\n", args...)
}

// UserError prints an error message to stderr.
func UserError(format string, args ...interface{}) {
	fmt.Fprintf(Stderr, "✗ "+format+"\n", args...)
}
