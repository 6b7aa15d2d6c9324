// Package cli parses the historical server command line:
//
//	devel79ctl [-runserver | r] [-config | c <file>]
//
// Switches are matched case-insensitively and anything else is ignored.
package cli

import "strings"

// Options are the settings recognised on the legacy command line.
type Options struct {
	// RunServer launches the machine right after connecting.
	RunServer bool

	// ConfigFile is the configuration path as given, or empty for the
	// default file next to the executable.
	ConfigFile string
}

// Parse scans args (without the program name).
func Parse(args []string) Options {
	var opts Options
	for i := 0; i < len(args); i++ {
		switch strings.ToLower(args[i]) {
		case "-runserver", "r":
			opts.RunServer = true
		case "-config", "c":
			if i+1 < len(args) {
				i++
				opts.ConfigFile = args[i]
			}
		}
	}
	return opts
}

// IsLegacy reports whether args contain a legacy switch, so callers can
// tell legacy invocations from subcommands.
func IsLegacy(args []string) bool {
	for _, arg := range args {
		switch strings.ToLower(arg) {
		case "-runserver", "r", "-config", "c":
			return true
		}
	}
	return false
}
