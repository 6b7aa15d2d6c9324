// Package commands runs the named host commands listed in the
// configuration file ("command = name | command line").
package commands

import (
	"context"
	"strings"
	"time"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/devel79ctl/internal/config"
	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/logging"
	"github.com/firefly-engineering/devel79ctl/internal/system"
)

// DefaultTimeout bounds a command run.
const DefaultTimeout = time.Minute

// Result is the outcome of a successful run.
type Result struct {
	Name     string
	Output   string
	Duration time.Duration
}

// Summary returns the output, or a fixed message when there was none.
func (r Result) Summary() string {
	if r.Output == "" {
		return "Command was successfully run."
	}
	return r.Output
}

// Runner executes configured commands.
type Runner struct {
	exec    system.CommandExecutor
	timeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor sets the command executor. nil keeps the default.
func WithExecutor(exec system.CommandExecutor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithTimeout sets the per-run timeout. Zero or less keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		exec:    system.DefaultExecutor(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run runs cmd and returns its trimmed standard output. A non-zero exit,
// a launch failure and a timeout are all reported as CommandFailed; the
// wrapped cause keeps the exit code and stderr.
func (r *Runner) Run(ctx context.Context, cmd config.Command) (Result, error) {
	argv, err := shellquote.Split(cmd.Command)
	if err != nil {
		return Result{}, errors.CommandFailed(cmd.Name, err)
	}
	if len(argv) == 0 {
		return Result{}, errors.CommandFailed(cmd.Name, errors.ValidationError("empty command line"))
	}

	path, err := r.exec.LookPath(argv[0])
	if err != nil {
		return Result{}, errors.CommandFailed(cmd.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logging.Debug("running configured command", "name", cmd.Name, "command", shellquote.Join(argv...))
	started := time.Now()
	out, err := r.exec.Run(ctx, path, argv[1:]...)
	result := Result{
		Name:     cmd.Name,
		Output:   strings.TrimSpace(string(out)),
		Duration: time.Since(started),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, errors.CommandFailed(cmd.Name, errors.Timeout(cmd.Name, r.timeout))
		}
		return result, errors.CommandFailed(cmd.Name, err)
	}
	return result, nil
}
