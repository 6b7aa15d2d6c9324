package system

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait waits for output pipes after the process
// exits or is killed. A child that inherits stderr would otherwise hold
// Wait open.
const waitDelay = 5 * time.Second

// osExecutor implements CommandExecutor using real OS operations.
type osExecutor struct{}

func (e *osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), newCommandError(name, args, stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

func (e *osExecutor) Start(ctx context.Context, name string, args ...string) (Process, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	p := &osProcess{cmd: cmd, name: name, args: args}
	cmd.Stderr = &p.stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

type osProcess struct {
	cmd    *exec.Cmd
	name   string
	args   []string
	stderr bytes.Buffer
}

func (p *osProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *osProcess) Wait() error {
	if err := p.cmd.Wait(); err != nil {
		return newCommandError(p.name, p.args, p.stderr.String(), err)
	}
	return nil
}

func newCommandError(name string, args []string, stderr string, err error) error {
	ce := &CommandError{
		Name:     name,
		Args:     args,
		ExitCode: -1,
		Stderr:   stderr,
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ce.ExitCode = exitErr.ExitCode()
	}
	return ce
}
