// Package ssh builds SSH client command lines for the devel79 server.
// The client is either the configured "ssh" command or the ssh binary
// pointed at the management address.
package ssh

import (
	"context"
	"fmt"
	"strings"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/logging"
	"github.com/firefly-engineering/devel79ctl/internal/system"
)

// Default SSH configuration values.
const (
	DefaultBinary         = "ssh"
	DefaultPort           = 22
	DefaultConnectTimeout = 5
)

// Options configures SSH connection parameters.
type Options struct {
	Port               int
	User               string
	Host               string
	StrictHostKeyCheck bool
	ConnectTimeout     int
	BatchMode          bool
	RequestTTY         bool
}

// DefaultOptions returns Options for host on the standard port with host
// key checking on.
func DefaultOptions(host string) Options {
	return Options{
		Port:               DefaultPort,
		Host:               host,
		StrictHostKeyCheck: true,
		ConnectTimeout:     DefaultConnectTimeout,
	}
}

// WithBatchMode returns a copy with batch mode enabled.
func (o Options) WithBatchMode() Options {
	o.BatchMode = true
	return o
}

// WithTTY returns a copy with TTY requested.
func (o Options) WithTTY() Options {
	o.RequestTTY = true
	return o
}

// WithTimeout returns a copy with the specified connect timeout.
func (o Options) WithTimeout(seconds int) Options {
	o.ConnectTimeout = seconds
	return o
}

// WithUser returns a copy logging in as user.
func (o Options) WithUser(user string) Options {
	o.User = user
	return o
}

// BaseArgs returns the common SSH arguments (options only, no destination).
func (o Options) BaseArgs() []string {
	var args []string

	if o.Port != 0 && o.Port != DefaultPort {
		args = append(args, "-p", fmt.Sprintf("%d", o.Port))
	}

	if !o.StrictHostKeyCheck {
		args = append(args, "-o", "StrictHostKeyChecking=no")
	}

	if o.BatchMode {
		args = append(args, "-o", "BatchMode=yes")
	}

	if o.ConnectTimeout > 0 {
		args = append(args, "-o", fmt.Sprintf("ConnectTimeout=%d", o.ConnectTimeout))
	}

	if o.RequestTTY {
		args = append(args, "-t")
	}

	return args
}

// Destination returns host or user@host.
func (o Options) Destination() string {
	if o.User == "" {
		return o.Host
	}
	return fmt.Sprintf("%s@%s", o.User, o.Host)
}

// BuildArgs returns complete SSH arguments for executing a command.
func (o Options) BuildArgs(command ...string) []string {
	args := o.BaseArgs()
	args = append(args, o.Destination())
	args = append(args, command...)
	return args
}

// Client resolves and runs the SSH client.
type Client struct {
	exec   system.CommandExecutor
	custom []string
	opts   Options
}

// NewClient creates a client. custom is the configured client command
// line; empty selects the ssh binary with opts. A nil executor uses
// system.DefaultExecutor().
func NewClient(custom string, opts Options, exec system.CommandExecutor) (*Client, error) {
	if exec == nil {
		exec = system.DefaultExecutor()
	}

	c := &Client{exec: exec, opts: opts}
	if strings.TrimSpace(custom) != "" {
		words, err := shellquote.Split(custom)
		if err != nil {
			return nil, errors.SSHError(fmt.Sprintf("Invalid SSH command '%s'.", custom), err)
		}
		c.custom = words
	} else if opts.Host == "" {
		return nil, errors.SSHError("No SSH command or management address configured.", nil)
	}
	return c, nil
}

// Custom reports whether the client uses the configured command line.
func (c *Client) Custom() bool {
	return len(c.custom) > 0
}

// Argv returns the full client command line with the program resolved
// to a path. A remote command is passed as one shell-quoted argument.
func (c *Client) Argv(command ...string) ([]string, error) {
	var argv []string
	if c.Custom() {
		argv = append(argv, c.custom...)
	} else {
		argv = append([]string{DefaultBinary}, c.opts.BuildArgs()...)
	}
	if len(command) > 0 {
		argv = append(argv, shellquote.Join(command...))
	}

	path, err := c.exec.LookPath(argv[0])
	if err != nil {
		return nil, errors.SSHError(fmt.Sprintf("SSH client '%s' not found.", argv[0]), err)
	}
	argv[0] = path

	logging.Debug("ssh command line", "command", shellquote.Join(argv...))
	return argv, nil
}

// Output runs command on the server and returns its standard output. The
// ssh binary is switched to batch mode so it never prompts.
func (c *Client) Output(ctx context.Context, command ...string) ([]byte, error) {
	client := *c
	client.opts = c.opts.WithBatchMode()

	argv, err := client.Argv(command...)
	if err != nil {
		return nil, err
	}
	out, err := c.exec.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return out, errors.SSHError("SSH command failed.", err)
	}
	return out, nil
}

// CheckConnection reports whether a non-interactive login succeeds.
func (c *Client) CheckConnection(ctx context.Context) bool {
	_, err := c.Output(ctx, "true")
	return err == nil
}
