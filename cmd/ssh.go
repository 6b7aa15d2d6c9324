package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/ssh"
)

var sshCmd = &cobra.Command{
	Use:   "ssh [-- command...]",
	Short: "Open an SSH session on the server",
	Long: `Replaces devel79ctl with an SSH client connected to the server.

The client is the "ssh" command line from the configuration file when
set, otherwise ssh to the management address. A command after -- runs
on the server instead of a login shell.`,
	Args: cobra.ArbitraryArgs,
	RunE: runSSH,
}

var (
	sshUser  string
	sshCheck bool
)

func init() {
	sshCmd.Flags().StringVarP(&sshUser, "user", "u", "", "Login name (ignored with a configured ssh command)")
	sshCmd.Flags().BoolVar(&sshCheck, "check", false, "Only check that a non-interactive login succeeds")
	rootCmd.AddCommand(sshCmd)
}

func runSSH(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := ssh.DefaultOptions(cfg.ManagementAddress).WithUser(sshUser).WithTTY()
	client, err := ssh.NewClient(cfg.SSHCommand, opts, nil)
	if err != nil {
		return err
	}

	if sshCheck {
		ctx, stop := signalContext()
		defer stop()

		if !client.CheckConnection(ctx) {
			return errors.SSHError("SSH login to "+cfg.DisplayName+" failed.", nil)
		}
		logSuccess("SSH login to %s succeeded", cfg.DisplayName)
		return nil
	}

	argv, err := client.Argv(args...)
	if err != nil {
		return err
	}
	if err := replaceProcess(argv); err != nil {
		return errors.SSHError("Can't run SSH client.", err)
	}
	return nil
}
