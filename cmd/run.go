package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/devel79ctl/internal/audit"
	"github.com/firefly-engineering/devel79ctl/internal/commands"
	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/health"
	"github.com/firefly-engineering/devel79ctl/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run [name]",
	Short: "Run a command from the configuration file",
	Long: `Runs one of the host commands declared in the configuration file as

  command = name | command line

and prints its output. Without a name the configured commands are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var runTimeout time.Duration

func init() {
	runCmd.Flags().DurationVar(&runTimeout, "timeout", commands.DefaultTimeout, "Maximum run time")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		if len(cfg.Commands) == 0 {
			logInfo("No commands configured in %s", cfg.Path)
			return nil
		}
		for _, c := range cfg.Commands {
			fmt.Fprintf(out, "%-20s %s\n", c.Name, c.Command)
		}
		return nil
	}

	command, ok := cfg.LookupCommand(args[0])
	if !ok {
		names := make([]string, len(cfg.Commands))
		for i, c := range cfg.Commands {
			names[i] = c.Name
		}
		if len(names) == 0 {
			return errors.ValidationError(fmt.Sprintf("Unknown command '%s': no commands configured.", args[0]))
		}
		return errors.ValidationError(fmt.Sprintf("Unknown command '%s'. Configured: %s.", args[0], strings.Join(names, ", ")))
	}

	ctx, stop := signalContext()
	defer stop()

	events := audit.NewLogger(stateDir())
	runner := commands.NewRunner(commands.WithTimeout(runTimeout))

	logInfo("%s [%s] running...", cfg.DisplayName, command.Name)
	res, err := runner.Run(ctx, command)
	if res.Output != "" {
		fmt.Fprintln(out, res.Output)
	}
	if err != nil {
		if logErr := events.LogEvent(audit.EventCommand, cfg.MachineID, fmt.Sprintf("%s failed: %s", command.Name, err)); logErr != nil {
			logging.Warn("failed to record event", "error", logErr)
		}
		return err
	}

	if logErr := events.LogEvent(audit.EventCommand, cfg.MachineID, command.Name); logErr != nil {
		logging.Warn("failed to record event", "error", logErr)
	}
	if res.Output == "" {
		logSuccess("%s [%s] %s", cfg.DisplayName, command.Name, res.Summary())
	} else {
		logSuccess("%s [%s] finished in %s", cfg.DisplayName, command.Name, health.FormatDuration(res.Duration))
	}
	return nil
}
