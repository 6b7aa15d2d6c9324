package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/devel79ctl/internal/machine"
	"github.com/firefly-engineering/devel79ctl/internal/vbox"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Shut down the server's virtual machine",
	Long: `Presses the machine's ACPI power button so the guest shuts down
cleanly. By default waits until the machine is powered off.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

var (
	stopWait    bool
	stopTimeout time.Duration
)

func init() {
	stopCmd.Flags().BoolVar(&stopWait, "wait", true, "Wait until the machine is powered off")
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 2*time.Minute, "Maximum time to wait for power-off (0 waits indefinitely)")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := openApp(ctx, cfg, machine.WithStopTimeout(stopTimeout))
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.State(ctx)
	if err != nil {
		return err
	}
	if state.Status() == vbox.StatusPoweredOff {
		logWarning("%s isn't running...", a.Name())
		return nil
	}

	if stopWait {
		logInfo("Stopping %s (timeout: %s)...", a.Name(), stopTimeout)
	} else {
		logInfo("Stopping %s...", a.Name())
	}

	if err := a.Stop(ctx, stopWait); err != nil {
		return err
	}

	if stopWait {
		logSuccess("%s was successfully stopped...", a.Name())
	} else {
		logSuccess("Power button pressed on %s", a.Name())
	}
	return nil
}
