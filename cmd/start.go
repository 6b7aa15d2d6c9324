package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/devel79ctl/internal/machine"
	"github.com/firefly-engineering/devel79ctl/internal/vbox"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch the server's virtual machine",
	Long: `Connects to VirtualBox, launches the configured machine's console
session and waits until VirtualBox reports the launch finished.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

var (
	startTimeout time.Duration
	startType    string
)

func init() {
	startCmd.Flags().DurationVar(&startTimeout, "timeout", 0, "Maximum time to wait for the launch (0 waits indefinitely)")
	startCmd.Flags().StringVar(&startType, "type", "", "Session type: gui, headless or separate (default from sessiontype)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := []machine.Option{machine.WithLaunchTimeout(startTimeout)}
	if startType != "" {
		typ, err := vbox.ParseSessionType(startType)
		if err != nil {
			return err
		}
		opts = append(opts, machine.WithSessionType(typ))
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := openApp(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	logInfo("Starting %s...", a.Name())
	if err := a.Start(ctx); err != nil {
		return err
	}

	logSuccess("%s successfully started...", a.Name())
	return nil
}
