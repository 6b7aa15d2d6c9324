package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the server until interrupted",
	Long: `Connects to the machine and checks it every checktime seconds,
reporting every change of state. While the machine runs, files created
under the configured watch directories are announced. Runs in the
foreground until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var (
	watchInterval time.Duration
	watchStart    bool
	watchRestart  bool
)

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Check interval (default: checktime from the configuration)")
	watchCmd.Flags().BoolVar(&watchStart, "start", false, "Launch the machine before watching")
	watchCmd.Flags().BoolVar(&watchRestart, "restart", false, "Launch the machine again whenever it is found stopped")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	interval := cfg.PollInterval()
	if watchInterval > 0 {
		interval = watchInterval
	}
	logInfo("Watching %s every %s", a.Name(), interval)

	if watchStart {
		startServer(ctx, a)
	}

	return watch(ctx, a, watchInterval, watchRestart)
}
