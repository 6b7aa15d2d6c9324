package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/devel79ctl/internal/tui"
)

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Interactive server dashboard",
	Long: `Shows the machine state and reachability, refreshed every
checktime seconds, with keys to start (s) and stop (x) the machine.`,
	Args: cobra.NoArgs,
	RunE: runDash,
}

func init() {
	rootCmd.AddCommand(dashCmd)
}

func runDash(cmd *cobra.Command, args []string) error {
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

	return tui.RunDashboard(ctx, dashboardInfo(cfg), a)
}
