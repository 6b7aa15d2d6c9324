package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/devel79ctl/internal/health"
	"github.com/firefly-engineering/devel79ctl/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the server's machine state and reachability",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var statusFormat string

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "text", "Output format: text or json")
	rootCmd.AddCommand(statusCmd)
}

// statusReport is the JSON form of a status check.
type statusReport struct {
	Name      string        `json:"name"`
	Machine   string        `json:"machine"`
	Address   string        `json:"ip"`
	State     string        `json:"state"`
	Running   bool          `json:"running"`
	Reachable bool          `json:"reachable"`
	Status    health.Status `json:"status"`
	Message   string        `json:"message"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusFormat != "text" && statusFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", statusFormat)
	}

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

	result := health.Check(ctx, a, cfg.ManagementAddress, health.DefaultPort)
	message := result.Message(cfg.MachineID, cfg.ManagementAddress)
	out := cmd.OutOrStdout()

	if statusFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statusReport{
			Name:      cfg.DisplayName,
			Machine:   cfg.MachineID,
			Address:   cfg.ManagementAddress,
			State:     string(result.State),
			Running:   result.Running,
			Reachable: result.Reachable,
			Status:    result.Summary(),
			Message:   message,
		})
	}

	fmt.Fprint(out, tui.RenderStatus(dashboardInfo(cfg), result))
	fmt.Fprintln(out)
	fmt.Fprintln(out, message)
	return nil
}
