package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/devel79ctl/internal/audit"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Display the event log of the server's machine",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

var (
	eventsLines  int
	eventsFormat string
)

func init() {
	eventsCmd.Flags().IntVarP(&eventsLines, "lines", "n", 0, "Show only the last n events (0 for all)")
	eventsCmd.Flags().StringVar(&eventsFormat, "format", "text", "Output format: text or json (one event per line)")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	if eventsFormat != "text" && eventsFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", eventsFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	auditLogger := audit.NewLogger(stateDir())
	events, err := auditLogger.Tail(cfg.MachineID, eventsLines)
	if err != nil {
		return fmt.Errorf("failed to read event log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events found for machine %s", cfg.MachineID)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		if eventsFormat == "json" {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
		} else {
			ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
			if e.Details != "" {
				fmt.Fprintf(out, "[%s] %-8s %s (%s)\n", ts, e.Type, e.Machine, e.Details)
			} else {
				fmt.Fprintf(out, "[%s] %-8s %s\n", ts, e.Type, e.Machine)
			}
		}
	}

	return nil
}
