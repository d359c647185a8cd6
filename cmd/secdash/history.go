package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/secdash/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show snapshots stored by the daemon",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum snapshots to show")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print raw JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	records, err := storage.NewSnapshotStorage(db).History(historyLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(records)
	}

	printTitle(fmt.Sprintf("Snapshot History (%d)", len(records)))
	if len(records) == 0 {
		fmt.Println("  No snapshots yet. Start the daemon with 'secdash start'.")
		return nil
	}
	fmt.Printf("  %-19s %-9s %-6s %-8s %-16s %s\n", "Time", "Status", "Hosts", "Threats", "Alerts (H/M/L)", "Failures")
	for _, r := range records {
		fmt.Printf("  %-19s %-9s %-6d %-8d %-16s %d\n",
			r.TakenAt.Local().Format("2006-01-02 15:04:05"),
			stateText(r.Status),
			r.HostsMonitored,
			r.ThreatsDetected,
			fmt.Sprintf("%d/%d/%d", r.Alerts.High, r.Alerts.Medium, r.Alerts.Low),
			r.Failures)
	}
	return nil
}
