package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/secdash/internal/daemon"
	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  "Show the current status of the secdash daemon and its latest snapshot.",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	running, pid := daemon.CheckRunning(cfg.DataDir)

	printTitle("secdash Status")

	fmt.Print(labelStyle.Render("Daemon: "))
	if running {
		fmt.Println(okStyle.Render(fmt.Sprintf("Running (PID %d)", pid)))
	} else {
		fmt.Println(badStyle.Render("Stopped"))
	}

	if sf, err := daemon.ReadStatusFile(cfg.DataDir); err == nil {
		printField("Started:", sf.StartTime)
		printField("Uptime:", sf.Uptime)
		printField("Backend:", fmt.Sprintf("%s (%s)", sf.Backend, sf.Revision))
		if sf.LastSnapshot != "" {
			printField("Last snapshot:", sf.LastSnapshot)
			fmt.Printf("  %s %s\n", labelStyle.Render("Network:"), stateText(model.NetworkState(sf.NetworkState)))
		}
		if sf.Failures > 0 {
			fmt.Printf("  %s %s\n", labelStyle.Render("Degraded:"), warnStyle.Render(fmt.Sprintf("%d resources", sf.Failures)))
		}

		if len(sf.Jobs) > 0 {
			fmt.Println()
			printTitle("Jobs")

			for _, job := range sf.Jobs {
				statusStr := "idle"
				if job.Running {
					statusStr = "running"
				}
				last := "never"
				if !job.LastRun.IsZero() {
					last = job.LastRun.Format("15:04:05")
				}
				fmt.Printf("  %s: %s (every %s, last: %s, errors: %d, skipped: %d)\n",
					labelStyle.Render(job.Name),
					valueStyle.Render(statusStr),
					job.Interval,
					last,
					job.ErrorCount,
					job.Skipped)
			}
		}
	}

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil
	}
	defer db.Close()

	fmt.Println()
	printTitle("Database Stats")

	snapshots := storage.NewSnapshotStorage(db)
	if count, err := snapshots.Count(); err == nil {
		printField("Snapshots:", count)
	}
	if count, err := storage.NewReportStorage(db).Count(); err == nil {
		printField("Archived reports:", count)
	}

	if latest, err := snapshots.Latest(); err == nil && latest != nil {
		fmt.Println()
		printTitle("Latest Snapshot")
		printField("Taken:", latest.TakenAt.Local().Format("2006-01-02 15:04:05"))
		printField("Hosts:", latest.Network.HostsMonitored)
		printField("Threats:", latest.Network.ThreatsDetected)
		printField("Alerts:", fmt.Sprintf("%d (high %d, medium %d, low %d)",
			latest.AlertStats.Total, latest.AlertStats.High, latest.AlertStats.Medium, latest.AlertStats.Low))
	}

	return nil
}
