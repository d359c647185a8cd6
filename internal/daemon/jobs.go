package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/user/secdash/internal/util"
)

// Job names.
const (
	JobRefresh       = "refresh"
	JobReportArchive = "report_archive"
	JobPrune         = "history_prune"
)

// registerJobs registers the polling jobs with the scheduler.
func (d *Daemon) registerJobs() {
	d.scheduler.AddJob(&Job{
		Name:     JobRefresh,
		Interval: d.config.RefreshInterval,
		Run:      d.runRefresh,
	})

	if d.config.ReportInterval > 0 {
		d.scheduler.AddJob(&Job{
			Name:     JobReportArchive,
			Interval: d.config.ReportInterval,
			Run:      d.runReportArchive,
		})
	}

	if d.config.HistoryRetention > 0 {
		d.scheduler.AddJob(&Job{
			Name:     JobPrune,
			Interval: pruneInterval(d.config.HistoryRetention),
			Run:      d.runPrune,
		})
	}
}

func (d *Daemon) runRefresh(ctx context.Context) error {
	snap, err := d.poller.Refresh(ctx)
	if snap != nil {
		util.Debug("Snapshot: status=%s hosts=%d threats=%d alerts=%d",
			snap.Network.Status, snap.Network.HostsMonitored, snap.Network.ThreatsDetected, snap.AlertStats.Total)
	}
	if werr := WriteStatusFile(d.config.DataDir, d.GetStatus()); werr != nil {
		util.Warn("Failed to write status file: %v", werr)
	}
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

func (d *Daemon) runReportArchive(ctx context.Context) error {
	snap := d.poller.Latest()
	if snap == nil {
		util.Debug("No snapshot yet, skipping report archive")
		return nil
	}

	reports := d.generator.Generate(snap)
	ids, err := d.reports.Archive(reports)
	if err != nil {
		return err
	}
	util.Info("Archived %d reports", len(ids))
	return nil
}

func (d *Daemon) runPrune(ctx context.Context) error {
	cutoff := time.Now().Add(-d.config.HistoryRetention)

	snaps, err := d.snapshots.Prune(cutoff)
	if err != nil {
		return err
	}
	reports, err := d.reports.Prune(cutoff)
	if err != nil {
		return err
	}
	if snaps > 0 || reports > 0 {
		util.Info("Pruned %d snapshots and %d reports older than %s", snaps, reports, cutoff.Format(time.RFC3339))
	}
	return nil
}

// pruneInterval runs pruning a few times per retention window, at most
// hourly.
func pruneInterval(retention time.Duration) time.Duration {
	interval := retention / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}
