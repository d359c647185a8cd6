package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/util"
)

// FormatMarkdown renders a snapshot and its reports as a Markdown document
// with Mermaid charts.
func FormatMarkdown(snap *model.Snapshot, reports []model.Report) string {
	if snap == nil {
		snap = &model.Snapshot{}
	}

	var sb strings.Builder
	sb.WriteString("# Security Analysis Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s  \n", time.Now().UTC().Format(time.RFC3339)))
	if !snap.TakenAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Data from: %s\n", snap.TakenAt.Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	n := snap.Network
	sb.WriteString("## Network Status\n\n")
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	sb.WriteString(fmt.Sprintf("| Status | %s |\n", n.Status))
	sb.WriteString(fmt.Sprintf("| Hosts monitored | %d |\n", n.HostsMonitored))
	sb.WriteString(fmt.Sprintf("| Threats detected | %d |\n", n.ThreatsDetected))
	if n.TrafficPerSecond != nil {
		sb.WriteString(fmt.Sprintf("| Traffic per second | %d |\n", *n.TrafficPerSecond))
	} else {
		sb.WriteString("| Traffic per second | unavailable |\n")
	}
	sb.WriteString("\n")

	st := snap.AlertStats
	sb.WriteString("## Alerts\n\n")
	sb.WriteString(fmt.Sprintf("%d alerts: %d high, %d medium, %d low (source: %s).\n\n",
		st.Total, st.High, st.Medium, st.Low, st.Source))
	sb.WriteString(SeverityPie(st))
	if len(snap.RecentAlerts) > 0 {
		sb.WriteString("\n| # | IP | Type | Severity |\n|---|---|---|---|\n")
		for _, a := range snap.RecentAlerts {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n", a.ID, a.IP, a.AnomalyType, a.Severity))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("## Hosts\n\n")
	if len(snap.Hosts) == 0 {
		sb.WriteString("No hosts reported.\n\n")
	} else {
		sb.WriteString(HostStatusPie(snap.Hosts))
		sb.WriteString("\n")
	}

	sb.WriteString("## Analysis\n\n")
	if a := snap.Analysis; a == nil {
		sb.WriteString("Analysis data unavailable.\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("%d events, %d anomalies (%.1f%%).\n\n", a.TotalEvents, a.AnomaliesDetected, a.AnomalyRate))
		if len(a.TopAnomalies) > 0 {
			sb.WriteString("| Type | Count | % | Severity |\n|---|---|---|---|\n")
			for _, t := range a.TopAnomalies {
				sb.WriteString(fmt.Sprintf("| %s | %d | %.1f | %s |\n", t.Type, t.Count, t.Percentage, t.Severity))
			}
			sb.WriteString("\n")
		}
		sb.WriteString(ProtocolPie(a.ProtocolDistribution, a.ProtocolsEstimated))
		sb.WriteString("\n")
		label := "measured"
		if a.Performance.Estimated {
			label = "estimated"
		}
		sb.WriteString(fmt.Sprintf("Model accuracy %.1f%%, false positive rate %.2f%% (%s).\n\n",
			a.Performance.ModelAccuracy, a.Performance.FalsePositiveRate, label))
	}

	if len(reports) > 0 {
		sb.WriteString("## Reports\n\n")
		sb.WriteString("| ID | Name | Format | Size |\n|---|---|---|---|\n")
		for _, r := range reports {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", r.ID, r.Name, r.Format, r.Size))
		}
	}

	return sb.String()
}

// WriteMarkdownFile writes content to a timestamped file in dir and
// returns its path.
func WriteMarkdownFile(content, dir string) (string, error) {
	if err := util.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("secdash_%s.md", time.Now().Format("2006-01-02_150405")))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}
