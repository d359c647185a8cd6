package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/secdash/internal/analytics"
	"github.com/user/secdash/internal/model"
)

var (
	hostStatus    string
	hostQuery     string
	alertSeverity string
	alertQuery    string
	alertCounts   bool
)

var hostsCmd = &cobra.Command{
	Use:   "hosts [ip]",
	Short: "List monitored hosts or show one host",
	Long: `List the hosts the backend monitors, or show the model outputs for one host.

Examples:
  secdash hosts
  secdash hosts --status suspicious
  secdash hosts 192.168.1.10`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHosts,
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List alerts",
	Long: `List backend alerts, optionally filtered by severity or text.

Examples:
  secdash alerts
  secdash alerts --severity high
  secdash alerts --count`,
	RunE: runAlerts,
}

var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Show the analysis overview",
	RunE:  runAnalysis,
}

func init() {
	hostsCmd.Flags().StringVar(&hostStatus, "status", "", "Filter by status (safe, suspicious, dangerous)")
	hostsCmd.Flags().StringVarP(&hostQuery, "query", "q", "", "Filter by IP or protocol")
	alertsCmd.Flags().StringVar(&alertSeverity, "severity", "", "Filter by severity (high, medium, low)")
	alertsCmd.Flags().StringVarP(&alertQuery, "query", "q", "", "Filter by IP or anomaly type")
	alertsCmd.Flags().BoolVar(&alertCounts, "count", false, "Only print per-severity counts")

	for _, c := range []*cobra.Command{hostsCmd, alertsCmd, analysisCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Print raw JSON")
	}
}

func runHosts(cmd *cobra.Command, args []string) error {
	status := model.HostStatus(hostStatus)
	switch status {
	case "", model.HostSafe, model.HostSuspicious, model.HostDangerous:
	default:
		return fmt.Errorf("unknown host status %q", hostStatus)
	}

	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		detail, ok := svc.GetHostDetail(ctx, args[0])
		if !ok {
			return fmt.Errorf("host %s not found", args[0])
		}
		if jsonOutput {
			return printJSON(detail)
		}
		printTitle("Host " + detail.IP)
		fmt.Printf("  %s %s\n", labelStyle.Render("Status:"), hostStatusText(detail.Status))
		printField("Anomaly score:", detail.ScoreText())
		printField("Anomaly type:", detail.AnomalyTypeOrDefault())
		printField("Isolation score:", fmt.Sprintf("%.4f", detail.IsoScoreOrZero()))
		printField("Autoencoder MSE:", fmt.Sprintf("%.4f", detail.AeMseOrZero()))
		printField("Protocols:", strings.Join(detail.Protocols, ", "))
		printField("Traffic:", detail.TrafficCount)
		printField("Description:", detail.DescriptionOrDefault())
		return nil
	}

	hosts := analytics.FilterHosts(svc.GetHosts(ctx), status, hostQuery)
	if jsonOutput {
		return printJSON(hosts)
	}

	printTitle(fmt.Sprintf("Hosts (%d)", len(hosts)))
	if len(hosts) == 0 {
		fmt.Println("  No hosts")
		return nil
	}
	fmt.Printf("  %-5s %-18s %-12s %-8s %-10s %s\n", "ID", "IP", "Status", "Score", "Traffic", "Protocols")
	for _, h := range hosts {
		fmt.Printf("  %-5d %-18s %-12s %-8s %-10d %s\n",
			h.ID, h.IP, hostStatusText(h.Status), h.ScoreText(), h.TrafficCount, strings.Join(h.Protocols, ","))
	}
	return nil
}

func runAlerts(cmd *cobra.Command, args []string) error {
	severity := model.Severity(alertSeverity)
	if severity != "" && !severity.Valid() {
		return fmt.Errorf("unknown severity %q", alertSeverity)
	}

	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	if alertCounts {
		stats := svc.GetAlertCount(ctx)
		if jsonOutput {
			return printJSON(stats)
		}
		printTitle("Alert Counts")
		printField("Total:", stats.Total)
		fmt.Printf("  %s %d\n", severityText(model.SeverityHigh), stats.High)
		fmt.Printf("  %s %d\n", severityText(model.SeverityMedium), stats.Medium)
		fmt.Printf("  %s %d\n", severityText(model.SeverityLow), stats.Low)
		printField("Source:", stats.Source)
		return nil
	}

	alerts := svc.GetAlerts(ctx, severity)
	if alertQuery != "" {
		alerts = analytics.FilterAlerts(alerts, "", alertQuery)
	}
	if jsonOutput {
		return printJSON(alerts)
	}

	printTitle(fmt.Sprintf("Alerts (%d)", len(alerts)))
	if len(alerts) == 0 {
		fmt.Println("  No alerts")
		return nil
	}
	fmt.Printf("  %-5s %-18s %-26s %-8s %-8s %s\n", "ID", "IP", "Type", "Severity", "Score", "Time")
	for _, a := range alerts {
		ts := model.NotAvailable
		if a.Timestamp != nil {
			ts = *a.Timestamp
		}
		fmt.Printf("  %-5d %-18s %-26s %-8s %-8.2f %s\n",
			a.ID, a.IP, a.AnomalyType, severityText(a.Severity), a.ScoreOrZero(), ts)
	}
	return nil
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	overview := svc.GetAnalysisOverview(ctx)
	if jsonOutput {
		return printJSON(overview)
	}
	if overview == nil {
		fmt.Println("Analysis data unavailable")
		return nil
	}

	printTitle("Analysis Overview")
	printField("Total events:", overview.TotalEvents)
	printField("Anomalies:", overview.AnomaliesDetected)
	printField("Anomaly rate:", fmt.Sprintf("%.2f%%", overview.AnomalyRate))

	if len(overview.TopAnomalies) > 0 {
		fmt.Println()
		printTitle("Top Anomaly Types")
		for _, a := range overview.TopAnomalies {
			fmt.Printf("  %-26s %6d %6.1f%% %s\n", a.Type, a.Count, a.Percentage, severityText(a.Severity))
		}
	}

	if len(overview.ProtocolDistribution) > 0 {
		fmt.Println()
		title := "Protocols"
		if overview.ProtocolsEstimated {
			title += " (estimated)"
		}
		printTitle(title)
		for _, p := range overview.ProtocolDistribution {
			fmt.Printf("  %-10s %8d %6.1f%%\n", p.Protocol, p.Count, p.Percentage)
		}
	}

	if len(overview.TopHosts) > 0 {
		fmt.Println()
		printTitle("Top Hosts")
		for _, h := range overview.TopHosts {
			fmt.Printf("  %-18s alerts %-5d max score %.2f\n", h.IP, h.AlertCount, h.MaxScore)
		}
	}

	fmt.Println()
	perf := overview.Performance
	title := "Model Performance"
	if perf.Estimated {
		title += " (estimated)"
	}
	printTitle(title)
	printField("Accuracy:", fmt.Sprintf("%.2f%%", perf.ModelAccuracy))
	printField("False positive rate:", fmt.Sprintf("%.2f%%", perf.FalsePositiveRate))
	if perf.DetectionTime != nil {
		printField("Detection time:", *perf.DetectionTime)
	}
	if perf.ProcessingSpeed != nil {
		printField("Processing speed:", *perf.ProcessingSpeed)
	}
	return nil
}
