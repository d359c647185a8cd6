// Package report synthesizes reports from live snapshot data.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/user/secdash/internal/analytics"
	"github.com/user/secdash/internal/model"
)

// Report IDs. They name the report kind, not an instance.
const (
	IDSummary     = "summary_general"
	IDAlerts      = "critical_alerts"
	IDHosts       = "suspicious_hosts"
	IDProtocols   = "protocol_analysis"
	IDPerformance = "model_performance"
)

// Generator creates reports from a snapshot.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Generate builds every report the snapshot supports. The summary, protocol
// and performance reports are always present; the alerts report needs at
// least one high alert and the hosts report at least one host that is not
// safe.
func (g *Generator) Generate(snap *model.Snapshot) []model.Report {
	if snap == nil {
		snap = &model.Snapshot{}
	}
	date := g.now().UTC()

	reports := []model.Report{g.summary(snap, date)}

	critical := analytics.FilterAlerts(snap.Alerts, model.SeverityHigh, "")
	if len(critical) > 0 {
		reports = append(reports, g.alerts(critical, date))
	}

	suspicious := analytics.SuspiciousHosts(snap.Hosts)
	if len(suspicious) > 0 {
		reports = append(reports, g.hosts(suspicious, date))
	}

	reports = append(reports, g.protocols(snap, date), g.performance(snap, date))

	for i := range reports {
		reports[i].Size = sizeOf(reports[i])
	}
	return reports
}

// Find returns the report with id, if the snapshot supports it.
func (g *Generator) Find(snap *model.Snapshot, id string) (model.Report, bool) {
	for _, r := range g.Generate(snap) {
		if r.ID == id {
			return r, true
		}
	}
	return model.Report{}, false
}

func (g *Generator) summary(snap *model.Snapshot, date time.Time) model.Report {
	var totalEvents uint64
	anomalies := snap.Network.ThreatsDetected
	rate := 0.0
	if snap.Analysis != nil {
		totalEvents = snap.Analysis.TotalEvents
		anomalies = snap.Analysis.AnomaliesDetected
		rate = snap.Analysis.AnomalyRate
	}

	return model.Report{
		ID:          IDSummary,
		Name:        "General Analysis Summary",
		Type:        model.ReportSummary,
		Date:        date,
		Format:      model.FormatJSON,
		Description: "Complete summary of the detected anomalies",
		Metrics: map[string]any{
			"totalEvents":       totalEvents,
			"anomaliesDetected": anomalies,
			"anomalyRate":       fmt.Sprintf("%.2f%%", rate),
			"hostsAnalyzed":     len(snap.Hosts),
			"threatLevel":       ThreatLevel(snap.AlertStats),
		},
		Status: model.ReportCompleted,
	}
}

func (g *Generator) alerts(critical []model.Alert, date time.Time) model.Report {
	topType := normalizeUnknown("")
	if top := analytics.TopAnomalyTypes(critical, 1); len(top) > 0 {
		topType = normalizeUnknown(top[0].Type)
	}

	return model.Report{
		ID:          IDAlerts,
		Name:        "Critical Alerts Detected",
		Type:        model.ReportAlerts,
		Date:        date,
		Format:      model.FormatCSV,
		Description: fmt.Sprintf("Full list of %d critical alerts", len(critical)),
		Metrics: map[string]any{
			"totalAlerts":    len(critical),
			"uniqueIPs":      analytics.UniqueIPs(critical),
			"topAnomalyType": topType,
			"avgSeverity":    "HIGH",
		},
		Status: model.ReportCompleted,
	}
}

func (g *Generator) hosts(suspicious []model.Host, date time.Time) model.Report {
	var sum, top float64
	risk := "ELEVATED"
	for _, h := range suspicious {
		sum += h.AnomalyScore
		if h.AnomalyScore > top {
			top = h.AnomalyScore
		}
		if h.Status == model.HostDangerous {
			risk = "CRITICAL"
		}
	}

	return model.Report{
		ID:          IDHosts,
		Name:        "Suspicious Hosts Monitored",
		Type:        model.ReportHosts,
		Date:        date,
		Format:      model.FormatCSV,
		Description: fmt.Sprintf("Detailed analysis of %d suspicious hosts", len(suspicious)),
		Metrics: map[string]any{
			"totalHosts":      len(suspicious),
			"avgAnomalyScore": fmt.Sprintf("%.2f", sum/float64(len(suspicious))),
			"topScore":        fmt.Sprintf("%.2f", top),
			"riskLevel":       risk,
		},
		Status: model.ReportCompleted,
	}
}

func (g *Generator) protocols(snap *model.Snapshot, date time.Time) model.Report {
	dist := analytics.EstimatedProtocolDistribution(uint64(len(snap.Alerts)))
	estimated := true
	if snap.Analysis != nil && !snap.Analysis.ProtocolsEstimated && len(snap.Analysis.ProtocolDistribution) > 0 {
		dist = snap.Analysis.ProtocolDistribution
		estimated = false
	}

	distribution := make(map[string]any, len(dist))
	topProtocol := ""
	var topCount uint64
	for i, p := range dist {
		distribution[p.Protocol] = p.Count
		if i == 0 || p.Count > topCount {
			topProtocol, topCount = p.Protocol, p.Count
		}
	}

	return model.Report{
		ID:          IDProtocols,
		Name:        "Network Protocol Analysis",
		Type:        model.ReportProtocols,
		Date:        date,
		Format:      model.FormatJSON,
		Description: "Distribution of the monitored protocols",
		Metrics: map[string]any{
			"totalProtocols":    len(dist),
			"topProtocol":       topProtocol,
			"alertDistribution": distribution,
			"estimated":         estimated,
		},
		Status: model.ReportCompleted,
	}
}

// performance reports the analysis view's model metrics. Without an
// analysis view there is nothing to report and the metrics say so.
func (g *Generator) performance(snap *model.Snapshot, date time.Time) model.Report {
	metrics := map[string]any{"available": false}
	if snap.Analysis != nil {
		perf := snap.Analysis.Performance
		metrics = map[string]any{
			"available":         true,
			"accuracy":          fmt.Sprintf("%.2f%%", perf.ModelAccuracy),
			"falsePositiveRate": fmt.Sprintf("%.2f%%", perf.FalsePositiveRate),
			"estimated":         perf.Estimated,
		}
		if perf.DetectionTime != nil {
			metrics["detectionTime"] = *perf.DetectionTime
		}
		if perf.ProcessingSpeed != nil {
			metrics["processingSpeed"] = *perf.ProcessingSpeed
		}
	}

	return model.Report{
		ID:          IDPerformance,
		Name:        "AI Model Performance",
		Type:        model.ReportPerformance,
		Date:        date,
		Format:      model.FormatJSON,
		Description: "Model performance and precision metrics",
		Metrics:     metrics,
		Status:      model.ReportCompleted,
	}
}

// ThreatLevel names the highest severity present in stats.
func ThreatLevel(stats model.AlertStats) string {
	switch {
	case stats.High > 0:
		return "HIGH"
	case stats.Medium > 0:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Filter keeps reports of the given type (empty matches all) whose name or
// description contains search, case-insensitively.
func Filter(reports []model.Report, reportType model.ReportType, search string) []model.Report {
	q := strings.ToLower(strings.TrimSpace(search))
	return analytics.FilterOut(reports, func(r model.Report) bool {
		if reportType != "" && r.Type != reportType {
			return true
		}
		return q != "" &&
			!strings.Contains(strings.ToLower(r.Name), q) &&
			!strings.Contains(strings.ToLower(r.Description), q)
	})
}

// sizeOf is the size of the report's JSON download.
func sizeOf(r model.Report) string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "0.0 KB"
	}
	return formatSize(len(data))
}

func formatSize(n int) string {
	if n >= 1<<20 {
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	}
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}

func normalizeUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
