// Package model defines the view-models secdash assembles from backend payloads.
package model

import (
	"fmt"
	"time"
)

// NetworkState is the aggregate network state shown on the dashboard.
type NetworkState string

const (
	StateSafe    NetworkState = "safe"
	StateWarning NetworkState = "warning"
	StateDanger  NetworkState = "danger"
	StateOnline  NetworkState = "online"
	StateOffline NetworkState = "offline"
)

// Valid reports whether s is a known network state.
func (s NetworkState) Valid() bool {
	switch s {
	case StateSafe, StateWarning, StateDanger, StateOnline, StateOffline:
		return true
	}
	return false
}

// HostStatus classifies a host by anomaly score.
type HostStatus string

const (
	HostSafe       HostStatus = "safe"
	HostSuspicious HostStatus = "suspicious"
	HostDangerous  HostStatus = "dangerous"
)

// Severity is the criticality of an alert.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Valid reports whether s is one of high, medium or low.
func (s Severity) Valid() bool {
	return s == SeverityHigh || s == SeverityMedium || s == SeverityLow
}

// Rank orders severities; higher is more critical.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// DefaultProtocols is shown when the backend does not report top protocols.
var DefaultProtocols = []string{"HTTP", "HTTPS", "TCP", "UDP", "DNS"}

// NetworkStatus is the dashboard summary.
type NetworkStatus struct {
	Status          NetworkState `json:"status"`
	HostsMonitored  uint64       `json:"hostsMonitored"`
	ThreatsDetected uint64       `json:"threatsDetected"`
	// TrafficPerSecond is nil when the backend has no traffic counter.
	TrafficPerSecond      *uint64  `json:"trafficPerSecond"`
	TopProtocols          []string `json:"topProtocols"`
	TopProtocolsEstimated bool     `json:"topProtocolsEstimated"`
}

// Host is one monitored host.
type Host struct {
	ID           uint64     `json:"id"`
	IP           string     `json:"ip"`
	Status       HostStatus `json:"status"`
	AnomalyScore float64    `json:"anomalyScore"`
	Protocols    []string   `json:"protocols"`
	TrafficCount uint64     `json:"trafficCount"`
	// ScoreMissing is set when the backend sent no anomaly score. The host
	// is then scored 0 and classified safe.
	ScoreMissing bool `json:"scoreMissing,omitempty"`
	// Flagged mirrors a nonzero combined_flag on the host record.
	Flagged bool `json:"flagged,omitempty"`
}

// ScoreText formats the anomaly score with two decimals, or "N/A" when the
// backend sent none.
func (h Host) ScoreText() string {
	if h.ScoreMissing {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", h.AnomalyScore)
}

// HostDetail extends Host with model outputs. Nil fields were absent
// from the backend payload; the accessors return the display defaults.
type HostDetail struct {
	Host
	AnomalyType *string  `json:"anomalyType"`
	IsoScore    *float64 `json:"isoScore"`
	AeMse       *float64 `json:"aeMse"`
	Description *string  `json:"description"`
}

// NotAvailable is the display default for absent text fields.
const NotAvailable = "N/A"

// AnomalyTypeOrDefault returns the anomaly type or "N/A".
func (h HostDetail) AnomalyTypeOrDefault() string {
	if h.AnomalyType == nil {
		return NotAvailable
	}
	return *h.AnomalyType
}

// DescriptionOrDefault returns the description or "N/A".
func (h HostDetail) DescriptionOrDefault() string {
	if h.Description == nil {
		return NotAvailable
	}
	return *h.Description
}

// IsoScoreOrZero returns the isolation forest score or 0.
func (h HostDetail) IsoScoreOrZero() float64 {
	if h.IsoScore == nil {
		return 0
	}
	return *h.IsoScore
}

// AeMseOrZero returns the autoencoder reconstruction error or 0.
func (h HostDetail) AeMseOrZero() float64 {
	if h.AeMse == nil {
		return 0
	}
	return *h.AeMse
}

// Alert is one flagged event. ID is the 1-based position in the fetched
// batch and is not stable across refreshes.
type Alert struct {
	ID           uint64   `json:"id"`
	IP           string   `json:"ip"`
	AnomalyType  string   `json:"anomalyType"`
	Severity     Severity `json:"severity"`
	Timestamp    *string  `json:"timestamp,omitempty"`
	AnomalyScore *float64 `json:"anomalyScore,omitempty"`
}

// ScoreOrZero returns the alert's anomaly score or 0.
func (a Alert) ScoreOrZero() float64 {
	if a.AnomalyScore == nil {
		return 0
	}
	return *a.AnomalyScore
}

// StatsSource records where alert counts came from.
type StatsSource string

const (
	StatsFromBackend  StatsSource = "backend"
	StatsFromLocal    StatsSource = "local"
	StatsFromFallback StatsSource = "fallback"
)

// AlertStats holds per-severity alert counts.
type AlertStats struct {
	Total  uint64      `json:"total"`
	High   uint64      `json:"high"`
	Medium uint64      `json:"medium"`
	Low    uint64      `json:"low"`
	Source StatsSource `json:"source"`
}

// AnomalyTypeCount is one row of the top anomaly types ranking.
type AnomalyTypeCount struct {
	Type       string   `json:"type"`
	Count      uint64   `json:"count"`
	Percentage float64  `json:"percentage"`
	Severity   Severity `json:"severity"`
}

// ProtocolShare is one slice of the protocol distribution.
type ProtocolShare struct {
	Protocol   string  `json:"protocol"`
	Count      uint64  `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// HostScore is one row of the top hosts ranking.
type HostScore struct {
	IP         string  `json:"ip"`
	AlertCount uint64  `json:"alertCount"`
	MaxScore   float64 `json:"maxScore"`
}

// Performance describes model quality. Estimated is set when the values
// are heuristics derived from the anomaly rate rather than measurements.
type Performance struct {
	ModelAccuracy     float64 `json:"modelAccuracy"`
	FalsePositiveRate float64 `json:"falsePositiveRate"`
	DetectionTime     *string `json:"detectionTime"`
	ProcessingSpeed   *string `json:"processingSpeed"`
	Estimated         bool    `json:"estimated"`
}

// AnalysisOverview is the analysis view.
type AnalysisOverview struct {
	TotalEvents          uint64             `json:"totalEvents"`
	AnomaliesDetected    uint64             `json:"anomaliesDetected"`
	AnomalyRate          float64            `json:"anomalyRate"`
	TopAnomalies         []AnomalyTypeCount `json:"topAnomalies"`
	ProtocolDistribution []ProtocolShare    `json:"protocolDistribution"`
	ProtocolsEstimated   bool               `json:"protocolsEstimated"`
	TopHosts             []HostScore        `json:"topHosts"`
	Performance          Performance        `json:"performance"`
}

// Summary is the aggregate block returned by the summary endpoints.
type Summary struct {
	TotalEvents       uint64   `json:"totalEvents"`
	AnomaliesDetected uint64   `json:"anomaliesDetected"`
	AnomalyRate       *float64 `json:"anomalyRate"`
	HostsMonitored    *uint64  `json:"hostsMonitored"`
}

// ReportType enumerates synthesized report kinds.
type ReportType string

const (
	ReportSummary     ReportType = "summary"
	ReportAlerts      ReportType = "alerts"
	ReportHosts       ReportType = "hosts"
	ReportProtocols   ReportType = "protocols"
	ReportPerformance ReportType = "performance"
)

// ReportFormat is the declared download format.
type ReportFormat string

const (
	FormatJSON ReportFormat = "JSON"
	FormatCSV  ReportFormat = "CSV"
)

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	ReportCompleted  ReportStatus = "completed"
	ReportProcessing ReportStatus = "processing"
)

// Report is a client-side synthesized report.
type Report struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        ReportType     `json:"type"`
	Date        time.Time      `json:"date"`
	Size        string         `json:"size"`
	Format      ReportFormat   `json:"format"`
	Description string         `json:"description"`
	Metrics     map[string]any `json:"metrics"`
	Status      ReportStatus   `json:"status"`
}

// BackendReport is an entry of the backend report list.
type BackendReport struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// LogLine is one entry of the backend log tail.
type LogLine struct {
	Timestamp string `json:"timestamp,omitempty"`
	Level     string `json:"level,omitempty"`
	Message   string `json:"message"`
}

// TrainingJob is the state of a model retraining run.
type TrainingJob struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Progress *float64 `json:"progress,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Snapshot is one refresh cycle's view-models. It is never mutated after
// construction; a new cycle replaces it whole.
type Snapshot struct {
	TakenAt      time.Time              `json:"takenAt"`
	Network      NetworkStatus          `json:"network"`
	RecentAlerts []Alert                `json:"recentAlerts"`
	Alerts       []Alert                `json:"alerts"`
	AlertStats   AlertStats             `json:"alertStats"`
	Hosts        []Host                 `json:"hosts"`
	Analysis     *AnalysisOverview      `json:"analysis"`
	Failures     map[string]FailureKind `json:"failures,omitempty"`
}

// FailureKind classifies why a fetch fell back to its default.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureTimeout   FailureKind = "timeout"
	FailureStatus    FailureKind = "status"
	FailureMalformed FailureKind = "malformed"
	FailureCanceled  FailureKind = "canceled"
)
