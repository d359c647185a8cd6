// Package analytics computes the presentation metrics derived from
// normalized hosts and alerts.
package analytics

import (
	"math"
	"sort"

	"github.com/user/secdash/internal/model"
)

// TopN is the length of every ranking.
const TopN = 5

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Percentage returns part/total*100 rounded to one decimal, or 0 for an
// empty total.
func Percentage(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return Round(float64(part)/float64(total)*100, 1)
}

// AnomalyRate is the share of events flagged as anomalous, in percent.
func AnomalyRate(anomalies, total uint64) float64 {
	return Percentage(anomalies, total)
}

// ThreatPercentage is the share of monitored hosts with a threat, in percent.
func ThreatPercentage(threats, hosts uint64) float64 {
	return Percentage(threats, hosts)
}

// CountAlerts aggregates alerts by severity. Total always equals the sum of
// the three buckets.
func CountAlerts(alerts []model.Alert) model.AlertStats {
	stats := model.AlertStats{Source: model.StatsFromLocal}
	for _, a := range alerts {
		switch a.Severity {
		case model.SeverityHigh:
			stats.High++
		case model.SeverityMedium:
			stats.Medium++
		default:
			stats.Low++
		}
	}
	stats.Total = stats.High + stats.Medium + stats.Low
	return stats
}

// TopAnomalyTypes groups alerts by anomaly type and returns the n most
// frequent. Ties keep first-seen order. Severity is the highest seen for
// the type.
func TopAnomalyTypes(alerts []model.Alert, n int) []model.AnomalyTypeCount {
	index := make(map[string]int)
	var groups []model.AnomalyTypeCount

	for _, a := range alerts {
		i, ok := index[a.AnomalyType]
		if !ok {
			i = len(groups)
			index[a.AnomalyType] = i
			groups = append(groups, model.AnomalyTypeCount{Type: a.AnomalyType, Severity: a.Severity})
		}
		groups[i].Count++
		if a.Severity.Rank() > groups[i].Severity.Rank() {
			groups[i].Severity = a.Severity
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	groups = truncate(groups, n)

	total := uint64(len(alerts))
	for i := range groups {
		groups[i].Percentage = Percentage(groups[i].Count, total)
	}
	return groups
}

// TopHosts folds alerts by IP and returns the n hosts with the highest
// anomaly score. Ties keep first-seen order.
func TopHosts(alerts []model.Alert, n int) []model.HostScore {
	index := make(map[string]int)
	var hosts []model.HostScore

	for _, a := range alerts {
		score := a.ScoreOrZero()
		i, ok := index[a.IP]
		if !ok {
			index[a.IP] = len(hosts)
			hosts = append(hosts, model.HostScore{IP: a.IP, AlertCount: 1, MaxScore: score})
			continue
		}
		hosts[i].AlertCount++
		hosts[i].MaxScore = math.Max(hosts[i].MaxScore, score)
	}

	sort.SliceStable(hosts, func(i, j int) bool {
		return hosts[i].MaxScore > hosts[j].MaxScore
	})
	return truncate(hosts, n)
}

type protocolSplit struct {
	protocol string
	share    float64
	color    string
}

var estimatedSplit = []protocolSplit{
	{"HTTP", 0.45, "#3B82F6"},
	{"HTTPS", 0.32, "#10B981"},
	{"TCP", 0.12, "#F59E0B"},
	{"UDP", 0.07, "#EF4444"},
	{"DNS", 0.04, "#8B5CF6"},
}

// EstimatedProtocolDistribution splits total over fixed protocol shares.
// It is a placeholder for backends that report no per-alert protocol and
// must be shown as an estimate.
func EstimatedProtocolDistribution(total uint64) []model.ProtocolShare {
	out := make([]model.ProtocolShare, 0, len(estimatedSplit))
	for _, s := range estimatedSplit {
		out = append(out, model.ProtocolShare{
			Protocol:   s.protocol,
			Count:      uint64(math.Floor(float64(total) * s.share)),
			Percentage: Round(s.share*100, 1),
			Color:      s.color,
		})
	}
	return out
}

// ProtocolColor returns the chart color for a protocol, or grey.
func ProtocolColor(protocol string) string {
	for _, s := range estimatedSplit {
		if s.protocol == protocol {
			return s.color
		}
	}
	return "#6B7280"
}

// PerformanceProxy derives model performance from the anomaly rate when
// the backend exposes no measured values. The result is marked estimated.
func PerformanceProxy(anomalyRate float64) model.Performance {
	rate := math.Min(math.Max(anomalyRate, 0), 100)
	return model.Performance{
		ModelAccuracy:     Round(100-rate, 1),
		FalsePositiveRate: Round(rate*0.1, 2),
		Estimated:         true,
	}
}

func truncate[T any](items []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}
