package normalize

import (
	"sort"
	"strings"

	"github.com/user/secdash/internal/analytics"
	"github.com/user/secdash/internal/model"
)

// AnalysisOverview reads the analysis payload. Aggregates may be grouped
// under overview, patterns and performance or sent flat. Missing rankings
// are empty; a missing protocol distribution or performance block is
// replaced by its labeled estimate. The second result is false when the
// payload is not an object.
func AnalysisOverview(raw any) (*model.AnalysisOverview, bool) {
	m := object(raw)
	if m == nil {
		return nil, false
	}
	overview := section(m, "overview")
	patterns := section(m, "patterns")

	a := &model.AnalysisOverview{}
	a.TotalEvents, _ = uintField(overview, "totalEvents", "total_events")
	a.AnomaliesDetected, _ = uintField(overview, "anomaliesDetected", "anomalies_detected")
	if rate, ok := floatField(overview, "anomalyRate", "anomaly_rate_percent", "anomaly_rate"); ok {
		a.AnomalyRate = rate
	} else {
		a.AnomalyRate = analytics.AnomalyRate(a.AnomaliesDetected, a.TotalEvents)
	}

	a.TopAnomalies = topAnomalies(list(patterns["topAnomalies"]), a.AnomaliesDetected)
	a.TopHosts = topHosts(list(patterns["topHosts"]))

	if dist := protocolDistribution(list(patterns["protocolDistribution"])); len(dist) > 0 {
		a.ProtocolDistribution = dist
	} else {
		a.ProtocolDistribution = analytics.EstimatedProtocolDistribution(a.AnomaliesDetected)
		a.ProtocolsEstimated = true
	}

	if perf := object(m["performance"]); perf != nil {
		a.Performance = performance(perf, a.AnomalyRate)
	} else {
		a.Performance = analytics.PerformanceProxy(a.AnomalyRate)
	}

	return a, true
}

func section(m map[string]any, key string) map[string]any {
	if inner := object(m[key]); inner != nil {
		return inner
	}
	return m
}

func topAnomalies(items []any, anomalies uint64) []model.AnomalyTypeCount {
	out := make([]model.AnomalyTypeCount, 0, len(items))
	for _, item := range items {
		m := object(item)
		kind, ok := stringField(m, "type", "anomalyType", "anomaly_type")
		if !ok {
			continue
		}
		row := model.AnomalyTypeCount{Type: kind, Severity: model.SeverityLow}
		row.Count, _ = uintField(m, "count")
		if pct, ok := floatField(m, "percentage"); ok {
			row.Percentage = analytics.Round(pct, 1)
		} else {
			row.Percentage = analytics.Percentage(row.Count, anomalies)
		}
		if sev, ok := stringField(m, "severity"); ok && model.Severity(strings.ToLower(sev)).Valid() {
			row.Severity = model.Severity(strings.ToLower(sev))
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return truncate(out, analytics.TopN)
}

func topHosts(items []any) []model.HostScore {
	out := make([]model.HostScore, 0, len(items))
	for _, item := range items {
		m := object(item)
		ip, ok := stringField(m, ipKeys...)
		if !ok {
			continue
		}
		row := model.HostScore{IP: ip}
		row.AlertCount, _ = uintField(m, "alertCount", "alert_count", "count")
		row.MaxScore, _ = floatField(m, "maxScore", "max_score", "anomalyScore")
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MaxScore > out[j].MaxScore })
	return truncate(out, analytics.TopN)
}

func protocolDistribution(items []any) []model.ProtocolShare {
	out := make([]model.ProtocolShare, 0, len(items))
	for _, item := range items {
		m := object(item)
		name, ok := stringField(m, "protocol", "name")
		if !ok {
			continue
		}
		row := model.ProtocolShare{Protocol: name}
		row.Count, _ = uintField(m, "count")
		row.Percentage, _ = floatField(m, "percentage")
		if color, ok := stringField(m, "color"); ok {
			row.Color = color
		} else {
			row.Color = analytics.ProtocolColor(name)
		}
		out = append(out, row)
	}
	return out
}

// performance keeps measured values. When accuracy is missing the whole
// block falls back to the estimate so that measured and estimated numbers
// are never mixed.
func performance(m map[string]any, anomalyRate float64) model.Performance {
	accuracy, ok := floatField(m, "modelAccuracy", "model_accuracy", "accuracy")
	if !ok {
		return analytics.PerformanceProxy(anomalyRate)
	}
	p := model.Performance{
		ModelAccuracy:   accuracy,
		DetectionTime:   stringPtr(m, "detectionTime", "detection_time"),
		ProcessingSpeed: stringPtr(m, "processingSpeed", "processing_speed"),
	}
	p.FalsePositiveRate, _ = floatField(m, "falsePositiveRate", "false_positive_rate")
	return p
}

func truncate[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
