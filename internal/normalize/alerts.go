package normalize

import (
	"strings"

	"github.com/user/secdash/internal/model"
)

// UnknownAnomalyType labels alerts whose payload names no anomaly type.
const UnknownAnomalyType = "Unknown"

// Alerts reads an alert collection, bare or wrapped under alerts. IDs are
// assigned by position starting at 1 and are not stable across fetches.
// Severity follows model.DeriveSeverity under mode.
func Alerts(raw any, mode model.SeverityMode) []model.Alert {
	items := list(raw, "alerts", "results", "data")
	alerts := make([]model.Alert, 0, len(items))
	for _, item := range items {
		m := object(item)
		if m == nil {
			continue
		}

		ip, _ := stringField(m, ipKeys...)
		kind, ok := stringField(m, "anomalyType", "anomaly_type", "type")
		if !ok {
			kind = UnknownAnomalyType
		}
		score := floatPtr(m, scoreKeys...)

		alerts = append(alerts, model.Alert{
			ID:           uint64(len(alerts) + 1),
			IP:           ip,
			AnomalyType:  kind,
			Severity:     model.DeriveSeverity(explicitSeverity(m), flag(m), score, mode),
			Timestamp:    stringPtr(m, "timestamp", "time", "created_at"),
			AnomalyScore: score,
		})
	}
	return alerts
}

// AlertStats reads a pre-aggregated severity count payload. Counts from the
// backend are taken as given; a missing total is the sum of the buckets.
// The second result is false when the payload is not an object.
func AlertStats(raw any) (model.AlertStats, bool) {
	m := object(raw)
	if m == nil {
		return model.AlertStats{}, false
	}
	if inner := object(m["counts"]); inner != nil {
		m = inner
	}

	stats := model.AlertStats{Source: model.StatsFromBackend}
	stats.High, _ = uintField(m, "high")
	stats.Medium, _ = uintField(m, "medium")
	stats.Low, _ = uintField(m, "low")
	total, ok := uintField(m, "total", "total_alerts")
	if !ok {
		total = stats.High + stats.Medium + stats.Low
	}
	stats.Total = total
	return stats, true
}

func explicitSeverity(m map[string]any) *model.Severity {
	s, ok := stringField(m, "severity")
	if !ok {
		return nil
	}
	sev := model.Severity(strings.ToLower(s))
	if !sev.Valid() {
		return nil
	}
	return &sev
}

func flag(m map[string]any) *int {
	f, ok := intField(m, "combined_flag", "combinedFlag")
	if !ok {
		return nil
	}
	return &f
}
