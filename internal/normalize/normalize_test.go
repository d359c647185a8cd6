package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/secdash/internal/model"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestAlertsFromCombinedFlag(t *testing.T) {
	raw := decodeJSON(t, `{"total_alerts": 2, "alerts": [
		{"src_ip": "10.0.0.1", "combined_flag": 1},
		{"src_ip": "10.0.0.2", "combined_flag": 0}
	]}`)

	alerts := Alerts(raw, model.SeverityBinary)
	require.Len(t, alerts, 2)
	assert.Equal(t, uint64(1), alerts[0].ID)
	assert.Equal(t, "10.0.0.1", alerts[0].IP)
	assert.Equal(t, model.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, uint64(2), alerts[1].ID)
	assert.Equal(t, "10.0.0.2", alerts[1].IP)
	assert.Equal(t, model.SeverityLow, alerts[1].Severity)
	assert.Equal(t, UnknownAnomalyType, alerts[0].AnomalyType)
	assert.Nil(t, alerts[0].Timestamp)
}

func TestAlertsSeverityModes(t *testing.T) {
	raw := decodeJSON(t, `[
		{"ip": "a", "combined_flag": 0, "anomaly_score": 45},
		{"ip": "b", "severity": "MEDIUM", "combined_flag": 1},
		{"ip": "c", "anomaly_score": 80, "anomaly_type": "Port Scan", "timestamp": "2024-05-01T10:00:00Z"},
		{"ip": "d"},
		"garbage"
	]`)

	binary := Alerts(raw, model.SeverityBinary)
	require.Len(t, binary, 4)
	assert.Equal(t, model.SeverityLow, binary[0].Severity)
	assert.Equal(t, model.SeverityMedium, binary[1].Severity)
	assert.Equal(t, model.SeverityHigh, binary[2].Severity)
	assert.Equal(t, model.SeverityLow, binary[3].Severity)
	assert.Equal(t, "Port Scan", binary[2].AnomalyType)
	require.NotNil(t, binary[2].Timestamp)
	assert.Equal(t, "2024-05-01T10:00:00Z", *binary[2].Timestamp)
	assert.Equal(t, uint64(4), binary[3].ID)

	graded := Alerts(raw, model.SeverityGraded)
	assert.Equal(t, model.SeverityMedium, graded[0].Severity)
}

func TestAlertsEmptyOrMalformed(t *testing.T) {
	assert.Empty(t, Alerts(nil, model.SeverityBinary))
	assert.Empty(t, Alerts(decodeJSON(t, `{"detail": "not found"}`), model.SeverityBinary))
	assert.NotNil(t, Alerts(nil, model.SeverityBinary))
}

func TestHostsStatusFollowsScore(t *testing.T) {
	raw := decodeJSON(t, `[
		{"id": 7, "ip": "10.0.0.1", "status": "safe", "anomalyScore": 75, "protocols": ["TCP"], "trafficCount": 12},
		{"ip": "10.0.0.2", "anomalyScore": 70},
		{"ip": "10.0.0.3", "anomalyScore": 71},
		{"src_ip": "10.0.0.4", "isof_score": 0.12, "combined_flag": 1},
		{"status": "dangerous"}
	]`)

	hosts := Hosts(raw)
	require.Len(t, hosts, 4)

	assert.Equal(t, uint64(7), hosts[0].ID)
	assert.Equal(t, model.HostDangerous, hosts[0].Status)
	assert.Equal(t, []string{"TCP"}, hosts[0].Protocols)
	assert.Equal(t, uint64(12), hosts[0].TrafficCount)

	assert.Equal(t, uint64(2), hosts[1].ID)
	assert.Equal(t, model.HostSuspicious, hosts[1].Status)
	assert.Equal(t, model.HostDangerous, hosts[2].Status)

	assert.Equal(t, "10.0.0.4", hosts[3].IP)
	assert.Equal(t, model.HostSafe, hosts[3].Status)
	assert.Equal(t, []string{}, hosts[3].Protocols)
	assert.True(t, hosts[3].ScoreMissing)
	assert.True(t, hosts[3].Flagged)
	assert.Equal(t, model.NotAvailable, hosts[3].ScoreText())

	assert.False(t, hosts[0].ScoreMissing)
	assert.False(t, hosts[0].Flagged)
	assert.Equal(t, "75.00", hosts[0].ScoreText())

	for _, h := range hosts {
		assert.Equal(t, model.ClassifyScore(h.AnomalyScore), h.Status)
	}
}

func TestHostsWrapped(t *testing.T) {
	raw := decodeJSON(t, `{"hosts": [{"ip": "fe80::1", "anomaly_score": "33.5"}]}`)
	hosts := Hosts(raw)
	require.Len(t, hosts, 1)
	assert.Equal(t, 33.5, hosts[0].AnomalyScore)
	assert.Equal(t, model.HostSuspicious, hosts[0].Status)
}

func TestHostDetail(t *testing.T) {
	raw := decodeJSON(t, `{"id": 3, "ip": "10.0.0.3", "anomalyScore": 88,
		"details": {"anomalyType": "DDoS", "isoScore": -0.21, "aeMse": 0.034}}`)

	d, ok := HostDetail(raw)
	require.True(t, ok)
	assert.Equal(t, model.HostDangerous, d.Status)
	assert.Equal(t, "DDoS", d.AnomalyTypeOrDefault())
	assert.Equal(t, -0.21, d.IsoScoreOrZero())
	assert.Equal(t, 0.034, d.AeMseOrZero())
	assert.Equal(t, model.NotAvailable, d.DescriptionOrDefault())

	legacy := decodeJSON(t, `{"src_ip": "10.0.0.9", "isof_score": 0.4, "auto_mse": null, "combined_flag": 1}`)
	d, ok = HostDetail(legacy)
	require.True(t, ok)
	assert.Equal(t, 0.4, d.IsoScoreOrZero())
	assert.Nil(t, d.AeMse)
	assert.Equal(t, model.NotAvailable, d.AnomalyTypeOrDefault())

	_, ok = HostDetail(decodeJSON(t, `{"detail": "Host not found"}`))
	assert.False(t, ok)
}

func TestNetworkStatusFromSummaryAndResults(t *testing.T) {
	summary := decodeJSON(t, `{"total_events": 120, "anomalies_detected": 4, "anomaly_rate_percent": 3.3}`)
	results := decodeJSON(t, `[{"src_ip": "a"}, {"src_ip": "b"}, {"src_ip": "c"}]`)

	ns := NetworkStatus(summary, results)
	assert.Equal(t, model.StateWarning, ns.Status)
	assert.Equal(t, uint64(3), ns.HostsMonitored)
	assert.Equal(t, uint64(4), ns.ThreatsDetected)
	assert.Nil(t, ns.TrafficPerSecond)
	assert.Equal(t, model.DefaultProtocols, ns.TopProtocols)
	assert.True(t, ns.TopProtocolsEstimated)
}

func TestNetworkStatusInferenceSummary(t *testing.T) {
	summary := decodeJSON(t, `{"n_hosts": 10, "n_flagged": 0, "isof_threshold": 0.1, "auto_threshold": 0.02}`)
	ns := NetworkStatus(summary, nil)
	assert.Equal(t, model.StateSafe, ns.Status)
	assert.Equal(t, uint64(10), ns.HostsMonitored)
	assert.Zero(t, ns.ThreatsDetected)
}

func TestNetworkStatusExplicitStatus(t *testing.T) {
	danger := decodeJSON(t, `{"status": "danger", "hostsMonitored": 5, "threatsDetected": 2,
		"trafficPerSecond": 830, "topProtocols": ["TCP", "DNS"]}`)
	ns := NetworkStatus(danger, nil)
	assert.Equal(t, model.StateDanger, ns.Status)
	require.NotNil(t, ns.TrafficPerSecond)
	assert.Equal(t, uint64(830), *ns.TrafficPerSecond)
	assert.Equal(t, []string{"TCP", "DNS"}, ns.TopProtocols)
	assert.False(t, ns.TopProtocolsEstimated)

	inconsistent := decodeJSON(t, `{"status": "safe", "threatsDetected": 3}`)
	assert.Equal(t, model.StateWarning, NetworkStatus(inconsistent, nil).Status)

	alarmist := decodeJSON(t, `{"status": "danger", "threatsDetected": 0}`)
	assert.Equal(t, model.StateSafe, NetworkStatus(alarmist, nil).Status)

	online := decodeJSON(t, `{"status": "online", "threatsDetected": 0}`)
	assert.Equal(t, model.StateOnline, NetworkStatus(online, nil).Status)
}

func TestNetworkStatusEmpty(t *testing.T) {
	ns := NetworkStatus(nil, nil)
	assert.Equal(t, model.StateSafe, ns.Status)
	assert.Zero(t, ns.HostsMonitored)
}

func TestAlertStats(t *testing.T) {
	stats, ok := AlertStats(decodeJSON(t, `{"total": 10, "high": 2, "medium": 3, "low": 4}`))
	require.True(t, ok)
	assert.Equal(t, model.AlertStats{Total: 10, High: 2, Medium: 3, Low: 4, Source: model.StatsFromBackend}, stats)

	stats, ok = AlertStats(decodeJSON(t, `{"high": 1, "low": 2}`))
	require.True(t, ok)
	assert.Equal(t, uint64(3), stats.Total)

	_, ok = AlertStats(decodeJSON(t, `[1, 2]`))
	assert.False(t, ok)
}

func TestAnalysisOverviewGrouped(t *testing.T) {
	raw := decodeJSON(t, `{
		"overview": {"totalEvents": 1000, "anomaliesDetected": 50, "anomalyRate": 5},
		"patterns": {
			"topAnomalies": [{"type": "scan", "count": 30, "severity": "high"}, {"type": "dos", "count": 20, "percentage": 40}],
			"protocolDistribution": [{"protocol": "TCP", "count": 40, "percentage": 80}],
			"topHosts": [{"ip": "10.0.0.1", "alertCount": 12, "maxScore": 91.5}]
		},
		"performance": {"modelAccuracy": 94.2, "falsePositiveRate": 2.1, "detectionTime": "1.2s", "processingSpeed": "5k/s"}
	}`)

	a, ok := AnalysisOverview(raw)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), a.TotalEvents)
	assert.Equal(t, 5.0, a.AnomalyRate)
	require.Len(t, a.TopAnomalies, 2)
	assert.Equal(t, 60.0, a.TopAnomalies[0].Percentage)
	assert.Equal(t, model.SeverityHigh, a.TopAnomalies[0].Severity)
	assert.Equal(t, model.SeverityLow, a.TopAnomalies[1].Severity)
	assert.False(t, a.ProtocolsEstimated)
	assert.Equal(t, "#F59E0B", a.ProtocolDistribution[0].Color)
	assert.Equal(t, []model.HostScore{{IP: "10.0.0.1", AlertCount: 12, MaxScore: 91.5}}, a.TopHosts)
	assert.False(t, a.Performance.Estimated)
	require.NotNil(t, a.Performance.DetectionTime)
	assert.Equal(t, "1.2s", *a.Performance.DetectionTime)
}

func TestAnalysisOverviewRankingsSortedBeforeCut(t *testing.T) {
	raw := decodeJSON(t, `{
		"overview": {"totalEvents": 100, "anomaliesDetected": 30},
		"patterns": {
			"topAnomalies": [
				{"type": "a", "count": 1}, {"type": "b", "count": 9}, {"type": "c", "count": 3},
				{"type": "d", "count": 7}, {"type": "e", "count": 2}, {"type": "f", "count": 8}
			],
			"topHosts": [
				{"ip": "1.1.1.1", "maxScore": 10}, {"ip": "2.2.2.2", "maxScore": 90}, {"ip": "3.3.3.3", "maxScore": 30},
				{"ip": "4.4.4.4", "maxScore": 70}, {"ip": "5.5.5.5", "maxScore": 20}, {"ip": "6.6.6.6", "maxScore": 80}
			]
		}
	}`)

	a, ok := AnalysisOverview(raw)
	require.True(t, ok)

	require.Len(t, a.TopAnomalies, 5)
	counts := make([]uint64, 0, len(a.TopAnomalies))
	for _, row := range a.TopAnomalies {
		counts = append(counts, row.Count)
	}
	assert.Equal(t, []uint64{9, 8, 7, 3, 2}, counts)

	require.Len(t, a.TopHosts, 5)
	ips := make([]string, 0, len(a.TopHosts))
	for _, row := range a.TopHosts {
		ips = append(ips, row.IP)
	}
	assert.Equal(t, []string{"2.2.2.2", "6.6.6.6", "4.4.4.4", "3.3.3.3", "5.5.5.5"}, ips)
}

func TestAnalysisOverviewFlatWithEstimates(t *testing.T) {
	raw := decodeJSON(t, `{"total_events": 200, "anomalies_detected": 20}`)

	a, ok := AnalysisOverview(raw)
	require.True(t, ok)
	assert.Equal(t, 10.0, a.AnomalyRate)
	assert.True(t, a.ProtocolsEstimated)
	assert.Len(t, a.ProtocolDistribution, 5)
	assert.Equal(t, uint64(9), a.ProtocolDistribution[0].Count)
	assert.True(t, a.Performance.Estimated)
	assert.Equal(t, 90.0, a.Performance.ModelAccuracy)
	assert.Empty(t, a.TopAnomalies)

	_, ok = AnalysisOverview("nope")
	assert.False(t, ok)
}

func TestSettingsMergeOverDefaults(t *testing.T) {
	raw := decodeJSON(t, `{"general": {"theme": "light"}, "alerts": {"severityFilter": ["high"]}}`)

	s, err := Settings(raw)
	require.NoError(t, err)
	want := model.DefaultSettings()
	want.General.Theme = "light"
	want.Alerts.SeverityFilter = []model.Severity{model.SeverityHigh}
	assert.Equal(t, want, s)

	wrapped, err := Settings(decodeJSON(t, `{"settings": {"api": {"timeout": 60}}}`))
	require.NoError(t, err)
	assert.Equal(t, 60, wrapped.API.Timeout)
	assert.Equal(t, 1000, wrapped.API.RateLimit)

	s, err = Settings(nil)
	assert.Error(t, err)
	assert.Equal(t, model.DefaultSettings(), s)

	_, err = Settings(decodeJSON(t, `{"general": {"refreshInterval": "soon"}}`))
	assert.Error(t, err)
}

func TestLogLinesTrainingAndReports(t *testing.T) {
	logs := LogLines(decodeJSON(t, `{"logs": ["boot", {"timestamp": "t1", "level": "INFO", "message": "ready"}, {"level": "x"}]}`))
	assert.Equal(t, []model.LogLine{{Message: "boot"}, {Timestamp: "t1", Level: "INFO", Message: "ready"}}, logs)

	job := TrainingJob(decodeJSON(t, `{"training_id": 42, "status": "running", "progress": 0.5}`), "")
	assert.Equal(t, "42", job.ID)
	assert.Equal(t, "running", job.Status)
	require.NotNil(t, job.Progress)
	assert.Equal(t, 0.5, *job.Progress)

	unknown := TrainingJob(nil, "abc")
	assert.Equal(t, model.TrainingJob{ID: "abc", Status: "unknown"}, unknown)

	reports := BackendReports(decodeJSON(t, `[{"id": 1, "name": "Daily", "type": "summary", "created_at": "2024-01-01"}, {"name": "no id"}]`))
	assert.Equal(t, []model.BackendReport{{ID: "1", Name: "Daily", Type: "summary", Date: "2024-01-01"}}, reports)
}

func TestNormalizersAreIdempotent(t *testing.T) {
	alerts := decodeJSON(t, `[{"src_ip": "10.0.0.1", "combined_flag": 1, "anomaly_score": 80}, {"ip": "b"}]`)
	hosts := decodeJSON(t, `[{"ip": "10.0.0.1", "anomalyScore": 50}]`)
	overview := decodeJSON(t, `{"total_events": 10, "anomalies_detected": 1}`)

	assert.Equal(t, Alerts(alerts, model.SeverityGraded), Alerts(alerts, model.SeverityGraded))
	assert.Equal(t, Hosts(hosts), Hosts(hosts))
	a1, _ := AnalysisOverview(overview)
	a2, _ := AnalysisOverview(overview)
	assert.Equal(t, a1, a2)
	assert.Equal(t, NetworkStatus(overview, hosts), NetworkStatus(overview, hosts))
}
