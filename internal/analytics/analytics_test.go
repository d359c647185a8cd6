package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/secdash/internal/model"
)

func alert(ip, kind string, sev model.Severity, score float64) model.Alert {
	return model.Alert{IP: ip, AnomalyType: kind, Severity: sev, AnomalyScore: &score}
}

func TestCountAlertsTotalsAddUp(t *testing.T) {
	alerts := []model.Alert{
		alert("10.0.0.1", "scan", model.SeverityHigh, 90),
		alert("10.0.0.2", "scan", model.SeverityLow, 10),
		alert("10.0.0.3", "dos", model.SeverityMedium, 50),
		{IP: "10.0.0.4", Severity: "bogus"},
	}
	stats := CountAlerts(alerts)
	assert.Equal(t, model.AlertStats{Total: 4, High: 1, Medium: 1, Low: 2, Source: model.StatsFromLocal}, stats)
	assert.Equal(t, stats.Total, stats.High+stats.Medium+stats.Low)

	empty := CountAlerts(nil)
	assert.Zero(t, empty.Total)
	assert.Equal(t, model.StatsFromLocal, empty.Source)
}

func TestTopAnomalyTypes(t *testing.T) {
	alerts := []model.Alert{
		alert("a", "scan", model.SeverityLow, 0),
		alert("b", "dos", model.SeverityMedium, 0),
		alert("c", "scan", model.SeverityHigh, 0),
		alert("d", "brute", model.SeverityLow, 0),
		alert("e", "dos", model.SeverityLow, 0),
		alert("f", "scan", model.SeverityLow, 0),
	}

	top := TopAnomalyTypes(alerts, TopN)
	require.Len(t, top, 3)
	assert.Equal(t, model.AnomalyTypeCount{Type: "scan", Count: 3, Percentage: 50, Severity: model.SeverityHigh}, top[0])
	assert.Equal(t, model.AnomalyTypeCount{Type: "dos", Count: 2, Percentage: 33.3, Severity: model.SeverityMedium}, top[1])
	assert.Equal(t, model.AnomalyTypeCount{Type: "brute", Count: 1, Percentage: 16.7, Severity: model.SeverityLow}, top[2])
}

func TestTopAnomalyTypesTruncatesAndKeepsTieOrder(t *testing.T) {
	var alerts []model.Alert
	for _, kind := range []string{"g", "f", "e", "d", "c", "b", "a"} {
		alerts = append(alerts, alert("x", kind, model.SeverityLow, 0))
	}

	top := TopAnomalyTypes(alerts, TopN)
	require.Len(t, top, 5)
	var kinds []string
	for _, row := range top {
		kinds = append(kinds, row.Type)
	}
	assert.Equal(t, []string{"g", "f", "e", "d", "c"}, kinds)
}

func TestTopHosts(t *testing.T) {
	alerts := []model.Alert{
		alert("10.0.0.1", "scan", model.SeverityLow, 20),
		alert("10.0.0.2", "scan", model.SeverityHigh, 95),
		alert("10.0.0.1", "scan", model.SeverityHigh, 80),
		{IP: "10.0.0.3"},
	}

	top := TopHosts(alerts, TopN)
	require.Len(t, top, 3)
	assert.Equal(t, model.HostScore{IP: "10.0.0.2", AlertCount: 1, MaxScore: 95}, top[0])
	assert.Equal(t, model.HostScore{IP: "10.0.0.1", AlertCount: 2, MaxScore: 80}, top[1])
	assert.Equal(t, model.HostScore{IP: "10.0.0.3", AlertCount: 1, MaxScore: 0}, top[2])

	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].MaxScore, top[i].MaxScore)
	}
}

func TestEstimatedProtocolDistribution(t *testing.T) {
	dist := EstimatedProtocolDistribution(100)
	require.Len(t, dist, 5)

	counts := map[string]uint64{}
	var pct float64
	for _, p := range dist {
		counts[p.Protocol] = p.Count
		pct += p.Percentage
		assert.NotEmpty(t, p.Color)
	}
	assert.Equal(t, map[string]uint64{"HTTP": 45, "HTTPS": 32, "TCP": 12, "UDP": 7, "DNS": 4}, counts)
	assert.InDelta(t, 100, pct, 0.001)

	small := EstimatedProtocolDistribution(3)
	assert.Equal(t, uint64(1), small[0].Count)
	assert.Equal(t, uint64(0), small[4].Count)
}

func TestPerformanceProxy(t *testing.T) {
	p := PerformanceProxy(12.5)
	assert.Equal(t, 87.5, p.ModelAccuracy)
	assert.Equal(t, 1.25, p.FalsePositiveRate)
	assert.True(t, p.Estimated)
	assert.Nil(t, p.DetectionTime)
	assert.Nil(t, p.ProcessingSpeed)

	assert.Equal(t, 100.0, PerformanceProxy(-3).ModelAccuracy)
	assert.Equal(t, 0.0, PerformanceProxy(250).ModelAccuracy)
}

func TestPercentages(t *testing.T) {
	assert.Equal(t, 0.0, Percentage(3, 0))
	assert.Equal(t, 33.3, AnomalyRate(1, 3))
	assert.Equal(t, 66.7, ThreatPercentage(2, 3))
	assert.Equal(t, 1.24, Round(1.2449, 2))
}

func TestFilterAlerts(t *testing.T) {
	alerts := []model.Alert{
		alert("10.0.0.1", "Port Scan", model.SeverityHigh, 0),
		alert("192.168.1.5", "DoS", model.SeverityLow, 0),
		alert("10.0.0.9", "dos burst", model.SeverityHigh, 0),
	}

	assert.Len(t, FilterAlerts(alerts, "", ""), 3)
	assert.Len(t, FilterAlerts(alerts, model.SeverityHigh, ""), 2)
	assert.Len(t, FilterAlerts(alerts, "", "DOS"), 2)
	assert.Len(t, FilterAlerts(alerts, model.SeverityHigh, "dos"), 1)
	assert.Len(t, FilterAlerts(alerts, "", "192.168"), 1)
}

func TestFilterHostsAndSuspicious(t *testing.T) {
	hosts := []model.Host{
		{IP: "10.0.0.1", Status: model.HostSafe, Protocols: []string{"TCP", "HTTP"}},
		{IP: "10.0.0.2", Status: model.HostSuspicious, Protocols: []string{"UDP", "DNS"}},
		{IP: "172.16.0.1", Status: model.HostDangerous, Protocols: []string{"HTTPS"}},
	}

	assert.Len(t, FilterHosts(hosts, "", "10.0"), 2)
	assert.Len(t, FilterHosts(hosts, model.HostDangerous, ""), 1)

	byProtocol := FilterHosts(hosts, "", "dns")
	require.Len(t, byProtocol, 1)
	assert.Equal(t, "10.0.0.2", byProtocol[0].IP)
	assert.Len(t, FilterHosts(hosts, "", "http"), 2)
	assert.Len(t, FilterHosts(hosts, model.HostSafe, "HTTP"), 1)
	assert.Empty(t, FilterHosts(hosts, "", "icmp"))
	assert.Len(t, SuspiciousHosts(hosts), 2)
}

func TestRecentHighAndTopProtocols(t *testing.T) {
	var alerts []model.Alert
	for i := 0; i < 8; i++ {
		sev := model.SeverityLow
		if i%2 == 0 {
			sev = model.SeverityHigh
		}
		alerts = append(alerts, alert("x", "t", sev, 0))
	}
	assert.Len(t, RecentHigh(alerts, 3), 3)
	assert.Len(t, RecentHigh(alerts, 5), 4)

	protocols := []string{"HTTP", "HTTPS", "TCP", "UDP"}
	assert.Equal(t, []string{"HTTP", "HTTPS", "TCP"}, TopProtocols(protocols, 3))
	assert.Len(t, protocols, 4)
}

func TestUniqueIPs(t *testing.T) {
	alerts := []model.Alert{{IP: "a"}, {IP: "b"}, {IP: "a"}}
	assert.Equal(t, 2, UniqueIPs(alerts))
}
