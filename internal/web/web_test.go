package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/service"
	"github.com/user/secdash/internal/storage"
	"github.com/user/secdash/internal/util"
)

type staticFeed struct {
	snap *model.Snapshot
	ch   chan *model.Snapshot
}

func (f *staticFeed) Latest() *model.Snapshot { return f.snap }

func (f *staticFeed) Subscribe() (<-chan *model.Snapshot, func()) {
	return f.ch, func() {}
}

type fakeBackend struct {
	mu     sync.Mutex
	routes map[string]string
	puts   []string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	if r.Method == http.MethodPut {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.puts = append(b.puts, string(body))
		b.mu.Unlock()
		w.Write([]byte(`{"ok": true}`))
		return
	}
	body, ok := b.routes[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func dashboardBackend() *fakeBackend {
	return &fakeBackend{routes: map[string]string{
		"GET /api/dashboard/status": `{"status": "warning", "hostsMonitored": 4, "threatsDetected": 2, "topProtocols": ["HTTPS", "DNS", "TCP", "UDP"]}`,
		"GET /api/alerts": `{"alerts": [
			{"ip": "10.0.0.1", "severity": "high", "anomalyType": "Port Scan", "anomalyScore": 91},
			{"ip": "10.0.0.2", "severity": "low", "anomalyType": "DNS", "anomalyScore": 12}]}`,
		"GET /api/alerts/count": `{"total": 2, "high": 1, "medium": 0, "low": 1}`,
		"GET /api/monitoring/hosts": `{"hosts": [
			{"id": 1, "ip": "10.0.0.1", "anomalyScore": 91},
			{"id": 2, "ip": "10.0.0.2", "anomalyScore": 12}]}`,
		"GET /api/monitoring/hosts/10.0.0.1": `{"id": 1, "ip": "10.0.0.1", "anomalyScore": 91, "anomalyType": "Port Scan"}`,
		"GET /api/settings":                  `{"general": {"systemName": "SOC"}}`,
	}}
}

func newTestServer(t *testing.T, backend http.Handler, feed SnapshotFeed, history *storage.SnapshotStorage) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(backend)
	t.Cleanup(upstream.Close)

	cfg := util.DefaultConfig()
	cfg.BackendURL = upstream.URL
	cfg.BackendRevision = util.RevisionDashboard
	cfg.MaxRetries = 0
	cfg.RequestTimeout = time.Second

	svc, err := service.NewFromConfig(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(NewServer(svc, feed, history, cfg, 0).Handler(ctx))
	t.Cleanup(srv.Close)
	return srv
}

func emptyFeed() *staticFeed {
	return &staticFeed{ch: make(chan *model.Snapshot)}
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestDashboardAndHosts(t *testing.T) {
	srv := newTestServer(t, dashboardBackend(), emptyFeed(), nil)

	var dash service.DashboardView
	resp := getJSON(t, srv.URL+"/api/dashboard", &dash)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StateWarning, dash.Network.Status)
	assert.Equal(t, 50.0, dash.ThreatPercentage)
	assert.Equal(t, []string{"HTTPS", "DNS", "TCP"}, dash.TopProtocols)
	require.Len(t, dash.RecentAlerts, 1)
	assert.Equal(t, "10.0.0.1", dash.RecentAlerts[0].IP)

	var hosts []model.Host
	getJSON(t, srv.URL+"/api/hosts?status=dangerous", &hosts)
	require.Len(t, hosts, 1)
	assert.Equal(t, "10.0.0.1", hosts[0].IP)

	resp = getJSON(t, srv.URL+"/api/hosts?status=weird", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var detail map[string]any
	getJSON(t, srv.URL+"/api/hosts/10.0.0.1", &detail)
	assert.Equal(t, "Port Scan", detail["anomalyType"])
	assert.Equal(t, "N/A", detail["description"])

	resp = getJSON(t, srv.URL+"/api/hosts/10.9.9.9", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAlertsCountAndAnalysis(t *testing.T) {
	srv := newTestServer(t, dashboardBackend(), emptyFeed(), nil)

	var alerts []model.Alert
	getJSON(t, srv.URL+"/api/alerts?severity=high", &alerts)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Port Scan", alerts[0].AnomalyType)

	alerts = nil
	getJSON(t, srv.URL+"/api/alerts?q=dns", &alerts)
	require.Len(t, alerts, 1)
	assert.Equal(t, "10.0.0.2", alerts[0].IP)

	resp := getJSON(t, srv.URL+"/api/alerts?severity=critical", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var stats model.AlertStats
	getJSON(t, srv.URL+"/api/alerts/count", &stats)
	assert.Equal(t, model.AlertStats{Total: 2, High: 1, Low: 1, Source: model.StatsFromBackend}, stats)

	// the fake has no overview endpoint
	resp = getJSON(t, srv.URL+"/api/analysis", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestReportsFromSnapshot(t *testing.T) {
	srv := newTestServer(t, dashboardBackend(), emptyFeed(), nil)

	var reports []model.Report
	getJSON(t, srv.URL+"/api/reports", &reports)
	require.Len(t, reports, 5)

	reports = nil
	getJSON(t, srv.URL+"/api/reports?type=hosts", &reports)
	require.Len(t, reports, 1)

	resp, err := http.Get(srv.URL + "/api/reports/critical_alerts/download?format=csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Critical_Alerts_Detected_")
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(body), "field,value\n"))

	resp2 := getJSON(t, srv.URL+"/api/reports/nope/download", nil)
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
	resp3 := getJSON(t, srv.URL+"/api/reports/summary_general/download?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)
}

func TestSettingsRoutes(t *testing.T) {
	backend := dashboardBackend()
	srv := newTestServer(t, backend, emptyFeed(), nil)

	var settings model.Settings
	getJSON(t, srv.URL+"/api/settings", &settings)
	assert.Equal(t, "SOC", settings.General.SystemName)
	assert.Equal(t, 30, settings.General.RefreshInterval)

	put := func(body string) (*http.Response, saveResult) {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/settings", strings.NewReader(body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var res saveResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		return resp, res
	}

	resp, res := put(`{"general": {"refreshInterval": 1}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, model.SaveError, res.Status)
	require.Len(t, res.Fields, 1)
	assert.Equal(t, "general.refreshInterval", res.Fields[0].Field)
	assert.Empty(t, backend.puts)

	resp, _ = put(`{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, res = put(`{"general": {"refreshInterval": 60}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.SaveSuccess, res.Status)
	require.Len(t, backend.puts, 1)
	assert.Contains(t, backend.puts[0], `"refreshInterval":60`)

	reset, err := http.Post(srv.URL+"/api/settings/reset", "application/json", nil)
	require.NoError(t, err)
	defer reset.Body.Close()
	assert.Equal(t, http.StatusOK, reset.StatusCode)
	var resetRes saveResult
	require.NoError(t, json.NewDecoder(reset.Body).Decode(&resetRes))
	assert.Equal(t, model.SaveReset, resetRes.Status)
	assert.Equal(t, model.DefaultSettings(), *resetRes.Settings)
}

func TestHealthMetricsAndCORS(t *testing.T) {
	feed := emptyFeed()
	feed.snap = &model.Snapshot{TakenAt: time.Now(), Failures: map[string]model.FailureKind{"hosts": model.FailureStatus}}
	srv := newTestServer(t, dashboardBackend(), feed, nil)

	var health map[string]any
	getJSON(t, srv.URL+"/health", &health)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, util.RevisionDashboard, health["revision"])
	assert.Equal(t, true, health["degraded"])

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "go_goroutines")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/alerts/count", nil)
	req.Header.Set("Origin", "http://example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAnalyticsRoutes(t *testing.T) {
	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	history := storage.NewSnapshotStorage(db)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := history.Save(&model.Snapshot{
			TakenAt: base.Add(time.Duration(i) * time.Minute),
			Network: model.NetworkStatus{Status: model.StateSafe, ThreatsDetected: uint64(i)},
		})
		require.NoError(t, err)
	}

	feed := emptyFeed()
	srv := newTestServer(t, dashboardBackend(), feed, history)

	var points []TrendPoint
	getJSON(t, srv.URL+"/api/analytics/history?limit=2", &points)
	require.Len(t, points, 2)
	assert.Equal(t, uint64(1), points[0].Threats)
	assert.Equal(t, uint64(2), points[1].Threats)

	resp := getJSON(t, srv.URL+"/api/analytics/top", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	feed.snap = &model.Snapshot{
		Alerts: []model.Alert{
			{ID: 1, IP: "10.0.0.1", AnomalyType: "DoS", Severity: model.SeverityHigh},
			{ID: 2, IP: "10.0.0.1", AnomalyType: "DoS", Severity: model.SeverityHigh},
		},
		AlertStats: model.AlertStats{Total: 2, High: 2, Source: model.StatsFromLocal},
	}
	var top TopData
	getJSON(t, srv.URL+"/api/analytics/top?n=1", &top)
	require.Len(t, top.AnomalyTypes, 1)
	assert.Equal(t, uint64(2), top.AnomalyTypes[0].Count)
	require.Len(t, top.Hosts, 1)

	resp, err = http.Get(srv.URL + "/api/analytics/mermaid")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "```mermaid")
}

func TestWebsocketStream(t *testing.T) {
	feed := emptyFeed()
	feed.snap = &model.Snapshot{TakenAt: time.Now().UTC(), Network: model.NetworkStatus{Status: model.StateSafe}}
	srv := newTestServer(t, dashboardBackend(), feed, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, model.StateSafe, msg.Data.Network.Status)

	next := &model.Snapshot{TakenAt: time.Now().UTC(), Network: model.NetworkStatus{Status: model.StateDanger}}
	feed.ch <- next
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, model.StateDanger, msg.Data.Network.Status)
}
