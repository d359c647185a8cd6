package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/secdash/internal/adapter"
	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/transport"
	"github.com/user/secdash/internal/util"
)

var errDown = &transport.TransportError{Method: "GET", Path: "/x", Err: errors.New("connection refused")}

// stubAdapter returns canned values; a non-nil err field fails that call.
type stubAdapter struct {
	network    model.NetworkStatus
	networkErr error
	hosts      []model.Host
	hostsErr   error
	detailErr  error
	alerts     []model.Alert
	alertsErr  error
	stats      model.AlertStats
	statsErr   error
	overview   *model.AnalysisOverview
	overErr    error
	settings   model.Settings
	settingErr error
	putErr     error
	put        *model.Settings
	puts       atomic.Int32
	writeErr   error
}

func (a *stubAdapter) Revision() string { return "stub" }

func (a *stubAdapter) NetworkStatus(context.Context) (model.NetworkStatus, error) {
	return a.network, a.networkErr
}

func (a *stubAdapter) Hosts(context.Context) ([]model.Host, error) { return a.hosts, a.hostsErr }

func (a *stubAdapter) HostDetail(_ context.Context, ip string) (model.HostDetail, error) {
	if a.detailErr != nil {
		return model.HostDetail{}, a.detailErr
	}
	return model.HostDetail{Host: model.Host{IP: ip}}, nil
}

func (a *stubAdapter) Alerts(context.Context) ([]model.Alert, error) { return a.alerts, a.alertsErr }

func (a *stubAdapter) AlertCount(context.Context) (model.AlertStats, error) {
	return a.stats, a.statsErr
}

func (a *stubAdapter) AnalysisOverview(context.Context) (*model.AnalysisOverview, error) {
	return a.overview, a.overErr
}

func (a *stubAdapter) Settings(context.Context) (model.Settings, error) {
	return a.settings, a.settingErr
}

func (a *stubAdapter) UpdateSettings(_ context.Context, s model.Settings) error {
	a.puts.Add(1)
	a.put = &s
	return a.putErr
}

func (a *stubAdapter) RunInference(context.Context, *transport.FilePart) (any, error) {
	return "ok", a.writeErr
}

func (a *stubAdapter) LatestResults(context.Context) (any, error) { return nil, a.writeErr }

func (a *stubAdapter) Upload(context.Context, transport.FilePart, string) (any, error) {
	return "ok", a.writeErr
}

func (a *stubAdapter) Logs(context.Context, int) ([]model.LogLine, error) { return nil, a.writeErr }

func (a *stubAdapter) StartTraining(context.Context, map[string]any) (model.TrainingJob, error) {
	return model.TrainingJob{ID: "t1", Status: "started"}, a.writeErr
}

func (a *stubAdapter) TrainingStatus(_ context.Context, id string) (model.TrainingJob, error) {
	return model.TrainingJob{ID: id, Status: "running"}, a.writeErr
}

func (a *stubAdapter) Reports(context.Context) ([]model.BackendReport, error) { return nil, a.writeErr }

func (a *stubAdapter) GenerateReport(context.Context, string) (any, error) { return nil, a.writeErr }

func (a *stubAdapter) DownloadReport(context.Context, string) ([]byte, error) {
	return []byte("{}"), a.writeErr
}

var _ adapter.ResponseAdapter = (*stubAdapter)(nil)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.FailureKind
	}{
		{"network", errDown, model.FailureTransport},
		{"status", &transport.TransportError{Status: 502, Err: errors.New("bad gateway")}, model.FailureStatus},
		{"timeout", &transport.TransportError{Err: context.DeadlineExceeded}, model.FailureTimeout},
		{"canceled", &transport.TransportError{Err: context.Canceled}, model.FailureCanceled},
		{"malformed", fmt.Errorf("%w: /alerts", transport.ErrMalformedPayload), model.FailureMalformed},
		{"other", errors.New("boom"), model.FailureTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestReadFallbacks(t *testing.T) {
	svc := New(&stubAdapter{
		networkErr: errDown,
		hostsErr:   errDown,
		detailErr:  errDown,
		alertsErr:  errDown,
		statsErr:   errDown,
		overErr:    errDown,
		settingErr: errDown,
		writeErr:   errDown,
	})
	ctx := context.Background()

	assert.Equal(t, OfflineStatus(), svc.GetNetworkStatus(ctx))
	assert.Equal(t, []model.Host{}, svc.GetHosts(ctx))
	assert.Equal(t, []model.Alert{}, svc.GetAlerts(ctx, ""))
	assert.Equal(t, model.AlertStats{Source: model.StatsFromFallback}, svc.GetAlertCount(ctx))
	assert.Nil(t, svc.GetAnalysisOverview(ctx))
	assert.Equal(t, model.DefaultSettings(), svc.GetSettings(ctx))
	assert.Equal(t, []model.LogLine{}, svc.GetLogs(ctx, 10))
	assert.Nil(t, svc.GetLatestResults(ctx))
	assert.Equal(t, []model.BackendReport{}, svc.ListBackendReports(ctx))
	assert.Equal(t, model.TrainingJob{ID: "t9", Status: "unknown"}, svc.GetTrainingStatus(ctx, "t9"))

	detail, ok := svc.GetHostDetail(ctx, "10.0.0.1")
	assert.False(t, ok)
	assert.Nil(t, detail)
}

func TestAlertCountFallsBackToLocalAggregation(t *testing.T) {
	svc := New(&stubAdapter{
		statsErr: errDown,
		alerts: []model.Alert{
			{ID: 1, Severity: model.SeverityHigh},
			{ID: 2, Severity: model.SeverityLow},
			{ID: 3, Severity: model.SeverityMedium},
		},
	})

	stats := svc.GetAlertCount(context.Background())
	assert.Equal(t, model.StatsFromLocal, stats.Source)
	assert.Equal(t, uint64(3), stats.Total)
	assert.Equal(t, stats.Total, stats.High+stats.Medium+stats.Low)
}

func TestAlertCountPrefersBackend(t *testing.T) {
	backend := model.AlertStats{Total: 9, High: 1, Source: model.StatsFromBackend}
	svc := New(&stubAdapter{stats: backend})
	assert.Equal(t, backend, svc.GetAlertCount(context.Background()))
}

func TestGetAlertsFiltersSeverity(t *testing.T) {
	svc := New(&stubAdapter{alerts: []model.Alert{
		{ID: 1, Severity: model.SeverityHigh},
		{ID: 2, Severity: model.SeverityLow},
	}})
	high := svc.GetAlerts(context.Background(), model.SeverityHigh)
	require.Len(t, high, 1)
	assert.Equal(t, uint64(1), high[0].ID)
	assert.Len(t, svc.GetAlerts(context.Background(), ""), 2)
}

func TestUpdateSettingsValidatesBeforeSending(t *testing.T) {
	stub := &stubAdapter{}
	svc := New(stub)

	bad := model.DefaultSettings()
	bad.General.RefreshInterval = 1
	status, err := svc.UpdateSettings(context.Background(), bad)
	assert.Equal(t, model.SaveError, status)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, stub.puts.Load())

	good := model.DefaultSettings()
	good.General.Theme = "light"
	status, err = svc.UpdateSettings(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, model.SaveSuccess, status)
	assert.Equal(t, &good, stub.put)
}

func TestSettingsWritesSurfaceErrors(t *testing.T) {
	svc := New(&stubAdapter{putErr: errDown})

	status, err := svc.UpdateSettings(context.Background(), model.DefaultSettings())
	assert.Equal(t, model.SaveError, status)
	assert.ErrorIs(t, err, ErrUnavailable)

	defaults, status, err := svc.ResetSettings(context.Background())
	assert.Equal(t, model.SaveError, status)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, model.DefaultSettings(), defaults)

	ok := New(&stubAdapter{})
	_, status, err = ok.ResetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SaveReset, status)
}

func TestWriteErrorsAreWrapped(t *testing.T) {
	svc := New(&stubAdapter{writeErr: errDown})
	ctx := context.Background()

	_, err := svc.RunInference(ctx, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.UploadData(ctx, transport.FilePart{}, "pcap")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.StartTraining(ctx, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.GenerateBackendReport(ctx, "summary")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.DownloadBackendReport(ctx, "r1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDashboardHalvesFailIndependently(t *testing.T) {
	svc := New(&stubAdapter{
		networkErr: errDown,
		alerts: []model.Alert{
			{ID: 1, Severity: model.SeverityHigh},
			{ID: 2, Severity: model.SeverityLow},
		},
	})

	view := svc.Dashboard(context.Background())
	assert.Equal(t, model.StateOffline, view.Network.Status)
	require.Len(t, view.RecentAlerts, 1)
	assert.Equal(t, model.FailureTransport, view.Failures[ResourceNetwork])
	assert.NotContains(t, view.Failures, ResourceAlerts)

	svc = New(&stubAdapter{
		network:   model.NetworkStatus{Status: model.StateWarning, HostsMonitored: 8, ThreatsDetected: 2, TopProtocols: []string{"A", "B", "C", "D"}},
		alertsErr: errDown,
	})
	view = svc.Dashboard(context.Background())
	assert.Equal(t, model.StateWarning, view.Network.Status)
	assert.Equal(t, 25.0, view.ThreatPercentage)
	assert.Equal(t, []string{"A", "B", "C"}, view.TopProtocols)
	assert.Empty(t, view.RecentAlerts)
}

func TestSnapshotCombinesFallbacks(t *testing.T) {
	svc := New(&stubAdapter{
		network:  model.NetworkStatus{Status: model.StateSafe},
		alerts:   []model.Alert{{ID: 1, Severity: model.SeverityHigh}},
		statsErr: errDown,
		hostsErr: &transport.TransportError{Status: 500, Err: errors.New("oops")},
		overErr:  fmt.Errorf("%w: bad", transport.ErrMalformedPayload),
	})

	snap := svc.Snapshot(context.Background())
	assert.False(t, snap.TakenAt.IsZero())
	assert.Equal(t, model.StateSafe, snap.Network.Status)
	assert.Equal(t, model.AlertStats{Total: 1, High: 1, Source: model.StatsFromLocal}, snap.AlertStats)
	assert.Equal(t, []model.Host{}, snap.Hosts)
	assert.Nil(t, snap.Analysis)
	assert.Len(t, snap.RecentAlerts, 1)
	assert.Equal(t, map[string]model.FailureKind{
		ResourceAlertCount: model.FailureTransport,
		ResourceHosts:      model.FailureStatus,
		ResourceAnalysis:   model.FailureMalformed,
	}, snap.Failures)
}

// The scenarios below run against a real HTTP fake.

func newHTTPService(t *testing.T, revision string, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := util.DefaultConfig()
	cfg.BackendURL = srv.URL
	cfg.BackendRevision = revision
	cfg.MaxRetries = 0
	cfg.RequestTimeout = time.Second

	svc, err := NewFromConfig(cfg)
	require.NoError(t, err)
	return svc
}

func TestAlertCountZeroWhenBackendDown(t *testing.T) {
	svc := newHTTPService(t, util.RevisionMonitoring, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.Equal(t, model.AlertStats{Source: model.StatsFromFallback}, svc.GetAlertCount(context.Background()))
}

func TestSettingsFetchFailureReturnsDefaults(t *testing.T) {
	svc := newHTTPService(t, util.RevisionDashboard, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	got := svc.GetSettings(context.Background())
	assert.Equal(t, model.DefaultSettings(), got)
	assert.NoError(t, got.Validate())
}

func TestHostDetailNotFound(t *testing.T) {
	svc := newHTTPService(t, util.RevisionLegacy, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "Host not found"}`, http.StatusNotFound)
	})

	_, ok := svc.GetHostDetail(context.Background(), "10.0.0.1")
	assert.False(t, ok)
}

func TestCanceledContextFallsBack(t *testing.T) {
	svc := newHTTPService(t, util.RevisionMonitoring, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := svc.Snapshot(ctx)
	assert.Equal(t, model.FailureCanceled, snap.Failures[ResourceHosts])
	assert.Equal(t, []model.Host{}, snap.Hosts)
}

func TestLegacySnapshotFetchesAlertsOnce(t *testing.T) {
	var alertHits atomic.Int32
	svc := newHTTPService(t, util.RevisionLegacy, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/summary":
			_, _ = w.Write([]byte(`{"total_events": 100, "anomalies_detected": 4}`))
		case "/results":
			_, _ = w.Write([]byte(`[]`))
		case "/alerts":
			// every later batch differs from the first
			if alertHits.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"alerts": [{"ip": "10.0.0.1", "severity": "high", "anomaly_type": "scan"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"alerts": [
				{"ip": "10.0.0.2", "severity": "low"}, {"ip": "10.0.0.3", "severity": "low"}, {"ip": "10.0.0.4", "severity": "medium"}
			]}`))
		default:
			http.NotFound(w, r)
		}
	})

	snap := svc.Snapshot(context.Background())
	assert.Equal(t, int32(1), alertHits.Load())
	assert.Empty(t, snap.Failures)
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, model.AlertStats{Total: 1, High: 1, Source: model.StatsFromLocal}, snap.AlertStats)
	require.NotNil(t, snap.Analysis)
	require.Len(t, snap.Analysis.TopAnomalies, 1)
	assert.Equal(t, "scan", snap.Analysis.TopAnomalies[0].Type)
}

func TestLegacySnapshotAlertFailureFailsDerivedViews(t *testing.T) {
	svc := newHTTPService(t, util.RevisionLegacy, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/summary":
			_, _ = w.Write([]byte(`{"total_events": 100, "anomalies_detected": 4}`))
		case "/results":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})

	snap := svc.Snapshot(context.Background())
	assert.Equal(t, ZeroStats(), snap.AlertStats)
	assert.Nil(t, snap.Analysis)
	assert.Equal(t, model.FailureStatus, snap.Failures[ResourceAlerts])
	assert.Equal(t, model.FailureStatus, snap.Failures[ResourceAlertCount])
	assert.Equal(t, model.FailureStatus, snap.Failures[ResourceAnalysis])
}

func TestNewFromConfigRejectsBadMode(t *testing.T) {
	cfg := util.DefaultConfig()
	cfg.SeverityMode = "fuzzy"
	_, err := NewFromConfig(cfg)
	assert.Error(t, err)
}
