package service

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/user/secdash/internal/adapter"
	"github.com/user/secdash/internal/analytics"
	"github.com/user/secdash/internal/model"
)

// RecentAlertsShown is how many high alerts the dashboard lists.
const RecentAlertsShown = 5

// DashboardView is the dashboard's data: network summary plus the most
// recent high alerts.
type DashboardView struct {
	Network          model.NetworkStatus          `json:"network"`
	RecentAlerts     []model.Alert                `json:"recentAlerts"`
	ThreatPercentage float64                      `json:"threatPercentage"`
	TopProtocols     []string                     `json:"topProtocols"`
	Failures         map[string]model.FailureKind `json:"failures,omitempty"`
}

// Dashboard fetches the network status and the alert list concurrently.
// Each half falls back on its own; one failing leaves the other intact.
func (s *Service) Dashboard(ctx context.Context) DashboardView {
	var (
		network    model.NetworkStatus
		alerts     []model.Alert
		networkErr error
		alertsErr  error
	)

	var wg conc.WaitGroup
	wg.Go(func() { network, networkErr = s.adapter.NetworkStatus(ctx) })
	wg.Go(func() { alerts, alertsErr = s.adapter.Alerts(ctx) })
	wg.Wait()

	failures := make(map[string]model.FailureKind)
	if networkErr != nil {
		failures[ResourceNetwork] = fallback(ResourceNetwork, networkErr)
		network = OfflineStatus()
	}
	if alertsErr != nil {
		failures[ResourceAlerts] = fallback(ResourceAlerts, alertsErr)
		alerts = []model.Alert{}
	}

	return DashboardView{
		Network:          network,
		RecentAlerts:     analytics.RecentHigh(alerts, RecentAlertsShown),
		ThreatPercentage: analytics.ThreatPercentage(network.ThreatsDetected, network.HostsMonitored),
		TopProtocols:     analytics.TopProtocols(network.TopProtocols, 3),
		Failures:         failures,
	}
}

// Snapshot assembles every view of one refresh cycle. All resources are
// fetched concurrently and fall back independently. Revisions that derive
// counts or the analysis view from the alert list reuse this cycle's list.
// The returned snapshot is never modified afterwards.
func (s *Service) Snapshot(ctx context.Context) *model.Snapshot {
	var (
		network     model.NetworkStatus
		alerts      []model.Alert
		stats       model.AlertStats
		hosts       []model.Host
		overview    *model.AnalysisOverview
		networkErr  error
		alertsErr   error
		statsErr    error
		hostsErr    error
		overviewErr error
	)

	local, _ := s.adapter.(adapter.LocalAggregator)
	countLocally := local != nil && local.CountsLocally()

	var wg conc.WaitGroup
	wg.Go(func() { network, networkErr = s.adapter.NetworkStatus(ctx) })
	wg.Go(func() {
		alerts, alertsErr = s.adapter.Alerts(ctx)
		if local == nil {
			return
		}
		if alertsErr != nil {
			overviewErr = alertsErr
			return
		}
		overview, overviewErr = local.OverviewFrom(ctx, alerts)
	})
	if !countLocally {
		wg.Go(func() { stats, statsErr = s.adapter.AlertCount(ctx) })
	}
	wg.Go(func() { hosts, hostsErr = s.adapter.Hosts(ctx) })
	if local == nil {
		wg.Go(func() { overview, overviewErr = s.adapter.AnalysisOverview(ctx) })
	}
	wg.Wait()

	if countLocally {
		statsErr = alertsErr
	}

	snap := &model.Snapshot{
		TakenAt:  time.Now().UTC(),
		Failures: make(map[string]model.FailureKind),
	}

	if networkErr != nil {
		snap.Failures[ResourceNetwork] = fallback(ResourceNetwork, networkErr)
		network = OfflineStatus()
	}
	if alertsErr != nil {
		snap.Failures[ResourceAlerts] = fallback(ResourceAlerts, alertsErr)
		alerts = []model.Alert{}
	}
	switch {
	case statsErr != nil:
		snap.Failures[ResourceAlertCount] = fallback(ResourceAlertCount, statsErr)
		if alertsErr == nil {
			stats = analytics.CountAlerts(alerts)
		} else {
			stats = ZeroStats()
		}
	case countLocally:
		stats = analytics.CountAlerts(alerts)
	}
	if hostsErr != nil {
		snap.Failures[ResourceHosts] = fallback(ResourceHosts, hostsErr)
		hosts = []model.Host{}
	}
	if overviewErr != nil {
		snap.Failures[ResourceAnalysis] = fallback(ResourceAnalysis, overviewErr)
		overview = nil
	}

	snap.Network = network
	snap.Alerts = alerts
	snap.RecentAlerts = analytics.RecentHigh(alerts, RecentAlertsShown)
	snap.AlertStats = stats
	snap.Hosts = hosts
	snap.Analysis = overview
	return snap
}
